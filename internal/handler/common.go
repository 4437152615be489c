package handler

import (
	"errors"
	"net/http"

	"riverwatch/internal/service"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fail maps a service error to the envelope. Authority denials carry
// their reason code and mapped status; lookup failures become 404;
// everything else is a 400 with the message.
func fail(c *gin.Context, err error) {
	if de, ok := service.AsDenied(err); ok {
		status := de.Decision.Reason.HTTPStatus()
		c.JSON(status, response.Denied(status, string(de.Decision.Reason), de.Decision.Message))
		return
	}
	if service.IsNotFound(err) || isNotFoundSentinel(err) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
}

func isNotFoundSentinel(err error) bool {
	return errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrAlarmNotFound) ||
		errors.Is(err, service.ErrWorkOrderNotFound) ||
		errors.Is(err, service.ErrDeviceNotFound) ||
		errors.Is(err, service.ErrAreaNotFound) ||
		errors.Is(err, service.ErrRoleNotFound)
}

// pathUUID parses a uuid path parameter, writing the 400 itself on failure
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的ID格式"))
		return uuid.Nil, false
	}
	return id, true
}

// listData is the standard paginated payload shape
func listData(items interface{}, total int64, page, limit int) gin.H {
	return gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}
