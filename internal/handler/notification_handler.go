package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/pagination"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler sets up the routing dependencies for notification endpoints
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	notifications := router.Group("/notifications", middleware.Authenticate(verifier))
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.GET("/summary", h.Summary)
		notifications.POST("/read", h.MarkRead)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/delete", h.DeleteBatch)
	}
}

// List returns the caller's notifications
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        type    query     string  false  "Type filter"
// @Param        unread  query     bool    false  "Unread only"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.ListNotificationsQuery{
		Type:       c.Query("type"),
		UnreadOnly: c.Query("unread") == "true",
		Page:       params.Page,
		Limit:      params.Limit,
	}

	actor, _ := middleware.IdentityFrom(c)
	ns, total, err := h.notificationService.List(c.Request.Context(), actor, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(ns, total, params.Page, params.Limit)))
}

// UnreadCount returns the caller's unread notification count
// @Summary      Unread count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, _ := middleware.IdentityFrom(c)
	count, err := h.notificationService.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"count": count}))
}

// Summary returns unread and per-type counts for the header badge
// @Summary      Notification summary
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.NotificationSummary}
// @Router       /notifications/summary [get]
func (h *NotificationHandler) Summary(c *gin.Context) {
	actor, _ := middleware.IdentityFrom(c)
	summary, err := h.notificationService.Summary(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// MarkRead marks selected notifications as read
// @Summary      Mark notifications read
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.NotificationIDsRequest  true  "Notification IDs"
// @Success      200      {object}  response.Response
// @Router       /notifications/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req service.NotificationIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	updated, err := h.notificationService.MarkRead(c.Request.Context(), actor, req.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": updated}))
}

// MarkAllRead marks every unread notification of the caller as read
// @Summary      Mark all read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, _ := middleware.IdentityFrom(c)
	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": updated}))
}

// DeleteBatch removes selected notifications of the caller
// @Summary      Delete notifications
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.NotificationIDsRequest  true  "Notification IDs"
// @Success      200      {object}  response.Response
// @Router       /notifications/delete [post]
func (h *NotificationHandler) DeleteBatch(c *gin.Context) {
	var req service.NotificationIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	deleted, err := h.notificationService.DeleteBatch(c.Request.Context(), actor, req.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": deleted}))
}
