package handler

import (
	"context"
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/model"
	"riverwatch/internal/service"
	"riverwatch/pkg/pagination"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlarmHandler struct {
	alarmService service.AlarmService
}

// NewAlarmHandler sets up the routing dependencies for alarm endpoints
func NewAlarmHandler(alarmService service.AlarmService) *AlarmHandler {
	return &AlarmHandler{alarmService: alarmService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup. Route-level
// guards only check authentication; permission, scope and transition
// checks run per entity in the authority.
func (h *AlarmHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	alarms := router.Group("/alarms", middleware.Authenticate(verifier))
	{
		alarms.GET("", h.List)
		alarms.GET("/:id", h.Get)
		alarms.POST("", h.Create)
		alarms.POST("/:id/confirm", h.Confirm)
		alarms.POST("/:id/resolve", h.Resolve)
		alarms.POST("/:id/false-alarm", h.MarkFalseAlarm)
		alarms.POST("/:id/ignore", h.Ignore)
		alarms.POST("/:id/convert-to-workorder", h.Convert)
		alarms.POST("/batch", h.Batch)
	}
}

// Create reports a new alarm
// @Summary      Create alarm
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAlarmRequest  true  "New Alarm"
// @Success      201      {object}  response.Response{data=model.Alarm}
// @Failure      403      {object}  response.Response
// @Router       /alarms [post]
func (h *AlarmHandler) Create(c *gin.Context) {
	var req service.CreateAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	alarm, err := h.alarmService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, alarm))
}

// List returns alarms with filtering and pagination
// @Summary      List alarms
// @Tags         alarms
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        type    query     string  false  "ai or manual"
// @Param        level   query     string  false  "Level filter"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /alarms [get]
func (h *AlarmHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.ListAlarmsQuery{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Level:  c.Query("level"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if areaStr := c.Query("area_id"); areaStr != "" {
		if areaID, err := uuid.Parse(areaStr); err == nil {
			q.AreaID = &areaID
		}
	}

	actor, _ := middleware.IdentityFrom(c)
	alarms, total, err := h.alarmService.List(c.Request.Context(), actor, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(alarms, total, params.Page, params.Limit)))
}

// Get returns a single alarm
// @Summary      Get alarm
// @Tags         alarms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Alarm ID"
// @Success      200  {object}  response.Response{data=model.Alarm}
// @Failure      404  {object}  response.Response
// @Router       /alarms/{id} [get]
func (h *AlarmHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	alarm, err := h.alarmService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, alarm))
}

// Confirm acknowledges a pending alarm
// @Summary      Confirm alarm
// @Description  Re-confirming an already handled alarm is a no-op
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Alarm ID"
// @Param        payload  body      service.AlarmActionRequest  false  "Optional Note"
// @Success      200      {object}  response.Response{data=model.Alarm}
// @Failure      403      {object}  response.Response
// @Router       /alarms/{id}/confirm [post]
func (h *AlarmHandler) Confirm(c *gin.Context) {
	h.act(c, h.alarmService.Confirm)
}

// Resolve closes an alarm as handled
// @Summary      Resolve alarm
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Alarm ID"
// @Param        payload  body      service.AlarmActionRequest  false  "Resolution Note"
// @Success      200      {object}  response.Response{data=model.Alarm}
// @Failure      400      {object}  response.Response
// @Router       /alarms/{id}/resolve [post]
func (h *AlarmHandler) Resolve(c *gin.Context) {
	h.act(c, h.alarmService.Resolve)
}

// MarkFalseAlarm closes an alarm as a false detection
// @Summary      Mark false alarm
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Alarm ID"
// @Param        payload  body      service.AlarmActionRequest  false  "Note"
// @Success      200      {object}  response.Response{data=model.Alarm}
// @Router       /alarms/{id}/false-alarm [post]
func (h *AlarmHandler) MarkFalseAlarm(c *gin.Context) {
	h.act(c, h.alarmService.MarkFalseAlarm)
}

// Ignore closes an alarm without action
// @Summary      Ignore alarm
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Alarm ID"
// @Param        payload  body      service.AlarmActionRequest  false  "Note"
// @Success      200      {object}  response.Response{data=model.Alarm}
// @Router       /alarms/{id}/ignore [post]
func (h *AlarmHandler) Ignore(c *gin.Context) {
	h.act(c, h.alarmService.Ignore)
}

type alarmActionFn func(ctx context.Context, actor authority.Identity, id uuid.UUID, req service.AlarmActionRequest) (*model.Alarm, error)

func (h *AlarmHandler) act(c *gin.Context, fn alarmActionFn) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.AlarmActionRequest
	_ = c.ShouldBindJSON(&req)

	actor, _ := middleware.IdentityFrom(c)
	alarm, err := fn(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, alarm))
}

// Batch applies one action to many alarms best-effort
// @Summary      Batch alarm action
// @Description  Items whose state does not admit the action are skipped; the result reports processed and skipped counts
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BatchAlarmRequest  true  "Batch Request"
// @Success      200      {object}  response.Response{data=service.BatchResult}
// @Failure      400      {object}  response.Response
// @Router       /alarms/batch [post]
func (h *AlarmHandler) Batch(c *gin.Context) {
	var req service.BatchAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	result, err := h.alarmService.Batch(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Convert creates a work order from a confirmed alarm
// @Summary      Convert alarm to work order
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true   "Alarm ID"
// @Param        payload  body      service.CreateWorkOrderRequest  false  "Work Order Overrides"
// @Success      201      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Router       /alarms/{id}/convert-to-workorder [post]
func (h *AlarmHandler) Convert(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.CreateWorkOrderRequest
	_ = c.ShouldBindJSON(&req)

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.alarmService.ConvertToWorkOrder(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}
