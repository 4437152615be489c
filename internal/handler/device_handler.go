package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/pagination"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceHandler struct {
	deviceService service.DeviceService
}

// NewDeviceHandler sets up the routing dependencies for device endpoints
func NewDeviceHandler(deviceService service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	devices := router.Group("/devices", middleware.Authenticate(verifier))
	{
		devices.GET("", h.List)
		devices.GET("/:id", h.Get)
		devices.POST("/:id/readings", h.RecordReading)

		admin := devices.Group("", middleware.RequireRole(authority.RoleAdmin, authority.RoleMonitorSupervisor))
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.DELETE("/:id", h.Delete)
		}
	}
}

// Create registers a monitoring device
// @Summary      Create device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDeviceRequest  true  "New Device"
// @Success      201      {object}  response.Response{data=model.Device}
// @Router       /devices [post]
func (h *DeviceHandler) Create(c *gin.Context) {
	var req service.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	device, err := h.deviceService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, device))
}

// List returns devices with filtering and pagination
// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        type    query     string  false  "Type filter"
// @Param        status  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.ListDevicesQuery{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if areaStr := c.Query("area_id"); areaStr != "" {
		if areaID, err := uuid.Parse(areaStr); err == nil {
			q.AreaID = &areaID
		}
	}

	devices, total, err := h.deviceService.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(devices, total, params.Page, params.Limit)))
}

// Get returns a single device
// @Summary      Get device
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  response.Response{data=model.Device}
// @Failure      404  {object}  response.Response
// @Router       /devices/{id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	device, err := h.deviceService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, device))
}

// Update edits device fields
// @Summary      Update device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Device ID"
// @Param        payload  body      service.UpdateDeviceRequest  true  "Updated Fields"
// @Success      200      {object}  response.Response{data=model.Device}
// @Router       /devices/{id} [put]
func (h *DeviceHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	device, err := h.deviceService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, device))
}

// Delete removes a device
// @Summary      Delete device
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  response.Response
// @Router       /devices/{id} [delete]
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFrom(c)
	if err := h.deviceService.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "设备已删除"}))
}

// RecordReading ingests a telemetry push from a device
// @Summary      Record device reading
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Device ID"
// @Param        payload  body      service.DeviceReadingRequest  true  "Telemetry"
// @Success      200      {object}  response.Response{data=model.Device}
// @Router       /devices/{id}/readings [post]
func (h *DeviceHandler) RecordReading(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.DeviceReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	device, err := h.deviceService.RecordReading(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, device))
}
