package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type AreaHandler struct {
	areaService service.AreaService
}

// NewAreaHandler sets up the routing dependencies for area endpoints
func NewAreaHandler(areaService service.AreaService) *AreaHandler {
	return &AreaHandler{areaService: areaService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *AreaHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	areas := router.Group("/areas", middleware.Authenticate(verifier))
	{
		areas.GET("", h.ListAll)
		areas.GET("/:id", h.Get)
		areas.GET("/:id/workers", h.ListWorkers)

		admin := areas.Group("", middleware.RequireRole(authority.RoleAdmin, authority.RoleMonitorSupervisor))
		{
			admin.POST("", h.Create)
			admin.POST("/:id/workers", h.AddWorker)
			admin.DELETE("/:id/workers/:user_id", h.RemoveWorker)
		}
	}
}

// Create registers a river section
// @Summary      Create area
// @Tags         areas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAreaRequest  true  "New Area"
// @Success      201      {object}  response.Response{data=model.Area}
// @Router       /areas [post]
func (h *AreaHandler) Create(c *gin.Context) {
	var req service.CreateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	area, err := h.areaService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, area))
}

// ListAll returns every area
// @Summary      List areas
// @Tags         areas
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /areas [get]
func (h *AreaHandler) ListAll(c *gin.Context) {
	areas, err := h.areaService.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, areas))
}

// Get returns a single area
// @Summary      Get area
// @Tags         areas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Area ID"
// @Success      200  {object}  response.Response{data=model.Area}
// @Failure      404  {object}  response.Response
// @Router       /areas/{id} [get]
func (h *AreaHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	area, err := h.areaService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, area))
}

// ListWorkers returns the area's maintenance roster
// @Summary      List area workers
// @Tags         areas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Area ID"
// @Success      200  {object}  response.Response
// @Router       /areas/{id}/workers [get]
func (h *AreaHandler) ListWorkers(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	workers, err := h.areaService.ListWorkers(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, workers))
}

// AddWorker enrolls a maintenance worker into the area roster
// @Summary      Add area worker
// @Tags         areas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Area ID"
// @Param        payload  body      service.AreaWorkerRequest  true  "Worker"
// @Success      200      {object}  response.Response
// @Router       /areas/{id}/workers [post]
func (h *AreaHandler) AddWorker(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.AreaWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	if err := h.areaService.AddWorker(c.Request.Context(), actor, id, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "已加入班组"}))
}

// RemoveWorker removes a maintenance worker from the area roster
// @Summary      Remove area worker
// @Tags         areas
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Area ID"
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  response.Response
// @Router       /areas/{id}/workers/{user_id} [delete]
func (h *AreaHandler) RemoveWorker(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFrom(c)
	if err := h.areaService.RemoveWorker(c.Request.Context(), actor, id, userID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "已移出班组"}))
}
