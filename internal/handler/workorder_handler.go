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

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
}

// NewWorkOrderHandler sets up the routing dependencies for work order endpoints
func NewWorkOrderHandler(workOrderService service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderService: workOrderService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	orders := router.Group("/workorders", middleware.Authenticate(verifier))
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("", h.Create)
		orders.POST("/:id/assign", h.Assign)
		orders.POST("/:id/start", h.Start)
		orders.POST("/:id/complete", h.Complete)
		orders.POST("/:id/review", h.Review)
		orders.POST("/:id/return", h.Return)
		orders.POST("/:id/cancel", h.Cancel)
	}
}

// Create opens a new manual work order
// @Summary      Create work order
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWorkOrderRequest  true  "New Work Order"
// @Success      201      {object}  response.Response{data=model.WorkOrder}
// @Failure      403      {object}  response.Response
// @Router       /workorders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// List returns work orders visible to the caller
// @Summary      List work orders
// @Description  Assigned-scope roles see their own orders; area-scoped roles see their area
// @Tags         workorders
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        type    query     string  false  "manual or ai_alarm"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /workorders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.ListWorkOrdersQuery{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	actor, _ := middleware.IdentityFrom(c)
	orders, total, err := h.workOrderService.List(c.Request.Context(), actor, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(orders, total, params.Page, params.Limit)))
}

// Get returns a work order with its status history
// @Summary      Get work order
// @Tags         workorders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderDetail}
// @Failure      404  {object}  response.Response
// @Router       /workorders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.workOrderService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// Assign hands a pending order to a maintenance worker
// @Summary      Assign work order
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Work Order ID"
// @Param        payload  body      service.AssignWorkOrderRequest  true  "Assignee"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      403      {object}  response.Response
// @Router       /workorders/{id}/assign [post]
func (h *WorkOrderHandler) Assign(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.AssignWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Assign(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Start begins work on an assigned order
// @Summary      Start work order
// @Tags         workorders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=model.WorkOrder}
// @Failure      403  {object}  response.Response
// @Router       /workorders/{id}/start [post]
func (h *WorkOrderHandler) Start(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Start(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Complete submits a processing order for review
// @Summary      Complete work order
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Work Order ID"
// @Param        payload  body      service.CompleteWorkOrderRequest  true  "Completion Report"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Router       /workorders/{id}/complete [post]
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.CompleteWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Complete(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Review approves or rejects a completed order
// @Summary      Review work order
// @Description  Approval completes the order; rejection returns it to processing
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Work Order ID"
// @Param        payload  body      service.ReviewWorkOrderRequest  true  "Review Verdict"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      403      {object}  response.Response
// @Router       /workorders/{id}/review [post]
func (h *WorkOrderHandler) Review(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.ReviewWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Review(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Return sends an assigned order back to the pending pool
// @Summary      Return work order
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true   "Work Order ID"
// @Param        payload  body      service.WorkOrderNoteRequest  false  "Reason"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Router       /workorders/{id}/return [post]
func (h *WorkOrderHandler) Return(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.WorkOrderNoteRequest
	_ = c.ShouldBindJSON(&req)

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Return(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Cancel closes a pending order without work
// @Summary      Cancel work order
// @Tags         workorders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true   "Work Order ID"
// @Param        payload  body      service.WorkOrderNoteRequest  false  "Reason"
// @Success      200      {object}  response.Response{data=model.WorkOrder}
// @Failure      400      {object}  response.Response
// @Router       /workorders/{id}/cancel [post]
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.WorkOrderNoteRequest
	_ = c.ShouldBindJSON(&req)

	actor, _ := middleware.IdentityFrom(c)
	order, err := h.workOrderService.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
