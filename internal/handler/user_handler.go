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

type UserHandler struct {
	userService service.UserService
}

// NewUserHandler sets up the routing dependencies for user endpoints
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup. Account
// administration is restricted to the two administrator roles; the
// per-operation guards (self-protection, top-role protection) live in
// the authority and are enforced by the service.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	users := router.Group("/users", middleware.Authenticate(verifier))
	{
		users.GET("", h.List)
		users.GET("/:id", h.Get)

		admin := users.Group("", middleware.RequireRole(authority.RoleAdmin, authority.RoleMonitorSupervisor))
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.PUT("/:id/status", h.ChangeStatus)
			admin.PUT("/:id/role", h.ChangeRole)
			admin.POST("/:id/reset-password", h.ResetPassword)
			admin.DELETE("/:id", h.Delete)
		}
	}
}

// Create registers a new account
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "New User"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数: "+err.Error()))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	user, err := h.userService.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// List returns accounts with filtering and pagination
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role     query     string  false  "Role code filter"
// @Param        status   query     string  false  "Status filter"
// @Param        keyword  query     string  false  "Username or name search"
// @Param        page     query     int     false  "Page"
// @Param        limit    query     int     false  "Page size"
// @Success      200      {object}  response.Response
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	q := service.ListUsersQuery{
		RoleCode: c.Query("role"),
		Status:   c.Query("status"),
		Keyword:  c.Query("keyword"),
		Page:     params.Page,
		Limit:    params.Limit,
	}
	if areaStr := c.Query("area_id"); areaStr != "" {
		if areaID, err := uuid.Parse(areaStr); err == nil {
			q.AreaID = &areaID
		}
	}

	users, total, err := h.userService.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listData(users, total, params.Page, params.Limit)))
}

// Get returns a single account
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// Update edits profile fields of an account
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Updated Fields"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	user, err := h.userService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ChangeStatus activates or deactivates an account
// @Summary      Change user status
// @Description  Deactivation revokes sessions and clears maintenance rosters
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "User ID"
// @Param        payload  body      service.ChangeStatusRequest  true  "New Status"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /users/{id}/status [put]
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	if err := h.userService.ChangeStatus(c.Request.Context(), actor, id, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "状态已更新"}))
}

// ChangeRole reassigns an account's role
// @Summary      Change user role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.ChangeRoleRequest  true  "New Role"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	if err := h.userService.ChangeRole(c.Request.Context(), actor, id, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "角色已更新"}))
}

// ResetPassword sets a new password for an account
// @Summary      Reset user password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "User ID"
// @Param        payload  body      service.ResetPasswordRequest  true  "New Password"
// @Success      200      {object}  response.Response
// @Router       /users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	actor, _ := middleware.IdentityFrom(c)
	if err := h.userService.ResetPassword(c.Request.Context(), actor, id, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "密码已重置"}))
}

// Delete removes an account
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFrom(c)
	if err := h.userService.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "用户已删除"}))
}
