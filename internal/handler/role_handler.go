package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
}

// NewRoleHandler sets up the routing dependencies for role endpoints
func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier) {
	roles := router.Group("/roles", middleware.Authenticate(verifier))
	{
		roles.GET("", h.ListAll)
		roles.GET("/:code", h.Get)
	}
}

// ListAll returns the fixed role catalog with permission surfaces
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleInfo}
// @Router       /roles [get]
func (h *RoleHandler) ListAll(c *gin.Context) {
	roles, err := h.roleService.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// Get returns one role by its code
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Role code, e.g. R001"
// @Success      200   {object}  response.Response{data=service.RoleInfo}
// @Failure      404   {object}  response.Response
// @Router       /roles/{code} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.roleService.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}
