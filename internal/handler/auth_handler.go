package handler

import (
	"net/http"

	"riverwatch/internal/authority"
	"riverwatch/internal/middleware"
	"riverwatch/internal/service"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler sets up the routing dependencies for auth endpoints
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup. The verifier
// gates the routes that need an authenticated caller; loginLimiter throttles
// the unauthenticated credential endpoints per IP.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, verifier *authority.Verifier, loginLimiter gin.HandlerFunc) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", loginLimiter, h.Login)
		auth.POST("/refresh", loginLimiter, h.Refresh)

		authed := auth.Group("", middleware.Authenticate(verifier))
		{
			authed.POST("/logout", h.Logout)
			authed.GET("/me", h.Me)
			authed.GET("/permissions", h.Permissions)
			authed.POST("/change-password", h.ChangePassword)
		}
	}
}

// Login authenticates by username and password
// @Summary      Login
// @Description  Authenticates a user, sets the session cookie and returns a JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	tokenRes, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		status := http.StatusUnauthorized
		if err == service.ErrAccountDisabled || err == service.ErrAccountLocked {
			status = http.StatusForbidden
		}
		c.JSON(status, response.Denied(status, string(authority.ReasonInvalidCredential), err.Error()))
		return
	}

	platform := authority.PlatformWeb
	if req.Platform == string(authority.PlatformMobile) {
		platform = authority.PlatformMobile
	}
	maxAge := int(service.DefaultTokenTTL.Seconds())
	if req.RememberMe {
		maxAge = int(service.RememberMeTokenTTL.Seconds())
	}
	middleware.SetSessionCookie(c, platform, tokenRes.Token, maxAge)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Refresh exchanges an expiring token for a fresh one
// @Summary      Refresh token
// @Description  Re-validates the account and issues a new token with current claims
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TokenResponse}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized,
			response.Denied(http.StatusUnauthorized, string(authority.ReasonUnauthenticated), "未授权访问"))
		return
	}

	tokenRes, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		if err == service.ErrAccountDisabled {
			middleware.ClearSessionCookies(c)
			c.JSON(http.StatusForbidden,
				response.Denied(http.StatusForbidden, string(authority.ReasonActionNotPermitted), err.Error()))
			return
		}
		reason := authority.ReasonForError(err)
		c.JSON(reason.HTTPStatus(), response.Denied(reason.HTTPStatus(), string(reason), "无效的访问令牌"))
		return
	}

	platform := authority.PlatformWeb
	if tokenRes.Platform == string(authority.PlatformMobile) {
		platform = authority.PlatformMobile
	}
	middleware.SetSessionCookie(c, platform, tokenRes.Token, int(service.DefaultTokenTTL.Seconds()))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout revokes the caller's sessions and clears cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.authService.Logout(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	middleware.ClearSessionCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "已退出登录"}))
}

// Me returns the caller's account
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	user, err := h.authService.Me(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// Permissions returns the caller's role permission surface
// @Summary      Current permissions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.PermissionsResponse}
// @Router       /auth/permissions [get]
func (h *AuthHandler) Permissions(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	perms, err := h.authService.Permissions(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// ChangePassword updates the caller's own password
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ChangePasswordRequest  true  "Password Change"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	if err := h.authService.ChangePassword(c.Request.Context(), id, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "密码已更新"}))
}
