package middleware

import (
	"net/http"
	"os"
	"strings"

	"riverwatch/internal/authority"
	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
)

// Session cookie names. Web dashboard sessions and mobile app sessions use
// separate cookies; the cookie takes precedence over the bearer header.
const (
	CookieWeb    = "auth-token"
	CookieMobile = "app-auth-token"
)

const identityKey = "identity"

// GetJWTSecret returns the token signing secret. The process refuses to
// start without one in release mode; the dev value is clearly marked and
// never used in production.
func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "dev_only_insecure_secret" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// ExtractToken pulls the credential from the web cookie, then the mobile
// cookie, then the Authorization header.
func ExtractToken(c *gin.Context) string {
	if token, err := c.Cookie(CookieWeb); err == nil && token != "" {
		return token
	}
	if token, err := c.Cookie(CookieMobile); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Authenticate verifies the request credential and stores the identity in
// the gin context. Rejections carry the verifier's reason code.
func Authenticate(verifier *authority.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Denied(http.StatusUnauthorized, string(authority.ReasonUnauthenticated), "未授权访问"))
			return
		}

		id, err := verifier.Verify(token)
		if err != nil {
			reason := authority.ReasonForError(err)
			c.AbortWithStatusJSON(reason.HTTPStatus(),
				response.Denied(reason.HTTPStatus(), string(reason), "无效的访问令牌"))
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequirePlatform rejects tokens issued for the wrong client platform.
// Must run after Authenticate.
func RequirePlatform(platform authority.Platform) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Denied(http.StatusUnauthorized, string(authority.ReasonUnauthenticated), "未授权访问"))
			return
		}
		if id.Platform != platform {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Denied(http.StatusForbidden, string(authority.ReasonActionNotPermitted), "该令牌不适用于此端点"))
			return
		}
		c.Next()
	}
}

// RequireRole rejects identities whose role code is not in the allowed set.
// Must run after Authenticate.
func RequireRole(allowed ...authority.RoleCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Denied(http.StatusUnauthorized, string(authority.ReasonUnauthenticated), "未授权访问"))
			return
		}
		for _, code := range allowed {
			if id.RoleCode == code {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			response.Denied(http.StatusForbidden, string(authority.ReasonActionNotPermitted), "当前角色无权访问"))
	}
}

// IdentityFrom returns the verified identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (authority.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return authority.Identity{}, false
	}
	id, ok := v.(authority.Identity)
	return id, ok
}

// SetSessionCookie sets the platform-appropriate HttpOnly session cookie
func SetSessionCookie(c *gin.Context, platform authority.Platform, token string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	name := CookieWeb
	if platform == authority.PlatformMobile {
		name = CookieMobile
	}

	c.SetSameSite(sameSite)
	c.SetCookie(name, token, maxAge, "/", "", secure, true)
}

// ClearSessionCookies removes both session cookies
func ClearSessionCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(CookieWeb, "", -1, "/", "", secure, true)
	c.SetCookie(CookieMobile, "", -1, "/", "", secure, true)
}
