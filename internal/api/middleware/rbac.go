package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
)

// RBAC admits the request only when the access derived for the signed-in
// session grants every capability in required. Signed-out sessions get 401.
func RBAC(current func() *domain.Access, authenticated func() bool, required ...domain.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authenticated() {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			}
			access := current()
			for _, capability := range required {
				if !access.Can(capability) {
					return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
				}
			}
			c.Set("role", string(access.Role))
			return next(c)
		}
	}
}
