package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireLogin aborts with 401 when no authenticated identity is attached
// to the request. It assumes Authenticate ran earlier in the chain.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "로그인이 필요합니다."})
			}
			return next(c)
		}
	}
}

// RequireAdmin aborts with 401 when not logged in and 403 when the
// identity does not carry the admin role.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "로그인이 필요합니다."})
			}
			if !ident.IsAdmin() {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "관리자 전용 기능입니다."})
			}
			return next(c)
		}
	}
}

// RequirePermission gates a feature behind the identity's capability map.
// Admins pass every check; everyone else needs the named permission
// granted by an admin after approval.
func RequirePermission(feature string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "로그인이 필요합니다."})
			}
			if !ident.Can(feature) {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "해당 기능에 대한 권한이 없습니다."})
			}
			return next(c)
		}
	}
}
