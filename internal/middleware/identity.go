package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
	"github.com/minsu-dev/factory-ops/internal/utils"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "factory_session"

// identityKey is the echo context key the resolved identity lives under.
const identityKey = "identity"

// IdentityFrom returns the authenticated identity attached to the request,
// if any.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	ident, ok := c.Get(identityKey).(model.Identity)
	return ident, ok
}

// SetIdentity attaches an identity to the request context. Authenticate
// calls it; handler tests use it to act as a given user.
func SetIdentity(c echo.Context, ident model.Identity) {
	c.Set(identityKey, ident)
}

// Authenticate resolves the request identity from either the session
// cookie or a Bearer token and stores it in the context. It never rejects
// a request by itself; the Require* gates do that, so public routes can
// share the middleware.
func Authenticate(sessions *cache.SessionStore, users *repository.UserRepo, jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			if ident, ok := fromSession(ctx, c, sessions); ok {
				SetIdentity(c, ident)
				return next(c)
			}
			if ident, ok := fromBearer(ctx, c, users, jwtSecret); ok {
				SetIdentity(c, ident)
			}
			return next(c)
		}
	}
}

func fromSession(ctx context.Context, c echo.Context, sessions *cache.SessionStore) (model.Identity, bool) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return model.Identity{}, false
	}
	ident, found, err := sessions.Get(ctx, cookie.Value)
	if err != nil || !found {
		return model.Identity{}, false
	}
	return ident, true
}

// fromBearer validates an API bearer token and rebuilds the identity from
// the users table so that approval revocation and permission edits apply
// to already-issued tokens.
func fromBearer(ctx context.Context, c echo.Context, users *repository.UserRepo, secret string) (model.Identity, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Identity{}, false
	}
	userID, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return model.Identity{}, false
	}
	u, err := users.GetByID(ctx, userID)
	if err != nil || !u.IsApproved {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			c.Logger().Error(err)
		}
		return model.Identity{}, false
	}
	return model.IdentityOf(u), true
}
