package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/model"
)

func invoke(t *testing.T, mw echo.MiddlewareFunc, ident *model.Identity) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if ident != nil {
		SetIdentity(c, *ident)
	}
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec.Code
}

func TestRequireLogin(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, invoke(t, RequireLogin(), nil))
	assert.Equal(t, http.StatusOK, invoke(t, RequireLogin(), &model.Identity{Role: model.RoleUser}))
}

func TestRequireAdmin(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, invoke(t, RequireAdmin(), nil))
	assert.Equal(t, http.StatusForbidden, invoke(t, RequireAdmin(), &model.Identity{Role: model.RoleUser}))
	assert.Equal(t, http.StatusOK, invoke(t, RequireAdmin(), &model.Identity{Role: model.RoleAdmin}))
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		ident   *model.Identity
		want    int
	}{
		{"anonymous", "inventory", nil, http.StatusUnauthorized},
		{"missing permission", "inventory", &model.Identity{Role: model.RoleUser}, http.StatusForbidden},
		{
			"granted permission", "inventory",
			&model.Identity{Role: model.RoleUser, Permissions: model.PermissionMap{Inventory: true}},
			http.StatusOK,
		},
		{
			"other permission does not leak", "logs",
			&model.Identity{Role: model.RoleUser, Permissions: model.PermissionMap{Inventory: true}},
			http.StatusForbidden,
		},
		{"admin passes everything", "logs", &model.Identity{Role: model.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, invoke(t, RequirePermission(tt.feature), tt.ident))
		})
	}
}
