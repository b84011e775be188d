package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/audit"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/config"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
	"github.com/minsu-dev/factory-ops/internal/utils"
)

// AuthHandler bundles dependencies for registration, login and the admin
// approval workflow.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *cache.SessionStore
	Audit    *audit.Logger
	Log      *logrus.Logger
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, sessions *cache.SessionStore, aud *audit.Logger, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions, Audit: aud, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
	Nickname string `json:"nickname" validate:"max=64"`
}
type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type usernameReq struct {
	Username string `json:"username" validate:"required"`
}
type permissionsReq struct {
	Username    string              `json:"username" validate:"required"`
	Permissions model.PermissionMap `json:"permissions"`
}

// Register creates an unapproved account; an admin must approve it before
// login succeeds.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Username, req.Password, req.Nickname)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "이미 존재하는 아이디입니다."})
	}
	if err != nil {
		return fail(c, err)
	}
	if err := h.Audit.Record(ctx, u.Username, "가입 신청", model.LogCategoryAuth, u.Username, ""); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "가입 신청 완료!"})
}

// Login verifies credentials, creates a Redis session for the cookie and
// issues a bearer token for API clients.
//
// The password comparison is plaintext equality. Known defect carried from
// the existing dataset; do not "fix" it here without migrating stored
// passwords first.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err == repository.ErrNotFound || (err == nil && u.Password != req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "아이디 또는 비밀번호가 틀렸습니다."})
	}
	if err != nil {
		return fail(c, err)
	}
	if !u.IsApproved {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "아직 승인되지 않은 계정입니다."})
	}

	ident := model.IdentityOf(u)
	sessionID, err := h.Sessions.Create(ctx, ident)
	if err != nil {
		return fail(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Cfg.SessionTTL.Seconds()),
	})

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}

	h.Log.WithField("username", u.Username).Info("login")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "로그인 성공",
		"user":    ident,
		"access":  echo.Map{"token": access.Token, "expires": access.Exp},
	})
}

// Logout drops the Redis session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if cookie, err := c.Cookie(middleware.SessionCookie); err == nil {
		h.Sessions.Delete(ctx, cookie.Value)
	}
	c.SetCookie(&http.Cookie{
		Name: middleware.SessionCookie, Value: "", Path: "/", HttpOnly: true, MaxAge: -1,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "로그아웃 되었습니다."})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	ident, _ := middleware.IdentityFrom(c)
	return c.JSON(http.StatusOK, ident)
}

// AdminCheck mirrors the front end's quick role probe. It answers 200 for
// everyone; the body says whether the caller is an admin.
func (h *AuthHandler) AdminCheck(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"isAdmin": ok && ident.IsAdmin()})
}

// Pending lists accounts awaiting approval.
func (h *AuthHandler) Pending(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.ListPending(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// ListUsers returns every account (admin console).
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Approve marks an account approved. The permission map resets to
// all-false; the admin grants features afterwards.
func (h *AuthHandler) Approve(c echo.Context) error {
	var req usernameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Approve(ctx, req.Username); err != nil {
		return fail(c, err)
	}
	actor, _ := middleware.IdentityFrom(c)
	if err := h.Audit.Record(ctx, actor.Username, "가입 승인", model.LogCategoryAuth, req.Username, ""); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": req.Username + " 승인 완료"})
}

// Reject deletes a pending (or existing) account.
func (h *AuthHandler) Reject(c echo.Context) error {
	var req usernameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.DeleteByUsername(ctx, req.Username); err != nil {
		return fail(c, err)
	}
	actor, _ := middleware.IdentityFrom(c)
	if err := h.Audit.Record(ctx, actor.Username, "가입 거절", model.LogCategoryAuth, req.Username, ""); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": req.Username + " 님의 가입을 거절(삭제)했습니다."})
}

// UpdatePermissions overwrites a user's capability map.
func (h *AuthHandler) UpdatePermissions(c echo.Context) error {
	var req permissionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdatePermissions(ctx, req.Username, req.Permissions); err != nil {
		return fail(c, err)
	}
	actor, _ := middleware.IdentityFrom(c)
	detail := strings.TrimSpace(permissionSummary(req.Permissions))
	if err := h.Audit.Record(ctx, actor.Username, "권한 변경", model.LogCategoryAuth, req.Username, detail); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "권한이 변경되었습니다."})
}

func permissionSummary(p model.PermissionMap) string {
	granted := []string{}
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"inventory", p.Inventory},
		{"calendar", p.Calendar},
		{"attendance", p.Attendance},
		{"logs", p.Logs},
	} {
		if f.on {
			granted = append(granted, f.name)
		}
	}
	if len(granted) == 0 {
		return "권한 없음"
	}
	return strings.Join(granted, ", ")
}
