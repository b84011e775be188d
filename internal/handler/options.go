package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/audit"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// OptionsHandler serves the dropdown vocabulary. Reads are cached under
// cache:options; admin mutations invalidate and audit.
type OptionsHandler struct {
	Options *repository.OptionRepo
	Cache   *cache.Store
	Audit   *audit.Logger
}

func NewOptionsHandler(options *repository.OptionRepo, store *cache.Store, aud *audit.Logger) *OptionsHandler {
	return &OptionsHandler{Options: options, Cache: store, Audit: aud}
}

type optionReq struct {
	Type  string `json:"type" validate:"required,oneof=itemName size length"`
	Value string `json:"value" validate:"required"`
}

// List returns all options, served from cache when warm.
func (h *OptionsHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw, ok := h.Cache.GetRaw(ctx, cache.KeyOptions); ok {
		return c.JSONBlob(http.StatusOK, raw)
	}
	opts, err := h.Options.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.SetJSON(ctx, cache.KeyOptions, opts, 0)
	return c.JSON(http.StatusOK, opts)
}

// Create adds one vocabulary entry. Duplicates conflict.
func (h *OptionsHandler) Create(c echo.Context) error {
	var req optionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	opt, err := h.Options.Create(ctx, req.Type, req.Value)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"message": "이미 등록된 옵션입니다."})
	}
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyOptions)

	actor, _ := middleware.IdentityFrom(c)
	if err := h.Audit.Record(ctx, actor.Username, "옵션 추가", model.LogCategoryOptions,
		strconv.FormatUint(opt.ID, 10), opt.Type+": "+opt.Value); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "옵션이 추가되었습니다.", "option": opt})
}

// Delete removes one vocabulary entry.
func (h *OptionsHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Options.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyOptions)

	actor, _ := middleware.IdentityFrom(c)
	if err := h.Audit.Record(ctx, actor.Username, "옵션 삭제", model.LogCategoryOptions,
		c.Param("id"), ""); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "옵션이 삭제되었습니다."})
}
