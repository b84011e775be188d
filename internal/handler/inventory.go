package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// itemStore is the slice of the item repository the ledger endpoints use.
type itemStore interface {
	List(ctx context.Context) ([]model.Item, error)
	GetByID(ctx context.Context, id uint64) (model.Item, error)
	Create(ctx context.Context, it model.Item) (model.Item, error)
	Update(ctx context.Context, it model.Item) (model.Item, error)
	Delete(ctx context.Context, id uint64) error
}

type invCache interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

type auditRecorder interface {
	Record(ctx context.Context, actor, action, category, targetID, details string) error
}

// InventoryHandler serves the item ledger endpoints. Reads go through the
// cache; every mutation invalidates it before responding.
type InventoryHandler struct {
	Items itemStore
	Cache invCache
	Audit auditRecorder
}

func NewInventoryHandler(items itemStore, store invCache, aud auditRecorder) *InventoryHandler {
	return &InventoryHandler{Items: items, Cache: store, Audit: aud}
}

// itemReq carries partial-update semantics: pointer fields left null in
// the JSON body keep the stored value.
type itemReq struct {
	Name           string           `json:"name" validate:"required"`
	Size           string           `json:"size"`
	Length         string           `json:"length"`
	Quantity       *decimal.Decimal `json:"quantity"`
	Category       string           `json:"category"`
	AlertEnabled   *bool            `json:"alertEnabled"`
	AlertThreshold *decimal.Decimal `json:"alertThreshold"`
}

// List returns the full item ledger, served from cache when warm.
func (h *InventoryHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw, ok := h.Cache.GetRaw(ctx, cache.KeyInventory); ok {
		return c.JSONBlob(http.StatusOK, raw)
	}
	items, err := h.Items.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.SetJSON(ctx, cache.KeyInventory, items, 0)
	return c.JSON(http.StatusOK, items)
}

// Create registers a new item row directly (outside the calendar flow).
func (h *InventoryHandler) Create(c echo.Context) error {
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	key := model.NormalizeKey(req.Name, req.Size, req.Length)
	item := model.Item{
		Name:           key.Name,
		Size:           key.Size,
		Length:         key.Length,
		Category:       req.Category,
		AlertEnabled:   true,
		AlertThreshold: decimal.NewFromInt(10),
		LastUpdatedBy:  actor.Username,
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if item.Category == "" {
		item.Category = "기타"
	}
	if req.AlertEnabled != nil {
		item.AlertEnabled = *req.AlertEnabled
	}
	if req.AlertThreshold != nil {
		item.AlertThreshold = *req.AlertThreshold
	}

	created, err := h.Items.Create(ctx, item)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"message": "이미 등록된 품목입니다."})
	}
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)

	detail := fmt.Sprintf("%s (%s/%s) 수량 %s", created.Name, created.Size, created.Length, created.Quantity)
	if err := h.Audit.Record(ctx, actor.Username, "추가", model.LogCategoryInventory, strconv.FormatUint(created.ID, 10), detail); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "물품이 등록되었습니다.", "item": created})
}

// Update overwrites an item's mutable attributes (direct admin edit; may
// set any balance, including a negative one).
func (h *InventoryHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	item, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	before := item.Quantity
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.AlertEnabled != nil {
		item.AlertEnabled = *req.AlertEnabled
	}
	if req.AlertThreshold != nil {
		item.AlertThreshold = *req.AlertThreshold
	}
	item.LastUpdatedBy = actor.Username

	updated, err := h.Items.Update(ctx, item)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)

	detail := fmt.Sprintf("%s 수량 %s -> %s", updated.Name, before, updated.Quantity)
	if err := h.Audit.Record(ctx, actor.Username, "수정", model.LogCategoryInventory, c.Param("id"), detail); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "수량이 변경되었습니다.", "item": updated})
}

// Delete removes an item row. The only way stock leaves the ledger outside
// of shipping events.
func (h *InventoryHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	item, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Items.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)

	detail := fmt.Sprintf("%s (%s/%s) 삭제", item.Name, item.Size, item.Length)
	if err := h.Audit.Record(ctx, actor.Username, "삭제", model.LogCategoryInventory, c.Param("id"), detail); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "물품이 삭제되었습니다."})
}
