package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/queue"
	"github.com/minsu-dev/factory-ops/internal/reconcile"
	"github.com/minsu-dev/factory-ops/internal/repository"
	queue_publisher "github.com/minsu-dev/factory-ops/internal/service"
)

// Event colors the FullCalendar front end expects per type.
var eventColors = map[model.EventType]string{
	model.EventReceive: "#4CAF50",
	model.EventShip:    "#F44336",
	model.EventProduce: "#2196F3",
}

// eventStore is the slice of the event repository the calendar routes use.
type eventStore interface {
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	FindSameDay(ctx context.Context, typ model.EventType, dayStart, dayEnd time.Time) (model.Event, error)
	Create(ctx context.Context, ev model.Event) (model.Event, error)
	Update(ctx context.Context, ev model.Event) error
	Delete(ctx context.Context, id uint64) error
}

// CalendarHandler owns the event routes. Every write runs the
// reconciliation engine under the per-day calendar lock, invalidates the
// inventory cache and appends an audit entry.
type CalendarHandler struct {
	Events  eventStore
	Engine  *reconcile.Engine
	Locker  cache.Locker
	Cache   invCache
	Audit   auditRecorder
	Log     *logrus.Logger
	Loc     *time.Location
	LockTTL time.Duration
}

func NewCalendarHandler(events eventStore, engine *reconcile.Engine, locker cache.Locker,
	store invCache, aud auditRecorder, log *logrus.Logger, loc *time.Location, lockTTL time.Duration) *CalendarHandler {
	return &CalendarHandler{
		Events: events, Engine: engine, Locker: locker,
		Cache: store, Audit: aud, Log: log, Loc: loc, LockTTL: lockTTL,
	}
}

// ----- DTOs -----

type eventItemReq struct {
	Name     string          `json:"name" validate:"required"`
	Size     string          `json:"size"`
	Length   string          `json:"length"`
	Quantity decimal.Decimal `json:"quantity"`
	Role     string          `json:"role"`
}

type eventReq struct {
	Type  string         `json:"type" validate:"required"`
	Start string         `json:"start" validate:"required"`
	Items []eventItemReq `json:"items" validate:"required,min=1,dive"`
	// StockMove marks quick stock-in/out registrations, which aggregate
	// into one event per day and type like production runs do.
	StockMove bool `json:"stockMove"`
}

func (r eventReq) eventItems() []model.EventItem {
	items := make([]model.EventItem, 0, len(r.Items))
	for _, it := range r.Items {
		role := model.Role(it.Role)
		if role != model.RoleMaterial {
			role = model.RoleProduct
		}
		items = append(items, model.EventItem{
			Name: it.Name, Size: it.Size, Length: it.Length,
			Quantity: it.Quantity, Role: role,
		})
	}
	return items
}

// fullCalendarEvent is the wire shape the calendar view renders directly.
type fullCalendarEvent struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Start           time.Time      `json:"start"`
	AllDay          bool           `json:"allDay"`
	BackgroundColor string         `json:"backgroundColor"`
	BorderColor     string         `json:"borderColor"`
	ExtendedProps   map[string]any `json:"extendedProps"`
}

func toFullCalendar(ev model.Event) fullCalendarEvent {
	color, ok := eventColors[ev.Type]
	if !ok {
		color = eventColors[model.EventProduce]
	}
	return fullCalendarEvent{
		ID:              strconv.FormatUint(ev.ID, 10),
		Title:           ev.Title,
		Start:           ev.Start,
		AllDay:          ev.AllDay,
		BackgroundColor: color,
		BorderColor:     color,
		ExtendedProps: map[string]any{
			"type":      ev.Type,
			"items":     ev.Items,
			"createdBy": ev.CreatedBy,
		},
	}
}

// ----- helpers -----

// parseStart accepts RFC 3339 or a bare YYYY-MM-DD (interpreted in the
// business timezone, as the calendar UI sends for all-day entries).
func (h *CalendarHandler) parseStart(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.Loc)
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

// dayWindow returns the [start, end) of the civil day containing t.
func (h *CalendarHandler) dayWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(h.Loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.Loc)
	return start, start.AddDate(0, 0, 1)
}

func (h *CalendarHandler) lockDay(c echo.Context, t time.Time) (func(), error) {
	key := "lock:calendar:" + t.In(h.Loc).Format("2006-01-02")
	return h.Locker.TryLock(c.Request().Context(), key, h.LockTTL)
}

// publishAlerts fires a stock.alert message per threshold crossing. Alert
// delivery is best-effort and never affects the response.
func (h *CalendarHandler) publishAlerts(c echo.Context, alerts []model.Item, actor string) {
	for _, item := range alerts {
		ev := queue.StockAlertEvent{
			ItemID:    item.ID,
			Name:      item.Name,
			Size:      item.Size,
			Length:    item.Length,
			Quantity:  item.Quantity.String(),
			Threshold: item.AlertThreshold.String(),
			Category:  item.Category,
			TriggerBy: actor,
			At:        time.Now().UTC().Format(time.RFC3339),
		}
		if err := queue_publisher.PublishStockAlert(c.Request().Context(), ev); err != nil {
			h.Log.WithError(err).WithField("item", item.Name).Warn("stock alert publish failed")
		}
	}
}

func missingKeys(missing []model.ItemKey) []string {
	out := make([]string, 0, len(missing))
	for _, k := range missing {
		out = append(out, fmt.Sprintf("%s/%s/%s", k.Name, k.Size, k.Length))
	}
	return out
}

func eventDetail(ev model.Event) string {
	parts := make([]string, 0, len(ev.Items))
	for _, it := range ev.Items {
		parts = append(parts, fmt.Sprintf("%s(%s/%s) x%s", it.Name, it.Size, it.Length, model.Round1(it.Quantity)))
	}
	return fmt.Sprintf("[%s] %s", ev.Type, strings.Join(parts, ", "))
}

// ----- routes -----

// List returns every event in the shape FullCalendar consumes.
func (h *CalendarHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Events.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	out := make([]fullCalendarEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toFullCalendar(ev))
	}
	return c.JSON(http.StatusOK, out)
}

// Create applies the event's deltas to the ledger and persists it. PRODUCE
// events, and stock-move RECEIVE/SHIP registrations, aggregate into the
// existing same-type event of that day instead of stacking duplicates; the
// ledger deltas are applied either way.
func (h *CalendarHandler) Create(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	typ, err := model.ParseEventType(req.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "알 수 없는 일정 유형입니다."})
	}
	start, allDay, err := h.parseStart(req.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "날짜 형식이 잘못되었습니다."})
	}

	release, err := h.lockDay(c, start)
	if err != nil {
		return fail(c, err)
	}
	defer release()

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)
	items := req.eventItems()

	res, err := h.Engine.Apply(ctx, items, typ, reconcile.Forward, actor.Username)
	if err != nil {
		return fail(c, err)
	}

	ev, err := h.persistCreate(c, req, typ, start, allDay, items, actor.Username)
	if err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)
	h.publishAlerts(c, res.Alerts, actor.Username)

	if err := h.Audit.Record(ctx, actor.Username, "일정 등록", model.LogCategoryCalendar,
		strconv.FormatUint(ev.ID, 10), eventDetail(ev)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "일정이 등록되었습니다.",
		"event":   toFullCalendar(ev),
		"missing": missingKeys(res.Missing),
	})
}

// persistCreate stores the event, merging into the day's aggregate when the
// type calls for it.
func (h *CalendarHandler) persistCreate(c echo.Context, req eventReq, typ model.EventType,
	start time.Time, allDay bool, items []model.EventItem, actor string) (model.Event, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if typ == model.EventProduce || req.StockMove {
		dayStart, dayEnd := h.dayWindow(start)
		existing, err := h.Events.FindSameDay(ctx, typ, dayStart, dayEnd)
		if err == nil {
			existing.Items = reconcile.MergeItems(existing.Items, items)
			existing.Title = reconcile.BuildTitle(typ, existing.Items)
			if err := h.Events.Update(ctx, existing); err != nil {
				return model.Event{}, err
			}
			return h.Events.GetByID(ctx, existing.ID)
		}
		if err != repository.ErrNotFound {
			return model.Event{}, err
		}
	}
	return h.Events.Create(ctx, model.Event{
		Title:     reconcile.BuildTitle(typ, items),
		Start:     start,
		AllDay:    allDay,
		Type:      typ,
		Items:     items,
		CreatedBy: actor,
	})
}

// Update rolls back the stored items, applies the new ones and rewrites the
// event. The rollback always uses the stored items verbatim, never a diff.
func (h *CalendarHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	typ, err := model.ParseEventType(req.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "알 수 없는 일정 유형입니다."})
	}
	start, allDay, err := h.parseStart(req.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "날짜 형식이 잘못되었습니다."})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	old, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	release, err := h.lockDay(c, old.Start)
	if err != nil {
		return fail(c, err)
	}
	defer release()
	// Reload under the lock. A concurrent write holding the lock may have
	// changed or removed the event between the fetch and the acquisition;
	// rolling back a stale copy would corrupt the ledger.
	old, err = h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}

	rollback, err := h.Engine.Apply(ctx, old.Items, old.Type, reconcile.Rollback, actor.Username)
	if err != nil {
		return fail(c, err)
	}
	items := req.eventItems()
	applied, err := h.Engine.Apply(ctx, items, typ, reconcile.Forward, actor.Username)
	if err != nil {
		return fail(c, err)
	}

	updated := model.Event{
		ID:        id,
		Title:     reconcile.BuildTitle(typ, items),
		Start:     start,
		AllDay:    allDay,
		Type:      typ,
		Items:     items,
		CreatedBy: old.CreatedBy,
	}
	if err := h.Events.Update(ctx, updated); err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)
	h.publishAlerts(c, applied.Alerts, actor.Username)

	if err := h.Audit.Record(ctx, actor.Username, "일정 수정", model.LogCategoryCalendar,
		c.Param("id"), eventDetail(updated)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "일정이 수정되었습니다.",
		"event":   toFullCalendar(updated),
		"missing": missingKeys(append(rollback.Missing, applied.Missing...)),
	})
}

// Delete reverses the stored items and removes the event. Items deleted
// out-of-band since the apply are skipped and reported, not errors; the
// event must still be removable.
func (h *CalendarHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	release, err := h.lockDay(c, ev.Start)
	if err != nil {
		return fail(c, err)
	}
	defer release()
	// Reload under the lock so a duplicate delete that lost the race sees
	// the event gone and answers 404 before touching the ledger.
	ev, err = h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}

	res, err := h.Engine.Apply(ctx, ev.Items, ev.Type, reconcile.Rollback, actor.Username)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Events.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	h.Cache.Invalidate(ctx, cache.KeyInventory)

	if err := h.Audit.Record(ctx, actor.Username, "일정 삭제", model.LogCategoryCalendar,
		c.Param("id"), eventDetail(ev)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "일정이 삭제되었습니다.",
		"missing": missingKeys(res.Missing),
	})
}
