package handler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/model"
)

var kst = time.FixedZone("business", 9*60*60)

func TestParseStart(t *testing.T) {
	h := &CalendarHandler{Loc: kst}

	start, allDay, err := h.parseStart("2026-08-28")
	require.NoError(t, err)
	assert.True(t, allDay)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, kst), start)

	start, allDay, err = h.parseStart("2026-08-28T10:30:00+09:00")
	require.NoError(t, err)
	assert.False(t, allDay)
	assert.Equal(t, 10, start.Hour())

	_, _, err = h.parseStart("28/08/2026")
	assert.Error(t, err)
}

// The day window follows the business timezone: late UTC evening already
// belongs to the next KST day.
func TestDayWindow(t *testing.T) {
	h := &CalendarHandler{Loc: kst}
	at := time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)

	start, end := h.dayWindow(at)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, kst), start)
	assert.Equal(t, start.AddDate(0, 0, 1), end)
	assert.True(t, at.After(start) || at.Equal(start))
	assert.True(t, at.Before(end))
}

func TestToFullCalendar(t *testing.T) {
	ev := model.Event{
		ID:     7,
		Title:  "[입고] Pipe",
		Start:  time.Date(2026, 8, 28, 0, 0, 0, 0, kst),
		AllDay: true,
		Type:   model.EventReceive,
		Items: []model.EventItem{{
			Name: "Pipe", Size: "100mm", Length: "-",
			Quantity: decimal.NewFromInt(10), Role: model.RoleProduct,
		}},
		CreatedBy: "admin",
	}

	fc := toFullCalendar(ev)
	assert.Equal(t, "7", fc.ID)
	assert.Equal(t, "#4CAF50", fc.BackgroundColor)
	assert.Equal(t, fc.BackgroundColor, fc.BorderColor)
	assert.Equal(t, model.EventReceive, fc.ExtendedProps["type"])
	assert.Equal(t, "admin", fc.ExtendedProps["createdBy"])
}

func TestEventColorsPerType(t *testing.T) {
	assert.Equal(t, "#4CAF50", eventColors[model.EventReceive])
	assert.Equal(t, "#F44336", eventColors[model.EventShip])
	assert.Equal(t, "#2196F3", eventColors[model.EventProduce])
}

func TestEventReqItems_DefaultsRoleToProduct(t *testing.T) {
	req := eventReq{Items: []eventItemReq{
		{Name: "Widget", Quantity: decimal.NewFromInt(5)},
		{Name: "Steel", Quantity: decimal.NewFromInt(2), Role: "material"},
	}}
	items := req.eventItems()
	require.Len(t, items, 2)
	assert.Equal(t, model.RoleProduct, items[0].Role)
	assert.Equal(t, model.RoleMaterial, items[1].Role)
}
