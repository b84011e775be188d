package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the calendar entry kind. The stored values are the Korean
// labels the web client sends; they are kept verbatim so existing data and
// the FullCalendar front end keep working.
type EventType string

const (
	EventReceive EventType = "입고" // goods received into stock
	EventShip    EventType = "출고" // goods shipped out of stock
	EventProduce EventType = "생산" // production run: products in, materials out
)

// ParseEventType accepts both the Korean wire labels and their English
// aliases. Unknown values are rejected.
func ParseEventType(s string) (EventType, error) {
	switch strings.TrimSpace(s) {
	case string(EventReceive), "RECEIVE", "receive":
		return EventReceive, nil
	case string(EventShip), "SHIP", "ship":
		return EventShip, nil
	case string(EventProduce), "PRODUCE", "produce":
		return EventProduce, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Role tags a line item as a produced/received/shipped good or a consumed
// input.
type Role string

const (
	RoleProduct  Role = "product"
	RoleMaterial Role = "material"
)

// EventItem is one line of an event. The items array of a persisted event
// is the authoritative record of the quantity changes applied to the item
// ledger; rolling back those exact lines restores prior balances.
type EventItem struct {
	ID       uint64          `json:"-"`
	Name     string          `json:"name"`
	Size     string          `json:"size"`
	Length   string          `json:"length"`
	Quantity decimal.Decimal `json:"quantity"`
	Role     Role            `json:"role"`
}

// Key returns the normalized ledger identity of the line item.
func (it EventItem) Key() ItemKey {
	return NormalizeKey(it.Name, it.Size, it.Length)
}

// Event mirrors the 'events' table plus its 'event_items' children.
type Event struct {
	ID        uint64      `json:"id"`
	Title     string      `json:"title"`
	Start     time.Time   `json:"start"`
	AllDay    bool        `json:"allDay"`
	Type      EventType   `json:"type"`
	Items     []EventItem `json:"items"`
	CreatedBy string      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}
