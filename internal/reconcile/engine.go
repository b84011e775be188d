// Package reconcile contains the inventory reconciliation engine: the
// translation of a calendar event's line items into signed quantity deltas
// against the item ledger. Creating an event applies its deltas, deleting
// it reverses them, and updating it fully reverses the stored lines before
// applying the new ones. The stored items array is always the authority
// for what must be reversed; deltas are never recomputed from current
// ledger state.
package reconcile

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// Multiplier values for Apply.
const (
	Forward  = 1  // apply an event's deltas
	Rollback = -1 // reverse an event's deltas using the same stored items
)

// Ledger is the slice of item storage the engine needs. The MySQL
// implementation performs each mutation as a single atomic statement so
// concurrent reconciliations against the same identity key cannot lose
// updates.
type Ledger interface {
	// Adjust adds delta to the quantity of the item with the given key and
	// returns the updated row. It returns repository.ErrNotFound when no
	// such item exists.
	Adjust(ctx context.Context, key model.ItemKey, delta decimal.Decimal, updatedBy string) (model.Item, error)
	// UpsertAdd adds delta to the item's quantity, creating the row with
	// quantity=delta when the identity key is new.
	UpsertAdd(ctx context.Context, key model.ItemKey, delta decimal.Decimal, category, updatedBy string) (model.Item, error)
}

// Adjustment records one applied delta for auditing.
type Adjustment struct {
	Key      model.ItemKey
	Delta    decimal.Decimal
	Quantity decimal.Decimal // balance after the adjustment
}

// Result reports what a reconciliation pass did.
type Result struct {
	Applied []Adjustment
	// Missing lists negative deltas that targeted an absent item and were
	// skipped. On rollback this means the item was deleted out-of-band;
	// the pass continues so the event itself can still be removed, but the
	// inconsistency is reported to the caller and logged.
	Missing []model.ItemKey
	// Alerts lists items whose balance ended at or below their enabled
	// alert threshold.
	Alerts []model.Item
}

// Engine applies and reverses event deltas against a Ledger.
type Engine struct {
	ledger Ledger
	log    *logrus.Logger
}

// New returns an Engine over the given ledger.
func New(ledger Ledger, log *logrus.Logger) *Engine {
	return &Engine{ledger: ledger, log: log}
}

// direction resolves the sign rule: receive +, ship -, and for production
// runs finished goods (+) versus consumed materials (-).
func direction(typ model.EventType, role model.Role) int {
	switch typ {
	case model.EventShip:
		return -1
	case model.EventProduce:
		if role == model.RoleMaterial {
			return -1
		}
		return 1
	default: // EventReceive
		return 1
	}
}

// newItemCategory is the category assigned when a receipt or production run
// creates a previously unknown identity key.
func newItemCategory(typ model.EventType) string {
	if typ == model.EventProduce {
		return "생산품"
	}
	return "자재"
}

// Apply walks the event's line items and adjusts the ledger by
// quantity * direction * multiplier, rounding every delta to one decimal.
//
// Policy, preserved exactly from the running system and pinned by tests:
// a positive delta against an absent key creates the item (upsert); a
// negative delta against an absent key is a no-op for that line. Zero
// quantities are skipped.
func (e *Engine) Apply(ctx context.Context, items []model.EventItem, typ model.EventType, multiplier int, actor string) (Result, error) {
	var res Result
	for _, it := range items {
		qty := model.Round1(it.Quantity)
		if qty.IsZero() {
			continue
		}
		delta := model.Round1(qty.Mul(decimal.NewFromInt(int64(direction(typ, it.Role) * multiplier))))
		key := it.Key()

		updated, err := e.apply(ctx, key, delta, typ, actor)
		if errors.Is(err, repository.ErrNotFound) {
			// Absent item, negative delta: treated as already-zero stock.
			e.log.WithFields(logrus.Fields{
				"name": key.Name, "size": key.Size, "length": key.Length,
				"delta": delta.String(),
			}).Warn("reconcile: negative delta against missing item skipped")
			res.Missing = append(res.Missing, key)
			continue
		}
		if err != nil {
			return res, err
		}
		res.Applied = append(res.Applied, Adjustment{Key: key, Delta: delta, Quantity: updated.Quantity})
		if updated.BelowThreshold() {
			res.Alerts = append(res.Alerts, updated)
		}
	}
	return res, nil
}

func (e *Engine) apply(ctx context.Context, key model.ItemKey, delta decimal.Decimal, typ model.EventType, actor string) (model.Item, error) {
	if delta.IsPositive() {
		return e.ledger.UpsertAdd(ctx, key, delta, newItemCategory(typ), actor)
	}
	return e.ledger.Adjust(ctx, key, delta, actor)
}
