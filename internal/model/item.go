package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKey is the identity of a stock-keeping unit. Two line items refer to
// the same ledger row exactly when their normalized (name, size, length)
// tuples are equal.
type ItemKey struct {
	Name   string
	Size   string
	Length string
}

// NormalizeKey trims each component and substitutes "-" for absent size and
// length so that "" and "-" address the same ledger row.
func NormalizeKey(name, size, length string) ItemKey {
	k := ItemKey{
		Name:   strings.TrimSpace(name),
		Size:   strings.TrimSpace(size),
		Length: strings.TrimSpace(length),
	}
	if k.Size == "" {
		k.Size = "-"
	}
	if k.Length == "" {
		k.Length = "-"
	}
	return k
}

// Item mirrors the 'items' table. Quantity is the running balance of all
// reconciled event deltas for this identity key, kept at one decimal place.
type Item struct {
	ID             uint64          `json:"id"`
	Name           string          `json:"name"`
	Size           string          `json:"size"`
	Length         string          `json:"length"`
	Quantity       decimal.Decimal `json:"quantity"`
	Category       string          `json:"category"`
	AlertEnabled   bool            `json:"alertEnabled"`
	AlertThreshold decimal.Decimal `json:"alertThreshold"`
	LastUpdatedBy  string          `json:"lastUpdatedBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Key returns the normalized identity key of the item.
func (i Item) Key() ItemKey {
	return NormalizeKey(i.Name, i.Size, i.Length)
}

// BelowThreshold reports whether the item should raise a low-stock alert.
func (i Item) BelowThreshold() bool {
	return i.AlertEnabled && i.Quantity.LessThanOrEqual(i.AlertThreshold)
}

// Round1 rounds to one decimal place. All quantity arithmetic must pass
// through this so that stored balances never accumulate drift.
func Round1(d decimal.Decimal) decimal.Decimal {
	return d.Round(1)
}
