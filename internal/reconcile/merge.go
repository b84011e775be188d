package reconcile

import (
	"fmt"

	"github.com/minsu-dev/factory-ops/internal/model"
)

// mergeKey identifies a line item inside one event. Unlike the ledger key
// it includes the role, so a production run consuming and producing the
// same identity keeps two lines.
type mergeKey struct {
	role model.Role
	key  model.ItemKey
}

// MergeItems folds incoming line items into an existing event's lines:
// quantities add up when (role, name, size, length) match, otherwise the
// line is appended. Used by same-day aggregation so repeated production
// registrations on one day grow a single event instead of stacking
// duplicates. The ledger deltas are applied independently of this merge.
func MergeItems(existing, incoming []model.EventItem) []model.EventItem {
	merged := make([]model.EventItem, len(existing))
	copy(merged, existing)

	index := make(map[mergeKey]int, len(merged))
	for i, it := range merged {
		index[mergeKey{it.Role, it.Key()}] = i
	}
	for _, in := range incoming {
		k := mergeKey{in.Role, in.Key()}
		if i, ok := index[k]; ok {
			merged[i].Quantity = model.Round1(merged[i].Quantity.Add(in.Quantity))
			continue
		}
		index[k] = len(merged)
		merged = append(merged, in)
	}
	return merged
}

// BuildTitle renders the calendar title: the event type tag, the first
// product-role item's name, and a count of the remaining lines.
func BuildTitle(typ model.EventType, items []model.EventItem) string {
	name := "항목 없음"
	for _, it := range items {
		if it.Role == model.RoleProduct {
			name = it.Name
			break
		}
	}
	title := fmt.Sprintf("[%s] %s", typ, name)
	if extra := len(items) - 1; extra > 0 {
		title += fmt.Sprintf(" 외 %d건", extra)
	}
	return title
}
