package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/model"
)

func TestMergeItems_SumsMatchingLines(t *testing.T) {
	existing := []model.EventItem{
		item("Widget", "M", "", 5, model.RoleProduct),
		item("Steel", "", "", 2, model.RoleMaterial),
	}
	incoming := []model.EventItem{
		item("Widget", "M", "", 3, model.RoleProduct),
		item("Bolt", "", "", 1, model.RoleProduct),
	}

	merged := MergeItems(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, "8", merged[0].Quantity.String())
	assert.Equal(t, "2", merged[1].Quantity.String())
	assert.Equal(t, "Bolt", merged[2].Name)
}

// The same identity key may appear as both product and material of one
// production run; the role keeps the lines separate.
func TestMergeItems_RoleSeparatesLines(t *testing.T) {
	existing := []model.EventItem{item("Blank", "", "", 4, model.RoleMaterial)}
	incoming := []model.EventItem{item("Blank", "", "", 4, model.RoleProduct)}

	merged := MergeItems(existing, incoming)
	assert.Len(t, merged, 2)
}

func TestMergeItems_DoesNotMutateInputs(t *testing.T) {
	existing := []model.EventItem{item("Widget", "", "", 5, model.RoleProduct)}
	incoming := []model.EventItem{item("Widget", "", "", 3, model.RoleProduct)}

	_ = MergeItems(existing, incoming)
	assert.Equal(t, "5", existing[0].Quantity.String())
}

func TestBuildTitle(t *testing.T) {
	tests := []struct {
		name  string
		typ   model.EventType
		items []model.EventItem
		want  string
	}{
		{
			name:  "single product",
			typ:   model.EventProduce,
			items: []model.EventItem{item("Widget", "", "", 5, model.RoleProduct)},
			want:  "[생산] Widget",
		},
		{
			name: "extra lines counted",
			typ:  model.EventProduce,
			items: []model.EventItem{
				item("Widget", "", "", 5, model.RoleProduct),
				item("Steel", "", "", 2, model.RoleMaterial),
				item("Bolt", "", "", 1, model.RoleProduct),
			},
			want: "[생산] Widget 외 2건",
		},
		{
			name: "first product name wins over material order",
			typ:  model.EventProduce,
			items: []model.EventItem{
				item("Steel", "", "", 2, model.RoleMaterial),
				item("Widget", "", "", 5, model.RoleProduct),
			},
			want: "[생산] Widget 외 1건",
		},
		{
			name:  "no items",
			typ:   model.EventReceive,
			items: nil,
			want:  "[입고] 항목 없음",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildTitle(tt.typ, tt.items))
		})
	}
}
