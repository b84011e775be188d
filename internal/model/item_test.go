package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name, size, length string
		want               ItemKey
	}{
		{"Pipe", "100mm", "6m", ItemKey{"Pipe", "100mm", "6m"}},
		{"  Pipe ", " 100mm", "", ItemKey{"Pipe", "100mm", "-"}},
		{"Pipe", "", "", ItemKey{"Pipe", "-", "-"}},
		{"Pipe", "-", "-", ItemKey{"Pipe", "-", "-"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.name, tt.size, tt.length))
	}
}

// "" and "-" must address the same ledger row.
func TestNormalizeKey_BlankAndDashCollide(t *testing.T) {
	assert.Equal(t, NormalizeKey("Pipe", "", ""), NormalizeKey("Pipe", "-", "-"))
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7.7999", "7.8"},
		{"0.30000000000000004", "0.3"},
		{"2.25", "2.3"},
		{"-1.25", "-1.3"},
		{"10", "10"},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, Round1(d).String())
	}
}

func TestBelowThreshold(t *testing.T) {
	it := Item{
		Quantity:       decimal.NewFromInt(10),
		AlertThreshold: decimal.NewFromInt(10),
		AlertEnabled:   true,
	}
	assert.True(t, it.BelowThreshold(), "at the threshold counts")

	it.Quantity = decimal.NewFromFloat(10.1)
	assert.False(t, it.BelowThreshold())

	it.Quantity = decimal.NewFromInt(1)
	it.AlertEnabled = false
	assert.False(t, it.BelowThreshold(), "disabled alerts never fire")
}
