package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
	}{
		{"입고", EventReceive},
		{"출고", EventShip},
		{"생산", EventProduce},
		{"RECEIVE", EventReceive},
		{"ship", EventShip},
		{" 생산 ", EventProduce},
	}
	for _, tt := range tests {
		got, err := ParseEventType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseEventType_RejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "입출고", "PRODUCE!", "delivery"} {
		_, err := ParseEventType(in)
		assert.Error(t, err, in)
	}
}

func TestIdentityCan(t *testing.T) {
	user := Identity{Role: RoleUser, Permissions: PermissionMap{Calendar: true}}
	admin := Identity{Role: RoleAdmin}

	assert.True(t, user.Can("calendar"))
	assert.False(t, user.Can("inventory"))
	assert.False(t, user.Can("unknown"))

	for _, feature := range []string{"inventory", "calendar", "attendance", "logs"} {
		assert.True(t, admin.Can(feature), feature)
	}
}
