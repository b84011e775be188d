package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisAddr(t *testing.T) {
	tests := []struct {
		name             string
		addr, host, port string
		want             string
	}{
		{"addr wins over host/port", "cache:6380", "redis", "6379", "cache:6380"},
		{"host/port pair", "", "redis", "6379", "redis:6379"},
		{"host without port falls through", "", "redis", "", "localhost:6379"},
		{"nothing set", "", "", "", "localhost:6379"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redisAddr(tt.addr, tt.host, tt.port))
		})
	}
}
