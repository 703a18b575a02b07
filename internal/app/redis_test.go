package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestKeyspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		cmd  redis.Cmder
		want string
	}{
		{redis.NewStatusCmd(ctx, "set", "lock:trip:trip-1", "token"), "lock"},
		{redis.NewStringCmd(ctx, "get", "cache:trip:trip-1"), "cache"},
		{redis.NewStringCmd(ctx, "get", "plain"), "redis"},
		{redis.NewStatusCmd(ctx, "ping"), "redis"},
	}
	for _, tt := range tests {
		if got := keyspace(tt.cmd); got != tt.want {
			t.Errorf("keyspace(%v): expected %s, got %s", tt.cmd.Args(), tt.want, got)
		}
	}
}
