// Package cli implements the tripctl admin commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tripdesk/internal/app"
	"tripdesk/internal/config"
)

// backend holds the connections a command opened.
type backend struct {
	cfg   *config.Config
	db    *sql.DB
	redis *redis.Client
}

// connect loads configuration and opens PostgreSQL, plus Redis when
// withRedis is set.
func connect(ctx context.Context, withRedis bool) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, err
	}
	b := &backend{cfg: cfg, db: db}

	if withRedis {
		b.redis, err = app.NewRedisClient(ctx, cfg.Redis, nil)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *backend) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
	b.db.Close()
}
