package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/notekeeper/internal/config"
	gormstore "github.com/thebtf/notekeeper/internal/db/gorm"
	"github.com/thebtf/notekeeper/internal/db/sqlite"
	"github.com/thebtf/notekeeper/internal/dialog"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/internal/timeparse"
)

// openStore opens the configured backend. Both backends migrate on open.
func openStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.DBDriver {
	case config.DriverPostgres:
		level := logger.Silent
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			level = logger.Info
		}
		s, err := gormstore.NewStore(ctx, gormstore.Config{
			URL:      c.DatabaseURL,
			MaxConns: c.MaxConns,
			LogLevel: level,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := sqlite.Open(ctx, sqlite.Config{Path: c.DBPath, MaxConns: c.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", c.DBPath, err)
		}
		return s, nil
	}
}

// dialogStore is a dialog.Store that may hold resources.
type dialogStore interface {
	dialog.Store
	Close() error
}

type memoryStates struct{ *dialog.MemoryStore }

func (memoryStates) Close() error { return nil }

// openStates returns the pending-action store and, for the in-process
// backend, a gauge source for pending owners.
func openStates(ctx context.Context, c *config.Config) (dialogStore, func() int, error) {
	if c.DialogBackend != config.BackendRedis {
		mem := dialog.NewMemoryStore()
		return memoryStates{mem}, mem.PendingCount, nil
	}

	rs := dialog.NewRedisStore(c.RedisAddr)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, nil, fmt.Errorf("redis dialog store %s: %w", c.RedisAddr, err)
	}
	log.Info().Str("addr", c.RedisAddr).Msg("Pending actions kept in redis")
	return rs, nil, nil
}

// newNormalizer builds the time normalizer for the configured offset and
// parser languages.
func newNormalizer(c *config.Config) (*timeparse.Normalizer, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	parser, err := timeparse.NewDefaultParser(c.Locales...)
	if err != nil {
		return nil, fmt.Errorf("build date parser: %w", err)
	}
	return timeparse.New(loc, parser), nil
}
