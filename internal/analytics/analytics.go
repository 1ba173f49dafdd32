// Package analytics records conversation events as rows in Postgres.
// Writes are fire-and-forget on the caller's path: a failed insert is
// logged and the conversation moves on.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
)

// Event types written to bot_events
const (
	EventMessageIn = "message_in"
	EventSearch    = "search"
	EventSelection = "selection"
	EventFarewell  = "farewell"
)

// Recorder is the analytics surface the conversation layer uses. A nil
// *Writer satisfies it as a no-op, so analytics can be switched off by
// simply not connecting.
type Recorder interface {
	Record(ctx context.Context, waID, eventType, detail string)
}

// Writer inserts events over a dedicated pgx pool, separate from the
// GORM catalog connection so bursty event writes never queue behind
// catalog reads.
type Writer struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

// New connects the event pool and ensures the table exists
func New(ctx context.Context, cfg *config.DatabaseConfig) (*Writer, error) {
	log := logger.GetLogger("analytics")

	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	w := &Writer{pool: pool, log: log}
	if err := w.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("event writer connected")
	return w, nil
}

func (w *Writer) ensureTable(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_events (
			id          uuid PRIMARY KEY,
			wa_id       text NOT NULL,
			event_type  text NOT NULL,
			detail      text,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure bot_events table: %w", err)
	}
	return nil
}

// Record inserts one event. Nil receivers no-op so callers never branch
// on whether analytics is enabled.
func (w *Writer) Record(ctx context.Context, waID, eventType, detail string) {
	if w == nil {
		return
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO bot_events (id, wa_id, event_type, detail) VALUES ($1, $2, $3, $4)`,
		uuid.New(), waID, eventType, detail,
	)
	if err != nil {
		w.log.Warnf("failed to record %s event for %s: %v", eventType, waID, err)
	}
}

// Close releases the pool
func (w *Writer) Close() {
	if w != nil && w.pool != nil {
		w.pool.Close()
	}
}
