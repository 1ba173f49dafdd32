package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/logger"
)

// FarewellFunc sends the idle goodbye for one session
type FarewellFunc func(ctx context.Context, sess *Session)

// Sweeper periodically scans the store and fires the idle farewell for
// sessions that just went quiet. It runs on the same runtime as the
// request handlers and tolerates an empty store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	farewell FarewellFunc
	log      *zap.SugaredLogger
}

// NewSweeper builds a sweeper over the given store
func NewSweeper(store *Store, interval time.Duration, farewell FarewellFunc) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		farewell: farewell,
		log:      logger.GetLogger("sweeper"),
	}
}

// Run blocks until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infof("idle sweeper running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("idle sweeper stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context, now time.Time) {
	idle := s.store.Sweep(now)
	if len(idle) == 0 {
		return
	}
	s.log.Infof("sending farewell to %d idle sessions", len(idle))
	for _, sess := range idle {
		s.farewell(ctx, sess)
	}
}
