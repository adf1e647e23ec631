package worker

import (
	"context"
	"time"

	"school-admin-core/internal/config"
	"school-admin-core/internal/logger"
	"school-admin-core/internal/model"

	"github.com/rs/zerolog"
)

type SessionRefresher interface {
	Refresh(ctx context.Context) (model.AcademicSession, error)
}

// RefreshWorker re-reads the current session on a fixed interval so the
// cached value tracks changes made by other clients.
type RefreshWorker struct {
	interval   time.Duration
	runOnStart bool
	refresher  SessionRefresher
	log        zerolog.Logger
}

func NewRefreshWorker(cfg config.RefreshWorkerConfig, refresher SessionRefresher) *RefreshWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RefreshWorker{
		interval:   interval,
		runOnStart: cfg.RunOnStart,
		refresher:  refresher,
		log:        logger.Component("refresh_worker"),
	}
}

func (w *RefreshWorker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting session refresh worker")

	if w.runOnStart {
		w.refresh(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Session refresh worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	session, err := w.refresher.Refresh(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Session refresh failed")
		return
	}
	w.log.Debug().
		Str("session", session.Label).
		Str("term", string(session.Term)).
		Msg("Session refreshed")
}
