package worker

import (
	"context"
	"time"

	"tracker_server/core/port/out"
	"tracker_server/pkg/logger"
)

// =============================================================================
// GhostSweeper - periodic staleness scan
// =============================================================================
//
// Status inference only runs when an event arrives, so an application the
// company simply stopped answering would keep its status forever. The
// sweeper finds applications in waiting statuses with no recent activity
// and enqueues a reinfer job for each; the inference engine then records
// the GHOSTED suggestion.

const (
	GhostSweepInterval   = 1 * time.Hour
	GhostSweepIdleWindow = 21 * 24 * time.Hour
	GhostSweepMaxPerRun  = 500
)

type GhostSweeper struct {
	store         out.Store
	pool          *Pool
	checkInterval time.Duration
	idleWindow    time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewGhostSweeper creates a new ghost sweeper. Zero interval or idle
// window falls back to the package defaults.
func NewGhostSweeper(store out.Store, pool *Pool, interval, idleWindow time.Duration) *GhostSweeper {
	if interval <= 0 {
		interval = GhostSweepInterval
	}
	if idleWindow <= 0 {
		idleWindow = GhostSweepIdleWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GhostSweeper{
		store:         store,
		pool:          pool,
		checkInterval: interval,
		idleWindow:    idleWindow,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the sweeper.
func (s *GhostSweeper) Start() {
	logger.Info("[GhostSweeper] Starting...")
	go s.run()
}

// Stop stops the sweeper.
func (s *GhostSweeper) Stop() {
	logger.Info("[GhostSweeper] Stopping...")
	s.cancel()
}

func (s *GhostSweeper) run() {
	// let the server settle before the first scan
	time.Sleep(30 * time.Second)

	s.sweep()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[GhostSweeper] Stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *GhostSweeper) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.idleWindow)
	stale, err := s.store.Applications().ListStale(ctx, cutoff, GhostSweepMaxPerRun)
	if err != nil {
		logger.Error("[GhostSweeper] Failed to list stale applications: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	logger.Info("[GhostSweeper] Found %d stale applications", len(stale))

	submitted := 0
	for _, app := range stale {
		msg := NewMessage(JobApplicationReinfer, map[string]any{
			"user_id":        app.UserID.String(),
			"application_id": app.ID.String(),
		})
		if s.pool.Submit(msg) {
			submitted++
		}
	}

	logger.Info("[GhostSweeper] Enqueued %d reinfer jobs", submitted)
}
