package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/storage"
)

// CleanupService periodically sweeps abandoned temp uploads. Files that
// never made it through a rename into final placement accumulate in the
// temp area when requests die mid-copy.
type CleanupService struct {
	store  storage.FileStore
	cfg    config.SweepConfig
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewCleanupService(store storage.FileStore, cfg config.SweepConfig, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the sweep loop. One sweep runs immediately, then on every
// tick until Stop or context cancellation.
func (s *CleanupService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.sweep(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for a running sweep to finish.
func (s *CleanupService) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

func (s *CleanupService) sweep(ctx context.Context) {
	removed, err := s.store.SweepTemp(ctx, s.cfg.Retention)
	if err != nil {
		s.logger.Error("temp sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("temp sweep completed", "removed", removed)
	}
}
