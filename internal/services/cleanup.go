package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/arzan03/SecureDrop/internal/metrics"
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/arzan03/SecureDrop/internal/utils"
)

const cleanupBatchSize = 500

// CleanupService periodically removes expired sessions from both
// the session store and object storage.
type CleanupService struct {
	transfers *TransferService
	interval  time.Duration
	workers   int
	done      chan struct{}
}

// NewCleanupService creates a new cleanup service. A non-positive interval
// falls back to an hourly sweep.
func NewCleanupService(transfers *TransferService, interval time.Duration, workers int) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	if workers < 1 {
		workers = 1
	}
	return &CleanupService{
		transfers: transfers,
		interval:  interval,
		workers:   workers,
		done:      make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (cs *CleanupService) Start(ctx context.Context) {
	slog.Info("cleanup service started", "interval", cs.interval)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				cs.RunOnce(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

// RunOnce sweeps one batch of expired sessions and returns how many were
// removed.
func (cs *CleanupService) RunOnce(ctx context.Context) int {
	now := cs.transfers.now().UTC()

	expired, err := cs.transfers.sessions.ListExpired(ctx, now, cleanupBatchSize)
	if err != nil {
		slog.Error("failed to list expired sessions", "error", err)
		return 0
	}

	if len(expired) == 0 {
		slog.Debug("no expired sessions to clean up")
		return 0
	}

	pool := utils.NewWorkerPool(cs.workers)
	defer pool.Close()

	results := make(chan bool, len(expired))
	for _, session := range expired {
		session := session
		pool.Submit(func() error {
			err := cs.reclaim(ctx, session)
			results <- err == nil
			return err
		})
	}
	_ = pool.Wait()
	close(results)

	var cleaned, failed int
	for ok := range results {
		if ok {
			cleaned++
		} else {
			failed++
		}
	}

	metrics.CleanupRemovedTotal.WithLabelValues("ok").Add(float64(cleaned))
	metrics.CleanupRemovedTotal.WithLabelValues("failed").Add(float64(failed))

	slog.Info("cleanup cycle complete",
		"cleaned", cleaned,
		"failed", failed,
		"total_expired", len(expired),
	)
	return cleaned
}

func (cs *CleanupService) reclaim(ctx context.Context, session *models.TransferSession) error {
	if err := cs.transfers.Reclaim(ctx, session); err != nil {
		slog.Error("failed to clean up expired session",
			"code", session.Code,
			"error", err,
		)
		return err
	}
	slog.Info("cleaned up expired session",
		"code", session.Code,
		"file_name", session.FileName,
		"expired_at", session.ExpirationDate,
	)
	return nil
}
