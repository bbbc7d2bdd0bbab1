package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/pkg/jobs"
	"github.com/gizmohq/survey-api/pkg/storage"
)

// ExportArchive keeps a copy of every rendered export on disk so downloads
// can be audited and re-served. Archiving happens off the request path via
// a worker queue; failures are retried and never surface to the caller.
type ExportArchive struct {
	queue  *jobs.Queue
	store  *storage.LocalStorage
	ttl    time.Duration
	logger *zap.Logger
}

// NewExportArchive constructs the archive with its worker queue.
func NewExportArchive(store *storage.LocalStorage, ttl time.Duration, logger *zap.Logger) *ExportArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ExportArchive{store: store, ttl: ttl, logger: logger}
	a.queue = jobs.NewQueue("export-archive", a.handle, jobs.QueueConfig{
		Workers: 1,
		Logger:  logger,
	})
	return a
}

// Start launches the archive workers.
func (a *ExportArchive) Start(ctx context.Context) {
	if a == nil {
		return
	}
	a.queue.Start(ctx)
}

// Stop drains the workers.
func (a *ExportArchive) Stop() {
	if a == nil {
		return
	}
	a.queue.Stop()
}

// Enqueue schedules one rendered export for archiving.
func (a *ExportArchive) Enqueue(result ExportResult) {
	if a == nil {
		return
	}
	err := a.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "archive",
		Payload: result,
	})
	if err != nil {
		a.logger.Warn("enqueue export archive", zap.String("filename", result.Filename), zap.Error(err))
	}
}

// Cleanup deletes archived exports older than the configured TTL.
func (a *ExportArchive) Cleanup() {
	if a == nil || a.ttl <= 0 {
		return
	}
	deleted, err := a.store.CleanupOlderThan(a.ttl)
	if err != nil {
		a.logger.Warn("cleanup export archive", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		a.logger.Info("pruned export archive", zap.Int("files", len(deleted)))
	}
}

func (a *ExportArchive) handle(_ context.Context, job jobs.Job) error {
	result, ok := job.Payload.(ExportResult)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	name := fmt.Sprintf("%s-%s", job.Enqueued.Format("20060102T150405"), result.Filename)
	if _, err := a.store.Save(name, result.Data); err != nil {
		return fmt.Errorf("archive export %s: %w", result.Filename, err)
	}
	return nil
}
