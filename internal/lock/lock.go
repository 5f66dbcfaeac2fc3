// Package lock wraps the repository's processing-guard operations in the
// claim/run/release call shape of original_source's
// run_with_hub_processing_guard. The dispatcher uses it for Category-Match
// jobs only.
package lock

import (
	"log/slog"

	"github.com/pushkindt/pushkind-crawlers/internal/repository"
)

// Guard runs a job under a tenant's hub-wide processing lock. A claim sets
// every crawler and benchmark processing flag in the hub, so Crawl and
// Benchmark jobs of that hub, which skip when their own row is flagged, do
// not start while a guarded job runs, and a claim fails while any of them
// is running. Crawl and Benchmark jobs are not run through Guard: two of
// them for different crawlers or benchmarks of one hub can run at once.
type Guard struct {
	writer repository.ProcessingGuardWriter
	log    *slog.Logger
}

// New builds a Guard over writer.
func New(writer repository.ProcessingGuardWriter, log *slog.Logger) *Guard {
	return &Guard{writer: writer, log: log}
}

// Run claims the hub's lock, runs job if the claim succeeded, and releases
// the lock on every exit path including a job error. If the claim fails
// (another job for this hub is already running) it logs
// skipped_because_processing_active and returns nil without running job.
func (g *Guard) Run(hubID int, job func() error) error {
	claimed, err := g.writer.ClaimHubProcessingLock(hubID)
	if err != nil {
		return err
	}
	if !claimed {
		g.log.Warn("skipping job: hub already processing", "hub_id", hubID, "skipped_because_processing_active", 1)
		return nil
	}

	jobErr := job()

	if err := g.writer.ReleaseHubProcessingLock(hubID); err != nil {
		g.log.Error("failed to release processing lock", "hub_id", hubID, "error", err.Error())
	}
	return jobErr
}
