// Package dispatcher implements C12: a pull-socket message loop that
// decodes tagged-union envelopes and spawns one independent job per
// envelope, grounded on original_source's run_with_hub_processing_guard
// call sites and spec.md §4.11's scheduling model.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
	"github.com/pushkindt/pushkind-crawlers/internal/lock"
	"github.com/pushkindt/pushkind-crawlers/internal/matching"
	"github.com/pushkindt/pushkind-crawlers/internal/pipeline"
	"github.com/pushkindt/pushkind-crawlers/internal/repository"
	"github.com/pushkindt/pushkind-crawlers/internal/webstore"
)

// Dispatcher owns the pull socket and the job implementations it fans
// envelopes out to.
type Dispatcher struct {
	endpoint string
	repo     repository.Repository
	guard    *lock.Guard
	pipeline *pipeline.Pipeline
	bench    *matching.BenchmarkMatcher
	category *matching.CategoryMatcher
	log      *slog.Logger

	wg sync.WaitGroup
}

// New builds a Dispatcher bound to endpoint (a ZeroMQ pull-socket address,
// e.g. "tcp://127.0.0.1:5555"), wiring every job implementation over the
// same repository and processing-lock guard.
func New(endpoint string, repo repository.Repository, crawlPipeline *pipeline.Pipeline, benchMatcher *matching.BenchmarkMatcher, categoryMatcher *matching.CategoryMatcher, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		repo:     repo,
		guard:    lock.New(repo, log),
		pipeline: crawlPipeline,
		bench:    benchMatcher,
		category: categoryMatcher,
		log:      log,
	}
}

// Run binds the pull socket and blocks, dispatching one goroutine per
// accepted envelope until ctx is cancelled. A malformed envelope is logged
// as a MessageError and the loop continues; it never aborts the receive
// loop. Run waits for every in-flight job to finish before returning, so a
// caller cancelling ctx gets graceful drainage (spec.md §9's redesign
// suggestion).
func (d *Dispatcher) Run(ctx context.Context) error {
	sock := zmq4.NewPull(ctx)
	defer sock.Close()

	if err := sock.Listen(d.endpoint); err != nil {
		return apperr.NewConfigError("queue.endpoint", err)
	}
	d.log.Info("dispatcher listening", "endpoint", d.endpoint)

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return nil
		default:
		}

		msg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				d.wg.Wait()
				return nil
			}
			d.log.Error("receive failed", "error", err.Error())
			continue
		}

		raw := msg.Bytes()
		env, err := decodeEnvelope(raw)
		if err != nil {
			msgErr := apperr.NewMessageError(raw, err)
			d.log.Error("malformed envelope, skipping", "error", msgErr.Error())
			continue
		}

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.dispatch(ctx, env)
		}()
	}
}

// Shutdown waits for every in-flight job spawned by Run to finish. Callers
// typically cancel Run's context first, then call Shutdown to block until
// drainage completes.
func (d *Dispatcher) Shutdown(_ context.Context) {
	d.wg.Wait()
}

// dispatch assigns every accepted envelope a fresh correlation id, grounded
// on the teacher's uuid.NewString() id-generation idiom, so a job's whole
// log trail can be grepped out of the worker's otherwise-interleaved
// structured output.
func (d *Dispatcher) dispatch(ctx context.Context, env envelope) {
	jobID := uuid.NewString()
	log := d.log.With("job_id", jobID)

	switch env.kind {
	case kindCrawlerSelector:
		d.runCrawl(ctx, log, env.selector, nil)
	case kindCrawlerSelectorProducts:
		d.runCrawl(ctx, log, env.selector, env.urls)
	case kindBenchmark:
		d.runBenchmark(ctx, log, env.benchmarkID)
	case kindCategoryMatch:
		d.runCategoryMatch(ctx, log, env.hubID)
	}
}

// runCrawl does not use the hub-wide lock: Crawl's own duplicate-delivery
// guard is the crawler row's processing flag (spec §4.4/§4.9), which
// internal/pipeline.Pipeline.Run already checks and sets.
func (d *Dispatcher) runCrawl(ctx context.Context, log *slog.Logger, selector string, urls []string) {
	selectors, ok := webstore.Tables[selector]
	if !ok {
		log.Error("unknown crawler selector", "selector", selector)
		return
	}

	result, err := d.pipeline.Run(ctx, selectors, urls)
	if err != nil {
		log.Error("crawl job failed", "selector", selector, "error", err.Error())
		return
	}
	log.Info("crawl complete", "crawler_id", result.CrawlerID, "products_found", result.ProductsFound,
		"products_kept", result.ProductsKept, "validation_drop", result.ValidationDrop)
}

func (d *Dispatcher) runBenchmark(ctx context.Context, log *slog.Logger, benchmarkID int) {
	stats, err := d.bench.Run(ctx, benchmarkID)
	if err != nil {
		log.Error("benchmark job failed", "benchmark_id", benchmarkID, "error", err.Error())
		return
	}
	log.Info("benchmark complete", "benchmark_id", benchmarkID,
		"associations_written", stats.AssociationsWritten, "embeddings_generated", stats.EmbeddingsGenerated)
}

func (d *Dispatcher) runCategoryMatch(ctx context.Context, log *slog.Logger, hubID int) {
	err := d.guard.Run(hubID, func() error {
		stats, err := d.category.Run(ctx, hubID)
		if err != nil {
			return err
		}
		log.Info("category match complete", "hub_id", hubID,
			"categories_loaded", stats.CategoriesLoaded, "products_loaded", stats.ProductsLoaded,
			"category_embeddings_generated", stats.CategoryEmbeddingsGenerated,
			"product_embeddings_generated", stats.ProductEmbeddingsGenerated,
			"matched", stats.Matched, "unmatched", stats.Unmatched,
			"skipped_below_threshold", stats.SkippedBelowThreshold,
			"skipped_invalid_category_id", stats.SkippedInvalidCategoryID,
			"skipped_no_category_candidate", stats.SkippedNoCategoryCandidate)
		return nil
	})
	if err != nil {
		log.Error("category match job failed", "hub_id", hubID, "error", err.Error())
	}
}
