// Package pipeline implements the Crawl job (C4): fetch a web store's
// products through internal/webstore, canonicalise each through
// internal/domain, and persist the result through the repository contract,
// either as a full replace or as a URL-scoped patch.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/domain"
	"github.com/pushkindt/pushkind-crawlers/internal/fetch"
	"github.com/pushkindt/pushkind-crawlers/internal/repository"
	"github.com/pushkindt/pushkind-crawlers/internal/webstore"
)

// DefaultFetchConcurrency is the per-crawler HTTP permit count spec §5
// names as the default (5).
const DefaultFetchConcurrency = 5

// Repository is the slice of the storage contract a Crawl job needs.
type Repository interface {
	repository.CrawlerReader
	repository.CrawlerWriter
	repository.ProductWriter
}

// Result summarises one Crawl run for logging, grounded on
// original_source/src/processing/crawler.rs's log lines.
type Result struct {
	CrawlerID      int
	ProductsFound  int
	ProductsKept   int
	ValidationDrop int
}

// Pipeline runs Crawl jobs; each Run is given the selector table of the
// store it crawls.
type Pipeline struct {
	repo        Repository
	log         *slog.Logger
	concurrency int
}

// New builds a Pipeline over repo. concurrency is the per-crawler HTTP
// permit count; zero selects DefaultFetchConcurrency.
func New(repo Repository, log *slog.Logger, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &Pipeline{repo: repo, log: log, concurrency: concurrency}
}

// Run processes one Crawl envelope for selector. When urls is empty, the
// store is crawled in full and the crawler's entire product set is
// replaced; when urls is non-empty, only those product pages are
// re-fetched and the matching rows are upserted in place, per spec §4.4.
//
// If the crawler is already processing, Run logs a skip and returns nil: a
// second envelope for the same crawler arriving before the first finishes
// is treated as a duplicate delivery, not an error.
func (p *Pipeline) Run(ctx context.Context, selectors webstore.Selectors, urls []string) (Result, error) {
	crawler, err := p.repo.GetCrawler(selectors.Name)
	if err != nil {
		return Result{}, err
	}
	if crawler.Processing {
		p.log.Warn("crawler already running, skipping", "selector", selectors.Name)
		return Result{}, nil
	}

	runner, err := webstore.NewRunner(fetch.NewGate(p.concurrency), selectors)
	if err != nil {
		return Result{}, err
	}

	if err := p.repo.SetCrawlerProcessing(crawler.ID, true); err != nil {
		p.log.Error("failed to set crawler processing", "crawler_id", crawler.ID, "error", err.Error())
	}

	var raws []domain.RawProduct
	if len(urls) == 0 {
		raws, err = runner.GetProducts(ctx)
		if err != nil {
			return Result{}, err
		}
		if err := p.repo.DeleteProducts(crawler.ID); err != nil {
			return Result{}, err
		}
	} else {
		raws, err = fetchMany(ctx, runner, urls)
		if err != nil {
			return Result{}, err
		}
	}

	products, dropped := buildAll(crawler.ID, raws, p.log)

	if len(urls) == 0 {
		if err := p.repo.CreateProducts(products); err != nil {
			return Result{}, err
		}
	} else {
		if err := p.repo.UpdateProducts(products); err != nil {
			return Result{}, err
		}
	}

	if err := p.repo.UpdateCrawlerStats(crawler.ID); err != nil {
		p.log.Error("failed to update crawler stats", "crawler_id", crawler.ID, "error", err.Error())
	}

	return Result{
		CrawlerID:      crawler.ID,
		ProductsFound:  len(raws),
		ProductsKept:   len(products),
		ValidationDrop: dropped,
	}, nil
}

func fetchMany(ctx context.Context, runner *webstore.Runner, urls []string) ([]domain.RawProduct, error) {
	var out []domain.RawProduct
	for _, u := range urls {
		raws, err := runner.GetProduct(ctx, u)
		if err != nil {
			continue
		}
		out = append(out, raws...)
	}
	return out, nil
}

// buildAll validates and canonicalises every raw product, dropping (and
// counting) the ones that fail validation instead of failing the batch —
// spec §4.4's "one bad product never aborts the crawl".
func buildAll(crawlerID int, raws []domain.RawProduct, log *slog.Logger) ([]core.Product, int) {
	products := make([]core.Product, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		p, err := domain.BuildProduct(crawlerID, raw)
		if err != nil {
			log.Warn("dropping invalid product", "url", raw.URL, "error", err.Error())
			dropped++
			continue
		}
		products = append(products, *p)
	}
	return products, dropped
}
