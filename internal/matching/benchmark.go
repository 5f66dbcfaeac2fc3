// Package matching implements the two vector-similarity jobs: Benchmark
// (C8), which ranks a tenant's products against one reference item, and
// Category-Match (C9), which assigns every product its nearest category.
package matching

import (
	"context"
	"log/slog"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
	"github.com/pushkindt/pushkind-crawlers/internal/repository"
	"github.com/pushkindt/pushkind-crawlers/internal/search"
)

// SimilarityThreshold is the minimum cosine similarity required to record
// a match (spec §4.6/§4.7): a distance d is kept only if 1-d >= this value.
const SimilarityThreshold = 0.80

// TopK is the number of nearest products searched for in each crawler's
// product set, so a benchmark run persists at most TopK associations per
// crawler.
const TopK = 10

// BenchmarkRepository is the slice of the storage contract a Benchmark run
// needs.
type BenchmarkRepository interface {
	repository.BenchmarkReader
	repository.BenchmarkWriter
	repository.ProductReader
	repository.ProductWriter
	repository.CrawlerReader
}

// BenchmarkStats summarises one Benchmark run, grounded on
// original_source/src/processing/benchmark.rs's log fields.
type BenchmarkStats struct {
	AssociationsWritten int
	EmbeddingsGenerated int
}

// BenchmarkMatcher runs C8.
type BenchmarkMatcher struct {
	repo     BenchmarkRepository
	embedder embedding.Provider
	log      *slog.Logger
}

// NewBenchmarkMatcher builds a BenchmarkMatcher.
func NewBenchmarkMatcher(repo BenchmarkRepository, embedder embedding.Provider, log *slog.Logger) *BenchmarkMatcher {
	return &BenchmarkMatcher{repo: repo, embedder: embedder, log: log}
}

// Run processes one Benchmark envelope. If the benchmark is already
// processing, it logs a skip and returns nil: per spec §4.6/§9, the
// per-entity processing flag is the Benchmark job's own duplicate-delivery
// guard (it does not use the hub-wide lock). The flag is intentionally not
// reset on a mid-run failure (spec §9 open-question decision below; see
// DESIGN.md).
func (m *BenchmarkMatcher) Run(ctx context.Context, benchmarkID int) (BenchmarkStats, error) {
	var stats BenchmarkStats

	bench, err := m.repo.GetBenchmark(benchmarkID)
	if err != nil {
		return stats, err
	}
	if bench.Processing {
		m.log.Warn("benchmark already running, skipping", "benchmark_id", benchmarkID)
		return stats, nil
	}
	if err := m.repo.SetBenchmarkProcessing(benchmarkID, true); err != nil {
		return stats, err
	}

	benchmarkVector, generated, err := embedding.LoadOrGenerate(ctx, bench.Embedding, embedding.Prompt(benchmarkSource(bench)), m.embedder,
		func(blob []byte) error { return m.repo.SetBenchmarkEmbedding(benchmarkID, mustDecode(blob)) })
	if err != nil {
		return stats, err
	}
	if generated {
		stats.EmbeddingsGenerated++
	}

	crawlers, err := m.repo.ListCrawlers(bench.HubID)
	if err != nil {
		return stats, err
	}

	if err := m.repo.RemoveBenchmarkAssociations(benchmarkID); err != nil {
		return stats, err
	}

	for _, crawler := range crawlers {
		products, err := m.repo.ListProducts(crawler.ID)
		if err != nil {
			return stats, err
		}

		items := make([]search.Item, 0, len(products))
		for _, p := range products {
			vector, generated, err := embedding.LoadOrGenerate(ctx, p.Embedding, embedding.Prompt(productSource(p)), m.embedder,
				func(blob []byte) error { return m.repo.SetProductEmbedding(p.ID, mustDecode(blob)) })
			if err != nil {
				return stats, err
			}
			if generated {
				stats.EmbeddingsGenerated++
			}
			items = append(items, search.Item{ID: p.ID, Embedding: vector})
		}

		for _, match := range search.TopK(benchmarkVector, items, TopK) {
			similarity := 1 - match.Distance
			if similarity < SimilarityThreshold {
				continue
			}
			if err := m.repo.SetBenchmarkAssociation(benchmarkID, match.ID, match.Distance); err != nil {
				m.log.Warn("failed to set benchmark association", "benchmark_id", benchmarkID, "product_id", match.ID, "error", err.Error())
				continue
			}
			stats.AssociationsWritten++
		}
	}

	if err := m.repo.UpdateBenchmarkStats(benchmarkID); err != nil {
		m.log.Error("failed to update benchmark stats", "benchmark_id", benchmarkID, "error", err.Error())
	}

	return stats, nil
}

func benchmarkSource(b core.Benchmark) core.EmbeddingSource {
	return core.EmbeddingSource{
		Name: b.Name, SKU: b.SKU, Category: b.Category, Units: b.Units,
		Price: b.Price, Amount: b.Amount, Description: b.Description,
	}
}

func productSource(p core.Product) core.EmbeddingSource {
	return core.EmbeddingSource{
		Name: p.Name, SKU: p.SKU, Category: p.Category, Units: p.Units,
		Price: p.Price, Amount: p.Amount, Description: p.Description,
	}
}

// mustDecode decodes a freshly-encoded blob; it cannot fail for data this
// package itself just produced via embedding.EncodeBlob.
func mustDecode(blob []byte) []float32 {
	v, err := embedding.DecodeBlob(blob)
	if err != nil {
		return nil
	}
	return v
}
