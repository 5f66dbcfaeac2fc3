package matching

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
)

type fakeBenchmarkRepo struct {
	benchmark     core.Benchmark
	crawlers      []core.Crawler
	products      map[int][]core.Product
	associations  []core.Association
	statsUpdated  bool
}

func (f *fakeBenchmarkRepo) GetBenchmark(int) (core.Benchmark, error) { return f.benchmark, nil }
func (f *fakeBenchmarkRepo) SetBenchmarkEmbedding(int, []float32) error { return nil }
func (f *fakeBenchmarkRepo) RemoveBenchmarkAssociations(int) error    { f.associations = nil; return nil }
func (f *fakeBenchmarkRepo) SetBenchmarkAssociation(benchmarkID, productID int, distance float64) error {
	f.associations = append(f.associations, core.Association{BenchmarkID: benchmarkID, ProductID: productID, Distance: distance})
	return nil
}
func (f *fakeBenchmarkRepo) SetBenchmarkProcessing(int, bool) error { return nil }
func (f *fakeBenchmarkRepo) UpdateBenchmarkStats(int) error         { f.statsUpdated = true; return nil }
func (f *fakeBenchmarkRepo) ListProducts(crawlerID int) ([]core.Product, error) {
	return f.products[crawlerID], nil
}
func (f *fakeBenchmarkRepo) CreateProducts([]core.Product) error       { return nil }
func (f *fakeBenchmarkRepo) UpdateProducts([]core.Product) error       { return nil }
func (f *fakeBenchmarkRepo) DeleteProducts(int) error                  { return nil }
func (f *fakeBenchmarkRepo) SetProductEmbedding(int, []float32) error  { return nil }
func (f *fakeBenchmarkRepo) GetCrawler(string) (core.Crawler, error)   { return core.Crawler{}, nil }
func (f *fakeBenchmarkRepo) ListCrawlers(int) ([]core.Crawler, error)  { return f.crawlers, nil }

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBenchmarkMatcherWritesAssociationsAboveThreshold(t *testing.T) {
	repo := &fakeBenchmarkRepo{
		benchmark: core.Benchmark{ID: 1, HubID: 1, Embedding: embedding.EncodeBlob([]float32{1, 0})},
		crawlers:  []core.Crawler{{ID: 10}},
		products: map[int][]core.Product{
			10: {
				{ID: 100, Embedding: embedding.EncodeBlob([]float32{1, 0})},  // identical: distance 0
				{ID: 101, Embedding: embedding.EncodeBlob([]float32{0, 1})},  // orthogonal: distance 1
			},
		},
	}
	m := NewBenchmarkMatcher(repo, &fakeEmbedder{}, discardLogger())

	stats, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.AssociationsWritten != 1 {
		t.Fatalf("AssociationsWritten = %d, want 1", stats.AssociationsWritten)
	}
	if repo.associations[0].ProductID != 100 {
		t.Errorf("expected product 100 to match, got %d", repo.associations[0].ProductID)
	}
	if !repo.statsUpdated {
		t.Error("expected benchmark stats to be updated")
	}
}

func TestBenchmarkMatcherSkipsWhenAlreadyProcessing(t *testing.T) {
	repo := &fakeBenchmarkRepo{benchmark: core.Benchmark{ID: 1, Processing: true}}
	m := NewBenchmarkMatcher(repo, &fakeEmbedder{}, discardLogger())

	stats, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.AssociationsWritten != 0 {
		t.Errorf("expected no associations when skipped, got %+v", stats)
	}
}
