package matching

import (
	"context"
	"log/slog"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
	"github.com/pushkindt/pushkind-crawlers/internal/repository"
	"github.com/pushkindt/pushkind-crawlers/internal/search"
)

// CategoryRepository is the slice of the storage contract a Category-Match
// run needs.
type CategoryRepository interface {
	repository.CrawlerReader
	repository.ProductReader
	repository.ProductWriter
	repository.CategoryReader
	repository.CategoryWriter
	repository.ProductCategoryWriter
}

// CategoryStats is the structured summary spec §4.7 requires at the end of
// every Category-Match run.
type CategoryStats struct {
	CategoriesLoaded            int
	ProductsLoaded              int
	CategoryEmbeddingsGenerated int
	ProductEmbeddingsGenerated  int
	Matched                     int
	Unmatched                   int
	SkippedBelowThreshold       int
	SkippedInvalidCategoryID    int
	SkippedNoCategoryCandidate  int
}

// CategoryMatcher runs C9. It does not claim the hub-wide lock itself —
// callers wrap Run with internal/lock.Guard.Run, since the lock is shared
// across Crawl, Benchmark and Category-Match (spec §4.9).
type CategoryMatcher struct {
	repo     CategoryRepository
	embedder embedding.Provider
	log      *slog.Logger
}

// NewCategoryMatcher builds a CategoryMatcher.
func NewCategoryMatcher(repo CategoryRepository, embedder embedding.Provider, log *slog.Logger) *CategoryMatcher {
	return &CategoryMatcher{repo: repo, embedder: embedder, log: log}
}

// Run assigns every product in hubID its nearest category by embedding
// cosine similarity, leaving manually-assigned products untouched (the
// repository's SetProductCategoryAutomatic enforces that).
func (m *CategoryMatcher) Run(ctx context.Context, hubID int) (CategoryStats, error) {
	var stats CategoryStats

	crawlers, err := m.repo.ListCrawlers(hubID)
	if err != nil {
		return stats, err
	}

	var products []core.Product
	for _, crawler := range crawlers {
		crawlerProducts, err := m.repo.ListProducts(crawler.ID)
		if err != nil {
			return stats, err
		}
		products = append(products, crawlerProducts...)
	}
	stats.ProductsLoaded = len(products)

	categories, err := m.repo.ListCategories(hubID)
	if err != nil {
		return stats, err
	}
	stats.CategoriesLoaded = len(categories)

	categoryItems := make([]search.Item, 0, len(categories))
	for _, cat := range categories {
		vector, generated, err := embedding.LoadOrGenerate(ctx, cat.Embedding, categoryPrompt(cat), m.embedder,
			func(blob []byte) error { return m.repo.SetCategoryEmbedding(cat.ID, mustDecode(blob)) })
		if err != nil {
			return stats, err
		}
		if generated {
			stats.CategoryEmbeddingsGenerated++
		}
		categoryItems = append(categoryItems, search.Item{ID: cat.ID, Embedding: vector})
	}

	if stats.CategoriesLoaded == 0 && stats.ProductsLoaded > 0 {
		m.log.Warn("no categories for hub, all products will be cleared", "hub_id", hubID, "products_loaded", stats.ProductsLoaded)
	}

	for _, p := range products {
		vector, generated, err := embedding.LoadOrGenerate(ctx, p.Embedding, embedding.Prompt(productSource(p)), m.embedder,
			func(blob []byte) error { return m.repo.SetProductEmbedding(p.ID, mustDecode(blob)) })
		if err != nil {
			return stats, err
		}
		if generated {
			stats.ProductEmbeddingsGenerated++
		}

		var assigned *int
		matches := search.TopK(vector, categoryItems, 1)
		if len(matches) == 0 {
			stats.SkippedNoCategoryCandidate++
		} else {
			match := matches[0]
			similarity := 1 - match.Distance
			if similarity < SimilarityThreshold {
				stats.SkippedBelowThreshold++
			} else {
				id := match.ID
				assigned = &id
			}
		}

		if err := m.repo.SetProductCategoryAutomatic(p.ID, assigned); err != nil {
			return stats, err
		}
		if assigned != nil {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
	}

	return stats, nil
}

func categoryPrompt(c core.Category) string {
	return c.Name
}
