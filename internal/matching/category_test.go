package matching

import (
	"context"
	"testing"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
)

type fakeCategoryRepo struct {
	crawlers   []core.Crawler
	products   map[int][]core.Product
	categories []core.Category
	assigned   map[int]*int
}

func (f *fakeCategoryRepo) GetCrawler(string) (core.Crawler, error)  { return core.Crawler{}, nil }
func (f *fakeCategoryRepo) ListCrawlers(int) ([]core.Crawler, error) { return f.crawlers, nil }
func (f *fakeCategoryRepo) ListProducts(crawlerID int) ([]core.Product, error) {
	return f.products[crawlerID], nil
}
func (f *fakeCategoryRepo) CreateProducts([]core.Product) error      { return nil }
func (f *fakeCategoryRepo) UpdateProducts([]core.Product) error      { return nil }
func (f *fakeCategoryRepo) DeleteProducts(int) error                 { return nil }
func (f *fakeCategoryRepo) SetProductEmbedding(int, []float32) error { return nil }
func (f *fakeCategoryRepo) ListCategories(int) ([]core.Category, error) { return f.categories, nil }
func (f *fakeCategoryRepo) SetCategoryEmbedding(int, []float32) error   { return nil }
func (f *fakeCategoryRepo) SetProductCategoryAutomatic(productID int, categoryID *int) error {
	if f.assigned == nil {
		f.assigned = make(map[int]*int)
	}
	f.assigned[productID] = categoryID
	return nil
}
func (f *fakeCategoryRepo) ClearProductCategoriesByCrawler(int) error { return nil }

func TestCategoryMatcherAssignsNearestCategory(t *testing.T) {
	repo := &fakeCategoryRepo{
		crawlers: []core.Crawler{{ID: 10}},
		products: map[int][]core.Product{
			10: {{ID: 100, Embedding: embedding.EncodeBlob([]float32{1, 0})}},
		},
		categories: []core.Category{
			{ID: 1, Embedding: embedding.EncodeBlob([]float32{1, 0})},
			{ID: 2, Embedding: embedding.EncodeBlob([]float32{0, 1})},
		},
	}
	m := NewCategoryMatcher(repo, &fakeEmbedder{}, discardLogger())

	stats, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Matched != 1 || stats.Unmatched != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if repo.assigned[100] == nil || *repo.assigned[100] != 1 {
		t.Errorf("expected product 100 assigned to category 1, got %v", repo.assigned[100])
	}
}

func TestCategoryMatcherClearsAssignmentWhenNoCategories(t *testing.T) {
	repo := &fakeCategoryRepo{
		crawlers: []core.Crawler{{ID: 10}},
		products: map[int][]core.Product{
			10: {{ID: 100, Embedding: embedding.EncodeBlob([]float32{1, 0})}},
		},
	}
	m := NewCategoryMatcher(repo, &fakeEmbedder{}, discardLogger())

	stats, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Unmatched != 1 {
		t.Errorf("expected one unmatched product with no categories, got %+v", stats)
	}
	if repo.assigned[100] != nil {
		t.Errorf("expected product 100 category cleared, got %v", repo.assigned[100])
	}
}
