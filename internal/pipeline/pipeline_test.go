package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/webstore"
)

type fakeRepo struct {
	crawler     core.Crawler
	created     []core.Product
	updated     []core.Product
	deletedID   int
	statsCalled bool
}

func (f *fakeRepo) GetCrawler(selector string) (core.Crawler, error) { return f.crawler, nil }
func (f *fakeRepo) ListCrawlers(hubID int) ([]core.Crawler, error)   { return nil, nil }
func (f *fakeRepo) SetCrawlerProcessing(id int, processing bool) error {
	f.crawler.Processing = processing
	return nil
}
func (f *fakeRepo) UpdateCrawlerStats(id int) error { f.statsCalled = true; return nil }
func (f *fakeRepo) CreateProducts(products []core.Product) error {
	f.created = products
	return nil
}
func (f *fakeRepo) UpdateProducts(products []core.Product) error {
	f.updated = products
	return nil
}
func (f *fakeRepo) DeleteProducts(crawlerID int) error { f.deletedID = crawlerID; return nil }
func (f *fakeRepo) SetProductEmbedding(int, []float32) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineRunFullCrawlReplacesProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			_, _ = w.Write([]byte(`<html><body><a class="cat" href="/category">Tea</a></body></html>`))
		case r.URL.Path == "/category":
			_, _ = w.Write([]byte(`<html><body><a class="prod" href="/product">P</a></body></html>`))
		default:
			_, _ = w.Write([]byte(`<html><body>
				<h1>Tea</h1>
				<span class="sku">SKU-1</span>
				<span class="price">100</span>
				<span class="units">г</span>
				<span class="amount">100</span>
			</body></html>`))
		}
	}))
	defer srv.Close()

	selectors := webstore.Selectors{
		Name:                srv.URL,
		BaseURL:             srv.URL + "/",
		CategoryLinkSelector: "a.cat",
		ProductLinkSelector:  "a.prod",
		NameSelector:         "h1",
		SKUSelector:          "span.sku",
		PriceSelector:        "span.price",
		UnitsSelector:        "span.units",
		AmountSelector:       "span.amount",
	}

	repo := &fakeRepo{crawler: core.Crawler{ID: 1, Selector: srv.URL}}
	p := New(repo, discardLogger(), 2)

	result, err := p.Run(context.Background(), selectors, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.deletedID != 1 {
		t.Errorf("expected full crawl to delete crawler %d's products first, got %d", 1, repo.deletedID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one product created, got %d", len(repo.created))
	}
	if !repo.statsCalled {
		t.Error("expected crawler stats to be updated")
	}
	if result.ProductsKept != 1 {
		t.Errorf("ProductsKept = %d, want 1", result.ProductsKept)
	}
}

func TestPipelineRunSkipsWhenCrawlerAlreadyProcessing(t *testing.T) {
	repo := &fakeRepo{crawler: core.Crawler{ID: 1, Processing: true}}
	p := New(repo, discardLogger(), 2)

	result, err := p.Run(context.Background(), webstore.Selectors{Name: "x", BaseURL: "http://example.invalid"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CrawlerID != 0 {
		t.Errorf("expected a zero-value result on skip, got %+v", result)
	}
	if repo.created != nil {
		t.Error("expected no products to be created when the crawler is already processing")
	}
}
