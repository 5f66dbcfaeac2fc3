package webstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pushkindt/pushkind-crawlers/internal/fetch"
)

func urlParse(raw string) (*url.URL, error) { return url.Parse(raw) }

func TestRunnerGetProductSingleSKU(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<h1>Iron Goddess</h1>
			<div class="catalog-table_content-item_about_product">Oolong tea</div>
			<a class="breadcrumbs__list-link">Teas</a>
			<span class="js-price-val">1 234,50</span>
			<div class="product_art"><span>Art</span><span>SKU-1</span></div>
			<span class="product-card__calculus-unit">г</span>
			<span class="js-product-calc-value">100</span>
		</body></html>`))
	}))
	defer srv.Close()

	gate := fetch.NewGate(2)
	runner, err := NewRunner(gate, Tea101)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	products, err := runner.GetProduct(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected exactly one product, got %d", len(products))
	}
	p := products[0]
	if p.SKU != "SKU-1" || p.Name != "Iron Goddess" || p.Units != "г" || p.Amount != "100" {
		t.Errorf("unexpected product: %+v", p)
	}
}

func TestRunnerGetProductVariantJSON(t *testing.T) {
	payload := `{&quot;variants&quot;:[{&quot;sku&quot;:&quot;A1&quot;,&quot;price&quot;:&quot;10,5&quot;,&quot;weight&quot;:&quot;0,5&quot;},{&quot;sku&quot;:&quot;A2&quot;,&quot;price&quot;:&quot;20&quot;}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<h1 class="product__title">Green Tea</h1>
			<div class="product__short-description">Fresh</div>
			<ul class="breadcrumb"><li><a>Teas</a></li></ul>
			<form class="product" data-product-json="` + payload + `"></form>
		</body></html>`))
	}))
	defer srv.Close()

	gate := fetch.NewGate(2)
	runner, err := NewRunner(gate, Rusteaco)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	products, err := runner.GetProduct(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected two variants, got %d", len(products))
	}
	if products[0].URL != srv.URL+"#A1" && products[1].URL != srv.URL+"#A1" {
		t.Errorf("expected a variant URL suffixed with #A1, got %+v", products)
	}
}

func TestWithPageParamReplacesExistingValue(t *testing.T) {
	base, err := urlParse("https://x/y?page=1&sort=asc")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := withPageParam(base, "page", 3)
	want, _ := urlParse(got) // round-trip to normalise encoding for comparison
	if want.Query().Get("page") != "3" || want.Query().Get("sort") != "asc" {
		t.Errorf("withPageParam result = %q, missing expected query values", got)
	}
}
