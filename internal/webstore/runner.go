package webstore

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
	"github.com/pushkindt/pushkind-crawlers/internal/domain"
	"github.com/pushkindt/pushkind-crawlers/internal/fetch"
)

// variant is one SKU entry of a rusteaco-style JSON variant payload.
type variant struct {
	SKU    string `json:"sku"`
	Price  string `json:"price"`
	Weight string `json:"weight"`
}

type variantPayload struct {
	Variants []variant `json:"variants"`
}

// Runner crawls a single web store described by a Selectors table. It owns
// the full category -> pagination -> product-link -> product-detail stage
// fan-out (C4's stage orchestration, as far as a single store's document
// graph is concerned); the caller (internal/pipeline) owns persistence.
type Runner struct {
	gate      *fetch.Gate
	selectors Selectors
	base      *url.URL
}

// NewRunner builds a Runner for the given selector table, bounded by gate's
// concurrency permits.
func NewRunner(gate *fetch.Gate, selectors Selectors) (*Runner, error) {
	base, err := url.Parse(selectors.BaseURL)
	if err != nil {
		return nil, apperr.NewCrawlerBuildError(selectors.Name, fmt.Errorf("parse base url %q: %w", selectors.BaseURL, err))
	}
	return &Runner{gate: gate, selectors: selectors, base: base}, nil
}

// GetProducts crawls the entire store: categories, pagination, product
// links and product details are fetched concurrently at each stage, with
// the per-crawler semaphore (owned by the Gate) bounding in-flight HTTP
// activity regardless of fan-out width. Product links are deduplicated
// before the detail stage; the final product list is deduplicated by URL
// again, last-writer-wins.
func (r *Runner) GetProducts(ctx context.Context) ([]domain.RawProduct, error) {
	categories, err := r.categoryLinks(ctx)
	if err != nil {
		return nil, err
	}

	pageLinkSets, err := mapConcurrent(ctx, categories, r.pageLinks)
	if err != nil {
		return nil, err
	}
	pages := flattenUnique(pageLinkSets)

	productLinkSets, err := mapConcurrent(ctx, pages, r.productLinks)
	if err != nil {
		return nil, err
	}
	productURLs := flattenUnique(productLinkSets)

	productSets, err := mapConcurrent(ctx, productURLs, r.GetProduct)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]domain.RawProduct)
	for _, set := range productSets {
		for _, p := range set {
			byURL[p.URL] = p
		}
	}
	out := make([]domain.RawProduct, 0, len(byURL))
	for _, p := range byURL {
		out = append(out, p)
	}
	return out, nil
}

// GetProduct fetches a single product detail page, returning one
// domain.RawProduct per variant. Variant pages (a JSON payload on the
// product form) produce one record per SKU, each with the canonical URL
// "<url>#<sku>" so the natural key stays unique per variant.
func (r *Runner) GetProduct(ctx context.Context, productURL string) ([]domain.RawProduct, error) {
	doc, err := r.gate.FetchHTML(ctx, productURL)
	if err != nil {
		return nil, nil // transient fetch failure: absent, not fatal to the batch
	}

	name := textOf(doc, r.selectors.NameSelector)
	description := textOf(doc, r.selectors.DescriptionSelector)
	category := joinText(doc, r.selectors.BreadcrumbSelector, " / ")

	if r.selectors.VariantFormSelector != "" && r.selectors.VariantJSONAttr != "" {
		if raws, ok := r.variantProducts(doc, productURL, name, category, description); ok {
			return raws, nil
		}
	}

	sku := textOf(doc, r.selectors.SKUSelector)
	price := textOf(doc, r.selectors.PriceSelector)

	raw := domain.RawProduct{
		SKU:         sku,
		Name:        name,
		Price:       price,
		Category:    category,
		Description: description,
		URL:         productURL,
	}

	switch {
	case r.selectors.AmountUnitsSelector != "":
		raw.AmountUnits = textOf(doc, r.selectors.AmountUnitsSelector)
	case r.selectors.UnitsSelector != "" || r.selectors.AmountSelector != "":
		raw.Units = textOf(doc, r.selectors.UnitsSelector)
		raw.Amount = textOf(doc, r.selectors.AmountSelector)
	default:
		raw.AmountUnits = "1 шт"
	}

	return []domain.RawProduct{raw}, nil
}

// variantProducts decodes the product form's JSON variant payload, if
// present, into one RawProduct per SKU. It reports ok=false when the form
// or attribute is absent so the caller falls back to the single-SKU path.
func (r *Runner) variantProducts(doc *goquery.Document, productURL, name, category, description string) ([]domain.RawProduct, bool) {
	form := doc.Find(r.selectors.VariantFormSelector).First()
	if form.Length() == 0 {
		return nil, false
	}
	raw, ok := form.Attr(r.selectors.VariantJSONAttr)
	if !ok {
		return nil, false
	}

	decoded := html.UnescapeString(raw)
	var payload variantPayload
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		return nil, false
	}

	out := make([]domain.RawProduct, 0, len(payload.Variants))
	for _, v := range payload.Variants {
		amountUnits := "1 шт"
		if strings.TrimSpace(v.Weight) != "" {
			amountUnits = v.Weight + " кг"
		}
		out = append(out, domain.RawProduct{
			SKU:         v.SKU,
			Name:        name,
			Price:       v.Price,
			Category:    category,
			Description: description,
			AmountUnits: amountUnits,
			URL:         productURL + "#" + v.SKU,
		})
	}
	return out, true
}

func (r *Runner) categoryLinks(ctx context.Context) ([]string, error) {
	doc, err := r.gate.FetchHTML(ctx, r.base.String())
	if err != nil {
		return nil, nil
	}
	return r.absoluteHrefs(doc, r.selectors.CategoryLinkSelector), nil
}

// pageLinks derives pagination URLs for a category page per spec §4.2/S2:
// read the text of the last visible pagination link, parse it as a
// positive integer N, then for i in 2..N generate a URL copying the base,
// dropping the existing page parameter and appending the new one. The
// original category URL is always included.
func (r *Runner) pageLinks(ctx context.Context, categoryURL string) ([]string, error) {
	result := []string{categoryURL}

	doc, err := r.gate.FetchHTML(ctx, categoryURL)
	if err != nil {
		return result, nil
	}

	container := doc.Find(r.selectors.PaginationContainerSelector).First()
	if container.Length() == 0 {
		return result, nil
	}

	links := container.Find(r.selectors.PaginationLinkSelector)
	if links.Length() == 0 {
		return result, nil
	}

	lastText := strings.TrimSpace(links.Last().Text())
	lastPage, err := strconv.Atoi(lastText)
	if err != nil || lastPage < 2 {
		return result, nil
	}

	base, err := r.base.Parse(categoryURL)
	if err != nil {
		return result, nil
	}

	for page := 2; page <= lastPage; page++ {
		pageURL := withPageParam(base, r.selectors.PaginationParam, page)
		result = append(result, pageURL)
	}
	return result, nil
}

func (r *Runner) productLinks(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := r.gate.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, nil
	}
	return r.absoluteHrefs(doc, r.selectors.ProductLinkSelector), nil
}

func (r *Runner) absoluteHrefs(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, err := r.base.Parse(href)
		if err != nil {
			return
		}
		out = append(out, abs.String())
	})
	return out
}

// withPageParam returns a copy of base with the query parameter named param
// set to page, dropping any prior value for that parameter and appending the
// new one after the remaining parameters (grounded on original_source's
// rusteaco.rs/tea101.rs/gutenberg.rs pagination builders, which differ only
// in the parameter name: "page" or "PAGEN_1").
func withPageParam(base *url.URL, param string, page int) string {
	u := *base
	q := u.Query()
	q.Del(param)
	u.RawQuery = q.Encode()
	if u.RawQuery != "" {
		u.RawQuery += "&"
	}
	u.RawQuery += url.QueryEscape(param) + "=" + strconv.Itoa(page)
	return u.String()
}

func textOf(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func joinText(doc *goquery.Document, selector, sep string) string {
	if selector == "" {
		return ""
	}
	var parts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(s.Text()))
	})
	return strings.Join(parts, sep)
}

// mapConcurrent applies fn to every item concurrently, awaiting the whole
// batch before returning — the stage-barrier shape of spec §4.4 ("each
// stage fully completes before the next begins"), expressed with
// errgroup.Group rather than a raw WaitGroup+mutex.
func mapConcurrent[T any](ctx context.Context, items []string, fn func(context.Context, string) ([]T, error)) ([][]T, error) {
	results := make([][]T, len(items))
	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			res, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func flattenUnique(sets [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, v := range set {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
