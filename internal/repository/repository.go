// Package repository defines the storage contract every processing stage
// depends on, and a Postgres implementation of it. Interface names mirror
// the trait split of the system this worker reimplements, one reader/writer
// pair per aggregate, so a stage can depend on exactly the slice of
// persistence it needs.
package repository

import "github.com/pushkindt/pushkind-crawlers/internal/core"

// ProductReader lists a crawler's current products.
type ProductReader interface {
	ListProducts(crawlerID int) ([]core.Product, error)
}

// ProductWriter mutates a crawler's product set. Create and Delete are
// always used together for a full-replace crawl; Update is used for a
// partial, URL-scoped re-crawl.
type ProductWriter interface {
	CreateProducts(products []core.Product) error
	UpdateProducts(products []core.Product) error
	DeleteProducts(crawlerID int) error
	SetProductEmbedding(productID int, embedding []float32) error
}

// CrawlerReader looks up a crawler by its unique text selector (the queue
// message identifies a crawler this way, not by numeric ID) or lists every
// crawler in a hub.
type CrawlerReader interface {
	GetCrawler(selector string) (core.Crawler, error)
	ListCrawlers(hubID int) ([]core.Crawler, error)
}

// CrawlerWriter updates crawler bookkeeping.
type CrawlerWriter interface {
	SetCrawlerProcessing(crawlerID int, processing bool) error
	UpdateCrawlerStats(crawlerID int) error
}

// BenchmarkReader fetches a benchmark row.
type BenchmarkReader interface {
	GetBenchmark(benchmarkID int) (core.Benchmark, error)
}

// BenchmarkWriter mutates a benchmark and its product associations.
type BenchmarkWriter interface {
	SetBenchmarkEmbedding(benchmarkID int, embedding []float32) error
	RemoveBenchmarkAssociations(benchmarkID int) error
	SetBenchmarkAssociation(benchmarkID, productID int, distance float64) error
	SetBenchmarkProcessing(benchmarkID int, processing bool) error
	UpdateBenchmarkStats(benchmarkID int) error
}

// CategoryReader lists a hub's categories.
type CategoryReader interface {
	ListCategories(hubID int) ([]core.Category, error)
}

// CategoryWriter stores a category's embedding.
type CategoryWriter interface {
	SetCategoryEmbedding(categoryID int, embedding []float32) error
}

// ProductCategoryWriter assigns or clears a product's automatically-derived
// category. Every implementation must leave manually-assigned products
// (core.CategoryAssignmentManual) untouched, per spec §4.8.
type ProductCategoryWriter interface {
	SetProductCategoryAutomatic(productID int, categoryID *int) error
	ClearProductCategoriesByCrawler(crawlerID int) error
}

// ProcessingGuardWriter claims and releases the per-tenant processing lock
// shared by Crawl, Benchmark and Category-Match (spec §4.9). Claim is
// atomic: it verifies no crawler or benchmark row for the tenant is already
// processing and, if so, flips every crawler's and benchmark's processing
// flag in the hub to true in the same transaction, returning false without
// side effects if any was already true.
type ProcessingGuardWriter interface {
	ClaimHubProcessingLock(hubID int) (bool, error)
	ReleaseHubProcessingLock(hubID int) error
}

// Repository is the union every processing stage is handed; a stage takes
// the narrower interface it actually needs as a parameter type, but the
// Postgres implementation satisfies all of them at once.
type Repository interface {
	ProductReader
	ProductWriter
	CrawlerReader
	CrawlerWriter
	BenchmarkReader
	BenchmarkWriter
	CategoryReader
	CategoryWriter
	ProductCategoryWriter
	ProcessingGuardWriter
}
