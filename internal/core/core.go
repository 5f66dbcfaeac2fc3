// Package core holds the domain types shared by every other package: the
// entities read and written through the repository contract.
package core

import "time"

// CategoryAssignmentSource records whether a product's category was set by
// an operator or by the Category-Match job.
type CategoryAssignmentSource string

const (
	// CategoryAssignmentManual marks an operator-set assignment. Automatic
	// jobs must never overwrite it.
	CategoryAssignmentManual CategoryAssignmentSource = "manual"
	// CategoryAssignmentAutomatic marks a system-set assignment.
	CategoryAssignmentAutomatic CategoryAssignmentSource = "automatic"
)

// Crawler is a configured site-scraper identified by a short selector
// string, unique within its tenant.
type Crawler struct {
	ID          int       `json:"id"`
	HubID       int       `json:"hub_id"`
	Selector    string    `json:"selector"`
	Processing  bool      `json:"processing"`
	NumProducts int       `json:"num_products"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductImage is owned by its product and replaced wholesale on each
// upsert.
type ProductImage struct {
	ProductID int    `json:"product_id"`
	URL       string `json:"url"`
}

// Product is a single harvested item, keyed by (CrawlerID, URL).
type Product struct {
	ID                        int
	CrawlerID                 int
	SKU                       string
	Name                      string
	Price                     float64
	Category                  string
	Units                     string
	Amount                    float64
	Description               string
	URL                       string
	Images                    []ProductImage
	Embedding                 []byte
	CategoryID                *int
	CategoryAssignmentSource  CategoryAssignmentSource
	UpdatedAt                 time.Time
}

// Benchmark is a reference item against which products are ranked by
// similarity.
type Benchmark struct {
	ID          int
	HubID       int
	Name        string
	SKU         string
	Category    string
	Units       string
	Price       float64
	Amount      float64
	Description string
	Embedding   []byte
	Processing  bool
	NumProducts int
	UpdatedAt   time.Time
}

// Category is a single entry of a tenant's category directory.
type Category struct {
	ID        int
	HubID     int
	Name      string
	Embedding []byte
}

// Association links a benchmark to one of its top-K nearest products.
type Association struct {
	BenchmarkID int
	ProductID   int
	Distance    float64
}

// EmbeddingSource is anything a prompt-based embedding can be generated for:
// products, benchmarks, and category entries augmented with product-like
// fields all share the same prompt template.
type EmbeddingSource struct {
	Name        string
	SKU         string
	Category    string
	Units       string
	Price       float64
	Amount      float64
	Description string
}
