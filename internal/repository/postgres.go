package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
	"github.com/pushkindt/pushkind-crawlers/internal/core"
	"github.com/pushkindt/pushkind-crawlers/internal/embedding"
)

// Postgres implements Repository on top of database/sql and lib/pq.
// Connection pool settings mirror the values the worker's sibling
// ingestion service uses for a similarly small, bursty connection count.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pool against connString and verifies connectivity.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, apperr.NewRepositoryError("open", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, apperr.NewRepositoryError("ping", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) ListProducts(crawlerID int) ([]core.Product, error) {
	rows, err := p.db.Query(`
		SELECT id, crawler_id, sku, name, price, category, units, amount,
		       description, url, embedding, category_id,
		       category_assignment_source, updated_at
		FROM products WHERE crawler_id = $1`, crawlerID)
	if err != nil {
		return nil, apperr.NewRepositoryError("list products", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var pr core.Product
		var embedding []byte
		if err := rows.Scan(&pr.ID, &pr.CrawlerID, &pr.SKU, &pr.Name, &pr.Price,
			&pr.Category, &pr.Units, &pr.Amount, &pr.Description, &pr.URL,
			&embedding, &pr.CategoryID, &pr.CategoryAssignmentSource, &pr.UpdatedAt); err != nil {
			return nil, apperr.NewRepositoryError("scan product", err)
		}
		pr.Embedding = embedding
		out = append(out, pr)
	}
	return out, rows.Err()
}

// CreateProducts inserts products and their images inside a single
// transaction, grounded on the explicit BeginTx/defer-Rollback/Commit
// pattern used for the worker's other multi-row writes.
func (p *Postgres) CreateProducts(products []core.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := p.db.Begin()
	if err != nil {
		return apperr.NewRepositoryError("create products begin", err)
	}
	defer tx.Rollback()

	for _, pr := range products {
		var id int
		err := tx.QueryRow(`
			INSERT INTO products (crawler_id, sku, name, price, category, units,
			                       amount, description, url, category_assignment_source, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
			RETURNING id`,
			pr.CrawlerID, pr.SKU, pr.Name, pr.Price, pr.Category, pr.Units,
			pr.Amount, pr.Description, pr.URL, pr.CategoryAssignmentSource).Scan(&id)
		if err != nil {
			return apperr.NewRepositoryError("insert product", err)
		}
		if err := insertImages(tx, id, pr.Images); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.NewRepositoryError("create products commit", err)
	}
	return nil
}

// UpdateProducts upserts by (crawler_id, url): an existing row's price,
// name, category, units, amount, description and images are replaced;
// embedding and category assignment are left untouched so a partial
// re-crawl doesn't invalidate prior matching work.
func (p *Postgres) UpdateProducts(products []core.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := p.db.Begin()
	if err != nil {
		return apperr.NewRepositoryError("update products begin", err)
	}
	defer tx.Rollback()

	for _, pr := range products {
		var id int
		err := tx.QueryRow(`
			INSERT INTO products (crawler_id, sku, name, price, category, units,
			                       amount, description, url, category_assignment_source, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
			ON CONFLICT (crawler_id, url) DO UPDATE SET
				sku = EXCLUDED.sku,
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				category = EXCLUDED.category,
				units = EXCLUDED.units,
				amount = EXCLUDED.amount,
				description = EXCLUDED.description,
				updated_at = now()
			RETURNING id`,
			pr.CrawlerID, pr.SKU, pr.Name, pr.Price, pr.Category, pr.Units,
			pr.Amount, pr.Description, pr.URL, pr.CategoryAssignmentSource).Scan(&id)
		if err != nil {
			return apperr.NewRepositoryError("upsert product", err)
		}
		if _, err := tx.Exec(`DELETE FROM product_images WHERE product_id = $1`, id); err != nil {
			return apperr.NewRepositoryError("clear product images", err)
		}
		if err := insertImages(tx, id, pr.Images); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.NewRepositoryError("update products commit", err)
	}
	return nil
}

func insertImages(tx *sql.Tx, productID int, images []core.ProductImage) error {
	for _, img := range images {
		if _, err := tx.Exec(`INSERT INTO product_images (product_id, url) VALUES ($1,$2)`,
			productID, img.URL); err != nil {
			return apperr.NewRepositoryError("insert product image", err)
		}
	}
	return nil
}

func (p *Postgres) DeleteProducts(crawlerID int) error {
	if _, err := p.db.Exec(`DELETE FROM products WHERE crawler_id = $1`, crawlerID); err != nil {
		return apperr.NewRepositoryError("delete products", err)
	}
	return nil
}

func (p *Postgres) SetProductEmbedding(productID int, embedding []float32) error {
	return p.setEmbedding("products", productID, embedding)
}

func (p *Postgres) GetCrawler(selector string) (core.Crawler, error) {
	var c core.Crawler
	err := p.db.QueryRow(`
		SELECT id, hub_id, selector, processing, num_products, updated_at
		FROM crawlers WHERE selector = $1`, selector).
		Scan(&c.ID, &c.HubID, &c.Selector, &c.Processing, &c.NumProducts, &c.UpdatedAt)
	if err != nil {
		return core.Crawler{}, apperr.NewRepositoryError(fmt.Sprintf("get crawler %q", selector), err)
	}
	return c, nil
}

func (p *Postgres) ListCrawlers(hubID int) ([]core.Crawler, error) {
	rows, err := p.db.Query(`
		SELECT id, hub_id, selector, processing, num_products, updated_at
		FROM crawlers WHERE hub_id = $1`, hubID)
	if err != nil {
		return nil, apperr.NewRepositoryError("list crawlers", err)
	}
	defer rows.Close()

	var out []core.Crawler
	for rows.Next() {
		var c core.Crawler
		if err := rows.Scan(&c.ID, &c.HubID, &c.Selector, &c.Processing, &c.NumProducts, &c.UpdatedAt); err != nil {
			return nil, apperr.NewRepositoryError("scan crawler", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) SetCrawlerProcessing(crawlerID int, processing bool) error {
	if _, err := p.db.Exec(`UPDATE crawlers SET processing = $1 WHERE id = $2`, processing, crawlerID); err != nil {
		return apperr.NewRepositoryError("set crawler processing", err)
	}
	return nil
}

func (p *Postgres) UpdateCrawlerStats(crawlerID int) error {
	_, err := p.db.Exec(`
		UPDATE crawlers SET
			updated_at = now(),
			processing = false,
			num_products = (SELECT count(*) FROM products WHERE crawler_id = $1)
		WHERE id = $1`, crawlerID)
	if err != nil {
		return apperr.NewRepositoryError("update crawler stats", err)
	}
	return nil
}

func (p *Postgres) GetBenchmark(benchmarkID int) (core.Benchmark, error) {
	var b core.Benchmark
	err := p.db.QueryRow(`
		SELECT id, hub_id, name, sku, category, units, price, amount,
		       description, embedding, processing, num_products, updated_at
		FROM benchmarks WHERE id = $1`, benchmarkID).
		Scan(&b.ID, &b.HubID, &b.Name, &b.SKU, &b.Category, &b.Units, &b.Price,
			&b.Amount, &b.Description, &b.Embedding, &b.Processing, &b.NumProducts, &b.UpdatedAt)
	if err != nil {
		return core.Benchmark{}, apperr.NewRepositoryError(fmt.Sprintf("get benchmark %d", benchmarkID), err)
	}
	return b, nil
}

func (p *Postgres) SetBenchmarkEmbedding(benchmarkID int, embedding []float32) error {
	return p.setEmbedding("benchmarks", benchmarkID, embedding)
}

func (p *Postgres) RemoveBenchmarkAssociations(benchmarkID int) error {
	if _, err := p.db.Exec(`DELETE FROM product_benchmark WHERE benchmark_id = $1`, benchmarkID); err != nil {
		return apperr.NewRepositoryError("remove benchmark associations", err)
	}
	return nil
}

func (p *Postgres) SetBenchmarkAssociation(benchmarkID, productID int, distance float64) error {
	_, err := p.db.Exec(`
		INSERT INTO product_benchmark (benchmark_id, product_id, distance)
		VALUES ($1,$2,$3)`, benchmarkID, productID, distance)
	if err != nil {
		return apperr.NewRepositoryError("set benchmark association", err)
	}
	return nil
}

func (p *Postgres) SetBenchmarkProcessing(benchmarkID int, processing bool) error {
	if _, err := p.db.Exec(`UPDATE benchmarks SET processing = $1 WHERE id = $2`, processing, benchmarkID); err != nil {
		return apperr.NewRepositoryError("set benchmark processing", err)
	}
	return nil
}

func (p *Postgres) UpdateBenchmarkStats(benchmarkID int) error {
	_, err := p.db.Exec(`
		UPDATE benchmarks SET
			updated_at = now(),
			processing = false,
			num_products = (SELECT count(*) FROM product_benchmark WHERE benchmark_id = $1)
		WHERE id = $1`, benchmarkID)
	if err != nil {
		return apperr.NewRepositoryError("update benchmark stats", err)
	}
	return nil
}

func (p *Postgres) ListCategories(hubID int) ([]core.Category, error) {
	rows, err := p.db.Query(`SELECT id, hub_id, name, embedding FROM categories WHERE hub_id = $1`, hubID)
	if err != nil {
		return nil, apperr.NewRepositoryError("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.HubID, &c.Name, &c.Embedding); err != nil {
			return nil, apperr.NewRepositoryError("scan category", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) SetCategoryEmbedding(categoryID int, embedding []float32) error {
	return p.setEmbedding("categories", categoryID, embedding)
}

func (p *Postgres) setEmbedding(table string, id int, vector []float32) error {
	blob := embedding.EncodeBlob(vector)
	query := fmt.Sprintf(`UPDATE %s SET embedding = $1 WHERE id = $2`, table)
	if _, err := p.db.Exec(query, blob, id); err != nil {
		return apperr.NewRepositoryError(fmt.Sprintf("set %s embedding", table), err)
	}
	return nil
}

// SetProductCategoryAutomatic assigns categoryID (nil clears it) unless the
// product's current assignment is manual, enforced in the WHERE clause
// rather than a read-then-write race.
func (p *Postgres) SetProductCategoryAutomatic(productID int, categoryID *int) error {
	_, err := p.db.Exec(`
		UPDATE products SET
			category_id = $1,
			category_assignment_source = $2,
			updated_at = now()
		WHERE id = $3 AND category_assignment_source != $4`,
		categoryID, core.CategoryAssignmentAutomatic, productID, core.CategoryAssignmentManual)
	if err != nil {
		return apperr.NewRepositoryError("set product category", err)
	}
	return nil
}

func (p *Postgres) ClearProductCategoriesByCrawler(crawlerID int) error {
	_, err := p.db.Exec(`
		UPDATE products SET
			category_id = NULL,
			category_assignment_source = $1,
			updated_at = now()
		WHERE crawler_id = $2 AND category_assignment_source != $3`,
		core.CategoryAssignmentAutomatic, crawlerID, core.CategoryAssignmentManual)
	if err != nil {
		return apperr.NewRepositoryError("clear product categories", err)
	}
	return nil
}

// ClaimHubProcessingLock atomically claims the hub-wide lock: inside a
// single transaction it checks (with FOR UPDATE row locks) whether any
// crawler or benchmark in the hub is already processing, and only if none
// are, flips every such row to processing=true. The check-and-set is one
// transaction so two concurrent claims for the same hub can never both
// succeed.
func (p *Postgres) ClaimHubProcessingLock(hubID int) (bool, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return false, apperr.NewRepositoryError("claim lock begin", err)
	}
	defer tx.Rollback()

	crawlerProcessing, err := anyRowProcessing(tx, "crawlers", hubID)
	if err != nil {
		return false, err
	}
	benchmarkProcessing, err := anyRowProcessing(tx, "benchmarks", hubID)
	if err != nil {
		return false, err
	}
	if crawlerProcessing || benchmarkProcessing {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE crawlers SET processing = true WHERE hub_id = $1`, hubID); err != nil {
		return false, apperr.NewRepositoryError("claim lock set crawlers", err)
	}
	if _, err := tx.Exec(`UPDATE benchmarks SET processing = true WHERE hub_id = $1`, hubID); err != nil {
		return false, apperr.NewRepositoryError("claim lock set benchmarks", err)
	}
	if err := tx.Commit(); err != nil {
		return false, apperr.NewRepositoryError("claim lock commit", err)
	}
	return true, nil
}

// anyRowProcessing reports whether any row of table for hubID has
// processing=true, row-locking every candidate row within tx so a
// concurrent claim cannot race past this check.
func anyRowProcessing(tx *sql.Tx, table string, hubID int) (bool, error) {
	query := fmt.Sprintf(`SELECT processing FROM %s WHERE hub_id = $1 FOR UPDATE`, table)
	rows, err := tx.Query(query, hubID)
	if err != nil {
		return false, apperr.NewRepositoryError(fmt.Sprintf("lock %s rows", table), err)
	}
	defer rows.Close()

	any := false
	for rows.Next() {
		var processing bool
		if err := rows.Scan(&processing); err != nil {
			return false, apperr.NewRepositoryError(fmt.Sprintf("scan %s row", table), err)
		}
		any = any || processing
	}
	return any, rows.Err()
}

// ReleaseHubProcessingLock flips every crawler's and benchmark's processing
// flag in the hub back to false.
func (p *Postgres) ReleaseHubProcessingLock(hubID int) error {
	tx, err := p.db.Begin()
	if err != nil {
		return apperr.NewRepositoryError("release lock begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE crawlers SET processing = false WHERE hub_id = $1`, hubID); err != nil {
		return apperr.NewRepositoryError("release lock clear crawlers", err)
	}
	if _, err := tx.Exec(`UPDATE benchmarks SET processing = false WHERE hub_id = $1`, hubID); err != nil {
		return apperr.NewRepositoryError("release lock clear benchmarks", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.NewRepositoryError("release lock commit", err)
	}
	return nil
}
