// Package fetch implements the HTTP fetch gate (C1): a per-crawler
// concurrency limiter wrapping goquery document parsing.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
)

// DefaultTimeout is the suggested per-request deadline (spec §5).
const DefaultTimeout = 30 * time.Second

// Gate bounds the number of concurrent HTTP requests a single crawler may
// have in flight, regardless of how deeply its pipeline fans out.
type Gate struct {
	client    *http.Client
	sem       chan struct{}
	userAgent string
}

// NewGate builds a Gate with a fixed-size permit pool of size concurrency
// and a randomised, fixed-length user agent set once at construction.
func NewGate(concurrency int) *Gate {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Gate{
		client:    &http.Client{Timeout: DefaultTimeout},
		sem:       make(chan struct{}, concurrency),
		userAgent: randomUserAgent(),
	}
}

// FetchHTML acquires a permit, issues a GET against url, and parses a
// successful response as HTML. The permit is released on every exit path.
// A non-2xx status or a transport failure is reported as a
// TransientFetchError; the caller treats the URL as absent.
func (g *Gate) FetchHTML(ctx context.Context, url string) (*goquery.Document, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, apperr.NewTransientFetchError(url, ctx.Err())
	}
	defer func() { <-g.sem }()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewTransientFetchError(url, err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperr.NewTransientFetchError(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.NewTransientFetchError(url, fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperr.NewParseError(url, err)
	}
	return doc, nil
}

// randomUserAgent generates a fresh identity token for each Gate (NewGate
// calls it once) the way the teacher mints record ids: uuid.NewString()
// rather than a hand-rolled random-string generator.
func randomUserAgent() string {
	return "pushkind-crawlers/" + uuid.NewString()
}
