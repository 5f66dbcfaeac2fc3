// Package embedding provides the vector-embedding provider used by the
// benchmark and category-match matching stages, plus the load-or-generate
// cache policy that avoids re-embedding rows that already have a stored
// embedding. A stored embedding is reused even if the row's text has since
// changed.
package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
	"github.com/pushkindt/pushkind-crawlers/internal/vecmath"
)

const (
	// DefaultModel is the multilingual embedding model used for products,
	// benchmarks and categories alike.
	DefaultModel = "gemini-embedding-001"
	// DefaultDimensions is the Matryoshka-truncated output width shared by
	// every embedding the worker produces or compares.
	DefaultDimensions = int32(768)
)

// Provider embeds a batch of texts into L2-normalised vectors.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiProvider is the genai-backed Provider. The client is created lazily
// on first use, guarded by a sync.Once, so constructing a GeminiProvider
// never requires an API key until it is actually called.
type GeminiProvider struct {
	apiKey string
	model  string
	dims   int32

	once   sync.Once
	client *genai.Client
	initErr error
}

// NewGeminiProvider builds a provider for model with the given output
// dimensionality. If model or dims is zero-valued, the package defaults
// are used. apiKey may be empty, in which case GEMINI_API_KEY is read from
// the environment at first use.
func NewGeminiProvider(apiKey, model string, dims int32) *GeminiProvider {
	if model == "" {
		model = DefaultModel
	}
	if dims == 0 {
		dims = DefaultDimensions
	}
	return &GeminiProvider{apiKey: apiKey, model: model, dims: dims}
}

func (p *GeminiProvider) init(ctx context.Context) error {
	p.once.Do(func() {
		apiKey := p.apiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			p.initErr = apperr.NewConfigError("embedding.api_key", fmt.Errorf("GEMINI_API_KEY is required to generate embeddings"))
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			p.initErr = apperr.NewEmbeddingError("client init", err)
			return
		}
		p.client = client
	})
	return p.initErr
}

// Embed embeds every text in a single request to EmbedContent, one
// genai.Content per text, and L2-normalises each resulting vector. An
// empty texts slice returns an empty result without contacting the API.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := p.init(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: t}},
			Role:  "user",
		}
	}

	dims := p.dims
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, apperr.NewEmbeddingError(fmt.Sprintf("embed %d text(s)", len(texts)), err)
	}
	if resp == nil {
		return nil, apperr.NewEmbeddingError("embed", fmt.Errorf("no response returned from API"))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, apperr.NewEmbeddingError("embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, apperr.NewEmbeddingError("embed", fmt.Errorf("nil embedding at index %d", i))
		}
		out[i] = vecmath.Normalize(e.Values)
	}
	return out, nil
}
