package dispatcher

import "encoding/json"

// envelopeWire mirrors the JSON shape spec.md §4.11 describes as a tagged
// union: a single "type" discriminator plus a type-specific payload,
// grounded on original_source's serde-tagged enum encoding.
type envelopeWire struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type crawlerSelectorPayload struct {
	Name string `json:"name"`
}

type crawlerSelectorProductsPayload struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

type benchmarkPayload struct {
	BenchmarkID int `json:"benchmark_id"`
}

type categoryMatchPayload struct {
	HubID int `json:"hub_id"`
}

// envelopeKind identifies which job an envelope requests.
type envelopeKind int

const (
	kindCrawlerSelector envelopeKind = iota
	kindCrawlerSelectorProducts
	kindBenchmark
	kindCategoryMatch
)

// envelope is the decoded, kind-discriminated form of one dispatcher
// message.
type envelope struct {
	kind        envelopeKind
	selector    string
	urls        []string
	benchmarkID int
	hubID       int
}

// decodeEnvelope parses one raw dispatcher frame. Unknown or malformed
// envelopes return an error; the caller logs and continues rather than
// failing the receive loop (spec.md §4.11).
func decodeEnvelope(raw []byte) (envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return envelope{}, err
	}

	switch wire.Type {
	case "crawler_selector":
		var p crawlerSelectorPayload
		if err := json.Unmarshal(wire.Data, &p); err != nil {
			return envelope{}, err
		}
		return envelope{kind: kindCrawlerSelector, selector: p.Name}, nil
	case "crawler_selector_products":
		var p crawlerSelectorProductsPayload
		if err := json.Unmarshal(wire.Data, &p); err != nil {
			return envelope{}, err
		}
		return envelope{kind: kindCrawlerSelectorProducts, selector: p.Name, urls: p.URLs}, nil
	case "benchmark":
		var p benchmarkPayload
		if err := json.Unmarshal(wire.Data, &p); err != nil {
			return envelope{}, err
		}
		return envelope{kind: kindBenchmark, benchmarkID: p.BenchmarkID}, nil
	case "category_match":
		var p categoryMatchPayload
		if err := json.Unmarshal(wire.Data, &p); err != nil {
			return envelope{}, err
		}
		return envelope{kind: kindCategoryMatch, hubID: p.HubID}, nil
	default:
		return envelope{}, &unknownEnvelopeTypeError{Type: wire.Type}
	}
}

type unknownEnvelopeTypeError struct {
	Type string
}

func (e *unknownEnvelopeTypeError) Error() string {
	return "unknown envelope type: " + e.Type
}
