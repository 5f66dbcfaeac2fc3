package embedding

import (
	"context"
)

// LoadOrGenerate implements the cache policy of spec §4.5: if existing
// already holds a blob, it is decoded and returned as-is with generated
// set to false. Otherwise prompt is embedded, the resulting vector is
// serialised and handed to persist, and generated is true.
//
// persist is called with the worker holding no lock beyond the caller's
// own transaction; a persist failure is returned to the caller, but the
// freshly generated vector is still returned so the caller may decide
// whether to proceed in memory for this run regardless.
func LoadOrGenerate(ctx context.Context, existing []byte, prompt string, embedder Provider, persist func([]byte) error) (vector []float32, generated bool, err error) {
	if len(existing) > 0 {
		v, decodeErr := DecodeBlob(existing)
		if decodeErr == nil {
			return v, false, nil
		}
		// fall through: a corrupt cached blob is treated as absent
	}

	vectors, err := embedder.Embed(ctx, []string{prompt})
	if err != nil {
		return nil, false, err
	}
	if len(vectors) == 0 {
		return nil, false, nil
	}
	vector = vectors[0]

	blob := EncodeBlob(vector)
	if err := persist(blob); err != nil {
		return vector, true, err
	}
	return vector, true, nil
}
