// Package vecmath holds the small amount of vector arithmetic shared by the
// embedding provider (C5) and the top-K search (C7): L2 normalisation and
// cosine distance, built on gonum/floats rather than hand-rolled loops.
package vecmath

import "gonum.org/v1/gonum/floats"

// Normalize returns v divided by its Euclidean norm. A zero vector is
// returned unchanged, per spec §4.5.
func Normalize(v []float32) []float32 {
	norm := l2Norm(v)
	if norm == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineDistance returns the cosine distance between a and b, in [0, 2] for
// unit-norm inputs. Similarity is recovered as 1 - distance.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// CosineSimilarity returns cos(theta) between a and b, using gonum/floats
// for the dot product and norms.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	af, bf := toFloat64(a), toFloat64(b)
	normA := floats.Norm(af, 2)
	normB := floats.Norm(bf, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(af, bf) / (normA * normB)
}

func l2Norm(v []float32) float64 {
	return floats.Norm(toFloat64(v), 2)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
