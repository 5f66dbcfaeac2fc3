package search

import "testing"

func TestTopKReturnsClosestFirst(t *testing.T) {
	query := []float32{1, 0}
	items := []Item{
		{ID: 1, Embedding: []float32{0, 1}},  // orthogonal, distance 1
		{ID: 2, Embedding: []float32{1, 0}},  // identical, distance 0
		{ID: 3, Embedding: []float32{-1, 0}}, // opposite, distance 2
	}

	got := TopK(query, items, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("closest match = %d, want 2", got[0].ID)
	}
	if got[1].ID != 1 {
		t.Errorf("second match = %d, want 1", got[1].ID)
	}
}

func TestTopKZeroOrEmptyShortCircuits(t *testing.T) {
	if got := TopK([]float32{1}, []Item{{ID: 1, Embedding: []float32{1}}}, 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
	if got := TopK([]float32{1}, nil, 5); got != nil {
		t.Errorf("empty corpus should return nil, got %v", got)
	}
}

func TestTopKClampsToCorpusSize(t *testing.T) {
	items := []Item{{ID: 1, Embedding: []float32{1, 0}}}
	got := TopK([]float32{1, 0}, items, 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 match when corpus smaller than k, got %d", len(got))
	}
}
