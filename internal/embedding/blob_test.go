package embedding

import "testing"

func TestEncodeDecodeBlobRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3, 0}
	blob := EncodeBlob(v)
	got, err := DecodeBlob(blob)
	if err != nil {
		t.Fatalf("DecodeBlob: %v", err)
	}
	if len(got) != len(v) {
		t.Fatalf("length = %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d = %v, want %v", i, got[i], v[i])
		}
	}
}

func TestDecodeBlobRejectsMisalignedLength(t *testing.T) {
	if _, err := DecodeBlob([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a non-multiple-of-4 blob")
	}
}
