package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeBlob serialises v as a contiguous little-endian 32-bit-float
// sequence (spec §6/§9's explicit redesign flag: the source reinterprets
// bytes by raw host-endian cast, which is unsafe across architectures).
func EncodeBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// DecodeBlob reverses EncodeBlob. It returns an error if blob's length is
// not a multiple of 4.
func DecodeBlob(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}
