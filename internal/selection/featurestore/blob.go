package featurestore

import (
	"encoding/binary"
	"math"
)

// encodeF32Blob packs a float32 slice into a little-endian byte blob, or
// returns nil for an empty/nil slice (stored as SQL NULL).
func encodeF32Blob(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// decodeF32Blob unpacks a little-endian float32 blob, returning nil if blob
// is empty or not a multiple of 4 bytes.
func decodeF32Blob(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
