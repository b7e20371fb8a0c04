package vector

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Embeddings are stored as base64 over the raw little-endian float32
// buffer. Decode(Encode(e)) is bit-identical to e for every input,
// including NaN and infinity bit patterns.

// EncodeEmbedding encodes an embedding for storage in a text column.
func EncodeEmbedding(e []float32) string {
	return base64.StdEncoding.EncodeToString(float32SliceToBytes(e))
}

// DecodeEmbedding reverses EncodeEmbedding. It fails on malformed
// base64 or a buffer whose length is not a multiple of 4 bytes.
func DecodeEmbedding(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("decode embedding: buffer length %d is not a multiple of 4", len(raw))
	}
	return bytesToFloat32Slice(raw), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
