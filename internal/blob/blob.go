// Package blob encodes photo payloads for storage: zstd-compressed bytes addressed by a
// BLAKE3 digest of the original image.
package blob

import (
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("blob: zstd encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("blob: zstd decoder initialization failed: " + err.Error())
	}
}

// Encoded is a stored photo.
type Encoded struct {
	Digest string
	Size   int64
	Data   []byte
}

// Encode digests and compresses raw image bytes.
func Encode(raw []byte) Encoded {
	return Encoded{
		Digest: Digest(raw),
		Size:   int64(len(raw)),
		Data:   encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)),
	}
}

// Decode restores the raw bytes and verifies size and digest.
func Decode(e Encoded) ([]byte, error) {
	raw, err := decoder.DecodeAll(e.Data, make([]byte, 0, e.Size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if int64(len(raw)) != e.Size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(raw), e.Size)
	}
	if got := Digest(raw); got != e.Digest {
		return nil, fmt.Errorf("digest mismatch: got %s, expected %s", got, e.Digest)
	}
	return raw, nil
}

// Digest returns the hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
