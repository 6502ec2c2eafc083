package blob

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	raw := bytes.Repeat([]byte("jpeg-ish payload "), 512)

	enc := Encode(raw)
	assert.Equal(t, int64(len(raw)), enc.Size)
	assert.Len(t, enc.Digest, 64)
	assert.Less(t, len(enc.Data), len(raw))

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDecodeDetectsTampering(t *testing.T) {
	enc := Encode([]byte("photo"))

	sized := enc
	sized.Size++
	_, err := Decode(sized)
	assert.Error(t, err)

	digested := enc
	digested.Digest = Digest([]byte("other"))
	_, err = Decode(digested)
	assert.Error(t, err)

	_, err = Decode(Encoded{Data: []byte("not zstd"), Size: 3})
	assert.Error(t, err)
}

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest([]byte("a")), Digest([]byte("a")))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}
