package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 100)

	var compressed bytes.Buffer
	w, err := NewCompressWriter(&compressed)
	require.NoError(t, err)
	_, err = w.Write(original)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewDecompressReader(&compressed)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key, err := DeriveKey("correct horse battery staple", salt)
	require.NoError(t, err)

	enc, err := NewEncryptor(key)
	require.NoError(t, err)
	dec, err := NewDecryptor(key)
	require.NoError(t, err)

	plaintext := []byte("sensitive row bytes")
	framed, err := enc.EncryptChunk(plaintext)
	require.NoError(t, err)

	got, err := dec.DecryptChunk(framed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptDetectsTampering(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key, err := DeriveKey("passphrase", salt)
	require.NoError(t, err)

	enc, err := NewEncryptor(key)
	require.NoError(t, err)
	dec, err := NewDecryptor(key)
	require.NoError(t, err)

	framed, err := enc.EncryptChunk([]byte("payload"))
	require.NoError(t, err)
	framed[len(framed)-1] ^= 0xFF // flip a byte in the tag

	_, err = dec.DecryptChunk(framed)
	require.Error(t, err)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key1, err := DeriveKey("passphrase-one", salt)
	require.NoError(t, err)
	key2, err := DeriveKey("passphrase-two", salt)
	require.NoError(t, err)

	enc, err := NewEncryptor(key1)
	require.NoError(t, err)
	dec, err := NewDecryptor(key2)
	require.NoError(t, err)

	framed, err := enc.EncryptChunk([]byte("payload"))
	require.NoError(t, err)

	_, err = dec.DecryptChunk(framed)
	require.Error(t, err)
}

func TestChunkReaderSplitsAndTerminates(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 10)
	cr := NewChunkReader(bytes.NewReader(data), 4)

	var got []byte
	for {
		chunk, err := cr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	assert.Equal(t, data, got)
}
