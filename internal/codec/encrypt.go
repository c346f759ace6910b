package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/snapctl/snapctl/internal/snaperrors"
)

const (
	saltSize = 16
	keySize  = 32 // AES-256

	// scrypt cost parameters; N must be a power of two.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// NewSalt generates a fresh per-snapshot random salt, stored alongside the
// snapshot descriptor in the catalog (spec.md §4.4: "a per-snapshot random
// salt stored in the snapshot descriptor").
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("codec: generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit AES key from a user passphrase and the
// snapshot's salt via scrypt.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("codec: derive key: %w", err)
	}
	return key, nil
}

// Encryptor seals chunks with AES-256-GCM, each chunk carrying its own
// random nonce (spec.md §4.4: "each chunk carries its own 96-bit nonce and
// 128-bit tag; framing: [nonce | ciphertext | tag]").
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from an already-derived key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// EncryptChunk returns nonce||ciphertext||tag for one chunk of plaintext.
func (e *Encryptor) EncryptChunk(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("generate nonce: %w", err))
	}
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decryptor opens chunks sealed by the matching Encryptor. Any failure —
// wrong key, flipped bit, truncated chunk — surfaces as a KindCodec error
// with Transient=false, matching spec.md §4.4's CodecError::AuthFailed.
type Decryptor struct {
	aead cipher.AEAD
}

// NewDecryptor builds a Decryptor from an already-derived key.
func NewDecryptor(key []byte) (*Decryptor, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &Decryptor{aead: aead}, nil
}

// DecryptChunk reverses Encryptor.EncryptChunk.
func (d *Decryptor) DecryptChunk(framed []byte) ([]byte, error) {
	nonceSize := d.aead.NonceSize()
	if len(framed) < nonceSize {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("chunk shorter than nonce (%d bytes)", len(framed)))
	}
	nonce, sealed := framed[:nonceSize], framed[nonceSize:]
	plaintext, err := d.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("authentication failed: %w", err))
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("build AES cipher: %w", err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, snaperrors.New(snaperrors.KindCodec, fmt.Errorf("build GCM mode: %w", err))
	}
	return aead, nil
}
