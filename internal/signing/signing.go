// Package signing authenticates write requests with ed25519 signatures.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
)

// HTTP headers carrying the signature of a request.
const (
	HeaderSigner    = "X-Oracle-Signer"
	HeaderNonce     = "X-Oracle-Nonce"
	HeaderSignature = "X-Oracle-Signature"
)

// Signing errors.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidSigner    = errors.New("signer is not a valid ed25519 public key")
	ErrStaleNonce       = errors.New("nonce must be greater than the last used nonce")
)

// KeyPair is an ed25519 account key.
type KeyPair struct {
	Address    domain.Address
	PrivateKey ed25519.PrivateKey
}

// GenerateKey creates a new random key pair.
func GenerateKey() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	addr, err := domain.AddressFromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Address: addr, PrivateKey: priv}, nil
}

// KeyPairFromSeed derives a key pair from a 32-byte seed.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	addr, err := domain.AddressFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &KeyPair{Address: addr, PrivateKey: priv}, nil
}

// KeyPairFromSecret decodes a base58 encoded 64-byte private key.
func KeyPairFromSecret(secret string) (*KeyPair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	addr, err := domain.AddressFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &KeyPair{Address: addr, PrivateKey: priv}, nil
}

// Secret returns the base58 encoded private key.
func (k *KeyPair) Secret() string {
	return base58.Encode(k.PrivateKey)
}

// Payload builds the canonical message signed for a request.
// Format: method\npath\nnonce\nhex(sha256(body))
func Payload(method, path string, nonce uint64, body []byte) []byte {
	digest := sha256.Sum256(body)
	msg := method + "\n" + path + "\n" + strconv.FormatUint(nonce, 10) + "\n" + hex.EncodeToString(digest[:])
	return []byte(msg)
}

// Sign signs payload and returns the base58 encoded signature.
func (k *KeyPair) Sign(payload []byte) string {
	return base58.Encode(ed25519.Sign(k.PrivateKey, payload))
}

// ValidateSigner checks that addr decodes to a point on the ed25519 curve.
func ValidateSigner(addr domain.Address) (ed25519.PublicKey, error) {
	raw, err := addr.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if !idhash.IsOnCurve(raw) {
		return nil, ErrInvalidSigner
	}
	return ed25519.PublicKey(raw), nil
}

// Verify checks a base58 encoded signature over payload.
func Verify(signer domain.Address, payload []byte, signature string) error {
	pub, err := ValidateSigner(signer)
	if err != nil {
		return err
	}
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(pub, payload, sig) {
		return ErrInvalidSignature
	}
	return nil
}
