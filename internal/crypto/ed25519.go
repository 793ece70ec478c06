package crypto

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// PublicKeyPEMMarker is the header every enrollable public key must carry.
const PublicKeyPEMMarker = "-----BEGIN PUBLIC KEY-----"

var (
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// ParsePublicKey parses a PEM-encoded SPKI Ed25519 public key.
func ParsePublicKey(pemStr string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: not PEM encoded", ErrInvalidPublicKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an Ed25519 key", ErrInvalidPublicKey)
	}
	return pub, nil
}

// Verify reports whether sigB64 is a valid Ed25519 signature by the
// holder of publicKeyPEM over the UTF-8 bytes of message. Fail-closed:
// a malformed key or signature is a plain false, never an error.
func Verify(publicKeyPEM, message, sigB64 string) bool {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, []byte(message), sig)
}

// SendPayload returns the canonical string signed for POST /v1/send.
// Fields are concatenated raw with ':' separators and no escaping; a
// colon inside the text is part of the signed payload as-is. Signer and
// verifier must build byte-identical strings.
func SendPayload(channelID, text, nonce string) string {
	return "POST:/v1/send:" + channelID + ":" + text + ":" + nonce
}

// PollPayload returns the canonical string signed for GET /v1/messages.
// since is the raw query parameter as sent on the wire ("0" when
// absent), not the parsed integer.
func PollPayload(since string) string {
	return "GET:/v1/messages:" + since
}
