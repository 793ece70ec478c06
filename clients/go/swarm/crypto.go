package swarm

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// MarshalPublicKeyPEM encodes an Ed25519 public key as SPKI PEM, the
// format the relay enrolls.
func MarshalPublicKeyPEM(pub ed25519.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// LoadPrivateKeyPEM reads a PKCS8 PEM Ed25519 private key from disk.
func LoadPrivateKeyPEM(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("not PEM encoded")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an Ed25519 key")
	}
	return priv, nil
}

// SendPayload builds the canonical string signed for POST /v1/send.
// Raw ':'-joined concatenation, byte-for-byte what the server rebuilds.
func SendPayload(channelID, text, nonce string) string {
	return "POST:/v1/send:" + channelID + ":" + text + ":" + nonce
}

// PollPayload builds the canonical string signed for GET /v1/messages.
func PollPayload(since string) string {
	return "GET:/v1/messages:" + since
}
