package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
)

func generateTestKeypair(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	pemStr := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	return priv, pemStr
}

func sign(priv ed25519.PrivateKey, msg string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(msg)))
}

func TestVerifyValidSignature(t *testing.T) {
	priv, pubPEM := generateTestKeypair(t)
	msg := "POST:/v1/send:general:hello:n1"
	if !Verify(pubPEM, msg, sign(priv, msg)) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyModifiedMessage(t *testing.T) {
	priv, pubPEM := generateTestKeypair(t)
	msg := "GET:/v1/messages:0"
	if Verify(pubPEM, msg+"x", sign(priv, msg)) {
		t.Fatal("modified message must not verify")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	priv, _ := generateTestKeypair(t)
	_, otherPEM := generateTestKeypair(t)
	msg := "GET:/v1/messages:0"
	if Verify(otherPEM, msg, sign(priv, msg)) {
		t.Fatal("signature must not verify under a different key")
	}
}

func TestVerifyRandomSignature(t *testing.T) {
	_, pubPEM := generateTestKeypair(t)
	garbage := make([]byte, 64)
	rand.Read(garbage)
	if Verify(pubPEM, "anything", base64.StdEncoding.EncodeToString(garbage)) {
		t.Fatal("random bytes must not verify")
	}
}

func TestVerifyMalformedInputsFailClosed(t *testing.T) {
	priv, pubPEM := generateTestKeypair(t)
	msg := "msg"

	if Verify("not a pem key", msg, sign(priv, msg)) {
		t.Fatal("malformed key must fail")
	}
	if Verify(pubPEM, msg, "!!!not-base64!!!") {
		t.Fatal("malformed signature must fail")
	}
	if Verify("", msg, "") {
		t.Fatal("empty inputs must fail")
	}
}

func TestParsePublicKeyRejectsNonEd25519(t *testing.T) {
	// A valid SPKI PEM for a curve other than Ed25519 must be rejected.
	pemStr := `-----BEGIN PUBLIC KEY-----
MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAE6Q8LCX8cr4B/1ILXc2diqWyBLy+C
0w5N0V1uzl2iDw1/0M+yvHUKCaa7q0nuyTLxTxrieQaMkeQAISSLk12pBQ==
-----END PUBLIC KEY-----`
	if _, err := ParsePublicKey(pemStr); err == nil {
		t.Fatal("expected error for non-Ed25519 key")
	}
}

func TestSendPayloadExactBytes(t *testing.T) {
	got := SendPayload("general", "hello world", "n1")
	want := "POST:/v1/send:general:hello world:n1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	// Colons in the text are carried raw, no escaping.
	got = SendPayload("ch", "a:b:c", "n2")
	want = "POST:/v1/send:ch:a:b:c:n2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPollPayloadExactBytes(t *testing.T) {
	if got := PollPayload("0"); got != "GET:/v1/messages:0" {
		t.Fatalf("unexpected payload %q", got)
	}
	if got := PollPayload("1700000000000"); got != "GET:/v1/messages:1700000000000" {
		t.Fatalf("unexpected payload %q", got)
	}
}
