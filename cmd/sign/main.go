// Command sign produces the signature for a relay request, for driving
// the API from curl. The canonical strings here must stay byte-for-byte
// in sync with the server's verifier.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
)

func main() {
	keyFile := flag.String("key", "", "Path to PKCS8 PEM Ed25519 private key")
	mode := flag.String("mode", "send", "Request to sign: send or poll")
	channel := flag.String("channel", "", "Channel id (send)")
	text := flag.String("text", "", "Message text (send)")
	nonce := flag.String("nonce", "", "Nonce (send); generated if empty")
	since := flag.String("since", "0", "Raw since cursor (poll)")
	flag.Parse()

	if *keyFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -key <private.pem> -mode send|poll [flags]")
		os.Exit(1)
	}

	priv, err := loadPrivateKey(*keyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}

	var payload string
	switch *mode {
	case "send":
		if *channel == "" || *text == "" {
			fmt.Fprintln(os.Stderr, "send mode requires -channel and -text")
			os.Exit(1)
		}
		if *nonce == "" {
			buf := make([]byte, 12)
			rand.Read(buf)
			*nonce = hex.EncodeToString(buf)
		}
		payload = "POST:/v1/send:" + *channel + ":" + *text + ":" + *nonce
	case "poll":
		payload = "GET:/v1/messages:" + *since
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", *mode)
		os.Exit(1)
	}

	sig := ed25519.Sign(priv, []byte(payload))

	fmt.Printf("payload: %s\n", payload)
	if *mode == "send" {
		fmt.Printf("nonce:   %s\n", *nonce)
	}
	fmt.Printf("sig:     %s\n", base64.StdEncoding.EncodeToString(sig))
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
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
