// Package transport signs and verifies HTTP requests with Ed25519 SSH keys.
//
// A signed request carries these headers:
//
//	Date:                RFC 1123 time in GMT
//	Digest:              SHA-256=<base64 SHA-256 of the body, unpadded>
//	X-SSH-Key-Id:        SHA256 fingerprint of the signing public key
//	X-SSH-Signature-Alg: ssh-ed25519
//	X-SSH-Signature:     base64 Ed25519 signature of the canonical string
//
// The canonical string is
//
//	METHOD "\n" path[?query] "\n" Date "\n" "Digest: SHA-256=" digest "\n"
package transport

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	HeaderDate         = "Date"
	HeaderDigest       = "Digest"
	HeaderKeyID        = "X-SSH-Key-Id"
	HeaderSignatureAlg = "X-SSH-Signature-Alg"
	HeaderSignature    = "X-SSH-Signature"

	SignatureAlg = ssh.KeyAlgoED25519
	digestPrefix = "SHA-256="
)

// Signer signs requests with an Ed25519 private key.
type Signer struct {
	key   ed25519.PrivateKey
	keyID string
	now   func() time.Time
}

// NewSigner wraps key. The key ID defaults to the SHA256 fingerprint of the
// public half.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	pub, err := ssh.NewPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return &Signer{key: key, keyID: ssh.FingerprintSHA256(pub), now: time.Now}, nil
}

// ParseSigner reads an OpenSSH or PEM encoded Ed25519 private key.
// passphrase may be nil for unencrypted keys.
func ParseSigner(pemBytes, passphrase []byte) (*Signer, error) {
	var raw any
	var err error
	if len(passphrase) > 0 {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(pemBytes, passphrase)
	} else {
		raw, err = ssh.ParseRawPrivateKey(pemBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	switch k := raw.(type) {
	case *ed25519.PrivateKey:
		return NewSigner(*k)
	case ed25519.PrivateKey:
		return NewSigner(k)
	}
	return nil, fmt.Errorf("unsupported private key type %T; only ssh-ed25519 keys can sign", raw)
}

// LoadSigner reads a private key file. A leading "~/" is expanded.
func LoadSigner(path string, passphrase []byte) (*Signer, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return ParseSigner(data, passphrase)
}

// KeyID is the identifier sent in X-SSH-Key-Id.
func (s *Signer) KeyID() string { return s.keyID }

// WithKeyID returns a copy of s that advertises id instead of the fingerprint.
func (s *Signer) WithKeyID(id string) *Signer {
	c := *s
	c.keyID = id
	return &c
}

// Sign sets the signature headers on req for the given body. The body
// itself is not attached.
func (s *Signer) Sign(req *http.Request, body []byte) error {
	if req.URL == nil {
		return errors.New("request has no URL")
	}
	date := s.now().UTC().Format(http.TimeFormat)
	digest := Digest(body)

	msg := CanonicalString(req.Method, pathAndQuery(req), date, digest)
	sig := ed25519.Sign(s.key, msg)

	req.Header.Set(HeaderDate, date)
	req.Header.Set(HeaderDigest, digestPrefix+digest)
	req.Header.Set(HeaderKeyID, s.keyID)
	req.Header.Set(HeaderSignatureAlg, SignatureAlg)
	req.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(sig))
	return nil
}

// Digest is the unpadded base64 SHA-256 of body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// CanonicalString builds the message covered by the signature.
func CanonicalString(method, pathAndQuery, date, digest string) []byte {
	return []byte(fmt.Sprintf("%s\n%s\n%s\nDigest: %s%s\n", strings.ToUpper(method), pathAndQuery, date, digestPrefix, digest))
}

// pathAndQuery excludes scheme and host.
func pathAndQuery(req *http.Request) string {
	p := req.URL.EscapedPath()
	if p == "" {
		p = "/"
	}
	if req.URL.RawQuery != "" {
		p += "?" + req.URL.RawQuery
	}
	return p
}
