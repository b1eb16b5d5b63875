package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// ErrUnauthorized is returned for requests whose signature does not verify.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultMaxSkew bounds the difference between the Date header and now.
const DefaultMaxSkew = 5 * time.Minute

// maxSignedBody caps the body read by the middleware.
const maxSignedBody = 32 << 20

// Verifier checks signed requests against a set of authorized keys indexed
// by fingerprint.
type Verifier struct {
	keys    map[string]ssh.PublicKey
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier accepts requests signed by any of keys. Only ssh-ed25519 keys
// are kept. A non-positive maxSkew selects DefaultMaxSkew.
func NewVerifier(keys []ssh.PublicKey, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	v := &Verifier{keys: make(map[string]ssh.PublicKey), maxSkew: maxSkew, now: time.Now}
	for _, k := range keys {
		if k.Type() == ssh.KeyAlgoED25519 {
			v.keys[ssh.FingerprintSHA256(k)] = k
		}
	}
	return v
}

// ParseAuthorizedKeys reads every key from an authorized_keys document.
func ParseAuthorizedKeys(data []byte) ([]ssh.PublicKey, error) {
	var keys []ssh.PublicKey
	rest := data
	for len(bytes.TrimSpace(rest)) > 0 {
		key, _, _, next, err := ssh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, fmt.Errorf("failed to parse authorized keys: %w", err)
		}
		keys = append(keys, key)
		rest = next
	}
	return keys, nil
}

// LoadAuthorizedKeys reads an authorized_keys file.
func LoadAuthorizedKeys(path string) ([]ssh.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized keys: %w", err)
	}
	return ParseAuthorizedKeys(data)
}

// Verify checks the signature headers of r against body and returns the
// key ID that signed it.
func (v *Verifier) Verify(r *http.Request, body []byte) (string, error) {
	if alg := r.Header.Get(HeaderSignatureAlg); alg != SignatureAlg {
		return "", fmt.Errorf("%w: unsupported signature algorithm %q", ErrUnauthorized, alg)
	}
	keyID := r.Header.Get(HeaderKeyID)
	key, ok := v.keys[keyID]
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", ErrUnauthorized, keyID)
	}

	date := r.Header.Get(HeaderDate)
	ts, err := http.ParseTime(date)
	if err != nil {
		return "", fmt.Errorf("%w: invalid Date header", ErrUnauthorized)
	}
	if skew := v.now().Sub(ts); skew > v.maxSkew || skew < -v.maxSkew {
		return "", fmt.Errorf("%w: Date header outside the allowed skew of %s", ErrUnauthorized, v.maxSkew)
	}

	digest := Digest(body)
	if got, _ := strings.CutPrefix(r.Header.Get(HeaderDigest), digestPrefix); got != digest {
		return "", fmt.Errorf("%w: body digest mismatch", ErrUnauthorized)
	}

	sig, err := base64.StdEncoding.DecodeString(r.Header.Get(HeaderSignature))
	if err != nil {
		return "", fmt.Errorf("%w: signature is not base64", ErrUnauthorized)
	}
	msg := CanonicalString(r.Method, pathAndQuery(r), date, digest)
	if err := key.Verify(msg, &ssh.Signature{Format: SignatureAlg, Blob: sig}); err != nil {
		return "", fmt.Errorf("%w: signature does not verify", ErrUnauthorized)
	}
	return keyID, nil
}

type keyIDContextKey struct{}

// ContextWithKeyID records the key that signed the current request.
func ContextWithKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, keyIDContextKey{}, keyID)
}

// KeyIDFromContext returns the key ID stored by RequireSignature.
func KeyIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(keyIDContextKey{}).(string)
	return id, ok
}

// RequireSignature returns chi-compatible middleware that verifies requests
// to the listed paths and rejects bad signatures with 401. Other paths pass
// through untouched.
func (v *Verifier) RequireSignature(paths ...string) func(http.Handler) http.Handler {
	guarded := make(map[string]bool, len(paths))
	for _, p := range paths {
		guarded[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guarded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			if len(body) > maxSignedBody {
				http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
				return
			}

			keyID, err := v.Verify(r, body)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected signed request")
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r.WithContext(ContextWithKeyID(r.Context(), keyID)))
		})
	}
}
