package bulkimport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Protocol errors raised at the session boundary. These always abort the
// whole operation; there is no partial handling of an invalid session.
var (
	ErrMalformedToken = errors.New("MalformedToken")
	ErrBadSignature   = errors.New("BadSignature")
	ErrExpiredToken   = errors.New("ExpiredToken")
	ErrOrgMismatch    = errors.New("OrgMismatch")
)

// SessionCodec signs a complete plan into an opaque, expiring token and
// verifies it later. Format: base64url(JSON) + "." + base64url(HMAC-SHA256),
// with the signature computed over the exact encoded payload bytes and the
// expiry carried inside the payload. No server-side session state exists.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
}

// DefaultSessionTTL applies when no lifetime is configured. Zero is a
// valid configured value and yields sessions that expire immediately.
const DefaultSessionTTL = 24 * time.Hour

func NewSessionCodec(secret string, ttl time.Duration) *SessionCodec {
	if ttl < 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl}
}

// TTL is the lifetime stamped into newly created sessions
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

// Encode serializes and signs the payload
func (c *SessionCodec) Encode(payload *ImportSessionPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	data := base64.RawURLEncoding.EncodeToString(raw)
	return data + "." + c.sign(data), nil
}

// Decode verifies the signature, parses the payload and enforces expiry
func (c *SessionCodec) Decode(token string) (*ImportSessionPayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrMalformedToken
	}
	data, sig := parts[0], parts[1]

	if !hmac.Equal([]byte(c.sign(data)), []byte(sig)) {
		return nil, ErrBadSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrMalformedToken
	}

	var payload ImportSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrMalformedToken
	}

	if time.Now().UnixMilli() > payload.Exp {
		return nil, ErrExpiredToken
	}

	return &payload, nil
}

func (c *SessionCodec) sign(data string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
