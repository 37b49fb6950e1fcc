package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned for an empty token.
	ErrMissingToken = errors.New("session: token is missing")

	// ErrMalformedToken is returned when the token is not three
	// dot-separated segments.
	ErrMalformedToken = errors.New("session: token must have exactly three segments")

	// ErrInvalidPadding is returned when the payload length leaves a
	// remainder of one modulo four, which no base64 input can.
	ErrInvalidPadding = errors.New("session: token payload has invalid length")

	// ErrInvalidPayload is returned when the payload is not base64 JSON.
	ErrInvalidPayload = errors.New("session: token payload is not valid encoded JSON")

	// ErrUnverifiedToken is returned by Verify when the signature or the
	// registered claims do not check out.
	ErrUnverifiedToken = errors.New("session: token verification failed")
)

// Claims is the decoded token payload. Owner is kept untyped so that
// only a literal JSON true grants ownership.
type Claims struct {
	jwt.RegisteredClaims

	Owner any `json:"owner,omitempty"`
}

// IsOwner reports whether the owner claim is the boolean true.
func (c *Claims) IsOwner() bool {
	if c == nil {
		return false
	}
	b, ok := c.Owner.(bool)
	return ok && b
}

// segmentDecoder decodes base64url segments once padding is restored.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// IsOwner decodes the payload of token without verifying its signature
// and reports whether its owner field is strictly true. Every failure
// yields false.
func IsOwner(token string) bool {
	payload, err := decodePayload(token)
	if err != nil {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(fields["owner"]), []byte("true"))
}

// Verify parses token, checks its signature with keyfunc and validates
// its registered claims. Unsigned ("none") tokens are rejected unless
// keyfunc explicitly allows them.
func Verify(token string, keyfunc jwt.Keyfunc, opts ...jwt.ParserOption) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if keyfunc == nil {
		return nil, fmt.Errorf("%w: no key function", ErrUnverifiedToken)
	}
	var c Claims
	if _, err := jwt.NewParser(opts...).ParseWithClaims(token, &c, keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnverifiedToken, err)
	}
	return &c, nil
}

// DecodeClaims decodes the payload of token into Claims. The signature is
// not verified; the result is for display and diagnostics only.
func DecodeClaims(token string) (*Claims, error) {
	payload, err := decodePayload(token)
	if err != nil {
		return nil, err
	}
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return &c, nil
}

func decodePayload(token string) ([]byte, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	seg := parts[1]
	switch len(seg) % 4 {
	case 0:
	case 2:
		seg += "=="
	case 3:
		seg += "="
	default:
		return nil, ErrInvalidPadding
	}

	if b, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	b, err := segmentDecoder.DecodeSegment(seg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return b, nil
}
