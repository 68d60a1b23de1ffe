package jwtx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Subject-id claim names tried in order. The eClinic identity provider has
// renamed this claim across versions, so the chain must stay ordered: a plain
// short name, its older alias, the legacy WS-* namespaced URI, and finally a
// case-insensitive suffix scan over every claim key.
const (
	claimSubjectPrimary = "nameidentifier"
	claimSubjectAlias   = "nameid"
	claimSubjectLegacy  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
)

// Claims are the decoded payload of an access credential. No signature
// verification happens client-side; the backend is the authority and the
// client only needs expiry and the subject id.
type Claims struct {
	// ExpiresAt is the exp claim in epoch seconds, 0 when absent.
	ExpiresAt int64

	raw map[string]any
}

// Decode parses the payload segment of a raw bearer token without verifying
// its signature. Malformed input returns an error wrapping ErrDecode, never a
// panic.
func Decode(raw string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	c := Claims{raw: map[string]any(mc)}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad exp claim: %v", ErrDecode, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Unix()
	}

	return c, nil
}

// Expired reports whether the credential's exp claim is in the past relative
// to now. A credential without an exp claim never reports expired; the
// backend will reject it if it disagrees.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return c.ExpiresAt*1000 < now.UnixMilli()
}

// ExpiresAtTime returns the exp claim as a time.Time, zero when absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// SubjectID extracts the user id, trying each known claim name in order and
// returning the first non-empty hit. Returns "" when no variant is present.
func (c Claims) SubjectID() string {
	for _, key := range []string{claimSubjectPrimary, claimSubjectAlias, claimSubjectLegacy} {
		if id := claimString(c.raw[key]); id != "" {
			return id
		}
	}

	// Last resort: some provider versions prefix the claim with their own
	// namespace, so match any key ending in "nameidentifier".
	for key, val := range c.raw {
		if strings.HasSuffix(strings.ToLower(key), claimSubjectPrimary) {
			if id := claimString(val); id != "" {
				return id
			}
		}
	}

	return ""
}

// Get returns an arbitrary claim value, nil when absent.
func (c Claims) Get(key string) any {
	return c.raw[key]
}

// claimString renders a claim value as a string. JSON numbers arrive as
// float64; ids are whole numbers so they format without a fraction.
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
