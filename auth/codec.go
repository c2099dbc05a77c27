package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the decoded (unverified) body of a token.
type Payload struct {
	ExpiresAt time.Time // zero when the token carries no exp claim
	Temporary bool
	Claims    jwt.MapClaims
}

// segmentParser is only used for its base64url segment decoding.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode reads the payload of a three-part dot-delimited token without
// checking its signature. It returns false for any malformed input.
func Decode(token string) (*Payload, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, false
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims == nil {
		return nil, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, false
	}

	payload := &Payload{Claims: claims}
	if exp != nil {
		payload.ExpiresAt = exp.Time
	}
	if temp, ok := claims["temp"].(bool); ok {
		payload.Temporary = temp
	}
	return payload, true
}
