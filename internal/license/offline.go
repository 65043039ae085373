package license

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Status codes returned by Offline. Values are negative so they never
// collide with StatusOK.
const (
	StatusEmptyKey     = -10001
	StatusMalformedKey = -10002
	StatusMissingField = -10003
	StatusExpired      = -10004
)

// Offline validates self-contained keys without contacting a license
// server. A key is the base64 (standard or URL alphabet, padding optional)
// encoding of a JSON object:
//
//	{"handshakeCode": "...", "organizationID": "...", "expires": "2027-01-01"}
//
// expires is optional and may be a date or an RFC 3339 timestamp.
type Offline struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

type offlineKey struct {
	HandshakeCode  string `json:"handshakeCode"`
	OrganizationID string `json:"organizationID"`
	Expires        string `json:"expires"`
}

func (o Offline) Validate(key string) int {
	key = strings.TrimSpace(key)
	if key == "" {
		return StatusEmptyKey
	}
	raw, err := decodeKey(key)
	if err != nil {
		return StatusMalformedKey
	}
	var k offlineKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return StatusMalformedKey
	}
	if k.HandshakeCode == "" || k.OrganizationID == "" {
		return StatusMissingField
	}
	if k.Expires != "" {
		exp, err := parseExpiry(k.Expires)
		if err != nil {
			return StatusMalformedKey
		}
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		if !now().Before(exp) {
			return StatusExpired
		}
	}
	return StatusOK
}

// EncodeOffline builds a key Offline accepts.
func EncodeOffline(handshakeCode, organizationID string, expires time.Time) string {
	k := offlineKey{HandshakeCode: handshakeCode, OrganizationID: organizationID}
	if !expires.IsZero() {
		k.Expires = expires.UTC().Format(time.RFC3339)
	}
	data, _ := json.Marshal(k)
	return base64.StdEncoding.EncodeToString(data)
}

func decodeKey(key string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	}
	var err error
	for _, enc := range encodings {
		var out []byte
		if out, err = enc.DecodeString(key); err == nil {
			return out, nil
		}
	}
	return nil, err
}

func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
