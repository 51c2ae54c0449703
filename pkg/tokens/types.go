package tokens

import (
	"encoding/json"
	"fmt"
)

type xsRequest struct {
	Endpoint    string      `json:"endpoint"`
	Payload     interface{} `json:"payload"`
	A1          string      `json:"a1,omitempty"`
	TimestampMs int64       `json:"timestamp_ms,omitempty"`
}

type xsCommonRequest struct {
	A1          string                 `json:"a1,omitempty"`
	Fingerprint map[string]interface{} `json:"fingerprint,omitempty"`
}

// XSToken is the per-request signature and the timestamp it was made for
type XSToken struct {
	XS string `json:"x_s"`
	XT int64  `json:"x_t"`
}

// XSCommonToken is the session-level token with its expiry in unix ms
type XSCommonToken struct {
	XSCommon  string `json:"x_s_common"`
	ExpiresAt int64  `json:"expires_at"`
	CacheKey  string `json:"cache_key,omitempty"`
}

// Signature carries the three header values a platform request needs
type Signature struct {
	XS       string
	XSCommon string
	XT       int64
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status         string      `json:"status"`
	Timestamp      interface{} `json:"timestamp"`
	CacheAvailable bool        `json:"cache_available"`
}

// Stats is the body of GET /api/v1/stats. Fields beyond the known ones are
// kept in Raw.
type Stats struct {
	Client         string                 `json:"client"`
	RateLimit      int                    `json:"rate_limit"`
	CacheAvailable bool                   `json:"cache_available"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

func newStats(raw map[string]interface{}) *Stats {
	s := &Stats{Raw: raw}
	if v, ok := raw["client"]; ok && v != nil {
		s.Client = fmt.Sprint(v)
	}
	switch v := raw["rate_limit"].(type) {
	case float64:
		s.RateLimit = int(v)
	case string:
		fmt.Sscanf(v, "%d", &s.RateLimit)
	}
	if v, ok := raw["cache_available"].(bool); ok {
		s.CacheAvailable = v
	}
	return s
}

// CacheKey derives the x-s-common cache key: the device id (or "default")
// and the fingerprint as JSON with sorted keys ("{}" when absent).
func CacheKey(a1 string, fingerprint map[string]interface{}) (string, error) {
	if a1 == "" {
		a1 = "default"
	}
	fp := []byte("{}")
	if len(fingerprint) > 0 {
		var err error
		// encoding/json sorts map keys
		fp, err = json.Marshal(fingerprint)
		if err != nil {
			return "", fmt.Errorf("invalid fingerprint: %w", err)
		}
	}
	return a1 + ":" + string(fp), nil
}
