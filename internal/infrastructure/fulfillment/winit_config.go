package fulfillment

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// WinitConfig holds configuration for the Winit open platform API
type WinitConfig struct {
	// APIBaseURL is the router endpoint all actions are posted to
	APIBaseURL string
	// AppKey is the distributor application key
	AppKey string
	// Token is the shared signing secret
	Token string
	// Platform identifies the calling system
	Platform string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for Winit configuration
var (
	ErrWinitConfigMissingBaseURL = errors.New("winit: api base url is required")
	ErrWinitConfigMissingAppKey  = errors.New("winit: app key is required")
	ErrWinitConfigMissingToken   = errors.New("winit: token is required")
)

// NewWinitConfig creates a new Winit configuration with defaults
func NewWinitConfig(apiBaseURL, appKey, token string) *WinitConfig {
	return &WinitConfig{
		APIBaseURL:     apiBaseURL,
		AppKey:         appKey,
		Token:          token,
		Platform:       "OWNERERP",
		TimeoutSeconds: 30,
	}
}

// Validate validates the Winit configuration
func (c *WinitConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrWinitConfigMissingBaseURL
	}
	if c.AppKey == "" {
		return ErrWinitConfigMissingAppKey
	}
	if c.Token == "" {
		return ErrWinitConfigMissingToken
	}
	if c.Platform == "" {
		c.Platform = "OWNERERP"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Sign generates the request signature. The scheme is MD5 because the Winit
// API requires it: token + key1value1key2value2... + token over the
// lexicographically sorted parameters, uppercase hex digest. The sign and
// language parameters are excluded from the sign string.
func (c *WinitConfig) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "language" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(c.Token)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}
	builder.WriteString(c.Token)

	hash := md5.Sum([]byte(builder.String()))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}
