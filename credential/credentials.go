package credential

import (
	"net/http"
	"strings"
)

// Credentials is the persisted credential tuple. Empty strings mean absent.
type Credentials struct {
	DeviceGUID     string `json:"device_guid,omitempty"`
	BearerToken    string `json:"bearer_token,omitempty"`
	SecondaryToken string `json:"secondary_token,omitempty"`
}

// HasBearer reports whether a bearer token is present.
func (c Credentials) HasBearer() bool {
	return c.BearerToken != ""
}

// WithoutBearer returns c with the bearer token cleared.
func (c Credentials) WithoutBearer() Credentials {
	c.BearerToken = ""
	return c
}

// HeaderNames configures which response headers carry credentials.
type HeaderNames struct {
	DeviceGUID string `koanf:"device_guid"`
	Bearer     string `koanf:"bearer"`
	Secondary  string `koanf:"secondary"`
}

// DefaultHeaderNames returns the header names used by the comment API.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		DeviceGUID: "X-Guid",
		Bearer:     "Authorization",
		Secondary:  "X-Session-Token",
	}
}

// FromHeaders extracts the credential fields present in h.
func (n HeaderNames) FromHeaders(h http.Header) Credentials {
	if h == nil {
		return Credentials{}
	}
	return Credentials{
		DeviceGUID:     strings.TrimSpace(h.Get(n.DeviceGUID)),
		BearerToken:    strings.TrimSpace(h.Get(n.Bearer)),
		SecondaryToken: strings.TrimSpace(h.Get(n.Secondary)),
	}
}

// Apply writes c into request headers h. Absent fields are left unset.
func (n HeaderNames) Apply(h http.Header, c Credentials) {
	if c.DeviceGUID != "" {
		h.Set(n.DeviceGUID, c.DeviceGUID)
	}
	if c.BearerToken != "" {
		h.Set(n.Bearer, c.BearerToken)
	}
	if c.SecondaryToken != "" {
		h.Set(n.Secondary, c.SecondaryToken)
	}
}
