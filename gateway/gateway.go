// Package gateway defines the network calls the session manager makes
// against the comment service.
//
// Every call returns the raw *Response alongside its payload, including on
// failure when a response was received, so the manager can fold response
// headers into the credential store.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/availability"
)

// ErrUnauthorized is returned when the server rejects the session (HTTP 401).
var ErrUnauthorized = errors.New("gateway: unauthorized")

// Response carries the HTTP status and headers of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
}

// Provider names an external identity provider accepted by SSOAuthenticate.
type Provider string

// StartModel is the payload of a successful SSO start.
type StartModel struct {
	CodeA string `json:"code_a"`
}

// CompletionModel is the payload of a successful SSO completion.
type CompletionModel struct {
	Success bool              `json:"success"`
	User    availability.User `json:"user"`
}

// ProviderModel is the payload of a successful provider token exchange.
type ProviderModel struct {
	Success bool              `json:"success"`
	User    availability.User `json:"user"`
}

// Gateway is the network collaborator consumed by the session manager.
type Gateway interface {
	// Login creates a guest session.
	Login(ctx context.Context) (availability.User, *Response, error)
	Logout(ctx context.Context) (*Response, error)
	// SSOStart begins SSO using the guest bearer token as secret.
	SSOStart(ctx context.Context, secret string) (StartModel, *Response, error)
	SSOComplete(ctx context.Context, code string) (CompletionModel, *Response, error)
	SSOAuthenticate(ctx context.Context, provider Provider, token string) (ProviderModel, *Response, error)
	// FetchUser returns the user owning the current bearer token.
	FetchUser(ctx context.Context) (availability.User, *Response, error)
}
