package goSession

import "errors"

var (
	// ErrMissingTenantID is returned when an operation needs a tenant and none is prepared.
	ErrMissingTenantID = errors.New("missing tenant id")
	// ErrMissingAuthorization is returned when SSO is attempted without a guest bearer token.
	ErrMissingAuthorization = errors.New("missing authorization")
	// ErrAlreadyLoggedIn is returned when SSO is attempted while an SSO user is logged in.
	ErrAlreadyLoggedIn = errors.New("already logged in")
	// ErrNetworkFailure wraps errors returned by the network gateway.
	ErrNetworkFailure = errors.New("network failure")
	// ErrWiring is returned when a required collaborator was not installed.
	ErrWiring = errors.New("collaborator not wired")
	// ErrBootstrapExhausted is returned when every user bootstrap attempt failed.
	ErrBootstrapExhausted = errors.New("user bootstrap retries exhausted")
	// ErrManagerClosed is returned by operations on a closed Manager.
	ErrManagerClosed = errors.New("manager closed")
)
