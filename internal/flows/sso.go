package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/gateway"
)

// ErrSSORejected is returned when the server answers an SSO call without
// reporting success.
var ErrSSORejected = errors.New("sso rejected by server")

// SSOFailureKind classifies SSO flow failures for root-level mapping.
type SSOFailureKind int

const (
	SSOFailureNone SSOFailureKind = iota
	SSOFailureAlreadyLoggedIn
	SSOFailureMissingAuthorization
	SSOFailureNetwork
	SSOFailureBootstrap
)

// SSODeps captures SSO flow dependencies.
type SSODeps struct {
	// Logout clears the current session without re-bootstrapping.
	Logout func(context.Context) error
	// GuestLogin bootstraps and commits a guest user.
	GuestLogin func(context.Context) BootstrapResult
	Bearer     func() string

	// CanComplete reports whether an SSO completion may proceed.
	CanComplete func() bool
	// CanAuthenticate reports whether a provider exchange may proceed.
	CanAuthenticate func() bool

	Start         func(context.Context, string) (gateway.StartModel, *gateway.Response, error)
	Complete      func(context.Context, string) (gateway.CompletionModel, *gateway.Response, error)
	Provider      func(context.Context, gateway.Provider, string) (gateway.ProviderModel, *gateway.Response, error)
	ApplyResponse func(context.Context, *gateway.Response)

	// LoggedIn commits an SSO user.
	LoggedIn func(context.Context, availability.User)
	Warn     func(string, ...any)
}

type SSOStartResult struct {
	Failure SSOFailureKind
	Err     error
	Model   gateway.StartModel
}

type SSOCompleteResult struct {
	Failure SSOFailureKind
	Err     error
	Model   gateway.CompletionModel
}

type SSOProviderResult struct {
	Failure SSOFailureKind
	Err     error
	Model   gateway.ProviderModel
}

// RunStartSSO logs out, logs in a fresh guest, then starts SSO with the
// guest bearer token as secret.
func RunStartSSO(ctx context.Context, deps SSODeps) SSOStartResult {
	if err := deps.Logout(ctx); err != nil && deps.Warn != nil {
		deps.Warn("goSession: logout before sso start failed", "error", err)
	}

	if boot := deps.GuestLogin(ctx); boot.Failure != BootstrapFailureNone {
		return SSOStartResult{Failure: SSOFailureBootstrap, Err: boot.Err}
	}

	bearer := deps.Bearer()
	if bearer == "" {
		return SSOStartResult{Failure: SSOFailureMissingAuthorization}
	}

	model, resp, err := deps.Start(ctx, bearer)
	apply(ctx, deps.ApplyResponse, resp)
	if err != nil {
		return SSOStartResult{Failure: SSOFailureNetwork, Err: err}
	}
	return SSOStartResult{Model: model}
}

// RunCompleteSSO exchanges an SSO code for a registered session.
func RunCompleteSSO(ctx context.Context, code string, deps SSODeps) SSOCompleteResult {
	if !deps.CanComplete() {
		return SSOCompleteResult{Failure: SSOFailureAlreadyLoggedIn}
	}
	if deps.Bearer() == "" {
		return SSOCompleteResult{Failure: SSOFailureMissingAuthorization}
	}

	model, resp, err := deps.Complete(ctx, code)
	apply(ctx, deps.ApplyResponse, resp)
	if err != nil {
		return SSOCompleteResult{Failure: SSOFailureNetwork, Err: err}
	}
	if !model.Success {
		return SSOCompleteResult{Failure: SSOFailureNetwork, Err: ErrSSORejected, Model: model}
	}

	deps.LoggedIn(ctx, model.User)
	return SSOCompleteResult{Model: model}
}

// RunSSOAuthenticate exchanges an identity provider token for a
// registered session.
func RunSSOAuthenticate(ctx context.Context, provider gateway.Provider, token string, deps SSODeps) SSOProviderResult {
	if !deps.CanAuthenticate() {
		return SSOProviderResult{Failure: SSOFailureAlreadyLoggedIn}
	}

	model, resp, err := deps.Provider(ctx, provider, token)
	apply(ctx, deps.ApplyResponse, resp)
	if err != nil {
		return SSOProviderResult{Failure: SSOFailureNetwork, Err: err}
	}
	if !model.Success {
		return SSOProviderResult{Failure: SSOFailureNetwork, Err: ErrSSORejected, Model: model}
	}

	deps.LoggedIn(ctx, model.User)
	return SSOProviderResult{Model: model}
}

func apply(ctx context.Context, fn func(context.Context, *gateway.Response), resp *gateway.Response) {
	if resp != nil && fn != nil {
		fn(ctx, resp)
	}
}
