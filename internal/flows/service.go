package flows

import (
	"context"

	"github.com/MrEthical07/goSession/gateway"
)

// Service is the centralized flow runner built once by the root Manager.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Bootstrap.Login != nil
}

func (s Service) Bootstrap(ctx context.Context) BootstrapResult {
	return RunBootstrap(ctx, s.deps.Bootstrap)
}

func (s Service) RecoveryRace(ctx context.Context, originalUserID string) RecoveryOutcome {
	return RunRecoveryRace(ctx, originalUserID, s.deps.Recovery)
}

func (s Service) Logout(ctx context.Context, force bool) LogoutResult {
	return RunLogout(ctx, force, s.deps.Logout)
}

func (s Service) StartSSO(ctx context.Context) SSOStartResult {
	return RunStartSSO(ctx, s.deps.SSO)
}

func (s Service) CompleteSSO(ctx context.Context, code string) SSOCompleteResult {
	return RunCompleteSSO(ctx, code, s.deps.SSO)
}

func (s Service) SSOAuthenticate(ctx context.Context, provider gateway.Provider, token string) SSOProviderResult {
	return RunSSOAuthenticate(ctx, provider, token, s.deps.SSO)
}
