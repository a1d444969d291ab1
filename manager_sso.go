package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/flows"
)

// Logout ends the session on the server. On success the bearer token is
// stripped and the tenant's user cleared; the status drops to
// NotAuthenticated unless a recovery owns it. With
// Session.ReBootstrapAfterLogout a fresh guest is bootstrapped afterwards
// and its failure is returned.
func (m *Manager) Logout(ctx context.Context) error {
	tenantID := m.TenantID()

	res := m.flows.Logout(ctx, false)
	if res.Err != nil {
		m.metrics.Inc(MetricLogoutFailure)
		m.logger.Warn().Err(res.Err).Str("tenant", tenantID).Msg("logout failed")
		return fmt.Errorf("%w: %w", ErrNetworkFailure, res.Err)
	}
	m.metrics.Inc(MetricLogout)
	m.emit(SessionEvent{EventType: EventLogout, TenantID: tenantID, Success: true})

	if !m.config.Session.ReBootstrapAfterLogout || tenantID == "" {
		return nil
	}
	return m.bootstrapAndAuthenticate(ctx, tenantID)
}

// clearSession is the local half of a logout.
func (m *Manager) clearSession(ctx context.Context) {
	err := m.do(context.WithoutCancel(ctx), func() {
		m.stripBearerLocked(ctx)
		m.setUserLocked(ctx, m.TenantID(), availability.NoUser())
		if m.status.Value().Kind != StatusSSORecovering {
			m.setStatusLocked(NotAuthenticated())
		}
	})
	if err != nil {
		m.logger.Debug().Err(err).Msg("clear session skipped")
	}
}

// StartSSO logs out any current user, logs in a fresh guest and starts SSO
// with the guest's bearer token. It fails with ErrMissingAuthorization
// when no bearer token is held after the guest login.
func (m *Manager) StartSSO(ctx context.Context) (gateway.StartModel, error) {
	if m.TenantID() == "" {
		return gateway.StartModel{}, ErrMissingTenantID
	}
	m.metrics.Inc(MetricSSOStart)

	res := m.flows.StartSSO(ctx)
	if res.Failure != flows.SSOFailureNone {
		return gateway.StartModel{}, m.ssoFailed("start", res.Failure, res.Err)
	}
	return res.Model, nil
}

// CompleteSSO exchanges an SSO code for a registered session. It fails
// with ErrAlreadyLoggedIn while an SSO user is logged in and with
// ErrMissingAuthorization when no guest session exists.
func (m *Manager) CompleteSSO(ctx context.Context, code string) (gateway.CompletionModel, error) {
	if m.TenantID() == "" {
		return gateway.CompletionModel{}, ErrMissingTenantID
	}

	res := m.flows.CompleteSSO(ctx, code)
	if res.Failure != flows.SSOFailureNone {
		return res.Model, m.ssoFailed("complete", res.Failure, res.Err)
	}
	m.metrics.Inc(MetricSSOComplete)
	return res.Model, nil
}

// SSOAuthenticate exchanges an identity provider token for a registered
// session. It is only allowed from Guest or NotAuthenticated.
func (m *Manager) SSOAuthenticate(ctx context.Context, provider Provider, token string) (gateway.ProviderModel, error) {
	if m.TenantID() == "" {
		return gateway.ProviderModel{}, ErrMissingTenantID
	}

	res := m.flows.SSOAuthenticate(ctx, provider, token)
	if res.Failure != flows.SSOFailureNone {
		return res.Model, m.ssoFailed("provider", res.Failure, res.Err)
	}
	m.metrics.Inc(MetricSSOProviderAuth)
	return res.Model, nil
}

// ssoLoggedIn commits an SSO user for the active tenant.
func (m *Manager) ssoLoggedIn(ctx context.Context, u availability.User) {
	u.Registered = true
	err := m.do(context.WithoutCancel(ctx), func() {
		m.setUserLocked(ctx, m.TenantID(), availability.Available(u))
		m.setStatusLocked(SSOLoggedIn(u.ID))
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("user", u.ID).Msg("sso login not committed")
		return
	}
	m.emit(SessionEvent{EventType: EventSSOCompleted, UserID: u.ID, Success: true})
}

// guestLogin bootstraps a guest for StartSSO.
func (m *Manager) guestLogin(ctx context.Context) flows.BootstrapResult {
	tenantID := m.TenantID()
	res := m.bootstrap(ctx, tenantID)
	if res.Failure != flows.BootstrapFailureNone {
		_ = m.bootstrapFailed(tenantID, res)
		return res
	}
	if err := m.finishRecovery(ctx, tenantID, NewAuthentication(res.User)); err != nil {
		return flows.BootstrapResult{Failure: flows.BootstrapFailureCanceled, Err: err}
	}
	return res
}

func (m *Manager) ssoFailed(step string, kind flows.SSOFailureKind, err error) error {
	m.metrics.Inc(MetricSSOFailure)

	var out error
	switch kind {
	case flows.SSOFailureAlreadyLoggedIn:
		out = ErrAlreadyLoggedIn
	case flows.SSOFailureMissingAuthorization:
		out = ErrMissingAuthorization
	case flows.SSOFailureBootstrap:
		out = fmt.Errorf("%w: %w", ErrBootstrapExhausted, err)
	default:
		out = fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	m.logger.Warn().Err(out).Str("step", step).Str("tenant", m.TenantID()).Msg("sso failed")
	return out
}
