package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/internal/flows"
)

// EnterAuthenticationRecoveryState reacts to the server rejecting the
// session. The bearer token is stripped before it returns. An SSO user
// moves to SSORecovering and a recovery race starts; any other status
// drops to NotAuthenticated with the tenant's user cleared. A fresh user
// is then bootstrapped in the background. Calls made while a recovery is
// already running only strip the bearer.
func (m *Manager) EnterAuthenticationRecoveryState(ctx context.Context) error {
	return m.do(ctx, func() {
		m.stripBearerLocked(ctx)

		tenantID := m.TenantID()
		cur := m.status.Value()
		switch cur.Kind {
		case StatusSSORecovering:
			return
		case StatusSSOLoggedIn:
			m.preRecovery = cur
			m.setStatusLocked(SSORecovering(cur.UserID))
			m.startRaceLocked(cur.UserID)
			m.logger.Info().Str("tenant", tenantID).Str("user", cur.UserID).Msg("sso recovery started")
			if tenantID != "" {
				race := m.raceGen
				m.goLocked(func() { m.recoverSession(tenantID, race) })
			}
		default:
			m.setUserLocked(ctx, tenantID, availability.NoUser())
			m.setStatusLocked(NotAuthenticated())
			if tenantID != "" {
				m.goLocked(func() { m.recoverSession(tenantID, 0) })
			}
		}
	})
}

// FinishAuthenticationRecovery applies the outcome of a user bootstrap.
// NewAuthentication records the user and sets the status it implies,
// except while a recovery owns the status. RenewShouldHappen asks the
// presenter to renew the recovering user's SSO session under a
// renew-authentication blocker.
func (m *Manager) FinishAuthenticationRecovery(ctx context.Context, result RecoveryResult) error {
	tenantID := m.TenantID()
	if tenantID == "" {
		return ErrMissingTenantID
	}
	return m.finishRecovery(ctx, tenantID, result)
}

func (m *Manager) finishRecovery(ctx context.Context, tenantID string, result RecoveryResult) error {
	var (
		renew       bool
		renewUserID string
	)
	err := m.do(ctx, func() {
		if tenantID != m.TenantID() {
			m.logger.Debug().Str("tenant", tenantID).Msg("dropping recovery result for inactive tenant")
			return
		}
		cur := m.status.Value()

		switch result.kind {
		case recoveryNewAuthentication:
			m.setUserLocked(ctx, tenantID, availability.Available(result.User))
			if cur.Kind == StatusSSORecovering {
				return
			}
			m.setStatusLocked(statusForUser(result.User))
		case recoveryRenewShouldHappen:
			if result.race != 0 && (result.race != m.raceGen || cur.Kind != StatusSSORecovering) {
				m.logger.Debug().Str("tenant", tenantID).Msg("dropping renew for a finished recovery")
				return
			}
			renew = true
			renewUserID = result.User.ID
			if cur.Kind == StatusSSORecovering {
				renewUserID = cur.UserID
			}
		}
	})
	if err != nil || !renew {
		return err
	}

	if err := m.ui.renewSSO(renewUserID); err != nil {
		return err
	}
	m.metrics.Inc(MetricRenewTriggered)
	m.emit(SessionEvent{EventType: EventRenewTriggered, UserID: renewUserID, Success: true})
	return nil
}

// recoverSession bootstraps a user after a session was rejected. A
// non-zero race asks for an SSO renew bound to that recovery race.
func (m *Manager) recoverSession(tenantID string, race uint64) {
	res := m.bootstrap(m.ctx, tenantID)
	if res.Failure != flows.BootstrapFailureNone {
		m.bootstrapFailed(tenantID, res)
		return
	}

	result := NewAuthentication(res.User)
	if race != 0 {
		result = RenewShouldHappen(res.User)
		result.race = race
	}
	if err := m.finishRecovery(m.ctx, tenantID, result); err != nil {
		m.logger.Warn().Err(err).Str("tenant", tenantID).Msg("finish recovery failed")
	}
}

func (m *Manager) startRaceLocked(originalUserID string) {
	m.cancelRaceLocked()
	m.raceGen++
	gen := m.raceGen

	ctx, cancel := context.WithCancel(m.ctx)
	m.raceCancel = cancel
	m.metrics.Inc(MetricRecoveryStarted)
	m.emitLocked(SessionEvent{EventType: EventRecoveryStarted, UserID: originalUserID, Success: true})

	m.goLocked(func() {
		out := m.flows.RecoveryRace(ctx, originalUserID)
		if out.Kind == flows.RecoveryOutcomeCanceled {
			return
		}
		m.queue.Submit(func() { m.applyRecoveryLocked(gen, out) })
	})
}

// cancelRaceLocked stops a running race. Its outcome, if already queued,
// is discarded by the generation check.
func (m *Manager) cancelRaceLocked() {
	if m.raceCancel != nil {
		m.raceCancel()
		m.raceCancel = nil
	}
	m.raceGen++
}

func (m *Manager) applyRecoveryLocked(gen uint64, out flows.RecoveryOutcome) {
	if gen != m.raceGen || m.raceCancel == nil {
		return
	}
	m.raceCancel()
	m.raceCancel = nil

	orig := out.OriginalUserID
	kind, userID := out.Kind, out.UserID

	// A login that landed while the timer fired still wins.
	if cur := m.status.Value(); kind == flows.RecoveryOutcomeTimedOut && cur.Kind == StatusSSOLoggedIn {
		userID = cur.UserID
		kind = flows.RecoveryOutcomeReplaced
		if userID == orig {
			kind = flows.RecoveryOutcomeRecovered
		}
	}

	switch kind {
	case flows.RecoveryOutcomeRecovered:
		m.metrics.Inc(MetricRecoverySucceeded)
		m.setStatusLocked(SSORecoveredSuccessfully(orig))
		m.setStatusLocked(SSOLoggedIn(orig))
	case flows.RecoveryOutcomeReplaced:
		m.metrics.Inc(MetricRecoveryReplaced)
		m.setStatusLocked(SSOFailedRecover(orig))
		m.setStatusLocked(SSOLoggedIn(userID))
	case flows.RecoveryOutcomeTimedOut:
		m.metrics.Inc(MetricRecoveryTimedOut)
		m.setStatusLocked(SSOFailedRecover(orig))
		m.setStatusLocked(m.preRecovery)
		if m.config.Recovery.TimeoutFallback == FallbackGuestBootstrap {
			tenantID := m.TenantID()
			m.goLocked(func() {
				if err := m.bootstrapAndAuthenticate(m.ctx, tenantID); err != nil {
					m.logger.Warn().Err(err).Str("tenant", tenantID).Msg("guest bootstrap after recovery timeout failed")
				}
			})
		}
	}

	m.logger.Info().
		Str("tenant", m.TenantID()).
		Str("user", orig).
		Stringer("outcome", kind).
		Msg("sso recovery resolved")
	m.emitLocked(SessionEvent{
		EventType: EventRecoveryResolved,
		UserID:    orig,
		Status:    m.status.Value().String(),
		Success:   kind == flows.RecoveryOutcomeRecovered,
		Metadata:  map[string]string{"outcome": kind.String()},
	})
}

// bootstrap runs one coalesced bootstrap per tenant. The shared call is
// bound to the manager's lifetime so one caller's cancellation does not
// fail the others.
func (m *Manager) bootstrap(ctx context.Context, tenantID string) flows.BootstrapResult {
	ch := m.bootstraps.DoChan(tenantID, func() (any, error) {
		return m.flows.Bootstrap(m.ctx), nil
	})

	select {
	case r := <-ch:
		return r.Val.(flows.BootstrapResult)
	case <-ctx.Done():
		return flows.BootstrapResult{Failure: flows.BootstrapFailureCanceled, Err: ctx.Err()}
	}
}

// bootstrapAndAuthenticate bootstraps a user and commits it with
// NewAuthentication.
func (m *Manager) bootstrapAndAuthenticate(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantID
	}
	res := m.bootstrap(ctx, tenantID)
	if res.Failure != flows.BootstrapFailureNone {
		return m.bootstrapFailed(tenantID, res)
	}
	return m.finishRecovery(ctx, tenantID, NewAuthentication(res.User))
}

func (m *Manager) bootstrapFailed(tenantID string, res flows.BootstrapResult) error {
	if res.Failure == flows.BootstrapFailureCanceled {
		return res.Err
	}

	m.metrics.Inc(MetricBootstrapExhausted)
	m.logger.Error().
		Err(res.Err).
		Str("tenant", tenantID).
		Int("attempts", res.Attempts).
		Msg("user bootstrap exhausted")
	m.emit(SessionEvent{
		EventType: EventBootstrapFailed,
		TenantID:  tenantID,
		Error:     res.Err.Error(),
	})
	return fmt.Errorf("%w: %w", ErrBootstrapExhausted, res.Err)
}
