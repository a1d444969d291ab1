package goSession

import "context"

// Prepare activates tenantID. Persisted credentials and user availability
// are reloaded and the status implied by the tenant's stored user is set.
// When no user is stored a guest is bootstrapped before Prepare returns.
// Preparing the tenant that is already recovering leaves the recovery
// alone.
func (m *Manager) Prepare(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantID
	}

	var needsUser bool
	err := m.do(ctx, func() {
		persistCtx := context.WithoutCancel(ctx)
		if err := m.creds.Load(persistCtx); err != nil {
			m.logger.Error().Err(err).Msg("load credentials failed")
		}
		if err := m.users.Load(persistCtx); err != nil {
			m.logger.Error().Err(err).Msg("load user availability failed")
		}

		sameTenant := m.TenantID() == tenantID
		if !sameTenant {
			m.cancelRaceLocked()
		}
		m.setTenantLocked(tenantID)
		m.prepared = true

		ua := m.users.Get(tenantID)
		_, needsUser = ua.Get()
		needsUser = !needsUser

		if sameTenant && m.status.Value().Kind == StatusSSORecovering {
			m.publishLevelLocked()
		} else {
			m.setStatusLocked(statusForAvailability(ua))
		}
		m.metrics.Inc(MetricTenantPrepared)
		m.logger.Info().Str("tenant", tenantID).Bool("cached_user", !needsUser).Msg("tenant prepared")
	})
	if err != nil || !needsUser {
		return err
	}
	return m.bootstrapAndAuthenticate(ctx, tenantID)
}

// Change switches to tenantID. Any recovery is abandoned, the tenant's
// stored user is wiped and the bearer token stripped; the device guid
// survives. A new user is then bootstrapped unconditionally.
func (m *Manager) Change(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantID
	}

	var previous string
	err := m.do(ctx, func() {
		persistCtx := context.WithoutCancel(ctx)
		previous = m.TenantID()

		m.cancelRaceLocked()
		m.setTenantLocked(tenantID)
		m.prepared = true

		if err := m.users.Wipe(persistCtx, tenantID); err != nil {
			m.logger.Error().Err(err).Str("tenant", tenantID).Msg("wipe user availability failed")
		}
		m.stripBearerLocked(ctx)
		m.setStatusLocked(NotAuthenticated())
	})
	if err != nil {
		return err
	}

	m.policies.Invalidate(tenantID)
	m.metrics.Inc(MetricTenantChanged)
	m.logger.Info().Str("from", previous).Str("to", tenantID).Msg("tenant changed")
	m.emit(SessionEvent{
		EventType: EventTenantChanged,
		TenantID:  tenantID,
		Success:   true,
		Metadata:  map[string]string{"previous": previous},
	})

	return m.bootstrapAndAuthenticate(ctx, tenantID)
}
