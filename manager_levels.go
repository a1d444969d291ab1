package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/gate"
	"github.com/MrEthical07/goSession/internal/stream"
)

// RequiredLevel returns the minimum level the prepared tenant's policy
// demands for action. It waits for the tenant policy to become available
// and never falls back to a default.
func (m *Manager) RequiredLevel(ctx context.Context, action Action) (Level, error) {
	tenantID := m.TenantID()
	if tenantID == "" {
		return LevelAnonymous, ErrMissingTenantID
	}
	return m.resolver.RequiredLevel(ctx, tenantID, action)
}

// HasLevel reports whether the current level satisfies action. A Pending
// level never does.
func (m *Manager) HasLevel(ctx context.Context, action Action) (bool, error) {
	required, err := m.RequiredLevel(ctx, action)
	if err != nil {
		return false, err
	}
	return m.levels.Value().Satisfies(required), nil
}

// HasLevels is HasLevel for several actions against one policy snapshot.
func (m *Manager) HasLevels(ctx context.Context, actions []Action) (map[Action]bool, error) {
	tenantID := m.TenantID()
	if tenantID == "" {
		return nil, ErrMissingTenantID
	}
	required, err := m.resolver.RequiredLevels(ctx, tenantID, actions)
	if err != nil {
		return nil, err
	}

	current := m.levels.Value()
	out := make(map[Action]bool, len(required))
	for action, level := range required {
		out[action] = current.Satisfies(level)
	}
	return out, nil
}

// WaitForAuthentication blocks until the current level satisfies action.
// With waitForBlockers it then also waits until no authentication or
// renew-authentication blocker is outstanding.
func (m *Manager) WaitForAuthentication(ctx context.Context, action Action, waitForBlockers bool) error {
	start := m.clock.Now()
	defer func() {
		m.metrics.Observe(MetricWaitLatency, m.clock.Since(start))
	}()

	required, err := m.RequiredLevel(ctx, action)
	if err != nil {
		return err
	}

	_, err = stream.First(ctx, m.levels, func(a Availability) bool {
		return a.Satisfies(required)
	})
	if err != nil {
		return m.streamErr(err)
	}

	if !waitForBlockers {
		return nil
	}
	return m.gate.WaitForNonBlocker(ctx, gate.KindAuthentication, gate.KindRenewAuthentication)
}

// WaitForAuthenticationDefault is WaitForAuthentication with the
// configured blocker behaviour (Session.WaitForBlockersByDefault).
func (m *Manager) WaitForAuthenticationDefault(ctx context.Context, action Action) error {
	return m.WaitForAuthentication(ctx, action, m.config.Session.WaitForBlockersByDefault)
}

// IfNeededTriggerAuthenticationUI presents the login flow when the current
// level does not satisfy action. It reports whether the flow was shown.
// The flow's blocker stays registered until the presenter calls done.
func (m *Manager) IfNeededTriggerAuthenticationUI(ctx context.Context, action Action) (bool, error) {
	ok, err := m.HasLevel(ctx, action)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	mode := loginModeFor(action)
	if err := m.ui.showLogin(mode); err != nil {
		return false, err
	}

	m.metrics.Inc(MetricLoginUIShown)
	m.emit(SessionEvent{
		EventType: EventLoginUIShown,
		Success:   true,
		Metadata:  map[string]string{"action": action.String(), "mode": mode.String()},
	})
	return true, nil
}
