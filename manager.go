package goSession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gate"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/serial"
	"github.com/MrEthical07/goSession/internal/stream"
	"github.com/MrEthical07/goSession/policy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// Manager is the authentication state machine of an embedded comment
// widget. All state transitions run on one serialized queue; reads return
// the most recently committed value from any goroutine.
//
// Methods whose name ends in Locked must only run on the queue.
type Manager struct {
	config   Config
	logger   zerolog.Logger
	clock    clock.Clock
	gateway  gateway.Gateway
	creds    *credential.Store
	users    *availability.Store
	policies *policy.CachedSource
	resolver *policy.Resolver
	gate     gate.Registry
	ui       *uiTrigger
	metrics  *Metrics
	events   *eventDispatcher
	flows    flows.Service

	queue      *serial.Queue
	status     *stream.Subject[Status]
	levels     *stream.Subject[Availability]
	bootstraps singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	tenant atomic.Pointer[string]
	closed atomic.Bool

	// Queue-owned.
	prepared    bool
	stableLevel Level
	raceGen     uint64
	raceCancel  context.CancelFunc
	preRecovery Status
}

// Status returns the current authentication status.
func (m *Manager) Status() Status {
	return m.status.Value()
}

// StatusStream subscribes to status changes. The current status is
// delivered first; consecutive equal statuses are never delivered. Call
// cancel to unsubscribe.
func (m *Manager) StatusStream() (<-chan Status, func()) {
	return m.status.Subscribe()
}

// LevelAvailability returns the current level availability.
func (m *Manager) LevelAvailability() Availability {
	return m.levels.Value()
}

// LevelAvailabilityStream subscribes to level availability. It is Pending
// until a tenant is prepared. While a recovery is in progress it keeps the
// level of the last stable status.
func (m *Manager) LevelAvailabilityStream() (<-chan Availability, func()) {
	return m.levels.Subscribe()
}

// TenantID returns the prepared tenant, or "" before Prepare.
func (m *Manager) TenantID() string {
	if p := m.tenant.Load(); p != nil {
		return *p
	}
	return ""
}

// Credentials returns the current network credentials.
func (m *Manager) Credentials() Credentials {
	return m.creds.Snapshot()
}

// MetricsSnapshot returns a copy of the manager's metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// EventsDropped reports session events dropped because the sink lagged.
func (m *Manager) EventsDropped() uint64 {
	return m.events.Dropped()
}

// Close stops background work and closes every stream. Blocked waiters
// return ErrManagerClosed.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.cancel()
	m.queue.Close()
	m.wg.Wait()
	m.status.Close()
	m.levels.Close()
	m.events.Close()
}

// do runs fn on the queue and waits for it.
func (m *Manager) do(ctx context.Context, fn func()) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := m.queue.Do(ctx, fn); err != nil {
		if errors.Is(err, serial.ErrClosed) {
			return ErrManagerClosed
		}
		return err
	}
	return nil
}

// goLocked starts fn in a tracked goroutine.
func (m *Manager) goLocked(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

func (m *Manager) setTenantLocked(tenantID string) {
	m.tenant.Store(&tenantID)
}

func (m *Manager) setStatusLocked(s Status) {
	prev := m.status.Value()
	if m.status.Publish(s) {
		m.metrics.Inc(MetricStatusTransition)
		m.logger.Debug().
			Str("tenant", m.TenantID()).
			Stringer("from", prev).
			Stringer("to", s).
			Msg("status changed")
		m.emitLocked(SessionEvent{
			EventType: EventStatusChanged,
			UserID:    s.UserID,
			Status:    s.String(),
			Success:   true,
		})
	}

	if s.Stable() {
		m.stableLevel = s.level()
		m.publishLevelLocked()
	}
}

func (m *Manager) publishLevelLocked() {
	if m.prepared {
		m.levels.Publish(policy.Available(m.stableLevel))
	}
}

func (m *Manager) setUserLocked(ctx context.Context, tenantID string, ua availability.UserAvailability) {
	if tenantID == "" {
		return
	}
	if err := m.users.Set(context.WithoutCancel(ctx), tenantID, ua); err != nil {
		m.logger.Error().Err(err).Str("tenant", tenantID).Msg("persist user availability failed")
	}
}

func (m *Manager) stripBearerLocked(ctx context.Context) {
	if err := m.creds.StripBearer(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error().Err(err).Msg("persist credentials failed")
	}
}

// applyResponse folds a gateway response's headers into the credentials.
func (m *Manager) applyResponse(ctx context.Context, resp *gateway.Response) {
	if resp == nil || resp.Header == nil {
		return
	}
	err := m.do(context.WithoutCancel(ctx), func() {
		m.updateNetworkCredentialsLocked(ctx, resp.Header)
	})
	if err != nil {
		m.logger.Debug().Err(err).Msg("response headers not applied")
	}
}

func (m *Manager) emit(event SessionEvent) {
	if m.events == nil {
		return
	}
	m.events.Emit(m.ctx, m.stamp(event))
}

// emitLocked is emit for queue tasks. It never waits for the sink, so a
// slow sink cannot stall state transitions; a full buffer drops the event.
func (m *Manager) emitLocked(event SessionEvent) {
	if m.events == nil {
		return
	}
	m.events.TryEmit(m.stamp(event))
}

func (m *Manager) stamp(event SessionEvent) SessionEvent {
	event.Timestamp = m.clock.Now()
	if event.TenantID == "" {
		event.TenantID = m.TenantID()
	}
	return event
}

func (m *Manager) streamErr(err error) error {
	if errors.Is(err, stream.ErrClosed) {
		return ErrManagerClosed
	}
	return err
}
