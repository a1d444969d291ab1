package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gate"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/serial"
	"github.com/MrEthical07/goSession/internal/stream"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/policy"
	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

// Builder assembles a Manager. Configure it during initialization and
// call Build once.
type Builder struct {
	config Config

	gateway      gateway.Gateway
	policySource policy.Source
	presenter    Presenter
	dispatcher   UIDispatcher
	gate         gate.Registry

	credentialStore   kv.Store[string, Credentials]
	availabilityStore kv.Store[string, map[string]availability.UserAvailability]

	eventSink EventSink
	logger    *zerolog.Logger
	clock     clock.Clock

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithGateway sets the session API client. Required.
func (b *Builder) WithGateway(gw gateway.Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithPolicySource sets where tenant policies come from. Required.
// Lookups are cached per tenant and dropped on Change.
func (b *Builder) WithPolicySource(src policy.Source) *Builder {
	b.policySource = src
	return b
}

// WithPresenter installs the host UI. Without one, UI triggers fail with
// ErrWiring.
func (b *Builder) WithPresenter(p Presenter) *Builder {
	b.presenter = p
	return b
}

// WithUIDispatcher sets where presenter calls run. Defaults to
// InlineDispatcher.
func (b *Builder) WithUIDispatcher(d UIDispatcher) *Builder {
	b.dispatcher = d
	return b
}

// WithGate shares a blocker registry with other components.
func (b *Builder) WithGate(g gate.Registry) *Builder {
	b.gate = g
	return b
}

// WithCredentialStore sets credential persistence. Defaults to memory.
func (b *Builder) WithCredentialStore(s kv.Store[string, Credentials]) *Builder {
	b.credentialStore = s
	return b
}

// WithAvailabilityStore sets user availability persistence. Defaults to
// memory.
func (b *Builder) WithAvailabilityStore(s kv.Store[string, map[string]availability.UserAvailability]) *Builder {
	b.availabilityStore = s
	return b
}

// WithEventSink receives session events when Events.Enabled is set.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithClock replaces the clock driving retry delays and the recovery
// timeout.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, loads persisted credentials and user
// availability and returns a running Manager. The status starts at
// NotAuthenticated and level availability at Pending until Prepare.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.gateway == nil {
		return nil, fmt.Errorf("%w: gateway required", ErrWiring)
	}
	if b.policySource == nil {
		return nil, fmt.Errorf("%w: policy source required", ErrWiring)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	if b.logger != nil {
		logger = *b.logger
	}

	clk := b.clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	dispatcher := b.dispatcher
	if dispatcher == nil {
		dispatcher = InlineDispatcher{}
	}
	g := b.gate
	if g == nil {
		g = gate.New()
	}

	creds := credential.NewStore(b.credentialStore)
	users := availability.NewStore(b.availabilityStore)
	if err := creds.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if err := users.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load user availability: %w", err)
	}

	metrics := NewMetrics(cfg.Metrics)
	policies := policy.NewCachedSource(b.policySource)

	m := &Manager{
		config:   cfg,
		logger:   logger,
		clock:    clk,
		gateway:  b.gateway,
		creds:    creds,
		users:    users,
		policies: policies,
		resolver: policy.NewResolver(policies),
		gate:     g,
		metrics:  metrics,
		events:   newEventDispatcher(cfg.Events, b.eventSink, logger),
		status:   stream.NewSubject(NotAuthenticated()),
		levels:   stream.NewSubject(policy.Pending()),
	}
	m.ui = &uiTrigger{
		presenter:  b.presenter,
		dispatcher: dispatcher,
		gate:       g,
		logger:     logger,
		metrics:    metrics,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.queue = serial.New(func(v any) {
		logger.Error().Interface("panic", v).Msg("session task panicked")
	})
	m.flows = flows.New(m.flowDeps())

	b.built = true
	return m, nil
}

func (m *Manager) flowDeps() flows.Deps {
	gw := m.gateway
	bearer := func() string { return m.creds.Snapshot().BearerToken }

	return flows.Deps{
		Bootstrap: flows.BootstrapDeps{
			Clock:       m.clock,
			MaxAttempts: m.config.Bootstrap.MaxAttempts,
			Delay:       m.config.Bootstrap.Delay,
			HasBearer:   func() bool { return bearer() != "" },
			Login: func(ctx context.Context) (availability.User, *gateway.Response, error) {
				m.metrics.Inc(MetricBootstrapAttempt)
				return gw.Login(ctx)
			},
			FetchUser: func(ctx context.Context) (availability.User, *gateway.Response, error) {
				m.metrics.Inc(MetricBootstrapAttempt)
				return gw.FetchUser(ctx)
			},
			ApplyResponse: m.applyResponse,
			OnAttemptFailed: func(attempt int, err error) {
				m.metrics.Inc(MetricBootstrapFailure)
				m.logger.Warn().Err(err).Int("attempt", attempt).Str("tenant", m.TenantID()).Msg("user bootstrap attempt failed")
			},
		},
		Recovery: flows.RecoveryDeps{
			Clock:   m.clock,
			Timeout: m.config.Recovery.Timeout,
			WaitForLoggedIn: func(ctx context.Context) (string, error) {
				s, err := stream.First(ctx, m.status, func(s Status) bool {
					return s.Kind == StatusSSOLoggedIn
				})
				return s.UserID, err
			},
		},
		Logout: flows.LogoutDeps{
			Logout:        gw.Logout,
			ApplyResponse: m.applyResponse,
			Commit:        m.clearSession,
		},
		SSO: flows.SSODeps{
			Logout: func(ctx context.Context) error {
				return m.flows.Logout(ctx, true).Err
			},
			GuestLogin: m.guestLogin,
			Bearer:     bearer,
			CanComplete: func() bool {
				return m.Status().Kind != StatusSSOLoggedIn
			},
			CanAuthenticate: func() bool {
				k := m.Status().Kind
				return k == StatusGuest || k == StatusNotAuthenticated
			},
			Start:         gw.SSOStart,
			Complete:      gw.SSOComplete,
			Provider:      gw.SSOAuthenticate,
			ApplyResponse: m.applyResponse,
			LoggedIn:      m.ssoLoggedIn,
			Warn: func(msg string, fields ...any) {
				m.logger.Warn().Fields(fields).Msg(msg)
			},
		},
	}
}
