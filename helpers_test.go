package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/stream"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/policy"
	"github.com/rs/zerolog"
	testingclock "k8s.io/utils/clock/testing"
)

var errFakeNetwork = errors.New("fake network failure")

// fakeGateway issues sequential guest users and records every call.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []string
	nextID    int
	lastUser  User
	loginErrs []error
	logoutErr error
	ssoUser   User
	ssoOK     bool
	block     chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{ssoOK: true, ssoUser: User{ID: "sso-1"}}
}

func bearerResponse(token string) *gateway.Response {
	h := http.Header{}
	h.Set("Authorization", token)
	return &gateway.Response{StatusCode: http.StatusOK, Header: h}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) ResetCalls() {
	g.mu.Lock()
	g.calls = nil
	g.mu.Unlock()
}

func (g *fakeGateway) Login(ctx context.Context) (User, *gateway.Response, error) {
	g.record("login")
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.loginErrs) > 0 {
		err := g.loginErrs[0]
		g.loginErrs = g.loginErrs[1:]
		if err != nil {
			return User{}, nil, err
		}
	}
	g.nextID++
	g.lastUser = User{ID: fmt.Sprintf("guest-%d", g.nextID)}
	return g.lastUser, bearerResponse("tok-" + g.lastUser.ID), nil
}

func (g *fakeGateway) Logout(ctx context.Context) (*gateway.Response, error) {
	g.record("logout")
	g.mu.Lock()
	block := g.block
	err := g.logoutErr
	g.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &gateway.Response{StatusCode: http.StatusOK, Header: http.Header{}}, nil
}

func (g *fakeGateway) SSOStart(ctx context.Context, secret string) (gateway.StartModel, *gateway.Response, error) {
	g.record("sso_start:" + secret)
	return gateway.StartModel{CodeA: "code-a"}, nil, nil
}

func (g *fakeGateway) SSOComplete(ctx context.Context, code string) (gateway.CompletionModel, *gateway.Response, error) {
	g.record("sso_complete:" + code)
	g.mu.Lock()
	defer g.mu.Unlock()
	return gateway.CompletionModel{Success: g.ssoOK, User: g.ssoUser}, bearerResponse("tok-" + g.ssoUser.ID), nil
}

func (g *fakeGateway) SSOAuthenticate(ctx context.Context, provider gateway.Provider, token string) (gateway.ProviderModel, *gateway.Response, error) {
	g.record("sso_provider:" + string(provider))
	g.mu.Lock()
	defer g.mu.Unlock()
	return gateway.ProviderModel{Success: g.ssoOK, User: g.ssoUser}, bearerResponse("tok-" + g.ssoUser.ID), nil
}

func (g *fakeGateway) FetchUser(ctx context.Context) (User, *gateway.Response, error) {
	g.record("fetch_user")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastUser.ID == "" {
		return User{}, nil, errFakeNetwork
	}
	return g.lastUser, nil, nil
}

type presented struct {
	login  bool
	mode   LoginMode
	userID string
	done   func()
}

type fakePresenter struct {
	calls chan presented
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{calls: make(chan presented, 16)}
}

func (p *fakePresenter) TriggerLoginFlow(mode LoginMode, done func()) {
	p.calls <- presented{login: true, mode: mode, done: done}
}

func (p *fakePresenter) TriggerRenewSSO(userID string, done func()) {
	p.calls <- presented{userID: userID, done: done}
}

func (p *fakePresenter) next(t *testing.T) presented {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("presenter was not called")
		return presented{}
	}
}

// countingKV counts persisted writes.
type countingKV[V any] struct {
	kv.Store[string, V]
	sets atomic.Int64
}

func newCountingKV[V any]() *countingKV[V] {
	return &countingKV[V]{Store: kv.NewMemory[string, V]()}
}

func (c *countingKV[V]) Set(ctx context.Context, key string, v V) error {
	c.sets.Add(1)
	return c.Store.Set(ctx, key, v)
}

type testEnv struct {
	m         *Manager
	gw        *fakeGateway
	presenter *fakePresenter
	clock     *testingclock.FakeClock
	policies  *policy.StaticSource
	creds     *countingKV[Credentials]
	users     kv.Store[string, map[string]availability.UserAvailability]
}

type envOption func(*testEnv, *Builder)

func withConfig(mutate func(*Config)) envOption {
	return func(_ *testEnv, b *Builder) {
		cfg := DefaultConfig()
		mutate(&cfg)
		b.WithConfig(cfg)
	}
}

func withCachedUser(tenantID string, u User) envOption {
	return func(env *testEnv, _ *Builder) {
		_ = env.users.Set(context.Background(), availability.StorageKey, map[string]availability.UserAvailability{
			tenantID: availability.Available(u),
		})
	}
}

func withBearer(token string) envOption {
	return func(env *testEnv, _ *Builder) {
		_ = env.creds.Store.Set(context.Background(), credential.StorageKey, Credentials{
			DeviceGUID:  "device-1",
			BearerToken: token,
		})
	}
}

func withoutPresenter() envOption {
	return func(_ *testEnv, b *Builder) {
		b.WithPresenter(nil)
	}
}

func withEventSink(sink EventSink) envOption {
	return func(_ *testEnv, b *Builder) {
		cfg := b.config
		cfg.Events.Enabled = true
		b.WithConfig(cfg)
		b.WithEventSink(sink)
	}
}

func newTestEnv(t testing.TB, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		gw:        newFakeGateway(),
		presenter: newFakePresenter(),
		clock:     testingclock.NewFakeClock(time.Unix(1_700_000_000, 0)),
		policies: policy.NewStaticSource(map[string]TenantPolicy{
			"A": policy.DefaultTenantPolicy(),
			"B": {AllowGuestVoting: true},
		}),
		creds: newCountingKV[Credentials](),
		users: kv.NewMemory[string, map[string]availability.UserAvailability](),
	}

	b := New().
		WithGateway(env.gw).
		WithPolicySource(env.policies).
		WithPresenter(env.presenter).
		WithCredentialStore(env.creds).
		WithAvailabilityStore(env.users).
		WithClock(env.clock).
		WithLogger(zerolog.Nop())
	for _, opt := range opts {
		opt(env, b)
	}

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	env.m = m
	return env
}

func (env *testEnv) prepare(t *testing.T, tenantID string) {
	t.Helper()
	if err := env.m.Prepare(context.Background(), tenantID); err != nil {
		t.Fatalf("Prepare(%s) failed: %v", tenantID, err)
	}
}

func waitForStatus(t *testing.T, m *Manager, want Status) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := stream.First(ctx, m.status, func(s Status) bool { return s == want }); err != nil {
		t.Fatalf("status %v not reached (current %v): %v", want, m.Status(), err)
	}
}

func waitForWaiters(t *testing.T, fc *testingclock.FakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !fc.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for clock waiters")
		}
		time.Sleep(time.Millisecond)
	}
}

// collect reads statuses from ch until want have arrived.
func collect(t *testing.T, ch <-chan Status, want int) []Status {
	t.Helper()
	out := make([]Status, 0, want)
	timeout := time.After(2 * time.Second)
	for len(out) < want {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed after %v", out)
			}
			out = append(out, s)
		case <-timeout:
			t.Fatalf("expected %d statuses, got %v", want, out)
		}
	}
	return out
}

func expectQuiet(t *testing.T, ch <-chan Status) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected status %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}
