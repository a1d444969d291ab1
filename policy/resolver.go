package policy

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrMissingTenant is returned when a policy lookup has no tenant id.
var ErrMissingTenant = errors.New("policy: missing tenant id")

// Source delivers a tenant's policy. TenantPolicy blocks until the first
// policy value is available or ctx ends; it must not invent a default.
type Source interface {
	TenantPolicy(ctx context.Context, tenantID string) (TenantPolicy, error)
}

// Resolver answers required-level queries against a Source.
type Resolver struct {
	source Source
}

// NewResolver returns a Resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{source: src}
}

// RequiredLevel fetches the tenant's policy and resolves action against it.
func (r *Resolver) RequiredLevel(ctx context.Context, tenantID string, action Action) (Level, error) {
	p, err := r.policy(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return Resolve(action, p), nil
}

// RequiredLevels resolves several actions against one policy snapshot.
func (r *Resolver) RequiredLevels(ctx context.Context, tenantID string, actions []Action) (map[Action]Level, error) {
	p, err := r.policy(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[Action]Level, len(actions))
	for _, a := range actions {
		out[a] = Resolve(a, p)
	}
	return out, nil
}

func (r *Resolver) policy(ctx context.Context, tenantID string) (TenantPolicy, error) {
	if tenantID == "" {
		return TenantPolicy{}, ErrMissingTenant
	}
	return r.source.TenantPolicy(ctx, tenantID)
}

// CachedSource keeps the first policy fetched for each tenant and coalesces
// concurrent fetches of the same tenant into one upstream call.
type CachedSource struct {
	upstream Source
	group    singleflight.Group

	mu       sync.RWMutex
	policies map[string]TenantPolicy
}

// NewCachedSource wraps upstream.
func NewCachedSource(upstream Source) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		policies: make(map[string]TenantPolicy),
	}
}

func (c *CachedSource) TenantPolicy(ctx context.Context, tenantID string) (TenantPolicy, error) {
	c.mu.RLock()
	p, ok := c.policies[tenantID]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	// The fetch is shared, so it must outlive whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(tenantID, func() (any, error) {
		p, err := c.upstream.TenantPolicy(fetchCtx, tenantID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.policies[tenantID] = p
		c.mu.Unlock()
		return p, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return TenantPolicy{}, res.Err
		}
		return res.Val.(TenantPolicy), nil
	case <-ctx.Done():
		return TenantPolicy{}, ctx.Err()
	}
}

// Invalidate drops the cached policy for tenantID.
func (c *CachedSource) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.policies, tenantID)
	c.mu.Unlock()
	c.group.Forget(tenantID)
}

// StaticSource is an in-memory Source. Lookups for a tenant that has not
// been Set block until it is, which models a config service that has not
// loaded yet.
type StaticSource struct {
	mu       sync.Mutex
	policies map[string]TenantPolicy
	changed  chan struct{}
}

// NewStaticSource returns a source seeded with policies.
func NewStaticSource(policies map[string]TenantPolicy) *StaticSource {
	s := &StaticSource{
		policies: make(map[string]TenantPolicy, len(policies)),
		changed:  make(chan struct{}),
	}
	for k, v := range policies {
		s.policies[k] = v
	}
	return s
}

// Set publishes the policy for tenantID and releases waiting lookups.
func (s *StaticSource) Set(tenantID string, p TenantPolicy) {
	s.mu.Lock()
	s.policies[tenantID] = p
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *StaticSource) TenantPolicy(ctx context.Context, tenantID string) (TenantPolicy, error) {
	for {
		s.mu.Lock()
		p, ok := s.policies[tenantID]
		changed := s.changed
		s.mu.Unlock()
		if ok {
			return p, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return TenantPolicy{}, ctx.Err()
		}
	}
}
