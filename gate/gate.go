// Package gate tracks outstanding UI-blocking operations.
//
// A blocker is registered with Add before a blocking operation starts
// (presenting a login screen, renewing an SSO session) and completed when
// it ends. Callers that must not proceed while such an operation is in
// flight wait with WaitForNonBlocker.
package gate

import (
	"context"
	"sync"
)

// Kind classifies a blocker.
type Kind string

const (
	KindAuthentication      Kind = "authentication"
	KindRenewAuthentication Kind = "renew-authentication"
)

// Handle completes a registered blocker. Complete is idempotent.
type Handle interface {
	Complete()
}

// Registry is the contract the session manager consumes.
type Registry interface {
	Add(kind Kind) Handle
	WaitForNonBlocker(ctx context.Context, kinds ...Kind) error
}

// Gate is the in-process Registry.
type Gate struct {
	mu          sync.Mutex
	outstanding map[Kind]int
	changed     chan struct{}
}

// New returns an empty gate.
func New() *Gate {
	return &Gate{
		outstanding: make(map[Kind]int),
		changed:     make(chan struct{}),
	}
}

// Add registers a blocker of the given kind.
func (g *Gate) Add(kind Kind) Handle {
	g.mu.Lock()
	g.outstanding[kind]++
	g.mu.Unlock()
	return &blocker{gate: g, kind: kind}
}

// Outstanding reports the number of open blockers of kind.
func (g *Gate) Outstanding(kind Kind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outstanding[kind]
}

// WaitForNonBlocker returns once no blocker of any of kinds is open. With
// no kinds it waits for every kind to drain.
func (g *Gate) WaitForNonBlocker(ctx context.Context, kinds ...Kind) error {
	for {
		g.mu.Lock()
		if !g.blockedLocked(kinds) {
			g.mu.Unlock()
			return nil
		}
		changed := g.changed
		g.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gate) blockedLocked(kinds []Kind) bool {
	if len(kinds) == 0 {
		return len(g.outstanding) > 0
	}
	for _, k := range kinds {
		if g.outstanding[k] > 0 {
			return true
		}
	}
	return false
}

func (g *Gate) complete(kind Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.outstanding[kind] <= 1 {
		delete(g.outstanding, kind)
	} else {
		g.outstanding[kind]--
	}
	close(g.changed)
	g.changed = make(chan struct{})
}

type blocker struct {
	gate *Gate
	kind Kind
	once sync.Once
}

func (b *blocker) Complete() {
	b.once.Do(func() {
		b.gate.complete(b.kind)
	})
}
