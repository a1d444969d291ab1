// Package availability records, per tenant, whether a user session is
// known and which user it belongs to.
package availability

import (
	"context"
	"maps"
	"sync"

	"github.com/MrEthical07/goSession/kv"
)

// StorageKey is the kv key the tenant map is persisted under.
const StorageKey = "user_availability"

// User is the server's view of the current visitor.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	Registered  bool   `json:"registered"`
}

// UserAvailability is either NoUser or a known User.
type UserAvailability struct {
	User *User `json:"user,omitempty"`
}

// NoUser returns the empty availability.
func NoUser() UserAvailability {
	return UserAvailability{}
}

// Available wraps u.
func Available(u User) UserAvailability {
	return UserAvailability{User: &u}
}

// Get returns the user and whether one is present.
func (a UserAvailability) Get() (User, bool) {
	if a.User == nil {
		return User{}, false
	}
	return *a.User, true
}

// Store keeps the tenant map in memory and writes it through to kv on
// every change.
type Store struct {
	mu       sync.RWMutex
	byTenant map[string]UserAvailability
	persist  kv.Store[string, map[string]UserAvailability]
}

// NewStore returns a Store persisting to p. A nil p keeps state in memory.
func NewStore(p kv.Store[string, map[string]UserAvailability]) *Store {
	if p == nil {
		p = kv.NewMemory[string, map[string]UserAvailability]()
	}
	return &Store{
		byTenant: make(map[string]UserAvailability),
		persist:  p,
	}
}

// Load replaces the in-memory map with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	stored, _, err := s.persist.Get(ctx, StorageKey)
	if err != nil {
		return err
	}

	next := make(map[string]UserAvailability, len(stored))
	for tenant, ua := range stored {
		if u, ok := ua.Get(); ok {
			next[tenant] = Available(u)
		}
	}

	s.mu.Lock()
	s.byTenant = next
	s.mu.Unlock()
	return nil
}

// Get returns the availability recorded for tenantID.
func (s *Store) Get(tenantID string) UserAvailability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.byTenant[tenantID].Get(); ok {
		return Available(u)
	}
	return NoUser()
}

// Set records ua for tenantID and persists the whole map.
func (s *Store) Set(ctx context.Context, tenantID string, ua UserAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := ua.Get(); ok {
		s.byTenant[tenantID] = Available(u)
	} else {
		delete(s.byTenant, tenantID)
	}
	return s.persist.Set(ctx, StorageKey, maps.Clone(s.byTenant))
}

// Wipe drops tenantID's record.
func (s *Store) Wipe(ctx context.Context, tenantID string) error {
	return s.Set(ctx, tenantID, NoUser())
}
