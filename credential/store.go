package credential

import (
	"context"
	"net/http"
	"sync"

	"github.com/MrEthical07/goSession/kv"
	"github.com/google/uuid"
)

// StorageKey is the kv key credentials are persisted under.
const StorageKey = "network_credentials"

// ApplyResult reports what ApplyHeaders observed.
type ApplyResult struct {
	Changed      bool
	GUIDMismatch bool
	ServerGUID   string
	Credentials  Credentials
}

// Store is the in-memory credential cell with write-through persistence.
type Store struct {
	mu      sync.RWMutex
	current Credentials
	persist kv.Store[string, Credentials]
	newGUID func() string
}

// NewStore returns a Store persisting to p. A nil p keeps credentials in
// memory only.
func NewStore(p kv.Store[string, Credentials]) *Store {
	if p == nil {
		p = kv.NewMemory[string, Credentials]()
	}
	return &Store{
		persist: p,
		newGUID: func() string { return uuid.NewString() },
	}
}

// Load replaces the in-memory value with the persisted one. A device guid
// is generated and persisted when none exists yet.
func (s *Store) Load(ctx context.Context) error {
	stored, _, err := s.persist.Get(ctx, StorageKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored.DeviceGUID == "" {
		stored.DeviceGUID = s.current.DeviceGUID
	}
	if stored.DeviceGUID == "" {
		stored.DeviceGUID = s.newGUID()
		s.current = stored
		return s.persist.Set(ctx, StorageKey, stored)
	}
	s.current = stored
	return nil
}

// Snapshot returns the current credentials.
func (s *Store) Snapshot() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace stores c. An empty device guid in c keeps the existing one.
func (s *Store) Replace(ctx context.Context, c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(ctx, c)
}

// StripBearer clears the bearer token and persists the result.
func (s *Store) StripBearer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.HasBearer() {
		return nil
	}
	return s.replaceLocked(ctx, s.current.WithoutBearer())
}

// ApplyHeaders folds response headers into the stored credentials. The
// value is replaced and persisted only when the bearer or secondary
// token carried by h differs from the stored one. A server guid that
// differs from the local guid is reported but never adopted.
func (s *Store) ApplyHeaders(ctx context.Context, h http.Header, names HeaderNames) (ApplyResult, error) {
	incoming := names.FromHeaders(h)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := ApplyResult{ServerGUID: incoming.DeviceGUID, Credentials: s.current}
	if incoming.DeviceGUID != "" && s.current.DeviceGUID != "" && incoming.DeviceGUID != s.current.DeviceGUID {
		res.GUIDMismatch = true
	}

	next := s.current
	if incoming.BearerToken != "" && incoming.BearerToken != next.BearerToken {
		next.BearerToken = incoming.BearerToken
		res.Changed = true
	}
	if incoming.SecondaryToken != "" && incoming.SecondaryToken != next.SecondaryToken {
		next.SecondaryToken = incoming.SecondaryToken
		res.Changed = true
	}
	if !res.Changed {
		return res, nil
	}

	err := s.replaceLocked(ctx, next)
	res.Credentials = s.current
	return res, err
}

func (s *Store) replaceLocked(ctx context.Context, c Credentials) error {
	if c.DeviceGUID == "" {
		c.DeviceGUID = s.current.DeviceGUID
	}
	s.current = c
	return s.persist.Set(ctx, StorageKey, c)
}
