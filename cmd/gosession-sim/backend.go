package main

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

// backend is an in-process comment API: it issues guest tokens, completes
// SSO for a fixed user and rejects revoked tokens.
type backend struct {
	mu      sync.Mutex
	guests  int
	owners  map[string]availability.User
	revoked map[string]bool
	ssoUser availability.User
}

func newBackend(ssoUserID string) *backend {
	return &backend{
		owners:  map[string]availability.User{},
		revoked: map[string]bool{},
		ssoUser: availability.User{ID: ssoUserID, DisplayName: "Sim User", Registered: true},
	}
}

func (b *backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/authentication", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	r.Route("/user", func(r chi.Router) {
		r.Get("/data", b.userData)
		r.Post("/sso/start", b.ssoStart)
		r.Post("/sso/complete", b.ssoComplete)
		r.Post("/sso/provider", b.ssoComplete)
	})
	return r
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.guests++
	u := availability.User{ID: "guest-" + strconv.Itoa(b.guests)}
	token := "guest-token-" + strconv.Itoa(b.guests)
	b.owners[token] = u
	b.mu.Unlock()

	w.Header().Set("Authorization", token)
	writeJSON(w, u)
}

func (b *backend) userData(w http.ResponseWriter, r *http.Request) {
	u, ok := b.owner(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, u)
}

func (b *backend) ssoStart(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.owner(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, gateway.StartModel{CodeA: "sim-code-a"})
}

func (b *backend) ssoComplete(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.owner(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	b.mu.Lock()
	b.guests++
	token := "sso-token-" + strconv.Itoa(b.guests)
	b.owners[token] = b.ssoUser
	u := b.ssoUser
	b.mu.Unlock()

	w.Header().Set("Authorization", token)
	writeJSON(w, gateway.CompletionModel{Success: true, User: u})
}

func (b *backend) owner(r *http.Request) (availability.User, bool) {
	token := r.Header.Get("Authorization")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked[token] {
		return availability.User{}, false
	}
	u, ok := b.owners[token]
	return u, ok
}

// revokeAll invalidates every issued token.
func (b *backend) revokeAll() {
	b.mu.Lock()
	for token := range b.owners {
		b.revoked[token] = true
	}
	b.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
