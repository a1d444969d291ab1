package credential

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/kv"
	"github.com/golang-jwt/jwt/v5"
)

type countingKV struct {
	*kv.Memory[string, Credentials]
	sets int
}

func (c *countingKV) Set(ctx context.Context, key string, v Credentials) error {
	c.sets++
	return c.Memory.Set(ctx, key, v)
}

func newCountingKV() *countingKV {
	return &countingKV{Memory: kv.NewMemory[string, Credentials]()}
}

func headers(guid, bearer, secondary string) http.Header {
	h := http.Header{}
	n := DefaultHeaderNames()
	if guid != "" {
		h.Set(n.DeviceGUID, guid)
	}
	if bearer != "" {
		h.Set(n.Bearer, bearer)
	}
	if secondary != "" {
		h.Set(n.Secondary, secondary)
	}
	return h
}

func TestLoadGeneratesGUIDOnce(t *testing.T) {
	ctx := context.Background()
	p := newCountingKV()
	s := NewStore(p)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	guid := s.Snapshot().DeviceGUID
	if guid == "" {
		t.Fatal("expected generated device guid")
	}

	again := NewStore(p)
	if err := again.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Snapshot().DeviceGUID != guid {
		t.Fatalf("guid regenerated: %q != %q", again.Snapshot().DeviceGUID, guid)
	}
	if p.sets != 1 {
		t.Fatalf("expected one persist, got %d", p.sets)
	}
}

func TestStripBearerKeepsGUIDAndSecondary(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	guid := s.Snapshot().DeviceGUID
	if err := s.Replace(ctx, Credentials{BearerToken: "b1", SecondaryToken: "s1"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.StripBearer(ctx); err != nil {
		t.Fatalf("StripBearer: %v", err)
	}

	got := s.Snapshot()
	if got.HasBearer() {
		t.Fatal("bearer should be cleared")
	}
	if got.DeviceGUID != guid || got.SecondaryToken != "s1" {
		t.Fatalf("unexpected credentials after strip: %+v", got)
	}
}

func TestApplyHeadersPersistsOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	p := newCountingKV()
	s := NewStore(p)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	base := p.sets
	names := DefaultHeaderNames()
	h := headers("", "Bearer abc", "sess-1")

	res, err := s.ApplyHeaders(ctx, h, names)
	if err != nil || !res.Changed {
		t.Fatalf("first apply: changed=%v err=%v", res.Changed, err)
	}
	res, err = s.ApplyHeaders(ctx, h, names)
	if err != nil || res.Changed {
		t.Fatalf("second apply: changed=%v err=%v", res.Changed, err)
	}
	if got := p.sets - base; got != 1 {
		t.Fatalf("expected exactly one persist, got %d", got)
	}
	if s.Snapshot().BearerToken != "Bearer abc" {
		t.Fatalf("unexpected bearer %q", s.Snapshot().BearerToken)
	}
}

func TestApplyHeadersReportsGUIDMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	local := s.Snapshot().DeviceGUID

	res, err := s.ApplyHeaders(ctx, headers("server-guid", "", ""), DefaultHeaderNames())
	if err != nil {
		t.Fatalf("ApplyHeaders: %v", err)
	}
	if !res.GUIDMismatch || res.ServerGUID != "server-guid" {
		t.Fatalf("expected mismatch report, got %+v", res)
	}
	if res.Changed || s.Snapshot().DeviceGUID != local {
		t.Fatal("server guid must not be adopted")
	}
}

func TestApplyHeadersIgnoresEmptyValues(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	if err := s.Replace(ctx, Credentials{DeviceGUID: "g", BearerToken: "b", SecondaryToken: "s"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	res, err := s.ApplyHeaders(ctx, http.Header{}, DefaultHeaderNames())
	if err != nil || res.Changed {
		t.Fatalf("empty headers must not change credentials: %+v err=%v", res, err)
	}
	if s.Snapshot().BearerToken != "b" {
		t.Fatal("bearer must survive empty headers")
	}
}

func TestInspectBearer(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "comments",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	info, err := InspectBearer("Bearer " + signed)
	if err != nil {
		t.Fatalf("InspectBearer: %v", err)
	}
	if info.Subject != "u1" || info.Issuer != "comments" {
		t.Fatalf("unexpected claims %+v", info)
	}
	if !info.ExpiresAt.Equal(exp) || !info.Expired(time.Now()) {
		t.Fatalf("expected expired token, got %+v", info)
	}

	if _, err := InspectBearer(""); err != ErrNoBearer {
		t.Fatalf("expected ErrNoBearer, got %v", err)
	}
	if _, err := InspectBearer("not-a-jwt"); err == nil {
		t.Fatal("expected parse error")
	}
}
