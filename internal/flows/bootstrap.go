package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/gateway"
	"k8s.io/utils/clock"
)

// BootstrapFailureKind classifies bootstrap failures for root-level mapping.
type BootstrapFailureKind int

const (
	BootstrapFailureNone BootstrapFailureKind = iota
	BootstrapFailureExhausted
	BootstrapFailureCanceled
)

// BootstrapDeps captures bootstrap-with-retry dependencies.
type BootstrapDeps struct {
	Clock       clock.Clock
	MaxAttempts int
	Delay       time.Duration

	HasBearer     func() bool
	Login         func(context.Context) (availability.User, *gateway.Response, error)
	FetchUser     func(context.Context) (availability.User, *gateway.Response, error)
	ApplyResponse func(context.Context, *gateway.Response)

	OnAttemptFailed func(attempt int, err error)
}

// BootstrapResult carries the fetched user or failure metadata.
type BootstrapResult struct {
	Failure  BootstrapFailureKind
	Err      error
	User     availability.User
	Attempts int
}

// RunBootstrap obtains a user record, retrying a fixed number of times with
// a fixed delay. Each attempt creates a guest session when no bearer token
// is held and fetches the bearer's owner otherwise.
func RunBootstrap(ctx context.Context, deps BootstrapDeps) BootstrapResult {
	attempts := deps.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return BootstrapResult{Failure: BootstrapFailureCanceled, Err: err, Attempts: attempt - 1}
		}

		call := deps.FetchUser
		if !deps.HasBearer() {
			call = deps.Login
		}

		user, resp, err := call(ctx)
		if resp != nil && deps.ApplyResponse != nil {
			deps.ApplyResponse(ctx, resp)
		}
		if err == nil {
			return BootstrapResult{User: user, Attempts: attempt}
		}

		lastErr = err
		if deps.OnAttemptFailed != nil {
			deps.OnAttemptFailed(attempt, err)
		}
		if attempt == attempts {
			break
		}

		select {
		case <-deps.Clock.After(deps.Delay):
		case <-ctx.Done():
			return BootstrapResult{Failure: BootstrapFailureCanceled, Err: ctx.Err(), Attempts: attempt}
		}
	}

	return BootstrapResult{Failure: BootstrapFailureExhausted, Err: lastErr, Attempts: attempts}
}
