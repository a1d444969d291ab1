package flows

import (
	"context"

	"github.com/MrEthical07/goSession/gateway"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Logout        func(context.Context) (*gateway.Response, error)
	ApplyResponse func(context.Context, *gateway.Response)
	// Commit clears local session state.
	Commit func(context.Context)
}

// LogoutResult reports the network outcome and whether local state was cleared.
type LogoutResult struct {
	Err       error
	Committed bool
}

// RunLogout calls the logout endpoint and clears local state on success.
// With force set, local state is cleared even when the call fails.
func RunLogout(ctx context.Context, force bool, deps LogoutDeps) LogoutResult {
	resp, err := deps.Logout(ctx)
	if resp != nil && deps.ApplyResponse != nil {
		deps.ApplyResponse(ctx, resp)
	}
	if err != nil && !force {
		return LogoutResult{Err: err}
	}

	deps.Commit(ctx)
	return LogoutResult{Err: err, Committed: true}
}
