package flows

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// RecoveryOutcomeKind identifies which branch of the recovery race won.
type RecoveryOutcomeKind int

const (
	RecoveryOutcomeCanceled RecoveryOutcomeKind = iota
	// RecoveryOutcomeRecovered: the same user logged in again.
	RecoveryOutcomeRecovered
	// RecoveryOutcomeReplaced: a different user logged in.
	RecoveryOutcomeReplaced
	RecoveryOutcomeTimedOut
)

func (k RecoveryOutcomeKind) String() string {
	switch k {
	case RecoveryOutcomeRecovered:
		return "recovered"
	case RecoveryOutcomeReplaced:
		return "replaced"
	case RecoveryOutcomeTimedOut:
		return "timed_out"
	default:
		return "canceled"
	}
}

// RecoveryDeps captures recovery race dependencies.
type RecoveryDeps struct {
	Clock   clock.Clock
	Timeout time.Duration
	// WaitForLoggedIn blocks until the status is SSO logged in and returns
	// that status's user id. It must return when ctx ends.
	WaitForLoggedIn func(context.Context) (string, error)
}

// RecoveryOutcome is the single result of a recovery race.
type RecoveryOutcome struct {
	Kind           RecoveryOutcomeKind
	OriginalUserID string
	UserID         string
}

// RunRecoveryRace races a renewed login against a timeout. It returns
// exactly one outcome; the losing branch is stopped before return.
func RunRecoveryRace(ctx context.Context, originalUserID string, deps RecoveryDeps) RecoveryOutcome {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolved := make(chan RecoveryOutcome, 1)
	go func() {
		userID, err := deps.WaitForLoggedIn(raceCtx)
		if err != nil {
			return
		}
		kind := RecoveryOutcomeReplaced
		if userID == originalUserID {
			kind = RecoveryOutcomeRecovered
		}
		resolved <- RecoveryOutcome{Kind: kind, OriginalUserID: originalUserID, UserID: userID}
	}()

	timer := deps.Clock.NewTimer(deps.Timeout)
	defer timer.Stop()

	select {
	case out := <-resolved:
		return out
	case <-timer.C():
		return RecoveryOutcome{Kind: RecoveryOutcomeTimedOut, OriginalUserID: originalUserID}
	case <-ctx.Done():
		return RecoveryOutcome{Kind: RecoveryOutcomeCanceled, OriginalUserID: originalUserID}
	}
}
