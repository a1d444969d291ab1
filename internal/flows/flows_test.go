package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/gateway"
	testingclock "k8s.io/utils/clock/testing"
)

var errBoom = errors.New("boom")

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

func bootstrapDeps(fc *testingclock.FakeClock, hasBearer bool, login, fetch func(context.Context) (availability.User, *gateway.Response, error)) BootstrapDeps {
	return BootstrapDeps{
		Clock:       fc,
		MaxAttempts: 3,
		Delay:       time.Second,
		HasBearer:   func() bool { return hasBearer },
		Login:       login,
		FetchUser:   fetch,
	}
}

func TestBootstrapRetriesWithFixedDelay(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	calls := 0
	login := func(context.Context) (availability.User, *gateway.Response, error) {
		calls++
		if calls < 3 {
			return availability.User{}, nil, errBoom
		}
		return availability.User{ID: "g1"}, &gateway.Response{StatusCode: 200}, nil
	}

	var applied int
	deps := bootstrapDeps(fc, false, login, nil)
	deps.ApplyResponse = func(context.Context, *gateway.Response) { applied++ }

	done := make(chan BootstrapResult, 1)
	go func() { done <- RunBootstrap(context.Background(), deps) }()

	for i := 0; i < 2; i++ {
		waitForWaiters(t, fc)
		fc.Step(time.Second)
	}

	res := <-done
	if res.Failure != BootstrapFailureNone || res.User.ID != "g1" || res.Attempts != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if applied != 1 {
		t.Fatalf("expected one applied response, got %d", applied)
	}
}

func TestBootstrapExhaustion(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	fetch := func(context.Context) (availability.User, *gateway.Response, error) {
		return availability.User{}, nil, errBoom
	}
	var failed []int
	deps := bootstrapDeps(fc, true, nil, fetch)
	deps.OnAttemptFailed = func(attempt int, _ error) { failed = append(failed, attempt) }

	done := make(chan BootstrapResult, 1)
	go func() { done <- RunBootstrap(context.Background(), deps) }()
	for i := 0; i < 2; i++ {
		waitForWaiters(t, fc)
		fc.Step(time.Second)
	}

	res := <-done
	if res.Failure != BootstrapFailureExhausted || !errors.Is(res.Err, errBoom) {
		t.Fatalf("expected exhaustion wrapping last error, got %+v", res)
	}
	if len(failed) != 3 {
		t.Fatalf("expected 3 failed attempts, got %v", failed)
	}
}

func TestBootstrapCanceledDuringDelay(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	login := func(context.Context) (availability.User, *gateway.Response, error) {
		return availability.User{}, nil, errBoom
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan BootstrapResult, 1)
	go func() { done <- RunBootstrap(ctx, bootstrapDeps(fc, false, login, nil)) }()

	waitForWaiters(t, fc)
	cancel()
	if res := <-done; res.Failure != BootstrapFailureCanceled {
		t.Fatalf("expected canceled, got %+v", res)
	}
}

func TestRecoveryRaceResolvedBeforeTimeout(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	loggedIn := make(chan string, 1)
	deps := RecoveryDeps{
		Clock:   fc,
		Timeout: 30 * time.Second,
		WaitForLoggedIn: func(ctx context.Context) (string, error) {
			select {
			case id := <-loggedIn:
				return id, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	}

	for _, tc := range []struct {
		userID string
		want   RecoveryOutcomeKind
	}{
		{"u1", RecoveryOutcomeRecovered},
		{"u2", RecoveryOutcomeReplaced},
	} {
		done := make(chan RecoveryOutcome, 1)
		go func() { done <- RunRecoveryRace(context.Background(), "u1", deps) }()
		waitForWaiters(t, fc)
		loggedIn <- tc.userID

		out := <-done
		if out.Kind != tc.want || out.UserID != tc.userID || out.OriginalUserID != "u1" {
			t.Fatalf("unexpected outcome %+v", out)
		}
		if fc.HasWaiters() {
			t.Fatal("timer must be stopped once the race resolves")
		}
	}
}

func TestRecoveryRaceTimeout(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	branchStopped := make(chan struct{})
	deps := RecoveryDeps{
		Clock:   fc,
		Timeout: 30 * time.Second,
		WaitForLoggedIn: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			close(branchStopped)
			return "", ctx.Err()
		},
	}

	done := make(chan RecoveryOutcome, 1)
	go func() { done <- RunRecoveryRace(context.Background(), "u1", deps) }()
	waitForWaiters(t, fc)
	fc.Step(30 * time.Second)

	if out := <-done; out.Kind != RecoveryOutcomeTimedOut {
		t.Fatalf("expected timeout, got %+v", out)
	}
	select {
	case <-branchStopped:
	case <-time.After(2 * time.Second):
		t.Fatal("login branch was not cancelled")
	}
}

func TestRunLogout(t *testing.T) {
	committed := 0
	deps := LogoutDeps{
		Logout: func(context.Context) (*gateway.Response, error) { return nil, errBoom },
		Commit: func(context.Context) { committed++ },
	}

	if res := RunLogout(context.Background(), false, deps); res.Committed || !errors.Is(res.Err, errBoom) {
		t.Fatalf("unforced failed logout must not commit: %+v", res)
	}
	if res := RunLogout(context.Background(), true, deps); !res.Committed {
		t.Fatalf("forced logout must commit: %+v", res)
	}
	if committed != 1 {
		t.Fatalf("expected one commit, got %d", committed)
	}
}

func ssoDeps(bearer *string) (SSODeps, *[]string) {
	var calls []string
	deps := SSODeps{
		Logout: func(context.Context) error {
			calls = append(calls, "logout")
			*bearer = ""
			return nil
		},
		GuestLogin: func(context.Context) BootstrapResult {
			calls = append(calls, "guest")
			return BootstrapResult{User: availability.User{ID: "g1"}}
		},
		Bearer:          func() string { return *bearer },
		CanComplete:     func() bool { return true },
		CanAuthenticate: func() bool { return true },
		Start: func(_ context.Context, secret string) (gateway.StartModel, *gateway.Response, error) {
			calls = append(calls, "start:"+secret)
			return gateway.StartModel{CodeA: "code-a"}, nil, nil
		},
		Complete: func(context.Context, string) (gateway.CompletionModel, *gateway.Response, error) {
			calls = append(calls, "complete")
			return gateway.CompletionModel{Success: true, User: availability.User{ID: "u1", Registered: true}}, nil, nil
		},
		LoggedIn: func(_ context.Context, u availability.User) { calls = append(calls, "commit:"+u.ID) },
	}
	return deps, &calls
}

func TestStartSSOOrder(t *testing.T) {
	bearer := "sso-bearer"
	deps, calls := ssoDeps(&bearer)
	deps.GuestLogin = func(context.Context) BootstrapResult {
		*calls = append(*calls, "guest")
		bearer = "guest-bearer"
		return BootstrapResult{User: availability.User{ID: "g1"}}
	}

	res := RunStartSSO(context.Background(), deps)
	if res.Failure != SSOFailureNone || res.Model.CodeA != "code-a" {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []string{"logout", "guest", "start:guest-bearer"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v, want %v", *calls, want)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Fatalf("calls = %v, want %v", *calls, want)
		}
	}
}

func TestStartSSOWithoutBearerFails(t *testing.T) {
	bearer := ""
	deps, calls := ssoDeps(&bearer)
	res := RunStartSSO(context.Background(), deps)
	if res.Failure != SSOFailureMissingAuthorization {
		t.Fatalf("expected missing authorization, got %+v", res)
	}
	for _, c := range *calls {
		if len(c) > 6 && c[:6] == "start:" {
			t.Fatal("sso start must not be called without a bearer")
		}
	}
}

func TestCompleteSSOChecks(t *testing.T) {
	bearer := ""
	deps, calls := ssoDeps(&bearer)
	if res := RunCompleteSSO(context.Background(), "c", deps); res.Failure != SSOFailureMissingAuthorization {
		t.Fatalf("expected missing authorization, got %+v", res)
	}

	deps.CanComplete = func() bool { return false }
	bearer = "b"
	if res := RunCompleteSSO(context.Background(), "c", deps); res.Failure != SSOFailureAlreadyLoggedIn {
		t.Fatalf("expected already logged in, got %+v", res)
	}
	if len(*calls) != 0 {
		t.Fatalf("no network calls expected, got %v", *calls)
	}

	deps.CanComplete = func() bool { return true }
	res := RunCompleteSSO(context.Background(), "c", deps)
	if res.Failure != SSOFailureNone || (*calls)[len(*calls)-1] != "commit:u1" {
		t.Fatalf("expected committed completion, got %+v calls=%v", res, *calls)
	}
}

func TestSSOAuthenticateRejected(t *testing.T) {
	bearer := "b"
	deps, _ := ssoDeps(&bearer)
	deps.Provider = func(context.Context, gateway.Provider, string) (gateway.ProviderModel, *gateway.Response, error) {
		return gateway.ProviderModel{Success: false}, nil, nil
	}
	res := RunSSOAuthenticate(context.Background(), "piano", "tok", deps)
	if res.Failure != SSOFailureNetwork || !errors.Is(res.Err, ErrSSORejected) {
		t.Fatalf("expected rejection, got %+v", res)
	}

	deps.CanAuthenticate = func() bool { return false }
	if res := RunSSOAuthenticate(context.Background(), "piano", "tok", deps); res.Failure != SSOFailureAlreadyLoggedIn {
		t.Fatalf("expected already logged in, got %+v", res)
	}
}
