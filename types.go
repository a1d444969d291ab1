package goSession

import (
	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/policy"
)

// StatusKind enumerates authentication statuses.
type StatusKind uint8

const (
	StatusNotAuthenticated StatusKind = iota
	StatusGuest
	StatusSSOLoggedIn
	// StatusSSORecovering: the server rejected a registered user's session
	// and renewal is in progress.
	StatusSSORecovering
	// StatusSSORecoveredSuccessfully is transient and always followed by
	// StatusSSOLoggedIn for the same user.
	StatusSSORecoveredSuccessfully
	// StatusSSOFailedRecover is transient and always followed by a fallback status.
	StatusSSOFailedRecover
)

func (k StatusKind) String() string {
	switch k {
	case StatusNotAuthenticated:
		return "not_authenticated"
	case StatusGuest:
		return "guest"
	case StatusSSOLoggedIn:
		return "sso_logged_in"
	case StatusSSORecovering:
		return "sso_recovering"
	case StatusSSORecoveredSuccessfully:
		return "sso_recovered_successfully"
	case StatusSSOFailedRecover:
		return "sso_failed_recover"
	default:
		return "unknown"
	}
}

// Status is the manager's authentication state. It is a comparable value;
// the status stream never emits two equal values in a row.
type Status struct {
	Kind   StatusKind
	UserID string
}

// NotAuthenticated returns the initial status.
func NotAuthenticated() Status { return Status{Kind: StatusNotAuthenticated} }

func Guest(userID string) Status { return Status{Kind: StatusGuest, UserID: userID} }

func SSOLoggedIn(userID string) Status { return Status{Kind: StatusSSOLoggedIn, UserID: userID} }

func SSORecovering(userID string) Status { return Status{Kind: StatusSSORecovering, UserID: userID} }

func SSORecoveredSuccessfully(userID string) Status {
	return Status{Kind: StatusSSORecoveredSuccessfully, UserID: userID}
}

func SSOFailedRecover(userID string) Status { return Status{Kind: StatusSSOFailedRecover, UserID: userID} }

func (s Status) String() string {
	if s.UserID == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + "(" + s.UserID + ")"
}

// Stable reports whether s implies an authentication level on its own.
// Recovery statuses are not stable.
func (s Status) Stable() bool {
	switch s.Kind {
	case StatusNotAuthenticated, StatusGuest, StatusSSOLoggedIn:
		return true
	}
	return false
}

func (s Status) level() Level {
	switch s.Kind {
	case StatusGuest:
		return LevelGuest
	case StatusSSOLoggedIn:
		return LevelLoggedIn
	default:
		return LevelAnonymous
	}
}

func statusForUser(u User) Status {
	if u.Registered {
		return SSOLoggedIn(u.ID)
	}
	return Guest(u.ID)
}

func statusForAvailability(ua availability.UserAvailability) Status {
	if u, ok := ua.Get(); ok {
		return statusForUser(u)
	}
	return NotAuthenticated()
}

type (
	Level        = policy.Level
	Availability = policy.Availability
	Action       = policy.Action
	TenantPolicy = policy.TenantPolicy
	User         = availability.User
	Credentials  = credential.Credentials
	Provider     = gateway.Provider
)

const (
	LevelAnonymous = policy.LevelAnonymous
	LevelGuest     = policy.LevelGuest
	LevelLoggedIn  = policy.LevelLoggedIn
)

const (
	ActionComment           = policy.ActionComment
	ActionReply             = policy.ActionReply
	ActionEdit              = policy.ActionEdit
	ActionDelete            = policy.ActionDelete
	ActionVote              = policy.ActionVote
	ActionReport            = policy.ActionReport
	ActionMute              = policy.ActionMute
	ActionShare             = policy.ActionShare
	ActionViewOthersProfile = policy.ActionViewOthersProfile
	ActionViewOwnProfile    = policy.ActionViewOwnProfile
	ActionLoginPrompt       = policy.ActionLoginPrompt
	ActionAppeal            = policy.ActionAppeal
)

// LoginMode selects the screen a login flow opens on.
type LoginMode uint8

const (
	LoginModeLogin LoginMode = iota
	LoginModeRegistration
)

func (m LoginMode) String() string {
	if m == LoginModeLogin {
		return "login"
	}
	return "registration"
}

func loginModeFor(action Action) LoginMode {
	if action == ActionLoginPrompt {
		return LoginModeLogin
	}
	return LoginModeRegistration
}

// Presenter is the host UI capability the manager drives. done must be
// called exactly once when the presented flow ends, from any goroutine.
type Presenter interface {
	TriggerLoginFlow(mode LoginMode, done func())
	TriggerRenewSSO(userID string, done func())
}

// UIDispatcher delivers presenter calls on the host's UI thread.
type UIDispatcher interface {
	Dispatch(fn func())
}

// InlineDispatcher runs fn on the calling goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(fn func()) { fn() }

type recoveryResultKind uint8

const (
	recoveryRenewShouldHappen recoveryResultKind = iota + 1
	recoveryNewAuthentication
)

// RecoveryResult is the input to FinishAuthenticationRecovery.
type RecoveryResult struct {
	kind recoveryResultKind
	User User
	// race is set when the manager's own recovery produced the result;
	// a renew is then only valid for that race.
	race uint64
}

// RenewShouldHappen asks the host to renew the SSO session of the
// recovering user. u is the freshly bootstrapped guest and is not stored.
func RenewShouldHappen(u User) RecoveryResult {
	return RecoveryResult{kind: recoveryRenewShouldHappen, User: u}
}

// NewAuthentication records u and sets the status it implies.
func NewAuthentication(u User) RecoveryResult {
	return RecoveryResult{kind: recoveryNewAuthentication, User: u}
}
