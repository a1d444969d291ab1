package policy

// TenantPolicy carries the server-delivered per-tenant flags that drive
// Resolve. Start from DefaultTenantPolicy when decoding partial payloads so
// that absent flags keep their conservative meaning.
type TenantPolicy struct {
	ForceRegistration               bool `json:"force_registration" koanf:"force_registration"`
	AllowGuestVoting                bool `json:"allow_guest_voting" koanf:"allow_guest_voting"`
	RequireRegistrationForReporting bool `json:"require_registration_for_reporting" koanf:"require_registration_for_reporting"`
}

// DefaultTenantPolicy returns the policy assumed for flags a tenant did not
// send: guests may comment, voting and reporting need registration.
func DefaultTenantPolicy() TenantPolicy {
	return TenantPolicy{
		RequireRegistrationForReporting: true,
	}
}

// Resolve returns the minimum level action requires under p.
func Resolve(action Action, p TenantPolicy) Level {
	switch action {
	case ActionComment, ActionReply, ActionEdit, ActionDelete:
		if p.ForceRegistration {
			return LevelLoggedIn
		}
		return LevelGuest
	case ActionMute:
		return LevelLoggedIn
	case ActionVote:
		if p.AllowGuestVoting {
			return LevelGuest
		}
		return LevelLoggedIn
	case ActionReport:
		if p.RequireRegistrationForReporting {
			return LevelLoggedIn
		}
		return LevelGuest
	case ActionShare, ActionViewOthersProfile:
		return LevelGuest
	case ActionViewOwnProfile, ActionLoginPrompt, ActionAppeal:
		return LevelLoggedIn
	default:
		return LevelLoggedIn
	}
}
