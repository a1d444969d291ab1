package flows

// Deps groups flow dependency sets. The root Manager builds this once and
// delegates operations to the matching flow implementation.
type Deps struct {
	Bootstrap BootstrapDeps
	Recovery  RecoveryDeps
	Logout    LogoutDeps
	SSO       SSODeps
}
