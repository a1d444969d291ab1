package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one Manager counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricStatusTransition, Name: "gosession_status_transition_total", Help: "Published status changes."},
	{ID: goSession.MetricRecoveryStarted, Name: "gosession_recovery_started_total", Help: "SSO recovery races started."},
	{ID: goSession.MetricRecoverySucceeded, Name: "gosession_recovery_succeeded_total", Help: "Recoveries won by the original SSO user."},
	{ID: goSession.MetricRecoveryReplaced, Name: "gosession_recovery_replaced_total", Help: "Recoveries won by a different SSO user."},
	{ID: goSession.MetricRecoveryTimedOut, Name: "gosession_recovery_timed_out_total", Help: "Recoveries that hit the timeout."},
	{ID: goSession.MetricBootstrapAttempt, Name: "gosession_bootstrap_attempt_total", Help: "User bootstrap network attempts."},
	{ID: goSession.MetricBootstrapFailure, Name: "gosession_bootstrap_failure_total", Help: "Failed user bootstrap attempts."},
	{ID: goSession.MetricBootstrapExhausted, Name: "gosession_bootstrap_exhausted_total", Help: "Bootstraps that ran out of attempts."},
	{ID: goSession.MetricLoginUIShown, Name: "gosession_login_ui_shown_total", Help: "Login flows presented to the user."},
	{ID: goSession.MetricRenewTriggered, Name: "gosession_renew_triggered_total", Help: "SSO renew flows presented to the user."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Successful logouts."},
	{ID: goSession.MetricLogoutFailure, Name: "gosession_logout_failure_total", Help: "Failed logouts."},
	{ID: goSession.MetricSSOStart, Name: "gosession_sso_start_total", Help: "SSO start operations."},
	{ID: goSession.MetricSSOComplete, Name: "gosession_sso_complete_total", Help: "Successful SSO completions."},
	{ID: goSession.MetricSSOProviderAuth, Name: "gosession_sso_provider_auth_total", Help: "Successful identity provider exchanges."},
	{ID: goSession.MetricSSOFailure, Name: "gosession_sso_failure_total", Help: "Failed SSO operations."},
	{ID: goSession.MetricCredentialsReplaced, Name: "gosession_credentials_replaced_total", Help: "Credential replacements persisted."},
	{ID: goSession.MetricGUIDMismatch, Name: "gosession_guid_mismatch_total", Help: "Server device guids that differed from the stored one."},
	{ID: goSession.MetricTenantPrepared, Name: "gosession_tenant_prepared_total", Help: "Tenant prepare operations."},
	{ID: goSession.MetricTenantChanged, Name: "gosession_tenant_changed_total", Help: "Tenant change operations."},
	{ID: goSession.MetricWiringFailure, Name: "gosession_wiring_failure_total", Help: "UI triggers attempted without a presenter."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricWaitLatency, Name: "gosession_wait_latency_seconds", Help: "Time spent waiting for authentication."},
}

// HistogramBounds are goSession.WaitLatencyBounds in seconds. The
// overflow bucket past the last bound is +Inf.
var HistogramBounds = func() []float64 {
	out := make([]float64, len(goSession.WaitLatencyBounds))
	for i, d := range goSession.WaitLatencyBounds {
		out[i] = d.Seconds()
	}
	return out
}()

// NormalizeBuckets pads or truncates raw to one count per bound plus
// the overflow bucket.
func NormalizeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(HistogramBounds)+1)
	copy(out, raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
