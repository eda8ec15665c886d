package internaldefs

import (
	"github.com/MrEthical07/tokenguard/internal/metrics"
)

type CounterDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: metrics.MetricLoginSuccess, Name: "tokenguard_login_success_total", Help: "Successful logins."},
	{ID: metrics.MetricLoginFailure, Name: "tokenguard_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: metrics.MetricLoginRateLimited, Name: "tokenguard_login_rate_limited_total", Help: "Logins rejected by the throttle."},
	{ID: metrics.MetricAuthenticateSuccess, Name: "tokenguard_authenticate_success_total", Help: "Requests authenticated by access token."},
	{ID: metrics.MetricAuthenticateMissing, Name: "tokenguard_authenticate_missing_total", Help: "Protected requests without an access token."},
	{ID: metrics.MetricAuthenticateMalformed, Name: "tokenguard_authenticate_malformed_total", Help: "Access tokens that failed to parse or verify."},
	{ID: metrics.MetricAuthenticateExpired, Name: "tokenguard_authenticate_expired_total", Help: "Correctly signed but expired access tokens."},
	{ID: metrics.MetricRenewSuccess, Name: "tokenguard_renew_success_total", Help: "Access tokens renewed from a refresh entry."},
	{ID: metrics.MetricRenewStillValid, Name: "tokenguard_renew_still_valid_total", Help: "Renewal calls with a still-valid access token."},
	{ID: metrics.MetricRenewNoSession, Name: "tokenguard_renew_no_session_total", Help: "Renewals without a refresh entry."},
	{ID: metrics.MetricRenewSessionInvalid, Name: "tokenguard_renew_session_invalid_total", Help: "Renewals that found an unusable refresh entry."},
	{ID: metrics.MetricRenewRateLimited, Name: "tokenguard_renew_rate_limited_total", Help: "Renewals rejected by the throttle."},
	{ID: metrics.MetricPrincipalNotFound, Name: "tokenguard_principal_not_found_total", Help: "Token subjects that no longer resolve."},
	{ID: metrics.MetricStoreUnavailable, Name: "tokenguard_store_unavailable_total", Help: "Redis faults surfaced to callers."},
	{ID: metrics.MetricSessionCreated, Name: "tokenguard_session_created_total", Help: "Refresh entries written at login."},
	{ID: metrics.MetricSessionInvalidated, Name: "tokenguard_session_invalidated_total", Help: "Refresh entries deleted."},
	{ID: metrics.MetricLogout, Name: "tokenguard_logout_total", Help: "Logout operations."},
	{ID: metrics.MetricSignupSuccess, Name: "tokenguard_signup_success_total", Help: "Accounts created through signup."},
	{ID: metrics.MetricSignupDuplicate, Name: "tokenguard_signup_duplicate_total", Help: "Signups rejected as duplicate."},
}

var HistogramDefs = []HistogramDef{
	{ID: metrics.MetricAuthenticateLatency, Name: "tokenguard_authenticate_latency_seconds", Help: "Authenticate latency."},
	{ID: metrics.MetricRenewLatency, Name: "tokenguard_renew_latency_seconds", Help: "Renew latency."},
}

// AuditDroppedName is the counter for events lost to dispatcher backpressure.
const (
	AuditDroppedName = "tokenguard_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native
// histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [metrics.HistBucketCount]uint64 {
	var out [metrics.HistBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [metrics.HistBucketCount]uint64) [metrics.HistBucketCount]uint64 {
	var out [metrics.HistBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
