package tokenguard

import (
	"context"
	"strings"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventRenewSuccess     = "renew_success"
	auditEventRenewFailure     = "renew_failure"
	auditEventRenewRateLimited = "renew_rate_limited"
	auditEventLogout           = "logout"
	auditEventSignupSuccess    = "signup_success"
	auditEventSignupFailure    = "signup_failure"
)

// emitAudit never carries secrets or tokens: only the subject, the request
// context and the error kind.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		Type:      eventType,
		Subject:   subject,
		RequestID: RequestIDFromContext(ctx),
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = strings.ToLower(KindOf(err).Code())
	}

	e.audit.Emit(ctx, event)
}

// AuditDropped is the number of events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}
