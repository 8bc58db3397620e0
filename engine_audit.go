package gateAuth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventCSRFRejected        = "csrf_rejected"
	auditEventSessionCreateFailed = "session_create_failed"
	auditEventLogoutSession       = "logout_session"
	auditEventLogoutFailed        = "logout_failed"
)

// AuditErrorCode is the stable, non-sensitive error label written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrCSRFMismatch          AuditErrorCode = "csrf_mismatch"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrSessionInvalidation   AuditErrorCode = "session_invalidation_failed"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	sessionID string,
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
		EventType: eventType,
		Identity:  identity,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	// creation/invalidation wrap ErrSessionStoreUnavailable, so check them first
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrCSRFMismatch):
		return auditErrCSRFMismatch
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
