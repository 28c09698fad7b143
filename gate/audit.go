package gate

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginUnknownUser  AuditEvent = "login_unknown_user"
	AuditLoginBadPassword  AuditEvent = "login_bad_password"
	AuditAgentNameRejected AuditEvent = "agent_name_rejected"
	AuditAccountLocked     AuditEvent = "account_locked"
	AuditSessionCreated    AuditEvent = "session_created"
	AuditSessionRenewed    AuditEvent = "session_renewed"
	AuditSessionDestroyed  AuditEvent = "session_destroyed"
	AuditSessionExpired    AuditEvent = "session_expired"
	AuditFormCredConsumed  AuditEvent = "formcred_consumed"
	AuditFormCredDiscarded AuditEvent = "formcred_discarded"
	AuditNotAuthenticated  AuditEvent = "not_authenticated"
	AuditLogoff            AuditEvent = "logoff"
	AuditMissingRedirect   AuditEvent = "missing_redirect_target"
)

// auditLogger wraps slog.Logger for structured audit logging of pipeline
// decisions.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("path", r.URL.Path),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logUser is a convenience for events with a user name.
func (al *auditLogger) logUser(event AuditEvent, r *http.Request, userName string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("user", userName),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
