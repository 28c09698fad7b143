package gate

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// LoggedOffSentinel is the session cookie value written after a logoff so
// that downstream requests carry a recognizable non-session marker instead
// of a stale token.
const LoggedOffSentinel = "LOGGEDOFF"

// Settings carries the gateway-wide knobs shared by every pipeline: cookie
// names, login form field names, expiry arithmetic, and lockout threshold.
type Settings struct {
	SessionCookieName    string
	SessionCookieDomain  string
	FormCredCookieName   string
	FormCredCookieDomain string
	UserIDField          string
	PasswordField        string
	TargetField          string
	AgentNameField       string
	SessionExpiry        time.Duration
	MaxLoginAttempts     int
	AgentName            string
	LoginFormURL         string
}

// ApplyDefaults fills unset fields with the defaults of the product being
// simulated.
func (s *Settings) ApplyDefaults() {
	if s.SessionCookieName == "" {
		s.SessionCookieName = "SMSESSION"
	}
	if s.FormCredCookieName == "" {
		s.FormCredCookieName = "FORMCRED"
	}
	if s.UserIDField == "" {
		s.UserIDField = "USERNAME"
	}
	if s.PasswordField == "" {
		s.PasswordField = "PASSWORD"
	}
	if s.TargetField == "" {
		s.TargetField = "TARGET"
	}
	if s.AgentNameField == "" {
		s.AgentNameField = "SMAGENTNAME"
	}
	if s.SessionExpiry == 0 {
		s.SessionExpiry = 20 * time.Minute
	}
	if s.MaxLoginAttempts == 0 {
		s.MaxLoginAttempts = 3
	}
	if s.LoginFormURL == "" {
		s.LoginFormURL = "/public/siteminderagent/login.fcc"
	}
}

// AppRoutes carries the per-upstream-application access-control rules and
// redirect targets. Redirect targets are URL templates that may carry a {N}
// leading-segment marker resolved against the request URL.
type AppRoutes struct {
	Logoff             string
	NotAuthenticated   string
	BadLogin           string
	BadPassword        string
	AccountLocked      string
	ProtectedByDefault bool
	PathFilters        []PathFilterRule
}

// Pipeline is the per-upstream-application authentication state machine.
// It owns a SessionStore and a CredentialExchange exclusively; the
// UserDirectory is shared with whatever loaded the configuration. Safe for
// concurrent use.
type Pipeline struct {
	settings  Settings
	app       AppRoutes
	sessions  *SessionStore
	formcreds *CredentialExchange
	users     UserDirectory
	audit     *auditLogger
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.audit = newAuditLogger(logger)
	}
}

// WithClock overrides the time source. Tests use this for deterministic
// expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline for one upstream application.
func New(settings Settings, app AppRoutes, users UserDirectory, opts ...Option) *Pipeline {
	settings.ApplyDefaults()
	p := &Pipeline{
		settings:  settings,
		app:       app,
		sessions:  NewSessionStore(),
		formcreds: NewCredentialExchange(),
		users:     users,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.audit == nil {
		p.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return p
}

// Sessions exposes the pipeline's session store for embedding callers that
// want to inspect it. Mutating sessions outside the pipeline is not
// supported.
func (p *Pipeline) Sessions() *SessionStore {
	return p.sessions
}

// outcome is what a stage decides: either hand the request to the next
// stage, or stop because the stage already wrote a response.
type outcome int

const (
	proceed outcome = iota
	terminate
)

// requestContext threads per-request state between stages.
type requestContext struct {
	w http.ResponseWriter
	r *http.Request

	// session is the authenticated session attached by Init or by a
	// successful credential exchange in Protected. Nil when the request is
	// unauthenticated.
	session *Session
}

// redirectKind selects the fail-loud response used when a redirect target
// is not configured.
type redirectKind int

const (
	redirectNotAuthenticated redirectKind = iota
	redirectBadLogin
	redirectBadPassword
	redirectAccountLocked
)

func (k redirectKind) String() string {
	switch k {
	case redirectNotAuthenticated:
		return "not_authenticated"
	case redirectBadLogin:
		return "bad_login"
	case redirectBadPassword:
		return "bad_password"
	default:
		return "account_locked"
	}
}

// Handle runs the request through the five pipeline stages. It returns true
// when the request should be forwarded to the upstream application, and
// false when a stage already terminated the request with a redirect or
// error response.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) bool {
	rc := &requestContext{w: w, r: r}
	stages := []func(*requestContext) outcome{
		p.initStage,
		p.protectedStage,
		p.logonStage,
		p.logoffStage,
		p.finalizeStage,
	}
	for _, stage := range stages {
		if stage(rc) == terminate {
			return false
		}
	}
	return true
}

// initStage loads the session referenced by the inbound session cookie.
// Unknown and expired tokens both leave the request unauthenticated;
// Protected rejects them at the next gate.
func (p *Pipeline) initStage(rc *requestContext) outcome {
	cookie, err := rc.r.Cookie(p.settings.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return proceed
	}
	session, ok := p.sessions.Get(cookie.Value)
	if !ok {
		return proceed
	}
	if session.HasExpired(p.now()) {
		p.audit.log(AuditSessionExpired, rc.r, slog.String("session_id", session.SessionID))
		return proceed
	}
	rc.session = &session
	return proceed
}

// protectedStage is the access-control gate: path filter decision,
// credential-exchange consumption, lockout enforcement, session issuance,
// and auth header injection.
func (p *Pipeline) protectedStage(rc *requestContext) outcome {
	rule := Match(p.app.PathFilters, p.app.ProtectedByDefault, rc.r.URL.String())

	if !rule.Protected {
		// A formcred token must never leak into a non-protected path.
		if token, ok := p.formCredToken(rc.r); ok {
			if _, found := p.formcreds.TakeAndRemove(token); found {
				p.audit.log(AuditFormCredDiscarded, rc.r)
			}
		}
		return proceed
	}

	if token, ok := p.formCredToken(rc.r); ok {
		if fc, found := p.formcreds.TakeAndRemove(token); found {
			return p.completeCredentialExchange(rc, fc)
		}
	}

	if rc.session == nil || rc.session.HasExpired(p.now()) {
		p.audit.log(AuditNotAuthenticated, rc.r)
		return p.redirect(rc, p.app.NotAuthenticated, redirectNotAuthenticated)
	}

	p.injectAuthHeaders(rc)
	return proceed
}

// completeCredentialExchange finishes the two-phase login hand-off. The
// FormCred has already been removed from the exchange; whatever happens
// next, the token is spent.
func (p *Pipeline) completeCredentialExchange(rc *requestContext, fc FormCred) outcome {
	p.audit.log(AuditFormCredConsumed, rc.r, slog.String("status", string(fc.Status)))

	switch fc.Status {
	case StatusGoodLogin:
		user, ok := p.users.FindByName(fc.User.Name)
		if !ok {
			// The user disappeared between logon and exchange; treat as a
			// failed login rather than crash.
			return p.redirect(rc, p.app.BadLogin, redirectBadLogin)
		}
		if user.Locked {
			p.audit.logUser(AuditAccountLocked, rc.r, user.Name)
			return p.redirect(rc, p.app.AccountLocked, redirectAccountLocked)
		}

		// Last successful login wins: any other live session for this user
		// is destroyed before the new one is created.
		if old, found := p.sessions.FindByUserName(user.Name); found {
			p.sessions.Remove(old.SessionID)
			p.audit.logUser(AuditSessionDestroyed, rc.r, user.Name,
				slog.String("session_id", old.SessionID))
		}

		user.LoginAttempts = 0
		if err := p.users.Save(user); err != nil {
			return p.internalError(rc, fmt.Errorf("saving user %q: %w", user.Name, err))
		}

		session, err := NewSession(user, p.now(), p.settings.SessionExpiry)
		if err != nil {
			return p.internalError(rc, err)
		}
		p.sessions.Create(session)
		rc.session = &session
		p.audit.logUser(AuditSessionCreated, rc.r, user.Name,
			slog.String("session_id", session.SessionID))
		p.audit.logUser(AuditLoginSuccess, rc.r, user.Name)

		p.injectAuthHeaders(rc)
		return proceed

	case StatusBadLogin:
		return p.redirect(rc, p.app.BadLogin, redirectBadLogin)

	case StatusBadPassword:
		user, ok := p.users.FindByName(fc.User.Name)
		if !ok {
			return p.redirect(rc, p.app.BadLogin, redirectBadLogin)
		}
		user.FailedLogon(p.settings.MaxLoginAttempts)
		if err := p.users.Save(user); err != nil {
			return p.internalError(rc, fmt.Errorf("saving user %q: %w", user.Name, err))
		}
		if user.Locked {
			p.audit.logUser(AuditAccountLocked, rc.r, user.Name,
				slog.Int("attempts", user.LoginAttempts))
			return p.redirect(rc, p.app.AccountLocked, redirectAccountLocked)
		}
		return p.redirect(rc, p.app.BadPassword, redirectBadPassword)

	default:
		return p.redirect(rc, p.app.BadLogin, redirectBadLogin)
	}
}

// logonStage intercepts POSTs to the login form URL, validates the
// submitted credentials, and records the outcome as a one-shot FormCred.
// The login POST never reaches the upstream application.
func (p *Pipeline) logonStage(rc *requestContext) outcome {
	if rc.r.Method != http.MethodPost || rc.r.URL.Path != p.settings.LoginFormURL {
		return proceed
	}

	if err := rc.r.ParseForm(); err != nil {
		p.badRequest(rc, "malformed login form submission")
		return terminate
	}

	username := p.formField(rc.r, p.settings.UserIDField)
	password := p.formField(rc.r, p.settings.PasswordField)
	target := p.formField(rc.r, p.settings.TargetField)

	if p.settings.AgentName != "" {
		agentName := p.formField(rc.r, p.settings.AgentNameField)
		if agentName != p.settings.AgentName {
			p.audit.log(AuditAgentNameRejected, rc.r, slog.String("agent_name", agentName))
			p.badRequest(rc, fmt.Sprintf("%s of %s not supplied in logon POST data.",
				p.settings.AgentNameField, p.settings.AgentName))
			return terminate
		}
	}

	var fc FormCred
	user, found := p.users.FindByName(username)
	switch {
	case !found:
		p.audit.log(AuditLoginUnknownUser, rc.r, slog.String("user", username))
		fc = NewFormCred(nil, StatusBadLogin, target)
	case user.Password != password:
		p.audit.logUser(AuditLoginBadPassword, rc.r, user.Name)
		fc = NewFormCred(&user, StatusBadPassword, target)
	default:
		// Reset the attempt counter now, not deferred to the exchange, so
		// a successful login always clears prior failures.
		user.LoginAttempts = 0
		if err := p.users.Save(user); err != nil {
			return p.internalError(rc, fmt.Errorf("saving user %q: %w", user.Name, err))
		}
		fc = NewFormCred(&user, StatusGoodLogin, target)
	}

	p.formcreds.Put(fc)
	p.setCookie(rc, p.settings.FormCredCookieName, fc.FormCredID, p.settings.FormCredCookieDomain)

	if target == "" {
		target = "/"
	}
	http.Redirect(rc.w, rc.r, target, http.StatusFound)
	return terminate
}

// logoffStage tears down the session when the request hits the configured
// logoff URL. The request still continues to the upstream application so
// its logoff page can render.
func (p *Pipeline) logoffStage(rc *requestContext) outcome {
	if rc.r.URL.Path != p.app.Logoff {
		return proceed
	}
	if rc.session != nil {
		p.sessions.Remove(rc.session.SessionID)
		p.audit.logUser(AuditLogoff, rc.r, rc.session.User.Name,
			slog.String("session_id", rc.session.SessionID))
		rc.session = nil
	}
	p.setCookie(rc, p.settings.SessionCookieName, LoggedOffSentinel, p.settings.SessionCookieDomain)
	return proceed
}

// finalizeStage renews the sliding expiration of an attached session and
// writes the session cookie back to the browser.
func (p *Pipeline) finalizeStage(rc *requestContext) outcome {
	if rc.session == nil {
		return proceed
	}
	rc.session.ResetExpiration(p.now(), p.settings.SessionExpiry)
	p.sessions.Create(*rc.session)
	p.setCookie(rc, p.settings.SessionCookieName, rc.session.SessionID, p.settings.SessionCookieDomain)
	p.audit.log(AuditSessionRenewed, rc.r,
		slog.String("session_id", rc.session.SessionID),
		slog.Time("expiration", rc.session.Expiration))
	return proceed
}

func (p *Pipeline) formCredToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(p.settings.FormCredCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// formField extracts a login form field by name, case-insensitively, so
// that agents posting username/USERNAME/UserName all work.
func (p *Pipeline) formField(r *http.Request, name string) string {
	for key, values := range r.PostForm {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (p *Pipeline) injectAuthHeaders(rc *requestContext) {
	for name, value := range rc.session.User.AuthHeaders {
		rc.r.Header.Set(name, value)
	}
}

// redirect sends a 302 to the target template resolved against the request
// URL. An unconfigured target fails loud instead of silently redirecting to
// nothing: 401 with a Basic challenge for not_authenticated, 404 with a
// descriptive body for the rest.
func (p *Pipeline) redirect(rc *requestContext, target string, kind redirectKind) outcome {
	if target == "" {
		p.audit.log(AuditMissingRedirect, rc.r, slog.String("target", kind.String()))
		p.missingRedirectTarget(rc, kind)
		return terminate
	}
	resolved, err := Resolve(rc.r.URL.RequestURI(), target)
	if err != nil {
		return p.internalError(rc, fmt.Errorf("resolving %s target: %w", kind, err))
	}
	http.Redirect(rc.w, rc.r, resolved, http.StatusFound)
	return terminate
}

func (p *Pipeline) missingRedirectTarget(rc *requestContext, kind redirectKind) {
	if kind == redirectNotAuthenticated {
		rc.w.Header().Set("WWW-Authenticate", `Basic realm="fauxgate"`)
		http.Error(rc.w, "No redirect target configured for unauthenticated requests.",
			http.StatusUnauthorized)
		return
	}
	http.Error(rc.w, fmt.Sprintf("No %s redirect target is configured.", kind),
		http.StatusNotFound)
}

func (p *Pipeline) badRequest(rc *requestContext, message string) {
	rc.w.WriteHeader(http.StatusBadRequest)
	fmt.Fprint(rc.w, message)
}

func (p *Pipeline) internalError(rc *requestContext, err error) outcome {
	p.audit.logger.LogAttrs(rc.r.Context(), slog.LevelError, "pipeline error",
		slog.String("error", err.Error()))
	http.Error(rc.w, "internal error", http.StatusInternalServerError)
	return terminate
}

func (p *Pipeline) setCookie(rc *requestContext, name, value, domain string) {
	http.SetCookie(rc.w, &http.Cookie{
		Name:   name,
		Value:  value,
		Path:   "/",
		Domain: domain,
	})
}
