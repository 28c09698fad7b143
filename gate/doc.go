// Package gate implements the authentication state machine and
// path-protection engine of the simulated SSO gateway.
//
// A [Pipeline] is the unit of configuration: one per upstream application,
// owning its own [SessionStore] and [CredentialExchange]. An external HTTP
// transport calls [Pipeline.Handle] per request; the pipeline runs the five
// ordered stages (init, protected, logon, logoff, finalize) and reports
// whether the request should be forwarded upstream.
//
// The two-phase credential hand-off works like the gateway being simulated:
// a login POST never creates a session directly. It records the outcome as
// a single-use [FormCred] and redirects the browser back to the protected
// resource; only when that next request presents the formcred token through
// the protected-path gate is a [Session] issued. A forged session cookie
// therefore never grants access, and the formcred token is consumed exactly
// once regardless of outcome.
package gate
