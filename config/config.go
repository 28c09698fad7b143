// Package config loads and validates the JSON configuration file that
// drives the proxy: listener settings, gateway-wide SiteMinder-equivalent
// knobs, per-upstream-application access rules, and the user collection.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmcleod/fauxgate/gate"
)

// Config is the root of the configuration document.
type Config struct {
	Proxy        Proxy                  `json:"proxy"`
	SiteMinder   SiteMinder             `json:"siteminder"`
	UpstreamApps map[string]UpstreamApp `json:"upstream_apps"`
	Users        []gate.User            `json:"users"`
}

// Proxy configures the listener.
type Proxy struct {
	Port          int  `json:"port"`
	SetXProxiedBy bool `json:"set_x_proxied_by"`
}

// SiteMinder carries the gateway-wide settings shared by every upstream
// application. Zero values fall back to the defaults of the real product.
type SiteMinder struct {
	SMCookie             string `json:"sm_cookie"`
	SMCookieDomain       string `json:"sm_cookie_domain,omitempty"`
	FormCredCookie       string `json:"formcred_cookie"`
	FormCredCookieDomain string `json:"formcred_cookie_domain,omitempty"`
	UserIDField          string `json:"userid_field"`
	PasswordField        string `json:"password_field"`
	TargetField          string `json:"target_field"`
	SessionExpiryMinutes int    `json:"session_expiry_minutes"`
	MaxLoginAttempts     int    `json:"max_login_attempts"`
	SMAgentName          string `json:"smagentname"`
	LoginFCC             string `json:"login_fcc"`
}

// UpstreamApp configures one protected application: where to forward
// requests and which URLs the pipeline redirects to.
type UpstreamApp struct {
	Hostname           string                `json:"hostname"`
	Port               int                   `json:"port"`
	Logoff             string                `json:"logoff"`
	NotAuthenticated   string                `json:"not_authenticated"`
	BadLogin           string                `json:"bad_login"`
	BadPassword        string                `json:"bad_password"`
	AccountLocked      string                `json:"account_locked"`
	ProtectedByDefault bool                  `json:"protected_by_default"`
	PathFilters        []gate.PathFilterRule `json:"path_filters"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on configuration that cannot possibly work. Redirect
// targets may be empty: the pipeline fails loud at point of use instead of
// silently redirecting to nothing.
func (c *Config) Validate() error {
	if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("proxy.port %d is out of range", c.Proxy.Port)
	}
	if len(c.UpstreamApps) == 0 {
		return fmt.Errorf("no upstream_apps configured")
	}
	for name, app := range c.UpstreamApps {
		if app.Hostname == "" {
			return fmt.Errorf("upstream app %q: hostname is required", name)
		}
		if app.Port <= 0 || app.Port > 65535 {
			return fmt.Errorf("upstream app %q: port %d is out of range", name, app.Port)
		}
	}
	if c.SiteMinder.SessionExpiryMinutes < 0 {
		return fmt.Errorf("siteminder.session_expiry_minutes must not be negative")
	}
	if c.SiteMinder.MaxLoginAttempts < 0 {
		return fmt.Errorf("siteminder.max_login_attempts must not be negative")
	}
	for _, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("users: every user needs a name")
		}
	}
	return nil
}

// Settings maps the SiteMinder block onto the pipeline settings, applying
// the product defaults for anything unset.
func (c *Config) Settings() gate.Settings {
	s := gate.Settings{
		SessionCookieName:    c.SiteMinder.SMCookie,
		SessionCookieDomain:  c.SiteMinder.SMCookieDomain,
		FormCredCookieName:   c.SiteMinder.FormCredCookie,
		FormCredCookieDomain: c.SiteMinder.FormCredCookieDomain,
		UserIDField:          c.SiteMinder.UserIDField,
		PasswordField:        c.SiteMinder.PasswordField,
		TargetField:          c.SiteMinder.TargetField,
		SessionExpiry:        time.Duration(c.SiteMinder.SessionExpiryMinutes) * time.Minute,
		MaxLoginAttempts:     c.SiteMinder.MaxLoginAttempts,
		AgentName:            c.SiteMinder.SMAgentName,
		LoginFormURL:         c.SiteMinder.LoginFCC,
	}
	s.ApplyDefaults()
	return s
}

// Routes maps an upstream app block onto the pipeline's per-application
// routes.
func (a UpstreamApp) Routes() gate.AppRoutes {
	return gate.AppRoutes{
		Logoff:             a.Logoff,
		NotAuthenticated:   a.NotAuthenticated,
		BadLogin:           a.BadLogin,
		BadPassword:        a.BadPassword,
		AccountLocked:      a.AccountLocked,
		ProtectedByDefault: a.ProtectedByDefault,
		PathFilters:        a.PathFilters,
	}
}

// Addr returns the host:port the upstream app listens on.
func (a UpstreamApp) Addr() string {
	return fmt.Sprintf("%s:%d", a.Hostname, a.Port)
}
