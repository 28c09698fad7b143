// Package proxy is the HTTP transport in front of the authentication
// pipeline: it runs each inbound request through the pipeline and, when the
// pipeline lets it continue, forwards it to the upstream application.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"syscall"

	"github.com/jmcleod/fauxgate/gate"
)

type ctxKey int

const originalHostKey ctxKey = iota

// Server proxies requests for one upstream application.
type Server struct {
	pipeline      *gate.Pipeline
	upstream      *url.URL
	reverse       *httputil.ReverseProxy
	logger        *slog.Logger
	setXProxiedBy bool
}

// Option configures a Server.
type Option func(*Server)

// WithXProxiedBy makes the proxy stamp an X-Proxied-By header onto
// forwarded requests.
func WithXProxiedBy() Option {
	return func(s *Server) {
		s.setXProxiedBy = true
	}
}

// New creates a proxy server forwarding to upstreamAddr (host:port).
func New(pipeline *gate.Pipeline, upstreamAddr string, logger *slog.Logger, opts ...Option) (*Server, error) {
	upstream, err := url.Parse("http://" + upstreamAddr)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream address %q: %w", upstreamAddr, err)
	}
	s := &Server{
		pipeline: pipeline,
		upstream: upstream,
		logger:   logger.With("component", "proxy", "upstream", upstreamAddr),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reverse = &httputil.ReverseProxy{
		Rewrite:        s.rewrite,
		ModifyResponse: s.modifyResponse,
		ErrorHandler:   s.errorHandler,
	}
	return s, nil
}

// ServeHTTP runs the pipeline and forwards the request upstream when the
// pipeline continues. The pipeline writes its own responses (redirects,
// errors) when it terminates a request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.pipeline.Handle(w, r) {
		return
	}
	ctx := context.WithValue(r.Context(), originalHostKey, r.Host)
	s.reverse.ServeHTTP(w, r.WithContext(ctx))
}

func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(s.upstream)
	pr.SetXForwarded()
	if s.setXProxiedBy {
		pr.Out.Header.Set("X-Proxied-By", "fauxgate")
	}
}

// modifyResponse points upstream-issued redirects back at the proxy so the
// browser never talks to the upstream host directly, and logs the upstream
// response status.
func (s *Server) modifyResponse(resp *http.Response) error {
	req := resp.Request

	switch {
	case resp.StatusCode >= 500:
		s.logger.Error("upstream response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	case resp.StatusCode >= 400:
		s.logger.Warn("upstream response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	default:
		s.logger.Debug("upstream response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil
	}
	u, err := url.Parse(location)
	if err != nil || u.Host != s.upstream.Host {
		return nil
	}
	if host, ok := req.Context().Value(originalHostKey).(string); ok && host != "" {
		u.Host = host
		resp.Header.Set("Location", u.String())
	}
	return nil
}

func (s *Server) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, syscall.ECONNREFUSED) {
		s.logger.Error("connection refused, make sure the target application is running",
			"upstream", s.upstream.Host)
	} else {
		s.logger.Error("proxy error", "error", err, "url", r.URL.String())
	}
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, "The upstream application at %s is not responding.", s.upstream.Host)
}
