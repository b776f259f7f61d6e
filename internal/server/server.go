// package server runs the local HTTP callback that completes the OAuth authorization code flow
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the mux patterns it serves.
type Handler interface {
	http.Handler
	Routes() []string // Routes returns ServeMux patterns, e.g. "GET /callback"
}

// RequestLogger logs every request at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("callback request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// CallbackServer serves one [OAuthHandler] until [CallbackServer.Shutdown].
type CallbackServer struct {
	addr     string
	handler  *OAuthHandler
	logger   *log.Logger
	srv      *http.Server
	listener net.Listener
	errs     chan error
}

// NewCallbackServer prepares a server on addr ("host:port"; port 0 picks a free one).
func NewCallbackServer(addr string, handler *OAuthHandler, logger *log.Logger) *CallbackServer {
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	return &CallbackServer{
		addr:    addr,
		handler: handler,
		logger:  logger,
		srv:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:    make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %w", shared.ErrNetwork, s.addr, err)
	}
	s.listener = ln
	s.logger.Info("waiting for OAuth callback", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr is the bound address, available after [CallbackServer.Start].
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Wait blocks until the callback completes, the server fails, ctx ends or timeout passes.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuth)
		}
		return result.Token, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("%w: callback server: %w", shared.ErrNetwork, err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
