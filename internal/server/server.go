package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/safegate/internal/auth"
	"github.com/teemow/safegate/internal/credentials"
	"github.com/teemow/safegate/internal/dispatch"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/session"
)

const (
	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds writing a response, upstream call included.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 120 * time.Second

	serverSpanName = "safegate"
)

// Config holds the collaborators and settings of the gateway HTTP server.
type Config struct {
	Credentials *credentials.Store
	Sessions    *session.Store
	Auth        *auth.Manager
	Dispatcher  dispatch.Dispatcher

	// Health is optional; a fresh HealthChecker is created when nil.
	Health *HealthChecker

	// Cookie configures the session cookie. A zero MaxAge follows the session
	// store's TTL.
	Cookie session.CookieConfig

	// FrontendURL receives the browser after a successful authorization and
	// is always an allowed CORS origin.
	FrontendURL string

	// AllowedOrigins are extra CORS origins.
	AllowedOrigins []string

	// RateLimit is the per-IP request rate on the credential and callback
	// endpoints. Zero uses DefaultRateLimit; negative disables limiting.
	RateLimit float64
	RateBurst int

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// Now is the clock of the /health timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Server is the browser-facing gateway. It maps each route to one operation
// of the auth manager, the credential store or the dispatcher, and translates
// their errors to HTTP.
type Server struct {
	credentials *credentials.Store
	sessions    *session.Store
	auth        *auth.Manager
	dispatcher  dispatch.Dispatcher
	health      *HealthChecker
	limiter     *RateLimiter

	cookie         session.CookieConfig
	frontendURL    string
	allowedOrigins []string

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("auth manager is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.FrontendURL != "" {
		if _, err := url.ParseRequestURI(cfg.FrontendURL); err != nil {
			return nil, fmt.Errorf("invalid frontend URL: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthChecker(cfg.Credentials, cfg.Sessions)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	cookie := cfg.Cookie
	if cookie.MaxAge == 0 {
		cookie.MaxAge = cfg.Sessions.TTL()
	}

	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = DefaultRateBurst
	}

	return &Server{
		credentials:    cfg.Credentials,
		sessions:       cfg.Sessions,
		auth:           cfg.Auth,
		dispatcher:     cfg.Dispatcher,
		health:         health,
		limiter:        NewRateLimiter(rateLimit, burst),
		cookie:         cookie,
		frontendURL:    cfg.FrontendURL,
		allowedOrigins: normalizeOrigins(cfg.FrontendURL, cfg.AllowedOrigins),
		logger:         logging.WithService(logger, "server"),
		metrics:        cfg.Metrics,
		now:            now,
	}, nil
}

// Health returns the server's health checker.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler returns the complete HTTP handler of the gateway. Health endpoints
// bypass the session, CORS and request metrics layers.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	s.registerRoutes(api)

	root := http.NewServeMux()
	s.health.RegisterHealthEndpoints(root)
	root.Handle("/", s.cors(s.withSession(s.observe(api))))

	return otelhttp.NewHandler(s.recoverPanics(root), serverSpanName,
		otelhttp.WithMeterProvider(noop.NewMeterProvider()))
}

// Start listens on addr and serves until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.health.SetReady(true)
	s.logger.Info("gateway listening", slog.String("addr", ln.Addr().String()))
	return srv.Serve(ln)
}

// Shutdown fails readiness and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func normalizeOrigins(frontendURL string, extra []string) []string {
	seen := make(map[string]bool)
	var origins []string
	for _, o := range append([]string{frontendURL}, extra...) {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}
