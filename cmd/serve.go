package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/safegate/internal/auth"
	"github.com/teemow/safegate/internal/credentials"
	"github.com/teemow/safegate/internal/dispatch"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/server"
	"github.com/teemow/safegate/internal/session"
)

const (
	defaultHTTPAddr    = ":3000"
	defaultRedirectURI = "http://localhost:3000/auth/callback"
	defaultFrontendURL = "http://localhost:3001"
	defaultCORSOrigins = "http://127.0.0.1:3001"
	defaultSessionTTL  = 24 * time.Hour
	defaultEnvFile     = ".env"
)

// ServeConfig holds everything the serve command needs, resolved from flags,
// the environment and an optional .env file, in that order of precedence.
type ServeConfig struct {
	HTTPAddr string
	Debug    bool

	LogFormat string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	FrontendURL string
	CORSOrigins []string

	SessionTTL   time.Duration
	CookieSecure bool

	DispatchBackend string
	WebhookURL      string

	AuthRateLimit float64

	Metrics MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		cfg         ServeConfig
		corsOrigins string
		envFile     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long: `Start the safegate gateway: a browser-facing HTTP server that runs the Google
OAuth authorization-code flow for each browser session and proxies the
dashboard's calls to Google Tasks, Calendar, Search Console and Sheets.

Configuration:
  Every flag can also be set through the environment variable named in its
  help text. Variables are read from a .env file when present; real
  environment variables win over the file and explicit flags win over both.

  The server starts without Google credentials and answers "OAuth non
  configuré" until they are supplied, either through GOOGLE_CLIENT_ID and
  GOOGLE_CLIENT_SECRET or at runtime with POST /admin/config.

Dispatch backends:
  google   call the Google APIs directly (default)
  webhook  relay each call to a workflow engine webhook (--webhook-url)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg.CORSOrigins = parseCommaSeparatedList(corsOrigins)
			if err := loadServeEnvVars(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", defaultEnvFile, "Path of an optional .env file to load before reading the environment")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging. Can also use DEBUG env var.")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", defaultHTTPAddr, "HTTP server address. Can also use HTTP_ADDR, or PORT for the port alone.")

	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.GoogleRedirectURI, "google-redirect-uri", defaultRedirectURI, "OAuth redirect URI registered with Google, fixed for the process lifetime. Can also use GOOGLE_REDIRECT_URI env var.")

	cmd.Flags().StringVar(&cfg.FrontendURL, "frontend-url", defaultFrontendURL, "Front-end URL, target of the post-login redirect and an allowed CORS origin. Can also use FRONTEND_URL env var.")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", defaultCORSOrigins, "Extra allowed CORS origins (comma-separated). Can also use CORS_ORIGINS env var.")

	cmd.Flags().DurationVar(&cfg.SessionTTL, "session-ttl", defaultSessionTTL, "Session lifetime. Can also use SESSION_TTL env var.")
	cmd.Flags().BoolVar(&cfg.CookieSecure, "cookie-secure", false, "Mark the session cookie Secure (HTTPS only). Can also use COOKIE_SECURE env var.")

	cmd.Flags().StringVar(&cfg.DispatchBackend, "dispatch-backend", dispatch.BackendGoogle, "Dispatch backend: google or webhook. Can also use DISPATCH_BACKEND env var.")
	cmd.Flags().StringVar(&cfg.WebhookURL, "webhook-url", "", "Workflow engine webhook URL for the webhook backend. Can also use N8N_WEBHOOK_URL env var.")

	cmd.Flags().Float64Var(&cfg.AuthRateLimit, "auth-rate-limit", server.DefaultRateLimit, "Requests per second per client IP on /admin/config and /auth/callback; negative disables. Can also use AUTH_RATE_LIMIT env var.")

	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadEnvFile loads path into the environment. Variables already set are
// kept and a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadServeEnvVars fills cfg from environment variables. A variable only
// applies when its flag was not explicitly set.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) error {
	flags := cmd.Flags()
	str := func(flag, env string, dst *string) {
		if flags.Changed(flag) {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	boolean := func(flag, env string, dst *bool) error {
		if flags.Changed(flag) {
			return nil
		}
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", env, v, err)
		}
		*dst = b
		return nil
	}

	if !flags.Changed("http-addr") {
		if addr := os.Getenv("HTTP_ADDR"); addr != "" {
			cfg.HTTPAddr = addr
		} else if port := os.Getenv("PORT"); port != "" {
			if _, err := strconv.Atoi(port); err != nil {
				return fmt.Errorf("invalid PORT %q: %w", port, err)
			}
			cfg.HTTPAddr = ":" + port
		}
	}

	str("log-format", "LOG_FORMAT", &cfg.LogFormat)
	str("google-client-id", "GOOGLE_CLIENT_ID", &cfg.GoogleClientID)
	str("google-client-secret", "GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret)
	str("google-redirect-uri", "GOOGLE_REDIRECT_URI", &cfg.GoogleRedirectURI)
	str("frontend-url", "FRONTEND_URL", &cfg.FrontendURL)
	str("dispatch-backend", "DISPATCH_BACKEND", &cfg.DispatchBackend)
	str("webhook-url", "N8N_WEBHOOK_URL", &cfg.WebhookURL)
	str("metrics-addr", "METRICS_ADDR", &cfg.Metrics.Addr)

	if !flags.Changed("cors-origins") {
		if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
			cfg.CORSOrigins = parseCommaSeparatedList(v)
		}
	}

	for _, b := range []struct {
		flag, env string
		dst       *bool
	}{
		{"debug", "DEBUG", &cfg.Debug},
		{"cookie-secure", "COOKIE_SECURE", &cfg.CookieSecure},
		{"metrics-enabled", "METRICS_ENABLED", &cfg.Metrics.Enabled},
	} {
		if err := boolean(b.flag, b.env, b.dst); err != nil {
			return err
		}
	}

	if !flags.Changed("session-ttl") {
		if v := os.Getenv("SESSION_TTL"); v != "" {
			ttl, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
			}
			cfg.SessionTTL = ttl
		}
	}
	if !flags.Changed("auth-rate-limit") {
		if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
			limit, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid AUTH_RATE_LIMIT %q: %w", v, err)
			}
			cfg.AuthRateLimit = limit
		}
	}
	return nil
}

// Validate checks the resolved configuration. Missing Google credentials are
// allowed: they can be supplied at runtime.
func (c *ServeConfig) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.SessionTTL)
	}
	if c.GoogleRedirectURI == "" {
		return errors.New("google redirect URI is required")
	}
	switch c.DispatchBackend {
	case dispatch.BackendGoogle:
	case dispatch.BackendWebhook:
		if c.WebhookURL == "" {
			return errors.New("webhook backend requires --webhook-url or N8N_WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("unsupported dispatch backend %q, must be google or webhook", c.DispatchBackend)
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return errors.New("google client ID and secret must be set together")
	}
	return nil
}

func runServe(ctx context.Context, cfg ServeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(logging.NewHandler(os.Stderr, cfg.LogFormat, cfg.Debug))
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.DispatchBackend = cfg.DispatchBackend
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer flushCancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	creds := credentials.NewStore(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, logger)
	if !creds.IsConfigured() {
		logger.Warn("Google OAuth credentials missing, configure them with POST /admin/config")
	}

	sessions := session.NewStore(cfg.SessionTTL, logger)
	sessions.SetMetrics(metrics)

	manager, err := auth.NewManager(auth.Config{
		Credentials: creds,
		Sessions:    sessions,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	gateway, err := dispatch.NewGateway(dispatch.GatewayConfig{
		Configs: manager,
		Backend: backend,
		Logger:  logger,
		Metrics: metrics,
		Audit:   instrumentation.NewAuditLogger(logger, instrConfig.Audit),
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Credentials: creds,
		Sessions:    sessions,
		Auth:        manager,
		Dispatcher:  gateway,
		Cookie: session.CookieConfig{
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionTTL,
		},
		FrontendURL:    cfg.FrontendURL,
		AllowedOrigins: cfg.CORSOrigins,
		RateLimit:      cfg.AuthRateLimit,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	logger.Info("safegate starting",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("frontend_url", cfg.FrontendURL),
		slog.String("redirect_uri", cfg.GoogleRedirectURI),
		slog.String("backend", gateway.Backend()),
		slog.Bool("google_configured", creds.IsConfigured()),
		slog.Duration("session_ttl", cfg.SessionTTL))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, draining requests")
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer drainCancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(drainCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	logger.Info("safegate stopped")
	return nil
}

func newBackend(cfg ServeConfig, logger *slog.Logger) (dispatch.Backend, error) {
	switch cfg.DispatchBackend {
	case dispatch.BackendWebhook:
		return dispatch.NewWebhookBackend(cfg.WebhookURL, nil, logging.NewSlogAdapter(logger))
	default:
		return dispatch.NewGoogleBackend(), nil
	}
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
