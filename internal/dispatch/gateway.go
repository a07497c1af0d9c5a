package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/session"
)

// Result is the upstream response, ready to be serialized as JSON.
type Result struct {
	Body any
}

// Dispatcher performs one authenticated upstream call.
type Dispatcher interface {
	Dispatch(ctx context.Context, tokens *oauth2.Token, req Request) (Result, error)
}

// Backend executes a validated request against an upstream. It is only
// called once the session is authenticated and the credential configured.
type Backend interface {
	Name() string
	Do(ctx context.Context, conf *oauth2.Config, tokens *oauth2.Token, req Request) (any, error)
}

// ConfigSource yields the oauth2 configuration of the live credential, or a
// NotConfigured error.
type ConfigSource interface {
	OAuthConfig() (*oauth2.Config, error)
}

// GatewayConfig holds the collaborators of a Gateway.
type GatewayConfig struct {
	Configs ConfigSource
	Backend Backend
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Gateway enforces the dispatch preconditions in a fixed order and hands the
// request to its backend:
//  1. no token set: Unauthenticated, no upstream call
//  2. missing parameter: InvalidParameter
//  3. no credential: NotConfigured
//
// Calls are independent. Nothing is retried, cached or deduplicated.
type Gateway struct {
	configs ConfigSource
	backend Backend
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

var _ Dispatcher = (*Gateway)(nil)

// NewGateway creates a Gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Configs == nil {
		return nil, errors.New("config source is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("dispatch backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		configs: cfg.Configs,
		backend: cfg.Backend,
		logger:  logging.WithService(logger, "dispatch"),
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
	}, nil
}

// Backend returns the name of the backend serving the calls.
func (g *Gateway) Backend() string {
	return g.backend.Name()
}

// Dispatch performs req with the session's token set.
func (g *Gateway) Dispatch(ctx context.Context, tokens *oauth2.Token, req Request) (Result, error) {
	api := string(req.API())

	if tokens == nil {
		g.metrics.RecordDispatchRejection(ctx, api, string(apierror.KindUnauthenticated))
		return Result{}, apierror.ErrUnauthenticated()
	}
	if err := req.Validate(); err != nil {
		g.metrics.RecordDispatchRejection(ctx, api, string(apierror.KindInvalidParameter))
		return Result{}, err
	}
	conf, err := g.configs.OAuthConfig()
	if err != nil {
		g.metrics.RecordDispatchRejection(ctx, api, string(apierror.As(err).Kind))
		return Result{}, err
	}

	sessionHash := ""
	if id := session.IDFromContext(ctx); id != "" {
		sessionHash = logging.AnonymizeSession(id)
	}

	ctx, span := instrumentation.StartUpstreamSpan(ctx, api, string(req.Operation),
		instrumentation.NewSpanAttributeBuilder().
			WithResource(req.Resource()).
			WithSession(sessionHash).
			WithBackend(g.backend.Name()).
			Build()...)
	defer span.End()

	record := instrumentation.NewDispatchRecord(api, string(req.Operation)).
		WithSession(sessionHash).
		WithBackend(g.backend.Name()).
		WithResource(req.Resource()).
		WithSpanContext(ctx)
	start := time.Now()

	logger := logging.WithOperation(g.logger, string(req.Operation)).With(logging.API(api))
	body, err := g.backend.Do(ctx, conf, tokens, req)
	if err != nil {
		apiErr := upstreamError(err)
		instrumentation.SetSpanError(span, err)
		if apiErr.UpstreamStatus != 0 {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrUpstreamStatus, apiErr.UpstreamStatus))
		}
		g.metrics.RecordUpstreamOperation(ctx, api, string(req.Operation), req.Resource(), instrumentation.StatusError, time.Since(start))
		g.audit.LogDispatch(ctx, record.Complete(err, apiErr.UpstreamStatus))
		logger.Warn("upstream call failed",
			logging.Status(logging.StatusError),
			slog.Int("upstream_status", apiErr.UpstreamStatus),
			logging.Err(err))
		return Result{}, apiErr
	}

	instrumentation.SetSpanSuccess(span)
	g.metrics.RecordUpstreamOperation(ctx, api, string(req.Operation), req.Resource(), instrumentation.StatusSuccess, time.Since(start))
	g.audit.LogDispatch(ctx, record.Complete(nil, 0))
	logger.Debug("upstream call completed",
		logging.Status(logging.StatusSuccess),
		slog.Duration("duration", time.Since(start)))

	return Result{Body: body}, nil
}

// upstreamError maps a backend failure onto UpstreamCallFailure, keeping the
// upstream status and message verbatim. Gateway errors pass through.
func upstreamError(err error) *apierror.Error {
	var gwErr *apierror.Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" {
			msg = http.StatusText(gErr.Code)
		}
		return apierror.ErrUpstreamCallFailure(gErr.Code, msg, err)
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return apierror.ErrUpstreamCallFailure(status, err.Error(), err)
	}

	return apierror.ErrUpstreamCallFailure(0, err.Error(), err)
}
