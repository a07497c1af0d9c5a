package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/google"
	"github.com/teemow/safegate/internal/logging"
)

// BackendWebhook is the name of the backend relaying calls to a workflow
// engine.
const BackendWebhook = "webhook"

// DefaultWebhookTimeout bounds one relayed call.
const DefaultWebhookTimeout = 30 * time.Second

// maxWebhookBody caps the response body read from the workflow engine.
const maxWebhookBody = 10 << 20

// WebhookPayload is the JSON document posted to the workflow engine.
type WebhookPayload struct {
	API       API       `json:"api"`
	Operation Operation `json:"operation"`
	Params    Params    `json:"params"`
}

// WebhookBackend relays each call to a workflow engine webhook (such as an n8n
// workflow) which performs the Google call itself. The session's access token
// travels as a bearer token and the engine's JSON answer is returned verbatim.
type WebhookBackend struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// NewWebhookBackend creates a WebhookBackend posting to webhookURL. A nil
// client gets a default one with DefaultWebhookTimeout.
func NewWebhookBackend(webhookURL string, client *http.Client, logger logging.Logger) (*WebhookBackend, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, errors.New("webhook URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultWebhookTimeout}
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &WebhookBackend{
		url:    webhookURL,
		client: client,
		logger: logger.With("backend", BackendWebhook),
	}, nil
}

// Name implements Backend.
func (b *WebhookBackend) Name() string {
	return BackendWebhook
}

// Do implements Backend.
func (b *WebhookBackend) Do(ctx context.Context, conf *oauth2.Config, tokens *oauth2.Token, req Request) (any, error) {
	token := tokens
	if !tokens.Valid() {
		refreshed, err := conf.TokenSource(google.WithHTTPClient(ctx, b.client), tokens).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh access token: %w", err)
		}
		token = refreshed
		b.logger.Debug("refreshed expired access token",
			"operation", string(req.Operation),
			"token", logging.SanitizeToken(token.AccessToken))
	}

	payload, err := json.Marshal(WebhookPayload{API: req.API(), Operation: req.Operation, Params: req.Params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	token.SetAuthHeader(httpReq)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Debug("webhook returned an error", "status", resp.StatusCode, "operation", string(req.Operation))
		return nil, apierror.ErrUpstreamCallFailure(resp.StatusCode, webhookErrorMessage(resp.StatusCode, body),
			fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return MessageBody{Message: http.StatusText(resp.StatusCode)}, nil
	}
	if !json.Valid(body) {
		return nil, apierror.ErrUpstreamCallFailure(resp.StatusCode, "invalid JSON from webhook", nil)
	}
	return json.RawMessage(body), nil
}

// webhookErrorMessage extracts "error" or "message" from a JSON error body,
// falling back to the status text.
func webhookErrorMessage(status int, body []byte) string {
	var doc struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		var s string
		if len(doc.Error) > 0 && json.Unmarshal(doc.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if len(doc.Error) > 0 && json.Unmarshal(doc.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if doc.Message != "" {
			return doc.Message
		}
	}
	return http.StatusText(status)
}
