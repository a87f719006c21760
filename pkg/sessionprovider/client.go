// Package sessionprovider talks to the external chat platform that hosts the
// actual conversations. The engine only ever needs three calls: ensure an
// account exists for a synthetic identity, mint a one-shot session token, and
// place an account in a group.
package sessionprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ltibridge",
		Subsystem: "session_provider",
		Name:      "request_duration_seconds",
		Help:      "Duration of session provider requests",
	}, []string{"operation"})

	providerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ltibridge",
		Subsystem: "session_provider",
		Name:      "request_failures_total",
		Help:      "Number of failed session provider requests",
	}, []string{"operation"})
)

// Account is the provider-side account bound to a synthetic identity.
type Account struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Created  bool   `json:"created"`
}

// Config defines configuration options for the session provider client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds each outbound call; failures surface immediately, no
	// retries.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client is the HTTP client for the session provider API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// Provider is the narrow interface the launch flow depends on.
type Provider interface {
	CreateOrGetAccount(ctx context.Context, identity string) (Account, error)
	IssueSessionToken(ctx context.Context, identity string) (string, error)
	AddAccountToGroup(ctx context.Context, accountID, group string) error
	CompletionURL(sessionToken string) string
}

// New builds a session provider client from the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("session provider base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("github.com/noah-isme/lti-bridge-api/pkg/sessionprovider"),
		logger:  cfg.Logger.With().Str("component", "session_provider").Logger(),
	}, nil
}

// CreateOrGetAccount ensures an account exists for the identity.
func (c *Client) CreateOrGetAccount(ctx context.Context, identity string) (Account, error) {
	var account Account
	err := c.do(ctx, "create_or_get_account", http.MethodPost, "/api/accounts", map[string]string{
		"identity": identity,
	}, &account)
	if err != nil {
		return Account{}, err
	}

	return account, nil
}

// IssueSessionToken mints a one-shot login token for the identity.
func (c *Client) IssueSessionToken(ctx context.Context, identity string) (string, error) {
	var response struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, "issue_session_token", http.MethodPost, "/api/session-tokens", map[string]string{
		"identity": identity,
	}, &response)
	if err != nil {
		return "", err
	}

	if response.Token == "" {
		return "", fmt.Errorf("session provider returned an empty token")
	}

	return response.Token, nil
}

// AddAccountToGroup places the account in the named group.
func (c *Client) AddAccountToGroup(ctx context.Context, accountID, group string) error {
	return c.do(ctx, "add_account_to_group", http.MethodPost, "/api/groups/members", map[string]string{
		"account_id": accountID,
		"group":      group,
	}, nil)
}

// CompletionURL is where the browser is redirected to redeem a session token.
func (c *Client) CompletionURL(sessionToken string) string {
	return c.baseURL + "/session/complete?token=" + url.QueryEscape(sessionToken)
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload map[string]string, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "sessionprovider."+operation,
		trace.WithAttributes(attribute.String("provider.operation", operation)))
	defer span.End()

	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	providerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		providerFailures.WithLabelValues(operation).Inc()
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error().Err(err).Str("operation", operation).Msg("session provider request failed")
		return fmt.Errorf("session provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		providerFailures.WithLabelValues(operation).Inc()
		span.SetStatus(codes.Error, resp.Status)
		c.logger.Error().Str("operation", operation).Int("status", resp.StatusCode).Msg("session provider returned an error")
		return fmt.Errorf("session provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			providerFailures.WithLabelValues(operation).Inc()
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to decode session provider response: %w", err)
		}
	}

	span.SetStatus(codes.Ok, "")

	return nil
}
