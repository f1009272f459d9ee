package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 1 << 20
	requestIDHeader       = "X-Request-ID"
	defaultUserAgent      = "crew"

	invalidResponseMessage = "invalid response from server"
	sessionExpiredMessage  = "session expired, please sign in again"
)

// Token error codes that some backends send with 403 instead of 401.
var unauthenticatedCodes = map[string]bool{
	"token_not_valid":       true,
	"not_authenticated":     true,
	"authentication_failed": true,
	"unauthenticated":       true,
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	UserAgent string
}

// Gateway is the only component that talks to the remote API. It attaches
// the role's bearer token, classifies every response into an Outcome and is
// the single place that forces a logout when the server rejects a token.
type Gateway struct {
	baseURL   *url.URL
	client    *http.Client
	sessions  ports.SessionSource
	limiter   *rate.Limiter
	recorder  ports.OutcomeRecorder
	logger    *slog.Logger
	timeout   time.Duration
	userAgent string
	requestID func() string
	now       func() time.Time
}

var _ ports.Gateway = (*Gateway)(nil)

type Option func(*Gateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithRecorder(recorder ports.OutcomeRecorder) Option {
	return func(g *Gateway) {
		g.recorder = recorder
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithRequestIDs(next func() string) Option {
	return func(g *Gateway) {
		if next != nil {
			g.requestID = next
		}
	}
}

func New(cfg Config, sessions ports.SessionSource, opts ...Option) (*Gateway, error) {
	if sessions == nil {
		return nil, errors.New("session source is required")
	}

	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	g := &Gateway{
		baseURL:   baseURL,
		client:    http.DefaultClient,
		sessions:  sessions,
		logger:    slog.New(slog.DiscardHandler),
		timeout:   timeout,
		userAgent: userAgent,
		requestID: uuid.NewString,
		now:       time.Now,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gateway")

	return g, nil
}

func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

func (g *Gateway) Call(ctx context.Context, req ports.Request) domain.Outcome {
	started := g.now()
	outcome := g.call(ctx, req)
	if g.recorder != nil {
		g.recorder.RecordOutcome(req.Role, outcome.Kind, g.now().Sub(started))
	}
	return outcome
}

func (g *Gateway) call(ctx context.Context, req ports.Request) domain.Outcome {
	if !req.Role.Valid() {
		return domain.DomainError(fmt.Sprintf("unknown role %q", req.Role))
	}

	var credential *domain.Credential
	if !req.Public {
		credential = g.sessions.Credential(ctx, req.Role)
		if credential.Empty() {
			return domain.AuthError("not signed in as " + string(req.Role))
		}
	}

	httpRequest, err := g.newRequest(ctx, req, credential)
	if err != nil {
		g.logger.ErrorContext(ctx, "build request failed", "role", req.Role, "path", req.Path, "error", err)
		return domain.DomainError(err.Error())
	}
	requestID := httpRequest.Header.Get(requestIDHeader)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.logger.WarnContext(ctx, "request pacing aborted", "role", req.Role, "request_id", requestID, "error", err)
			return domain.TransportError()
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	response, err := g.client.Do(httpRequest.WithContext(requestCtx))
	if err != nil {
		g.logger.WarnContext(ctx, "request transport failed",
			"role", req.Role, "method", httpRequest.Method, "path", req.Path, "request_id", requestID, "error", err)
		return domain.TransportError()
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		g.logger.WarnContext(ctx, "read response failed", "role", req.Role, "request_id", requestID, "error", err)
		return domain.TransportError()
	}

	outcome := g.classify(ctx, req, credential, response.StatusCode, body)
	g.logger.DebugContext(ctx, "request completed",
		"role", req.Role, "method", httpRequest.Method, "path", req.Path,
		"status", response.StatusCode, "outcome", outcome.Kind, "request_id", requestID)
	return outcome
}

func (g *Gateway) newRequest(ctx context.Context, req ports.Request, credential *domain.Credential) (*http.Request, error) {
	endpoint, err := g.endpoint(req.Path)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", g.userAgent)
	httpRequest.Header.Set(requestIDHeader, g.requestID())
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if credential != nil {
		token := &oauth2.Token{AccessToken: credential.AccessToken, TokenType: "Bearer"}
		token.SetAuthHeader(httpRequest)
	}

	return httpRequest, nil
}

func (g *Gateway) classify(ctx context.Context, req ports.Request, credential *domain.Credential, status int, body []byte) domain.Outcome {
	if status >= 200 && status <= 299 {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 {
			return withStatus(domain.Success(nil), status)
		}
		if !json.Valid(trimmed) {
			return withStatus(domain.DomainError(invalidResponseMessage), status)
		}
		return withStatus(domain.Success(json.RawMessage(trimmed)), status)
	}

	serverError := parseServerError(body)

	if !req.Public && credential != nil && isUnauthenticated(status, serverError) {
		g.logger.InfoContext(ctx, "server rejected credential, signing out", "role", req.Role, "status", status)
		g.sessions.ForceLogout(ctx, req.Role, *credential)
		message := serverError.message()
		if message == "" {
			message = sessionExpiredMessage
		}
		return withStatus(domain.AuthError(message), status)
	}

	message := serverError.message()
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return withStatus(domain.DomainError(message), status)
}

func (g *Gateway) endpoint(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("api path is required")
	}
	if strings.Contains(trimmed, "://") {
		return "", fmt.Errorf("api path %q must be relative", path)
	}

	rawPath, rawQuery, _ := strings.Cut(trimmed, "?")
	endpoint := g.baseURL.JoinPath(rawPath)
	endpoint.RawQuery = rawQuery
	return endpoint.String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}

	return parsed, nil
}

func withStatus(outcome domain.Outcome, status int) domain.Outcome {
	outcome.Status = status
	return outcome
}

func isUnauthenticated(status int, serverError serverErrorBody) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	return status == http.StatusForbidden && unauthenticatedCodes[strings.ToLower(serverError.Code)]
}

type serverErrorBody struct {
	Message        string   `json:"message"`
	Detail         string   `json:"detail"`
	Error          string   `json:"error"`
	Code           string   `json:"code"`
	NonFieldErrors []string `json:"non_field_errors"`
}

func (b serverErrorBody) message() string {
	for _, candidate := range []string{b.Message, b.Detail, b.Error} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	for _, candidate := range b.NonFieldErrors {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseServerError tolerates bodies where fields have unexpected types; a
// failed decode yields an empty body and the generic status message.
func parseServerError(body []byte) serverErrorBody {
	var parsed serverErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}

	var loose map[string]any
	if err := json.Unmarshal(body, &loose); err != nil {
		return serverErrorBody{}
	}
	for _, key := range []string{"message", "detail", "error"} {
		if value, ok := loose[key].(string); ok && parsed.message() == "" {
			parsed.Message = value
		}
	}
	if code, ok := loose["code"].(string); ok {
		parsed.Code = code
	}
	return parsed
}
