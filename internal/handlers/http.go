package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/models"
)

// maxLoggedBody caps how much of a response body is read for logging.
const maxLoggedBody = 64 << 10

// HTTPHandler calls HTTP APIs.
type HTTPHandler struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPHandler creates an HTTP API handler with its own rate limiter.
func NewHTTPHandler(cfg config.HTTPHandlerConfig) *HTTPHandler {
	return newHTTPHandler(cfg, NewRateLimiter(cfg))
}

// newHTTPHandler creates a handler drawing from limiter, which may be shared
// with other handlers. A nil limiter disables limiting.
func newHTTPHandler(cfg config.HTTPHandlerConfig, limiter *rate.Limiter) *HTTPHandler {
	return &HTTPHandler{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		userAgent: cfg.UserAgent,
	}
}

// NewRateLimiter returns the limiter described by cfg, or nil when
// RateLimit is not set.
func NewRateLimiter(cfg config.HTTPHandlerConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// Execute performs the action's request and checks the response status.
func (h *HTTPHandler) Execute(ctx context.Context, action *models.Action) error {
	call := action.HTTPAPI
	if call == nil || call.URL == "" {
		return fmt.Errorf("http_api action has no url")
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if call.Body != "" {
		body = strings.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), call.URL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	for key, value := range call.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))

	logging.Debug(logging.RunBody, action.LogSettings).
		Int("order", action.Order).
		Str("method", req.Method).
		Str("url", call.URL).
		Int("status", resp.StatusCode).
		Str("body", string(respBody)).
		Msg("HTTP API response")

	if !statusAccepted(resp.StatusCode, call.ExpectedStatus) {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func statusAccepted(status, expected int) bool {
	if expected != 0 {
		return status == expected
	}
	return status >= 200 && status < 300
}
