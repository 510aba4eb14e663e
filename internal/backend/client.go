// Package backend is the HTTP client for the REST backend that owns catalog and cart data.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	genericTransportMessage = "We could not reach the store right now. Please try again."
	breakerOpenMessage      = "The store is temporarily unavailable. Please try again shortly."
)

// errUpstream marks 5xx responses so the breaker counts them as failures.
var errUpstream = errors.New("upstream 5xx")

// Client talks to the backend over HTTP/JSON.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  *slog.Logger
}

// envelope is the { data: ... } wrapper every backend response uses.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// errorBody is the shape of a non-2xx response body.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewClient builds a client for cfg.URL with tracing transport and a circuit breaker.
func NewClient(cfg config.BackendConfig, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{
		http:    httpClient,
		breaker: newBreaker(cfg.CircuitBreaker),
		logger:  logger.With("component", "backend"),
	}
}

func newBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*resty.Response] {
	st := gobreaker.Settings{
		Name:        "backend-cb",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers are the backend working as intended
			return err == nil
		},
	}
	return gobreaker.NewCircuitBreaker[*resty.Response](st)
}

// List fetches GET /{path} and returns the raw data array.
func (c *Client) List(ctx context.Context, path string, userID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/"+path, userID, nil)
}

// AddCartLine posts a quantity delta for a product and returns the line the backend echoes.
func (c *Client) AddCartLine(ctx context.Context, userID string, productID string, delta int) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/cart/"+url.PathEscape(productID), userID, map[string]int{"delta": delta})
}

// UpdateCartLine patches a line's quantity by delta and returns the server-confirmed line.
func (c *Client) UpdateCartLine(ctx context.Context, userID string, lineID string, delta int) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, "/cart/"+url.PathEscape(lineID), userID, map[string]int{"delta": delta})
}

// DeleteCartLine removes a line.
func (c *Client) DeleteCartLine(ctx context.Context, userID string, lineID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(lineID), userID, nil)
	return err
}

// Check reports whether the backend answers its health endpoint.
func (c *Client) Check(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("backend health check response code: %d", resp.StatusCode())
	}
	return nil
}

// do executes one request through the breaker and maps the outcome onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path, userID string, body any) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.http.R().SetContext(ctx)
		if userID != "" {
			req.SetHeader(web.XUserId, userID)
		}
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errUpstream
		}
		return resp, nil
	})

	if err != nil && !errors.Is(err, errUpstream) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WarnContext(ctx, "Backend circuit open", "method", method, "path", path)
			return nil, storeerrors.NetworkFailure(breakerOpenMessage)
		}
		c.logger.ErrorContext(ctx, "Backend request failed", "method", method, "path", path, "error", err)
		return nil, storeerrors.NetworkFailure(genericTransportMessage)
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
	)

	if resp.IsError() {
		return nil, storeerrors.ServerError(resp.StatusCode(), errorMessage(resp))
	}
	if resp.StatusCode() == http.StatusNoContent || len(resp.Body()) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", storeerrors.ErrDecodePayload, err)
	}
	return env.Data, nil
}

// errorMessage prefers the body's message, then its error field, then a generic description.
func errorMessage(resp *resty.Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode())
}
