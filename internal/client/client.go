// Package client talks to the annotation backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jonathan/jd-annotator/internal/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// ErrCircuitOpen is returned while the breaker rejects calls after repeated backend failures.
var ErrCircuitOpen = errors.New("annotation backend circuit breaker is open")

// Error represents a failed backend call.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// clientError reports whether err is a 4xx response, which says nothing about backend health.
func clientError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode >= 400 && e.StatusCode < 500
}

// BreakerConfig configures the circuit breaker around backend calls.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before allowing a probe.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      3,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// Client implements load, save and feedback capture against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	breaker    BreakerConfig
	logger     *log.Logger
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithLogger overrides the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		breaker:    DefaultBreakerConfig(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	settings := gobreaker.Settings{
		Name:        "annotation-backend",
		MaxRequests: o.breaker.HalfOpenRequests,
		Timeout:     o.breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.breaker.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || clientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("[client] %s breaker %s -> %s", name, from, to)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.httpClient,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// BreakerState returns "closed", "open" or "half-open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// LoadAnnotations fetches the job's document. A job with no saved document returns nil.
func (c *Client) LoadAnnotations(ctx context.Context, jobID string) (*types.Document, error) {
	var doc types.Document
	status, err := c.do(ctx, http.MethodGet, c.annotationsURL(jobID), nil, &doc)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveAnnotations replaces the job's document.
func (c *Client) SaveAnnotations(ctx context.Context, jobID string, doc *types.Document) error {
	_, err := c.do(ctx, http.MethodPut, c.annotationsURL(jobID), doc, nil)
	return err
}

// CaptureFeedback reports a suggestion edit to the learning endpoint.
func (c *Client) CaptureFeedback(ctx context.Context, jobID string, payload types.FeedbackPayload) error {
	req := types.FeedbackRequest{JobID: jobID, FeedbackPayload: payload}
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/annotations/feedback", req, nil)
	return err
}

func (c *Client) annotationsURL(jobID string) string {
	return c.baseURL + "/jobs/" + url.PathEscape(jobID) + "/annotations"
}

// do runs one request through the breaker and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, target string, body, out any) (int, error) {
	status := 0
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		status, err = c.roundTrip(ctx, method, target, body, out)
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, ErrCircuitOpen
	}
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, method, target string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, &Error{Method: method, URL: target, Message: "failed to encode request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, &Error{Method: method, URL: target, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &Error{Method: method, URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &Error{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d: %s", resp.StatusCode, errorMessage(respBody)),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
		}
	}
	return resp.StatusCode, nil
}

// errorMessage pulls the message out of the backend's {"error": ...} body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
