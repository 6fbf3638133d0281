package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vallemsec/spectra-web/internal/logging"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
	"go.uber.org/zap"
)

// EmailLeaksPath is appended to the scanner endpoint for email lookups.
const EmailLeaksPath = "/api/emailLeaks"

// scanRequest is the body sent for both domain and email lookups.
type scanRequest struct {
	Target string `json:"target"`
}

// Client talks to the live scanner service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for failed lookups.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request counts and durations.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a scanner client for endpoint. Redirects are followed
// with the http.Client defaults.
func NewClient(endpoint string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DomainScan posts target to the scanner endpoint and decodes the result.
func (c *Client) DomainScan(ctx context.Context, target string) (ScanResult, error) {
	var result ScanResult
	err := c.post(ctx, KindDomain, c.endpoint, target, &result)
	return result, err
}

// EmailScan posts target to the email leak endpoint and decodes the result.
func (c *Client) EmailScan(ctx context.Context, target string) (EmailLeakResult, error) {
	var result EmailLeakResult
	err := c.post(ctx, KindEmail, joinPath(c.endpoint, EmailLeaksPath), target, &result)
	return result, err
}

func (c *Client) post(ctx context.Context, kind Kind, endpoint, target string, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(kind, start, err)
		if err != nil {
			logging.FromContext(ctx, c.logger).Warn("scanner_request_failed",
				zap.String("target_kind", string(kind)),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
		}
	}()

	if c.endpoint == "" {
		return sharedErrors.ErrEndpointNotConfigured
	}

	body, err := json.Marshal(scanRequest{Target: target})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", kind, err)
	}

	// bytes.Reader lets net/http replay the body on 307/308 redirects.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrScannerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxResponseBytes))
		return fmt.Errorf("%w: %d", sharedErrors.ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.MaxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrMalformedResponse, err)
	}
	return nil
}

func joinPath(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
