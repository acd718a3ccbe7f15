// Package ledger provides domain.Ledger implementations: an HTTP client for the
// ledger sidecar that builds and submits pool wallet transactions, and an in-memory mock.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// ClientConfig holds ledger sidecar settings
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int           // balance queries only
	BaseBackoff time.Duration // balance queries only
}

// Client talks to the ledger sidecar over JSON/HTTP
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	group      singleflight.Group
}

// StatusError is a non-2xx answer from the sidecar
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger HTTP %d: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status
func (e *StatusError) StatusCode() int {
	return e.Code
}

type balanceResponse struct {
	Wallet   string `json:"wallet"`
	Lovelace int64  `json:"lovelace"`
}

type disburseResponse struct {
	TxHash string `json:"txHash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a ledger client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ledger base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger base URL: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// QueryPoolBalance returns the wallet balance. Concurrent queries for the same
// wallet share one request; transient failures are retried with backoff.
func (c *Client) QueryPoolBalance(ctx context.Context, walletRef string) (domain.Amount, error) {
	v, err, _ := c.group.Do(walletRef, func() (interface{}, error) {
		var resp balanceResponse
		err := c.withRetry(ctx, func() error {
			return c.doJSON(ctx, http.MethodGet, "/wallets/"+url.PathEscape(walletRef)+"/balance", nil, nil, &resp)
		})
		return domain.Amount(resp.Lovelace), err
	})
	if err != nil {
		return 0, fmt.Errorf("query balance of %s: %w", walletRef, err)
	}
	return v.(domain.Amount), nil
}

// DisburseFunds submits the batch as one transaction. It is never retried here:
// a lost response must be resolved by an operator, and the reference lets the
// sidecar reject a duplicate submission.
func (c *Client) DisburseFunds(ctx context.Context, batch domain.Disbursement) (string, error) {
	headers := map[string]string{"Idempotency-Key": batch.Reference}

	var resp disburseResponse
	if err := c.doJSON(ctx, http.MethodPost, "/disbursements", batch, headers, &resp); err != nil {
		return "", fmt.Errorf("disburse round %d: %w", batch.RoundNumber, err)
	}
	if resp.TxHash == "" {
		return "", fmt.Errorf("disburse round %d: empty transaction hash", batch.RoundNumber)
	}
	return resp.TxHash, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, headers map[string]string, dest interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("duration", time.Since(startTime)).
			Msg("Ledger request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	logger.Debug(ctx).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Ledger request completed")

	if resp.StatusCode >= 300 {
		var e errorResponse
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if dest != nil {
		if err := json.Unmarshal(respBody, dest); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.cfg.BaseBackoff * time.Duration(1<<uint(attempt-2))
			backoff = time.Duration(float64(backoff) * (0.5 + rand.Float64()*0.5))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// transport error
	return true
}
