package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andinafx/cambio/pkg/domain"
)

// Client talks to the platform API. Mutating calls (open, close, submit) are
// deliberately single-shot: a network failure leaves the caller free to
// retry by hand, never half-committed by an automatic retry.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config carries the client settings; see pkg/config.Gateway.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// New builds a Client from config.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "gateway")),
	}
}

// OpenWindow commits opening balances and opens the window server-side.
func (c *Client) OpenWindow(ctx context.Context, req OpenWindowRequest) (WindowConfirmation, error) {
	var conf WindowConfirmation
	err := c.do(ctx, http.MethodPost, "/api/v1/windows/open", req, &conf)
	return conf, err
}

// CloseWindow reconciles closing balances and closes the window server-side.
func (c *Client) CloseWindow(ctx context.Context, req CloseWindowRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/windows/close", req, nil)
}

// ActiveRates fetches the published rate pairs for an exchange house.
func (c *Client) ActiveRates(ctx context.Context, houseID int64) ([]domain.ExchangeRate, error) {
	var rates []domain.ExchangeRate
	path := fmt.Sprintf("/api/v1/exchange-houses/%d/rates", houseID)
	if err := c.do(ctx, http.MethodGet, path, nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// Currencies fetches the platform's supported currency list.
func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	var currencies []domain.Currency
	if err := c.do(ctx, http.MethodGet, "/api/v1/currencies", nil, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

// SubmitConversion records a buy/sell transaction.
func (c *Client) SubmitConversion(ctx context.Context, req SubmitConversionRequest) (Transaction, error) {
	var tx Transaction
	err := c.do(ctx, http.MethodPost, "/api/v1/transactions", req, &tx)
	return tx, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("platform API call failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(raw)
		}
		c.logger.Warn("platform API rejected request",
			"method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
