package backend

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

	"golang.org/x/time/rate"
)

const defaultRetryDelay = 500 * time.Millisecond

var ErrMissingBaseURL = errors.New("backend base URL is required")

// Client ходит в удалённый REST API от имени пользователя.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", cfg.BaseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.Every > 0 {
		limit = rate.Every(cfg.Every)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// Ответ 2xx с пустым или нечитаемым телом возвращается как *APIError со статусом 2xx,
// вызывающий решает, что с ним делать (см. Settle).
// GET-запросы повторяются при 502/503/504 не более MaxRetries раз.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	endpoint := c.endpoint(path)
	for attempt := 0; ; attempt++ {
		rs, err := c.send(ctx, method, endpoint, payload)
		if err != nil {
			return err
		}

		if method == http.MethodGet && isRetryable(rs.StatusCode) && attempt < c.maxRetries {
			_, _ = io.Copy(io.Discard, rs.Body)
			rs.Body.Close()
			c.logger.WarnContext(ctx, "backend unavailable, retrying",
				slog.String("path", path),
				slog.Int("status", rs.StatusCode),
				slog.Int("attempt", attempt+1),
			)
			if err = sleepContext(ctx, time.Duration(attempt+1)*c.retryDelay); err != nil {
				return &APIError{Err: err}
			}
			continue
		}

		return c.decode(rs, out)
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	rq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	rq.Header.Set("Accept", "application/json")
	if payload != nil {
		rq.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		rq.Header.Set("Authorization", "Bearer "+token)
	}

	rs, err := c.httpClient.Do(rq)
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	return rs, nil
}

func (c *Client) decode(rs *http.Response, out any) error {
	defer rs.Body.Close()

	if rs.StatusCode < 200 || rs.StatusCode >= 300 {
		data, _ := io.ReadAll(rs.Body)
		return newAPIError(rs.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, rs.Body)
		return nil
	}

	logBuf := &bytes.Buffer{}
	bodyReader := io.TeeReader(rs.Body, logBuf)
	if err := json.NewDecoder(bodyReader).Decode(out); err != nil {
		return &APIError{
			Status: rs.StatusCode,
			Body:   logBuf.Bytes(),
			Err:    fmt.Errorf("failed to decode response: %q: %w", logBuf.String(), err),
		}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func isRetryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
