// Package ninja is the poe.ninja side of the service: the upstream client, the
// currency and item record shapes, their field tables and the pipelines that
// build their snapshots.
package ninja

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asaidimu/go-ninja/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public poe.ninja host.
const DefaultBaseURL = "https://poe.ninja"

// Overview endpoints of the poe.ninja data API.
const (
	currencyOverview = "currencyoverview"
	itemOverview     = "itemoverview"
)

// ClientConfig configures the upstream client.
type ClientConfig struct {
	BaseURL string
	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
	// Rate is the sustained request rate per second shared by all fetches.
	// Zero disables limiting.
	Rate  float64
	Burst int
	// UserAgent is sent with every request.
	UserAgent string
}

// Client fetches overview pages from poe.ninja. It never retries.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a client. A nil logger is replaced with a no-op logger.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "go-ninja"
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.With(zap.String("component", "ninja_client")),
	}
}

// CurrencyOverview fetches one currency partition.
func (c *Client) CurrencyOverview(ctx context.Context, league string, endpoint CurrencyEndpoint) (*CurrencyPage, error) {
	var page CurrencyPage
	if err := c.get(ctx, currencyOverview, league, string(endpoint), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ItemOverview fetches one item partition.
func (c *Client) ItemOverview(ctx context.Context, league string, endpoint ItemEndpoint) (*ItemPage, error) {
	var page ItemPage
	if err := c.get(ctx, itemOverview, league, string(endpoint), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) get(ctx context.Context, overview, league, partition string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return core.UpstreamError(partition, err)
	}

	q := url.Values{}
	q.Set("league", league)
	q.Set("type", partition)
	endpoint := fmt.Sprintf("%s/api/data/%s?%s", c.baseURL, overview, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.UpstreamError(partition, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.UpstreamError(partition, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.UpstreamError(partition, fmt.Errorf("%s returned status %d: %s", overview, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.UpstreamError(partition, fmt.Errorf("failed to decode response: %w", err))
	}

	c.logger.Debug("Fetched overview",
		zap.String("overview", overview),
		zap.String("league", league),
		zap.String("type", partition),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return nil
}
