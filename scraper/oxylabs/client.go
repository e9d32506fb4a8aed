// Package oxylabs implements scraper.Backend on top of the realtime scraping API.
package oxylabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"ali-crawler/metrics"
	"ali-crawler/scraper"
	"ali-crawler/utils"
)

const backendName = "api"

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 1 << 20

// Config holds the API endpoint and credential pair.
type Config struct {
	URL      string
	Username string
	Password string
	// Timeout of a single request. Zero means no timeout.
	Timeout time.Duration
	// Interval is the minimum spacing between two requests. Zero disables pacing.
	Interval time.Duration
}

// Client posts queries to the scraping API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	pacer      *utils.Pacer
	logger     *utils.Logger
}

var _ scraper.Backend = (*Client)(nil)

// New creates a Client.
func New(cfg Config, logger *utils.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:        cfg,
		pacer:      utils.NewPacer(cfg.Interval),
		logger:     logger,
	}
}

// Do sends q and returns results[0].content. Any non-2xx status is returned as
// a *scraper.StatusError; the call is never retried here.
func (c *Client) Do(ctx context.Context, q *scraper.Query) (scraper.Content, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("oxylabs: wait: %w", err)
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("oxylabs: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("oxylabs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ScrapeDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScrapeRequests.WithLabelValues(backendName, "transport_error").Inc()
		return nil, fmt.Errorf("oxylabs: post %s: %w", q.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("[oxylabs] %s -> status %d", q.URL, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ScrapeRequests.WithLabelValues(backendName, strconv.Itoa(resp.StatusCode)).Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("[oxylabs] %s failed with status %d: %s", q.URL, resp.StatusCode, string(raw))
		return nil, &scraper.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ScrapeRequests.WithLabelValues(backendName, "read_error").Inc()
		return nil, fmt.Errorf("oxylabs: read response: %w", err)
	}
	metrics.ScrapeRequests.WithLabelValues(backendName, strconv.Itoa(resp.StatusCode)).Inc()

	return parseEnvelope(raw)
}

func parseEnvelope(raw []byte) (scraper.Content, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("oxylabs: response is not valid JSON")
	}
	results := gjson.GetBytes(raw, "results")
	if !results.IsArray() || len(results.Array()) == 0 {
		return nil, scraper.ErrEmptyResults
	}
	content := results.Array()[0].Get("content")
	if !content.Exists() {
		return nil, scraper.MissingField("results.0.content")
	}
	return scraper.Content(content.Raw), nil
}
