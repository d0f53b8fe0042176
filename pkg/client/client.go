package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/linuxapphub/apphub-analytics/pkg/analytics"
	"github.com/linuxapphub/apphub-analytics/pkg/observability"
)

// Config configures the analytics client.
type Config struct {
	// BaseURL of the analytics service, e.g. "https://hub.example.com".
	BaseURL string

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	// BatchSize triggers a flush once the queue reaches this length.
	BatchSize int

	// FlushInterval flushes whatever is queued after this much idle time.
	FlushInterval time.Duration

	// MaxRetries bounds per-event send attempts within one flush.
	MaxRetries int

	// RetryBackoff is the base delay between attempts; the delay grows
	// linearly with the attempt number.
	RetryBackoff time.Duration

	// RetryInterval schedules re-flushes of events whose sends exhausted
	// their retries.
	RetryInterval time.Duration

	// CacheTTL and CacheSize bound the popularity result cache.
	CacheTTL  time.Duration
	CacheSize int

	Logger *observability.Logger
}

// DefaultConfig returns the standard client configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		BatchSize:     10,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryBackoff:  time.Second,
		RetryInterval: 30 * time.Second,
		CacheTTL:      60 * time.Second,
		CacheSize:     16,
	}
}

// Client batches and ships interaction events to the analytics service.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *observability.Logger
	sessionID  string

	mu     sync.Mutex
	queue  []analytics.Event
	failed []analytics.Event

	popularCache *lru.LRU[string, *analytics.PopularResult]

	flushCh chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates and starts an analytics client. Call Close to flush and stop.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 30 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 60 * time.Second
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 16
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, io.Discard)
	}

	c := &Client{
		config:       config,
		httpClient:   httpClient,
		logger:       logger,
		sessionID:    uuid.NewString(),
		popularCache: lru.NewLRU[string, *analytics.PopularResult](config.CacheSize, nil, config.CacheTTL),
		flushCh:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.run()

	return c, nil
}

// SessionID returns the identifier attached to every event this client sends.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Track queues one interaction event. The queue flushes once it reaches the
// batch size, or on the idle timer, whichever comes first.
func (c *Client) Track(appName string, action analytics.ActionType, metadata map[string]interface{}) {
	event := analytics.Event{
		AppName:    appName,
		ActionType: action,
		Timestamp:  time.Now().UnixMilli(),
		SessionID:  c.sessionID,
		Metadata:   metadata,
	}

	c.mu.Lock()
	c.queue = append(c.queue, event)
	full := len(c.queue) >= c.config.BatchSize
	c.mu.Unlock()

	if full {
		c.requestFlush()
	}
}

// TrackView is shorthand for a view event.
func (c *Client) TrackView(appName string) { c.Track(appName, analytics.ActionView, nil) }

// TrackAbout is shorthand for an about event.
func (c *Client) TrackAbout(appName string) { c.Track(appName, analytics.ActionAbout, nil) }

// TrackInstall is shorthand for an install event.
func (c *Client) TrackInstall(appName string) { c.Track(appName, analytics.ActionInstall, nil) }

// TrackCopyCommand is shorthand for a copy-command event.
func (c *Client) TrackCopyCommand(appName string) {
	c.Track(appName, analytics.ActionCopyCommand, nil)
}

func (c *Client) requestFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default: // a flush is already pending
	}
}

func (c *Client) run() {
	defer c.wg.Done()
	defer observability.RecoverPanic(c.logger, "analytics client flush loop")

	flushTicker := time.NewTicker(c.config.FlushInterval)
	defer flushTicker.Stop()
	retryTicker := time.NewTicker(c.config.RetryInterval)
	defer retryTicker.Stop()

	for {
		select {
		case <-c.flushCh:
			c.flush(context.Background())
		case <-flushTicker.C:
			c.flush(context.Background())
		case <-retryTicker.C:
			c.retryFailed()
		case <-c.done:
			return
		}
	}
}

// flush drains the queue and sends each event. Events that exhaust their
// retries land on the failed queue for the periodic retry pass.
func (c *Client) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var failed []analytics.Event
	for _, event := range batch {
		if err := c.sendWithRetry(ctx, event); err != nil {
			c.logger.WithError(err).WithField("app", event.AppName).Warn("event send failed, queued for retry")
			failed = append(failed, event)
		}
	}

	if len(failed) > 0 {
		c.mu.Lock()
		c.failed = append(c.failed, failed...)
		c.mu.Unlock()
	}
}

// retryFailed moves the failed queue back onto the main queue and flushes.
func (c *Client) retryFailed() {
	c.mu.Lock()
	if len(c.failed) == 0 {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, c.failed...)
	c.failed = nil
	c.mu.Unlock()

	c.flush(context.Background())
}

func (c *Client) sendWithRetry(ctx context.Context, event analytics.Event) error {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 1 {
			// Linear backoff: backoff, 2*backoff, ...
			select {
			case <-time.After(time.Duration(attempt-1) * c.config.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = c.send(ctx, event); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("send failed after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, event analytics.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/api/analytics?action=track", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

type popularResponse struct {
	Success     bool                   `json:"success"`
	Timeframe   string                 `json:"timeframe"`
	PopularApps []analytics.PopularApp `json:"popular_apps"`
	TotalFound  int                    `json:"total_found"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Popular fetches the popularity ranking, serving repeat queries from a
// short-lived cache.
func (c *Client) Popular(ctx context.Context, limit int, timeframe string) (*analytics.PopularResult, error) {
	cacheKey := fmt.Sprintf("%d:%s", limit, timeframe)
	if cached, ok := c.popularCache.Get(cacheKey); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/api/analytics?action=popular&limit=%d&timeframe=%s",
		c.config.BaseURL, limit, url.QueryEscape(timeframe))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded popularResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode popular response: %w", err)
	}

	result := &analytics.PopularResult{
		Timeframe:   decoded.Timeframe,
		Apps:        decoded.PopularApps,
		TotalFound:  decoded.TotalFound,
		GeneratedAt: decoded.GeneratedAt,
	}
	c.popularCache.Add(cacheKey, result)
	return result, nil
}

type statsResponse struct {
	Success bool                     `json:"success"`
	Stats   *analytics.StatsSnapshot `json:"stats"`
}

// Stats fetches the current stats snapshot. Never cached, stats readers want
// fresh numbers.
func (c *Client) Stats(ctx context.Context) (*analytics.StatsSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/api/analytics?action=stats", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}
	return decoded.Stats, nil
}

// Flush sends everything queued right now and waits for the sends to finish.
func (c *Client) Flush(ctx context.Context) {
	c.flush(ctx)
}

// Close stops the background loop and makes a final best-effort flush,
// bounded by a short timeout so shutdown never hangs on a dead server.
func (c *Client) Close() error {
	close(c.done)
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx)

	return nil
}
