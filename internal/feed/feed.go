package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/rocketsafe/rocketsafe/config"
	apperrors "github.com/rocketsafe/rocketsafe/internal/errors"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/metrics"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

// cacheKey is where the raw upstream payload lives in Redis.
const cacheKey = "feed:alerts:raw"

// Client fetches the historical alert feed from the upstream provider.
// The upstream rejects plain library user agents, so requests carry the
// header set a desktop browser would send. Responses are cached in Redis
// for the configured TTL so restarts and multiple replicas do not hammer
// the origin.
type Client struct {
	cfg     config.FeedConfig
	http    *http.Client
	cache   *redis.Client
	clock   clockwork.Clock
	limiter *rate.Limiter
}

// New creates a feed client. cache may be nil when Redis is not configured;
// every fetch then goes upstream.
func New(cfg config.FeedConfig, cache *redis.Client, clock clockwork.Clock) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.FetchTimeout},
		cache:   cache,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// Fetch returns the current alert records, from cache when fresh.
func (c *Client) Fetch(ctx context.Context) ([]models.AlertRecord, error) {
	if raw, ok := c.cached(ctx); ok {
		records, err := decode(raw)
		if err == nil {
			metrics.RecordFeedFetch("cache_hit")
			return records, nil
		}
		logger.Warn("Cached feed payload is corrupt, refetching", "error", err)
	}

	raw, err := c.fetchUpstream(ctx)
	if err != nil {
		metrics.RecordFeedFetch("error")
		return nil, apperrors.FeedError{URL: c.cfg.URL, Err: err}
	}

	records, err := decode(raw)
	if err != nil {
		metrics.RecordFeedFetch("error")
		return nil, apperrors.FeedError{URL: c.cfg.URL, Err: err}
	}

	c.store(ctx, raw)
	metrics.RecordFeedFetch("success")
	return records, nil
}

func (c *Client) cached(ctx context.Context) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Feed cache read failed", "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (c *Client) store(ctx context.Context, raw []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey, raw, c.cfg.CacheTTL).Err(); err != nil {
		logger.Warn("Feed cache write failed", "error", err)
	}
}

func (c *Client) fetchUpstream(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		raw, err := c.doRequest(ctx)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		logger.Warn("Feed fetch attempt failed",
			"attempt", attempt,
			"max_attempts", c.cfg.RetryAttempts,
			"error", err,
		)

		if attempt < c.cfg.RetryAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(c.cfg.RetryDelay):
			}
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.cfg.Referer)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

// decode parses the upstream payload. Records that fail validation are
// dropped with a log line rather than poisoning the whole snapshot.
func decode(raw []byte) ([]models.AlertRecord, error) {
	var records []models.AlertRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}

	valid := records[:0]
	dropped := 0
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			dropped++
			continue
		}
		valid = append(valid, rec)
	}
	if dropped > 0 {
		logger.Warn("Dropped invalid alert records from feed", "dropped", dropped, "kept", len(valid))
	}
	return valid, nil
}
