package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// MaxBookmakers is the provider's per-request bookmaker ceiling
const MaxBookmakers = 5

const maxBodyBytes = 10 << 20

// Cache is the response cache the client reads through
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config holds provider client configuration
type Config struct {
	BaseURL    string        // e.g., "https://api.odds-api.io/v3"
	APIKey     string
	Timeout    time.Duration // e.g., 30 * time.Second
	EventsTTL  time.Duration
	LiveTTL    time.Duration
	LeaguesTTL time.Duration
	OddsTTL    time.Duration
}

// Response is a raw provider payload. Body is nil when the provider has no
// data for the request.
type Response struct {
	Body      json.RawMessage `json:"body"`
	FetchedAt time.Time       `json:"fetched_at"`
	Cached    bool            `json:"-"`
}

// Empty reports whether the provider returned no data
func (r *Response) Empty() bool {
	return r == nil || len(r.Body) == 0
}

// Client talks to the odds provider
type Client struct {
	http   *http.Client
	cfg    Config
	cache  Cache
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// NewClient creates a provider client. cache may be nil.
func NewClient(cfg Config, cache Cache, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		cache:  cache,
		now:    time.Now,
		logger: logger.With().Str("component", "provider_client").Logger(),
	}
}

// Odds fetches the odds of one event and market for a bookmaker set. fresh
// skips the cache read but still refreshes the cache.
func (c *Client) Odds(ctx context.Context, eventID string, kind models.MarketKind, bookmakers []string, fresh bool) (*Response, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, models.NewError(models.KindInvalidInput, "event id is required", nil)
	}
	books, err := ValidateBookmakers(bookmakers)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("eventId", eventID)
	params.Set("bookmakers", strings.Join(books, ","))
	params.Set("markets", kind.RequestName())

	key := fmt.Sprintf("odds:%s:%s:%s", eventID, kind, strings.Join(books, ","))
	return c.fetch(ctx, "/odds", params, key, c.cfg.OddsTTL, fresh)
}

// Events lists fixtures matching filter
func (c *Client) Events(ctx context.Context, filter models.EventFilter) (*Response, error) {
	params := url.Values{}
	setIf(params, "sport", filter.Sport)
	setIf(params, "league", filter.League)
	setIf(params, "status", filter.Status)
	setIf(params, "from", rfc3339Bound(filter.From, "T00:00:00Z"))
	setIf(params, "to", rfc3339Bound(filter.To, "T23:59:59Z"))

	return c.fetch(ctx, "/events", params, "events:"+params.Encode(), c.cfg.EventsTTL, false)
}

// LiveEvents lists in-play fixtures. The provider has no sport filter on this
// endpoint so filtering happens after parsing.
func (c *Client) LiveEvents(ctx context.Context) (*Response, error) {
	return c.fetch(ctx, "/events/live", url.Values{}, "events:live:all", c.cfg.LiveTTL, false)
}

// Leagues lists competitions, optionally for one sport
func (c *Client) Leagues(ctx context.Context, sport string) (*Response, error) {
	params := url.Values{}
	setIf(params, "sport", sport)
	name := sport
	if name == "" {
		name = "all"
	}
	return c.fetch(ctx, "/leagues", params, "leagues:"+name, c.cfg.LeaguesTTL, false)
}

// Sports lists the provider's sports
func (c *Client) Sports(ctx context.Context) (*Response, error) {
	return c.fetch(ctx, "/sports", url.Values{}, "sports:all", c.cfg.LeaguesTTL, false)
}

// Bookmakers lists the provider's bookmakers
func (c *Client) Bookmakers(ctx context.Context) (*Response, error) {
	return c.fetch(ctx, "/bookmakers", url.Values{}, "bookmakers:all", c.cfg.LeaguesTTL, false)
}

// Participants lists the teams of a sport, optionally matching search
func (c *Client) Participants(ctx context.Context, sport, search string) (*Response, error) {
	if strings.TrimSpace(sport) == "" {
		return nil, models.NewError(models.KindInvalidInput, "sport is required", nil)
	}
	params := url.Values{}
	params.Set("sport", sport)
	setIf(params, "search", search)
	name := search
	if name == "" {
		name = "all"
	}
	return c.fetch(ctx, "/participants", params, "participants:"+sport+":"+name, c.cfg.LeaguesTTL, false)
}

// Participant fetches one team by id
func (c *Client) Participant(ctx context.Context, id string) (*Response, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewError(models.KindInvalidInput, "participant id is required", nil)
	}
	return c.fetch(ctx, "/participants/"+url.PathEscape(id), url.Values{}, "participant:"+id, c.cfg.LeaguesTTL, false)
}

// ValidateBookmakers canonicalizes a bookmaker set and enforces the ceiling
func ValidateBookmakers(bookmakers []string) ([]string, error) {
	books := models.CanonicalBookmakers(bookmakers)
	if len(books) == 0 {
		return nil, models.NewError(models.KindInvalidInput, "at least one bookmaker is required", nil)
	}
	for _, b := range books {
		if strings.ContainsAny(b, "|,") {
			return nil, models.NewError(models.KindInvalidInput, fmt.Sprintf("invalid bookmaker %q", b), nil)
		}
	}
	if len(books) > MaxBookmakers {
		return nil, models.NewError(models.KindUpstreamRejected,
			fmt.Sprintf("at most %d bookmakers per request, got %d", MaxBookmakers, len(books)), nil)
	}
	return books, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values, cacheKey string, ttl time.Duration, fresh bool) (*Response, error) {
	if !fresh && c.cache != nil && ttl > 0 {
		if resp, ok := c.cached(ctx, endpoint, cacheKey); ok {
			return resp, nil
		}
	}

	// The flight outlives any single caller so a cancelled reader cannot
	// fail the callers that joined it.
	ch := c.group.DoChan(endpoint+"?"+params.Encode(), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		resp, err := c.do(flightCtx, endpoint, params)
		if err != nil {
			return nil, err
		}
		if c.cache != nil && ttl > 0 && !resp.Empty() {
			c.store(flightCtx, cacheKey, resp, ttl)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, transportError(endpoint, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug().Str("endpoint", endpoint).Msg("shared in-flight provider fetch")
		}
		return res.Val.(*Response), nil
	}
}

func (c *Client) cached(ctx context.Context, endpoint, key string) (*Response, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(endpoint, "miss").Inc()
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		metrics.CacheLookups.WithLabelValues(endpoint, "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(endpoint, "hit").Inc()
	resp.Cached = true
	return &resp, true
}

func (c *Client) store(ctx context.Context, key string, resp *Response, ttl time.Duration) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to cache provider response")
	}
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("apiKey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, transportError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, models.NewError(models.KindUpstreamUnavailable, fmt.Sprintf("reading %s response failed", endpoint), err)
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if err := statusError(endpoint, resp.StatusCode, body); err != nil {
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("provider request failed")
		return nil, err
	}

	fetched := &Response{FetchedAt: c.now().UTC()}
	if resp.StatusCode == http.StatusNotFound || len(strings.TrimSpace(string(body))) == 0 || string(body) == "null" {
		return fetched, nil
	}
	if !json.Valid(body) {
		return nil, models.NewError(models.KindMalformedQuote, fmt.Sprintf("%s returned invalid JSON", endpoint), nil)
	}
	fetched.Body = body
	return fetched, nil
}

// statusError maps provider status codes onto error kinds. 404 is no data.
func statusError(endpoint string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300, status == http.StatusNotFound:
		return nil
	case status == http.StatusTooManyRequests:
		return models.NewError(models.KindUpstreamUnavailable, "provider rate limit exceeded", nil)
	case status >= 500:
		return models.NewError(models.KindUpstreamUnavailable, fmt.Sprintf("provider returned HTTP %d for %s", status, endpoint), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.NewError(models.KindUpstreamRejected, "provider rejected the credential", nil)
	default:
		return models.NewError(models.KindUpstreamRejected,
			fmt.Sprintf("provider returned HTTP %d for %s", status, endpoint), errors.New(truncate(string(body), 500)))
	}
}

func transportError(endpoint string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewError(models.KindUpstreamUnavailable, fmt.Sprintf("request to %s timed out", endpoint), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindUpstreamUnavailable, fmt.Sprintf("request to %s timed out", endpoint), err)
	}
	return models.NewError(models.KindUpstreamUnavailable, fmt.Sprintf("network error calling %s", endpoint), err)
}

func rfc3339Bound(date, suffix string) string {
	if date == "" || strings.Contains(date, "T") {
		return date
	}
	return date + suffix
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
