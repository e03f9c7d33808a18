// Package tba is a read-only client for The Blue Alliance API.
//
// Responses are cached in a CacheStore and revalidated with conditional
// requests. Typed getters wrap the payloads in domain objects (Team, Event,
// Match, ...) that fetch related data on demand through the same client.
package tba

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"

	"github.com/frc5881/tba-slackbot/score"
	"github.com/frc5881/tba-slackbot/telemetry"
)

const (
	DefaultBaseURL = "https://www.thebluealliance.com/api/v2/"

	// DefaultMinFresh is how long a cached response is served without revalidation.
	DefaultMinFresh = 60 * time.Second
	// StatusMinFresh applies to the API status document.
	StatusMinFresh = time.Hour

	// defaultMaxAge applies when Cache-Control is present without max-age.
	defaultMaxAge = 61

	maxBodyBytes = 16 << 20
)

var (
	ErrUpstreamStatus      = zerr.New("unexpected upstream status")
	ErrMalformedPayload    = zerr.New("malformed upstream payload")
	ErrNotModifiedUncached = zerr.New("upstream not modified but nothing cached")
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	AppID      string
	AuthKey    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MinFresh overrides DefaultMinFresh for every getter except Status.
	MinFresh time.Duration
	Cache    CacheStore
	Resolver *score.Resolver
	Logger   *slog.Logger
	// Now is used for freshness decisions; defaults to time.Now.
	Now func() time.Time
}

// Client fetches and caches upstream responses.
type Client struct {
	baseURL    string
	appID      string
	authKey    string
	httpClient *http.Client
	minFresh   time.Duration
	cache      CacheStore
	resolver   *score.Resolver
	logger     *slog.Logger
	now        func() time.Time
	flight     singleflight.Group
}

// NewClient returns a Client. A nil Cache gets a MemoryCache; a nil Resolver
// gets the default season registry.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = score.NewResolver(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	minFresh := cfg.MinFresh
	if minFresh <= 0 {
		minFresh = DefaultMinFresh
	}
	return &Client{
		baseURL:    baseURL,
		appID:      cfg.AppID,
		authKey:    strings.TrimSpace(cfg.AuthKey),
		httpClient: httpClient,
		minFresh:   minFresh,
		cache:      cache,
		resolver:   resolver,
		logger:     logger.With(slog.String("component", "tba")),
		now:        now,
	}
}

// Resolver returns the outcome resolver attached to matches built by this client.
func (c *Client) Resolver() *score.Resolver { return c.resolver }

// Fetch returns the JSON payload for a path stub such as "event/2016nytr/matches".
// Cached payloads retrieved within minFresh, or not yet past their upstream
// expiry, are returned without a network call. Concurrent callers with the
// same stub and window share one upstream request; each caller stops waiting
// when its own ctx is done.
func (c *Client) Fetch(ctx context.Context, stub string, minFresh time.Duration) ([]byte, error) {
	// The shared request outlives any one caller; the http client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(stub+"|"+minFresh.String(), func() (any, error) {
		return c.fetch(shared, stub, minFresh)
	})
	select {
	case <-ctx.Done():
		return nil, zerr.With(zerr.Wrap(ctx.Err(), "fetch abandoned"), "stub", stub)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) fetch(ctx context.Context, stub string, minFresh time.Duration) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "tba", "tba.fetch", attribute.String("tba.stub", stub))
	defer span.End()

	now := c.now()
	cached := c.lookup(ctx, stub)
	if cached != nil && cached.Fresh(now, minFresh) {
		telemetry.IncFetch("fresh")
		span.SetAttributes(attribute.String("tba.outcome", "fresh"))
		return cached.Payload, nil
	}

	body, err := c.revalidate(ctx, stub, cached, now)
	if err != nil {
		telemetry.IncFetch("error")
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanSuccess(span)
	return body, nil
}

func (c *Client) lookup(ctx context.Context, key string) *CacheEntry {
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		telemetry.IncCacheStoreError("get")
		c.logger.Warn("cache read failed, refetching", slog.String("key", key), slog.Any("err", err))
		return nil
	}
	if !entry.Usable() {
		return nil
	}
	return entry
}

func (c *Client) revalidate(ctx context.Context, stub string, cached *CacheEntry, now time.Time) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+stub, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-TBA-App-Id", c.appID)
	if c.authKey != "" {
		req.Header.Set("X-TBA-Auth-Key", c.authKey)
	}
	if cached != nil && cached.LastModified != nil {
		req.Header.Set("If-Modified-Since", cached.LastModified.UTC().Format(http.TimeFormat))
	}

	var resp *http.Response
	telemetry.TimeFunc(telemetry.FetchDuration, func() { resp, err = c.httpClient.Do(req) })
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "upstream request failed"), "stub", stub)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	cacheControl, hasCacheControl := headerValue(resp.Header, "Cache-Control")
	ttl := time.Duration(ParseMaxAge(cacheControl)) * time.Second
	if hasCacheControl && cacheControl == "" {
		ttl = defaultMaxAge * time.Second
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		if cached == nil {
			return nil, zerr.With(zerr.Wrap(ErrNotModifiedUncached, "fetch "+stub), "stub", stub)
		}
		expires := now.Add(ttl)
		if err := c.cache.Touch(ctx, stub, now, &expires); err != nil {
			telemetry.IncCacheStoreError("touch")
			c.logger.Warn("cache touch failed", slog.String("key", stub), slog.Any("err", err))
		}
		telemetry.IncFetch("not_modified")
		return cached.Payload, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "read upstream body"), "stub", stub)
		}
		if !json.Valid(body) {
			return nil, zerr.With(zerr.Wrap(ErrMalformedPayload, "fetch "+stub), "stub", stub)
		}
		if hasCacheControl {
			expires := now.Add(ttl)
			entry := CacheEntry{
				Key:          stub,
				LastModified: parseHTTPTime(resp.Header.Get("Last-Modified")),
				Payload:      body,
				RetrievedAt:  now,
				ExpiresAt:    &expires,
			}
			if err := c.cache.Put(ctx, entry); err != nil {
				telemetry.IncCacheStoreError("put")
				c.logger.Warn("cache write failed", slog.String("key", stub), slog.Any("err", err))
			}
		}
		telemetry.IncFetch("fetched")
		return body, nil

	default:
		return nil, zerr.With(zerr.Wrap(ErrUpstreamStatus, "fetch "+stub), "status", resp.StatusCode)
	}
}

// ParseMaxAge returns the max-age directive of a Cache-Control value in seconds.
// A non-empty value without max-age yields 61; an empty value yields 0.
func ParseMaxAge(cacheControl string) int {
	if strings.TrimSpace(cacheControl) == "" {
		return 0
	}
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `"`))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return defaultMaxAge
}

func headerValue(h http.Header, key string) (string, bool) {
	vals := h.Values(key)
	if len(vals) == 0 {
		return "", false
	}
	return strings.Join(vals, ", "), true
}

func parseHTTPTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
