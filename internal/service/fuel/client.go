package fuel

import (
	"context"
	"fmt"
	"sync"
	"time"

	httpclient "PoolCast/pkg/http"
	"PoolCast/pkg/logger"
)

// PriceSource provides the daily natural gas price series used as an
// auxiliary feature input.
type PriceSource interface {
	DailyPrices(ctx context.Context, from, to time.Time) (map[time.Time]float64, error)
}

// Config holds fuel feed configuration.
type Config struct {
	APIURL   string
	APIKey   string
	Timeout  time.Duration
	TokenTTL time.Duration
}

// tokenCache holds a short-lived upstream access token. Explicit and
// injectable so tests can substitute a fake clock.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Client fetches daily gas prices from a paid feed. When the feed is
// unconfigured or unreachable it degrades to a built-in monthly default
// table instead of failing the caller.
type Client struct {
	cfg    Config
	http   *httpclient.Client
	logger *logger.Logger
	tokens *tokenCache
	now    func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type pricesResponse struct {
	Prices []struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
	} `json:"prices"`
}

// NewClient creates a fuel feed client.
func NewClient(cfg Config, lgr *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Client{
		cfg:    cfg,
		http:   httpclient.NewClient(httpclient.WithTimeout(cfg.Timeout)),
		logger: lgr,
		tokens: &tokenCache{},
		now:    time.Now,
	}
}

// DailyPrices returns gas prices keyed by UTC day start for [from, to].
// Feed failures fall back to the default monthly table; the result is
// never empty for a non-empty range.
func (c *Client) DailyPrices(ctx context.Context, from, to time.Time) (map[time.Time]float64, error) {
	if c.cfg.APIURL == "" || c.cfg.APIKey == "" {
		c.logger.Warn("fuel feed not configured, using default price table")
		return c.defaultTable(from, to), nil
	}

	prices, err := c.fetch(ctx, from, to)
	if err != nil {
		c.logger.Error("fuel feed fetch failed, using default price table", logger.Error(err))
		return c.defaultTable(from, to), nil
	}
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, from, to time.Time) (map[time.Time]float64, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fuel token: %w", err)
	}

	var resp pricesResponse
	err = c.http.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    c.cfg.APIURL + "/v1/prices/natural-gas/daily",
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
		},
		QueryParams: map[string]string{
			"from": from.UTC().Format("2006-01-02"),
			"to":   to.UTC().Format("2006-01-02"),
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fuel prices: %w", err)
	}

	out := make(map[time.Time]float64, len(resp.Prices))
	for _, p := range resp.Prices {
		day, perr := time.ParseInLocation("2006-01-02", p.Date, time.UTC)
		if perr != nil {
			c.logger.Warn("fuel feed returned malformed date",
				logger.String("date", p.Date))
			continue
		}
		out[day] = p.Price
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fuel feed returned no prices for %s..%s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return out, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()

	if c.tokens.token != "" && c.now().Before(c.tokens.expiresAt) {
		return c.tokens.token, nil
	}

	var resp tokenResponse
	err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodPost,
		URL:    c.cfg.APIURL + "/oauth/token",
		Body:   map[string]string{"api_key": c.cfg.APIKey},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	ttl := c.cfg.TokenTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}
	c.tokens.token = resp.AccessToken
	// Refresh slightly early so in-flight requests never carry an
	// expired token.
	c.tokens.expiresAt = c.now().Add(ttl - 30*time.Second)
	return c.tokens.token, nil
}

// defaultTable fills the range from defaultMonthlyPrices.
func (c *Client) defaultTable(from, to time.Time) map[time.Time]float64 {
	out := map[time.Time]float64{}
	day := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := to.UTC()
	for !day.After(end) {
		out[day] = defaultMonthlyPrices[day.Month()]
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// defaultMonthlyPrices is the documented degraded mode: approximate
// AECO monthly gas prices in $/GJ used when the paid feed is down.
var defaultMonthlyPrices = map[time.Month]float64{
	time.January:   3.10,
	time.February:  3.05,
	time.March:     2.60,
	time.April:     2.20,
	time.May:       1.95,
	time.June:      1.80,
	time.July:      1.85,
	time.August:    1.90,
	time.September: 2.00,
	time.October:   2.30,
	time.November:  2.75,
	time.December:  3.00,
}
