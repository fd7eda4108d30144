package ratings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/readersforest/internal/config"
)

var (
	// ErrUpstream covers every failure of the external ratings service.
	ErrUpstream = errors.New("ratings service unavailable")
	// ErrDisabled is returned when external ratings are switched off.
	ErrDisabled = errors.New("external ratings disabled")
	// ErrNoRating means the service answered but knows nothing about the ISBN.
	ErrNoRating = errors.New("no external rating for isbn")
)

// Rating is the external average and number of ratings for one ISBN.
type Rating struct {
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`
}

// Client looks up external ratings.
type Client interface {
	Lookup(ctx context.Context, isbn string) (*Rating, error)
}

// GoodreadsClient queries the Goodreads review_counts endpoint.
type GoodreadsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

func NewGoodreadsClient(cfg config.Ratings) *GoodreadsClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &GoodreadsClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type reviewCountsResponse struct {
	Books []struct {
		ISBN          string          `json:"isbn"`
		AverageRating json.RawMessage `json:"average_rating"`
		RatingsCount  int             `json:"ratings_count"`
	} `json:"books"`
}

func (c *GoodreadsClient) Lookup(ctx context.Context, isbn string) (*Rating, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("isbns", isbn)
	reqURL := fmt.Sprintf("%s/book/review_counts.json?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrNoRating
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var body reviewCountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(body.Books) == 0 {
		return nil, ErrNoRating
	}

	avg, err := parseAverage(body.Books[0].AverageRating)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &Rating{AverageRating: avg, RatingsCount: body.Books[0].RatingsCount}, nil
}

// redactURL strips the request URL, which carries the API key, from
// transport errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s review_counts: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// parseAverage accepts both "3.92" and 3.92.
func parseAverage(raw json.RawMessage) (float64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	avg, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid average_rating %q", s)
	}
	return avg, nil
}

// DisabledClient is used when no API key is configured.
type DisabledClient struct{}

func (DisabledClient) Lookup(context.Context, string) (*Rating, error) {
	return nil, ErrDisabled
}

// NewClient builds the client chain from configuration: Goodreads behind a
// cache, or a DisabledClient.
func NewClient(cfg config.Ratings, cache Cache) Client {
	if !cfg.Enabled {
		return DisabledClient{}
	}
	var client Client = NewGoodreadsClient(cfg)
	if cache != nil && cfg.CacheTTL > 0 {
		client = NewCachedClient(client, cache, cfg.CacheTTL)
	}
	return client
}
