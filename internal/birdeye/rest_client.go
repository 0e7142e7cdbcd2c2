package birdeye

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default REST client configuration.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 0
	DefaultRetryDelay = 1 * time.Second
	maxErrorBody      = 512
)

// RESTClient is a Birdeye public API client.
type RESTClient struct {
	client *resty.Client
	apiKey string
}

// RESTOption configures RESTClient.
type RESTOption func(*RESTClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.client.SetTimeout(d)
	}
}

// WithMaxRetries retries transport errors and 429/5xx responses up to n times.
func WithMaxRetries(n int) RESTOption {
	return func(c *RESTClient) {
		c.client.SetRetryCount(n)
	}
}

// WithRetryDelay sets the initial retry wait.
func WithRetryDelay(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.client.SetRetryWaitTime(d)
	}
}

// NewRESTClient creates a client for baseURL authenticated with apiKey.
func NewRESTClient(baseURL, apiKey string, opts ...RESTOption) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	c := &RESTClient{
		client: resty.New().SetBaseURL(baseURL),
		apiKey: apiKey,
	}
	c.applyHeaders()
	c.client.
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultMaxRetries).
		SetRetryWaitTime(DefaultRetryDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RESTClient) applyHeaders() {
	c.client.
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("x-chain", Chain).
		SetHeader("Accept", "application/json")
}

// ListingQuery selects a page of a listing endpoint.
type ListingQuery struct {
	Path   string
	Limit  int
	Offset int
	// Extra query parameters, e.g. sort_by.
	Params map[string]string
}

// FetchListing performs one GET against a listing endpoint and returns the raw body.
// A non-2xx status yields *APIError.
func (c *RESTClient) FetchListing(ctx context.Context, q ListingQuery) ([]byte, error) {
	if q.Path == "" {
		q.Path = DefaultListingPath
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListingLimit
	}

	params := map[string]string{
		"offset": strconv.Itoa(q.Offset),
		"limit":  strconv.Itoa(q.Limit),
	}
	for k, v := range q.Params {
		params[k] = v
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(q.Path)
	if err != nil {
		return nil, fmt.Errorf("birdeye request %s: %w", q.Path, err)
	}

	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(body)}
	}
	return resp.Body(), nil
}
