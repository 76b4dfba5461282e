// Package fsa is a client for the Food Standards Agency ratings API
// (api.ratings.food.gov.uk). Searches return ranked establishment records;
// each carries a rating token, a rating date, and the FHRS identifier.
package fsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://api.ratings.food.gov.uk"
	defaultPageSize = 10
)

// Client performs FSA API operations.
type Client interface {
	// SearchEstablishments searches by business name and an address
	// fragment (full postcode, outward code, or empty). Results come back
	// in provider rank order.
	SearchEstablishments(ctx context.Context, name, address string) ([]Establishment, error)

	// Establishment fetches one establishment by FHRS ID.
	// found=false means the provider has no record for the ID.
	Establishment(ctx context.Context, fhrsID string) (*Establishment, bool, error)
}

// Establishment is one FSA record.
type Establishment struct {
	FHRSID       int64  `json:"FHRSID"`
	BusinessName string `json:"BusinessName"`
	AddressLine1 string `json:"AddressLine1"`
	AddressLine2 string `json:"AddressLine2"`
	AddressLine3 string `json:"AddressLine3"`
	AddressLine4 string `json:"AddressLine4"`
	PostCode     string `json:"PostCode"`
	RatingValue  string `json:"RatingValue"`
	RatingDate   string `json:"RatingDate"`
}

// AddressText joins the address fields for area matching.
func (e Establishment) AddressText() string {
	return fmt.Sprintf("%s %s %s %s %s",
		e.AddressLine1, e.AddressLine2, e.AddressLine3, e.AddressLine4, e.PostCode)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithMinInterval sets the minimum delay between API calls.
func WithMinInterval(d time.Duration) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an FSA client. The API needs no credentials, only the
// x-api-version header.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "fsa: rate limiter wait")
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "fsa: create request")
	}
	req.Header.Set("x-api-version", "2")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "fsa: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "fsa: read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("fsa: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "fsa: unmarshal response")
	}
	return nil
}

var errNotFound = eris.New("fsa: not found")

type searchResponse struct {
	Establishments []Establishment `json:"establishments"`
}

func (c *httpClient) SearchEstablishments(ctx context.Context, name, address string) ([]Establishment, error) {
	params := url.Values{}
	params.Set("name", name)
	if address != "" {
		params.Set("address", address)
	}
	params.Set("pageSize", fmt.Sprintf("%d", defaultPageSize))

	var resp searchResponse
	if err := c.get(ctx, "/Establishments", params, &resp); err != nil {
		return nil, err
	}
	return resp.Establishments, nil
}

func (c *httpClient) Establishment(ctx context.Context, fhrsID string) (*Establishment, bool, error) {
	var est Establishment
	err := c.get(ctx, "/Establishments/"+url.PathEscape(fhrsID), nil, &est)
	if err != nil {
		if eris.Is(err, errNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if est.FHRSID == 0 {
		return nil, false, nil
	}
	return &est, true, nil
}
