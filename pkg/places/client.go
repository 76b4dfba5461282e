// Package places is a client for the Google Places web service endpoints
// used by the guide: find-place-from-text, place details, and paginated
// nearby search. All calls go through an internal rate limiter so the
// provider's minimum inter-request interval holds by construction.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// detailFields is the fixed field set requested from Place Details. Never
// request all fields: the mask bounds both cost and payload shape.
var detailFields = strings.Join([]string{
	"place_id",
	"name",
	"formatted_phone_number",
	"international_phone_number",
	"website",
	"rating",
	"user_ratings_total",
	"price_level",
	"opening_hours",
	"formatted_address",
	"business_status",
	"editorial_summary",
}, ",")

// BusinessStatusClosed is the terminal status for a permanently closed place.
const BusinessStatusClosed = "CLOSED_PERMANENTLY"

// Client performs Places API operations.
type Client interface {
	// FindPlace searches for a place by text, optionally biased to a
	// circular area. Returns candidates in provider rank order.
	FindPlace(ctx context.Context, input string, bias *LocationBias) ([]FindCandidate, error)

	// Details fetches the fixed detail field set for a place.
	// found=false means the provider has no record for the ID.
	Details(ctx context.Context, placeID string) (*PlaceDetails, bool, error)

	// NearbySearch returns places of the given type around a point,
	// following pagination up to maxPages.
	NearbySearch(ctx context.Context, lat, lng float64, radiusMetres int, placeType string, maxPages int) ([]NearbyPlace, error)
}

// LocationBias restricts a find-place query to a circle.
type LocationBias struct {
	Lat          float64
	Lng          float64
	RadiusMetres int
}

// FindCandidate is one find-place hit.
type FindCandidate struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
}

// PlaceDetails is the detail payload for one place.
type PlaceDetails struct {
	PlaceID                  string            `json:"place_id"`
	Name                     string            `json:"name"`
	FormattedPhoneNumber     string            `json:"formatted_phone_number"`
	InternationalPhoneNumber string            `json:"international_phone_number"`
	Website                  string            `json:"website"`
	Rating                   *float64          `json:"rating"`
	UserRatingsTotal         *int              `json:"user_ratings_total"`
	PriceLevel               *int              `json:"price_level"`
	OpeningHours             *OpeningHours     `json:"opening_hours"`
	FormattedAddress         string            `json:"formatted_address"`
	BusinessStatus           string            `json:"business_status"`
	EditorialSummary         *EditorialSummary `json:"editorial_summary"`
}

// OpeningHours is the provider's opening-hours payload.
type OpeningHours struct {
	OpenNow     *bool    `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
	Periods     []Period `json:"periods"`
}

// Period is one open/close span.
type Period struct {
	Open  PointInTime  `json:"open"`
	Close *PointInTime `json:"close"`
}

// PointInTime is a weekday plus an HHMM time.
type PointInTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// EditorialSummary carries the provider's short description.
type EditorialSummary struct {
	Overview string `json:"overview"`
}

// NearbyPlace is one nearby-search result.
type NearbyPlace struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Types    []string `json:"types"`
	Geometry Geometry `json:"geometry"`
}

// Geometry holds the result's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
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

// WithPageDelay sets the wait before a pagination token becomes valid.
func WithPageDelay(d time.Duration) Option {
	return func(c *httpClient) { c.pageDelay = d }
}

type httpClient struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	pageDelay time.Duration
}

// NewClient creates a Places client. The provider mandates roughly three
// calls per second; the default interval stays under that.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
		pageDelay: 2 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// statusEnvelope is the common response wrapper.
type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "places: rate limiter wait")
	}

	params.Set("key", c.apiKey)
	u := fmt.Sprintf("%s/%s/json?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}

type findPlaceResponse struct {
	statusEnvelope
	Candidates []FindCandidate `json:"candidates"`
}

func (c *httpClient) FindPlace(ctx context.Context, input string, bias *LocationBias) ([]FindCandidate, error) {
	params := url.Values{}
	params.Set("input", input)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,name,formatted_address")
	if bias != nil {
		params.Set("locationbias", fmt.Sprintf("circle:%d@%f,%f", bias.RadiusMetres, bias.Lat, bias.Lng))
	}

	var resp findPlaceResponse
	if err := c.get(ctx, "findplacefromtext", params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
		return resp.Candidates, nil
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("places: find place status %s: %s", resp.Status, resp.ErrorMessage)
	}
}

type detailsResponse struct {
	statusEnvelope
	Result *PlaceDetails `json:"result"`
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*PlaceDetails, bool, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)

	var resp detailsResponse
	if err := c.get(ctx, "details", params, &resp); err != nil {
		return nil, false, err
	}

	switch resp.Status {
	case "OK":
		if resp.Result == nil {
			return nil, false, nil
		}
		return resp.Result, true, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, false, nil
	default:
		return nil, false, eris.Errorf("places: details status %s: %s", resp.Status, resp.ErrorMessage)
	}
}

type nearbyResponse struct {
	statusEnvelope
	Results       []NearbyPlace `json:"results"`
	NextPageToken string        `json:"next_page_token"`
}

func (c *httpClient) NearbySearch(ctx context.Context, lat, lng float64, radiusMetres int, placeType string, maxPages int) ([]NearbyPlace, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []NearbyPlace
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		if pageToken == "" {
			params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
			params.Set("radius", fmt.Sprintf("%d", radiusMetres))
			params.Set("type", placeType)
		} else {
			// The continuation token only becomes valid after a
			// provider-mandated delay.
			t := time.NewTimer(c.pageDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return all, eris.Wrap(ctx.Err(), "places: nearby search")
			case <-t.C:
			}
			params.Set("pagetoken", pageToken)
		}

		var resp nearbyResponse
		if err := c.get(ctx, "nearbysearch", params, &resp); err != nil {
			return all, err
		}

		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return all, nil
		case "INVALID_REQUEST":
			// Token not yet valid despite the delay; stop paginating
			// rather than hammering the endpoint.
			return all, nil
		default:
			return all, eris.Errorf("places: nearby search status %s: %s", resp.Status, resp.ErrorMessage)
		}

		all = append(all, resp.Results...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}

	return all, nil
}
