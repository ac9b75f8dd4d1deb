package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// NominatimGeocoder talks to a Nominatim-compatible search endpoint. APIKey
// is sent as the key parameter for hosted providers that require one.
type NominatimGeocoder struct {
	BaseURL    string
	UserAgent  string
	APIKey     string
	RequireKey bool
	Client     *http.Client
	Limiter    *rate.Limiter
}

func NewNominatimGeocoder(baseURL, userAgent, apiKey string, rps float64) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = "visitplan"
	}
	if rps <= 0 {
		rps = 1
	}
	return &NominatimGeocoder{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		APIKey:    apiKey,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type nominatimItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (Result, error) {
	if g.RequireKey && g.APIKey == "" {
		return Result{}, &Error{Kind: KindKeyMissing}
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return Result{}, &Error{Kind: KindNetwork, Err: err}
		}
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	if g.APIKey != "" {
		q.Set("key", g.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, &Error{Kind: KindKeyInvalid, Err: fmt.Errorf("nominatim http error: %s", resp.Status)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, &Error{Kind: KindQuotaExceeded, Err: fmt.Errorf("nominatim http error: %s", resp.Status)}
	case resp.StatusCode >= 500:
		return Result{}, &Error{Kind: KindServer, Err: fmt.Errorf("nominatim http error: %s", resp.Status)}
	case resp.StatusCode == http.StatusNotFound:
		return Result{}, &Error{Kind: KindZeroResults, Err: ErrNotFound}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Result{}, &Error{Kind: KindServer, Err: fmt.Errorf("nominatim http error: %s", resp.Status)}
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Result{}, &Error{Kind: KindServer, Err: fmt.Errorf("decode nominatim response: %w", err)}
	}
	return parseNominatimItems(items)
}

func parseNominatimItems(items []nominatimItem) (Result, error) {
	if len(items) == 0 {
		return Result{}, &Error{Kind: KindZeroResults, Err: ErrNotFound}
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return Result{}, &Error{Kind: KindServer, Err: err}
	}
	lon, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return Result{}, &Error{Kind: KindServer, Err: err}
	}
	if lat == 0 && lon == 0 && items[0].DisplayName == "" {
		return Result{}, &Error{Kind: KindZeroResults, Err: ErrNotFound}
	}
	return Result{Latitude: lat, Longitude: lon, NormalizedAddress: items[0].DisplayName}, nil
}
