package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseNominatimItems(t *testing.T) {
	items := []nominatimItem{
		{
			Lat:         "51.1605",
			Lon:         "71.4704",
			DisplayName: "Astana, Kazakhstan",
		},
	}
	res, err := parseNominatimItems(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Latitude != 51.1605 || res.Longitude != 71.4704 {
		t.Fatalf("unexpected coordinates: %+v", res)
	}
	if res.NormalizedAddress != "Astana, Kazakhstan" {
		t.Fatalf("unexpected display name: %s", res.NormalizedAddress)
	}
}

func TestParseNominatimItemsEmpty(t *testing.T) {
	_, err := parseNominatimItems(nil)
	if !errors.Is(err, ErrNotFound) || KindOf(err) != KindZeroResults {
		t.Fatalf("expected zero_results, got %v", err)
	}
}

func TestNominatimGeocoderSendsKeyAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("expected api key in query")
		}
		if r.URL.Query().Get("q") != "12 Main St" {
			t.Errorf("unexpected query: %s", r.URL.Query().Get("q"))
		}
		fmt.Fprint(w, `[{"lat":"40.1","lon":"-74.2","display_name":"12 Main Street"}]`)
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "test", "secret", 100)
	res, err := g.Geocode(context.Background(), "12 Main St")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Latitude != 40.1 || res.Longitude != -74.2 {
		t.Fatalf("unexpected coordinates: %+v", res)
	}
}

func TestNominatimGeocoderClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindKeyInvalid},
		{http.StatusForbidden, KindKeyInvalid},
		{http.StatusTooManyRequests, KindQuotaExceeded},
		{http.StatusBadGateway, KindServer},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		g := NewNominatimGeocoder(srv.URL, "test", "", 100)
		_, err := g.Geocode(context.Background(), "x")
		srv.Close()
		if KindOf(err) != tc.want {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.want, err)
		}
	}
}

func TestNominatimGeocoderRequiresKey(t *testing.T) {
	g := NewNominatimGeocoder("http://127.0.0.1:1", "test", "", 100)
	g.RequireKey = true
	if _, err := g.Geocode(context.Background(), "x"); KindOf(err) != KindKeyMissing {
		t.Fatalf("expected key_missing, got %v", err)
	}
}

func TestNominatimGeocoderNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewNominatimGeocoder(url, "test", "", 100)
	if _, err := g.Geocode(context.Background(), "x"); KindOf(err) != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}
