package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/visitplan/backend/internal/models"
)

var ErrNoRoute = errors.New("no route between points")

// OSRMProvider queries the OSRM table service. One request answers one
// origin against up to BatchSize-1 destinations.
type OSRMProvider struct {
	BaseURL   string
	Profile   string
	BatchSize int
	Client    *http.Client
	Limiter   *rate.Limiter
	Logger    zerolog.Logger
}

func NewOSRMProvider(baseURL string, batchSize int, rps float64, logger zerolog.Logger) *OSRMProvider {
	if batchSize < 2 {
		batchSize = 100
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &OSRMProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Profile:   "driving",
		BatchSize: batchSize,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Limiter:   limiter,
		Logger:    logger,
	}
}

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (o *OSRMProvider) TravelCost(ctx context.Context, from, to models.Coordinates) (Result, error) {
	if from == to {
		return Result{}, nil
	}
	rows, err := o.fetchRow(ctx, from, []models.Coordinates{to})
	if err != nil {
		return Result{}, err
	}
	return rows[0].Result, rows[0].Err
}

// TravelCosts splits the destinations into chunks that respect BatchSize.
// A failed chunk fails the whole call; a null cell only fails its destination.
func (o *OSRMProvider) TravelCosts(ctx context.Context, from models.Coordinates, to []models.Coordinates) ([]BatchResult, error) {
	out := make([]BatchResult, 0, len(to))
	chunk := o.BatchSize - 1
	for start := 0; start < len(to); start += chunk {
		end := start + chunk
		if end > len(to) {
			end = len(to)
		}
		rows, err := o.fetchRow(ctx, from, to[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (o *OSRMProvider) fetchRow(ctx context.Context, from models.Coordinates, to []models.Coordinates) ([]BatchResult, error) {
	coords := make([]string, 0, len(to)+1)
	coords = append(coords, lonLat(from))
	dests := make([]string, 0, len(to))
	for i, c := range to {
		coords = append(coords, lonLat(c))
		dests = append(dests, strconv.Itoa(i+1))
	}
	endpoint := fmt.Sprintf("%s/table/v1/%s/%s?sources=0&destinations=%s&annotations=distance,duration",
		o.BaseURL, o.Profile, strings.Join(coords, ";"), strings.Join(dests, ";"))

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("table request: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode table response: %w", err)
	}
	if tr.Code != "" && tr.Code != "Ok" {
		return nil, fmt.Errorf("table response %s: %s", tr.Code, tr.Message)
	}
	if len(tr.Distances) != 1 || len(tr.Durations) != 1 {
		return nil, fmt.Errorf("expected 1 source row; got distances=%d durations=%d", len(tr.Distances), len(tr.Durations))
	}
	rowDistances, rowDurations := tr.Distances[0], tr.Durations[0]
	if len(rowDistances) != len(to) || len(rowDurations) != len(to) {
		return nil, fmt.Errorf("row lengths do not match destinations: distances=%d durations=%d destinations=%d",
			len(rowDistances), len(rowDurations), len(to))
	}

	out := make([]BatchResult, len(to))
	for i := range to {
		if rowDistances[i] == nil || rowDurations[i] == nil {
			out[i] = BatchResult{Err: ErrNoRoute}
			continue
		}
		out[i] = BatchResult{Result: Result{
			DistanceMeters:  *rowDistances[i],
			DurationMinutes: *rowDurations[i] / 60,
		}}
	}
	return out, nil
}

// doWithRetry retries 429, 5xx and network failures with exponential
// backoff while respecting ctx.
func (o *OSRMProvider) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.Limiter != nil {
			if err := o.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}
		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		o.Logger.Debug().Err(err).Int("attempt", attempt).Msg("routing request retry")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (o *OSRMProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func lonLat(c models.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}
