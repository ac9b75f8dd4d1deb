// Package geocode resolves free-text addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/visitplan/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type ErrorKind string

const (
	KindKeyMissing    ErrorKind = "key_missing"
	KindKeyInvalid    ErrorKind = "key_invalid"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindNetwork       ErrorKind = "network"
	KindZeroResults   ErrorKind = "zero_results"
	KindServer        ErrorKind = "server"
)

// Error is a classified geocoding failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "geocode: " + string(e.Kind)
	}
	return fmt.Sprintf("geocode %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a geocoding error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

type Result struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	NormalizedAddress string  `json:"normalized_address"`
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// NormalizeAddress collapses whitespace and lower-cases the address so
// equivalent spellings share a cache entry.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// ShouldGeocode reports whether an input still needs a lookup.
func ShouldGeocode(in models.AppointmentInput, force bool) bool {
	if strings.TrimSpace(in.Address) == "" {
		return false
	}
	if force {
		return true
	}
	return !in.HasCoordinates()
}
