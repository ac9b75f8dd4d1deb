package service

import (
	"fmt"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

const (
	ReasonNonPositiveDuration = "NON_POSITIVE_DURATION"
	ReasonInvalidStartTime    = "INVALID_START_TIME"
	ReasonMissingCoordinates  = "MISSING_COORDINATES"
)

type ReadinessResult struct {
	Routable []models.GeocodedAppointment `json:"-"`
	Dropped  []DroppedInput               `json:"dropped"`
	Stages   []ReadinessStage             `json:"stages"`
}

type ReadinessStage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DroppedInput struct {
	AppointmentID string `json:"appointment_id"`
	SourceRow     int    `json:"source_row,omitempty"`
	ReasonCode    string `json:"reason_code"`
	ReasonText    string `json:"reason_text"`
}

// FilterRoutable passes inputs through the readiness stages in order and
// records why each dropped input left.
func FilterRoutable(inputs []models.AppointmentInput) ReadinessResult {
	result := ReadinessResult{}
	result.Stages = append(result.Stages, ReadinessStage{Name: "received", Count: len(inputs)})

	afterDuration := filterInputs(inputs, &result, func(in models.AppointmentInput) (string, string) {
		if in.DurationMinutes <= 0 {
			return ReasonNonPositiveDuration, fmt.Sprintf("visit duration %d is not positive", in.DurationMinutes)
		}
		return "", ""
	})
	result.Stages = append(result.Stages, ReadinessStage{Name: "has_duration", Count: len(afterDuration)})

	afterClock := filterInputs(afterDuration, &result, func(in models.AppointmentInput) (string, string) {
		if in.HasStartTime() && !utils.IsClock(in.StartTime) {
			return ReasonInvalidStartTime, fmt.Sprintf("start time %q is not HH:MM", in.StartTime)
		}
		return "", ""
	})
	result.Stages = append(result.Stages, ReadinessStage{Name: "valid_clock", Count: len(afterClock)})

	afterCoords := filterInputs(afterClock, &result, func(in models.AppointmentInput) (string, string) {
		if !in.HasCoordinates() {
			return ReasonMissingCoordinates, "no coordinates for address"
		}
		return "", ""
	})
	result.Stages = append(result.Stages, ReadinessStage{Name: "has_coordinates", Count: len(afterCoords)})

	result.Routable = make([]models.GeocodedAppointment, 0, len(afterCoords))
	for _, in := range afterCoords {
		normalized := in.NormalizedAddress
		if normalized == "" {
			normalized = in.Address
		}
		result.Routable = append(result.Routable, models.GeocodedAppointment{
			Appointment:       in.Appointment,
			Latitude:          *in.Latitude,
			Longitude:         *in.Longitude,
			NormalizedAddress: normalized,
		})
	}
	return result
}

func filterInputs(inputs []models.AppointmentInput, result *ReadinessResult, reject func(models.AppointmentInput) (string, string)) []models.AppointmentInput {
	out := make([]models.AppointmentInput, 0, len(inputs))
	for _, in := range inputs {
		if code, text := reject(in); code != "" {
			result.Dropped = append(result.Dropped, DroppedInput{
				AppointmentID: in.ID,
				SourceRow:     in.SourceRow,
				ReasonCode:    code,
				ReasonText:    text,
			})
			continue
		}
		out = append(out, in)
	}
	return out
}
