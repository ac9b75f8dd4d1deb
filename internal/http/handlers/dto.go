package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/service"
	"github.com/visitplan/backend/internal/simulation"
	"github.com/visitplan/backend/internal/utils"
)

// NewValidator registers the clock rule: HH:MM, empty or "none".
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return s == "" || strings.EqualFold(s, models.NoStartTime) || utils.IsClock(s)
	})
	return v
}

type AppointmentRequest struct {
	ID              string   `json:"id" validate:"required"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	DurationMinutes int      `json:"duration_minutes" validate:"gt=0"`
	StartTime       string   `json:"start_time" validate:"clock"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Flexibility     string   `json:"flexibility" validate:"required,oneof=flexible inflexible"`
	SourceRow       int      `json:"source_row"`
	Latitude        *float64 `json:"latitude" validate:"required,latitude"`
	Longitude       *float64 `json:"longitude" validate:"required,longitude"`
	NormalizedAddr  string   `json:"normalized_address"`
}

func (a AppointmentRequest) toModel() models.GeocodedAppointment {
	normalized := a.NormalizedAddr
	if normalized == "" {
		normalized = a.Address
	}
	return models.GeocodedAppointment{
		Appointment: models.Appointment{
			ID:              a.ID,
			Name:            a.Name,
			Address:         a.Address,
			DurationMinutes: a.DurationMinutes,
			StartTime:       a.StartTime,
			Date:            a.Date,
			Flexibility:     models.Flexibility(a.Flexibility),
			SourceRow:       a.SourceRow,
		},
		Latitude:          *a.Latitude,
		Longitude:         *a.Longitude,
		NormalizedAddress: normalized,
	}
}

type AppointmentsRequest struct {
	Appointments []AppointmentRequest `json:"appointments" validate:"required,min=1,dive"`
}

func (r AppointmentsRequest) toModels() []models.GeocodedAppointment {
	out := make([]models.GeocodedAppointment, 0, len(r.Appointments))
	for _, a := range r.Appointments {
		out = append(out, a.toModel())
	}
	return out
}

// OptionsRequest overrides the server defaults field by field.
type OptionsRequest struct {
	MaxReorderingScenarios *int                        `json:"max_reordering_scenarios" validate:"omitempty,gte=1"`
	TestBufferSizes        []float64                   `json:"test_buffer_sizes" validate:"omitempty,dive,gt=0"`
	RunRescheduling        *bool                       `json:"run_rescheduling"`
	BufferConfig           *BufferConfigRequest        `json:"buffer_config" validate:"omitempty"`
	TimeBudgetMs           *int                        `json:"time_budget_ms" validate:"omitempty,gte=1,lte=60000"`
}

func (o *OptionsRequest) apply(def simulation.Options) simulation.Options {
	if o == nil {
		return def
	}
	if o.MaxReorderingScenarios != nil {
		def.MaxReorderingScenarios = *o.MaxReorderingScenarios
	}
	if len(o.TestBufferSizes) > 0 {
		def.TestBufferSizes = o.TestBufferSizes
	}
	if o.RunRescheduling != nil {
		def.RunRescheduling = *o.RunRescheduling
	}
	if o.BufferConfig != nil {
		def.BufferConfig = o.BufferConfig.merge(def.BufferConfig)
	}
	if o.TimeBudgetMs != nil {
		def.TimeBudgetMs = *o.TimeBudgetMs
	}
	return def
}

// BufferConfigRequest is a partial buffer configuration. The merged result
// is validated as a whole.
type BufferConfigRequest struct {
	BaseBufferMinutes    *float64 `json:"base_buffer_minutes" validate:"omitempty,gt=0"`
	MinimumBufferMinutes *float64 `json:"minimum_buffer_minutes" validate:"omitempty,gte=0"`
	MaximumBufferMinutes *float64 `json:"maximum_buffer_minutes" validate:"omitempty,gt=0"`
	FlexibleFactor       *float64 `json:"flexible_factor" validate:"omitempty,gt=0"`
}

func (b BufferConfigRequest) merge(def models.BufferConfiguration) models.BufferConfiguration {
	if b.BaseBufferMinutes != nil {
		def.BaseBufferMinutes = *b.BaseBufferMinutes
	}
	if b.MinimumBufferMinutes != nil {
		def.MinimumBufferMinutes = *b.MinimumBufferMinutes
	}
	if b.MaximumBufferMinutes != nil {
		def.MaximumBufferMinutes = *b.MaximumBufferMinutes
	}
	if b.FlexibleFactor != nil {
		def.FlexibleFactor = *b.FlexibleFactor
	}
	return def
}

type ResolveRequest struct {
	AppointmentsRequest
	Options *OptionsRequest `json:"options"`
}

// PlanAppointmentRequest leaves duration and clock checks to the readiness
// stages so bad rows are reported instead of failing the whole request.
type PlanAppointmentRequest struct {
	ID              string   `json:"id" validate:"required"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	DurationMinutes int      `json:"duration_minutes"`
	StartTime       string   `json:"start_time"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Flexibility     string   `json:"flexibility" validate:"omitempty,oneof=flexible inflexible"`
	SourceRow       int      `json:"source_row"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type PlanRequest struct {
	Appointments []PlanAppointmentRequest `json:"appointments" validate:"required,min=1,dive"`
	Options      *OptionsRequest          `json:"options"`
	ForceGeocode bool                     `json:"force_geocode"`
}

func (r PlanRequest) toService(opts simulation.Options) service.PlanRequest {
	inputs := make([]models.AppointmentInput, 0, len(r.Appointments))
	for _, a := range r.Appointments {
		flex := models.Flexibility(a.Flexibility)
		if flex == "" {
			flex = inferFlexibility(a.StartTime)
		}
		inputs = append(inputs, models.AppointmentInput{
			Appointment: models.Appointment{
				ID:              a.ID,
				Name:            a.Name,
				Address:         a.Address,
				DurationMinutes: a.DurationMinutes,
				StartTime:       a.StartTime,
				Date:            a.Date,
				Flexibility:     flex,
				SourceRow:       a.SourceRow,
			},
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
		})
	}
	return service.PlanRequest{
		Appointments: inputs,
		Options:      opts,
		ForceGeocode: r.ForceGeocode,
	}
}

type GeocodeRequest struct {
	Address string `json:"address" validate:"required"`
}

// inferFlexibility treats a visit with a committed start as inflexible.
func inferFlexibility(start string) models.Flexibility {
	s := strings.TrimSpace(start)
	if s == "" || strings.EqualFold(s, models.NoStartTime) {
		return models.Flexible
	}
	return models.Inflexible
}
