package models

import "strings"

type Flexibility string

const (
	Flexible   Flexibility = "flexible"
	Inflexible Flexibility = "inflexible"
)

// NoStartTime is the literal ingestion uses for an appointment without a
// committed start.
const NoStartTime = "none"

type Appointment struct {
	ID              string      `json:"id" yaml:"id"`
	Name            string      `json:"name" yaml:"name"`
	Address         string      `json:"address" yaml:"address"`
	DurationMinutes int         `json:"duration_minutes" yaml:"duration_minutes"`
	StartTime       string      `json:"start_time" yaml:"start_time"`
	Date            string      `json:"date" yaml:"date"`
	Flexibility     Flexibility `json:"flexibility" yaml:"flexibility"`
	SourceRow       int         `json:"source_row" yaml:"source_row"`
}

// HasStartTime reports whether the appointment carries a concrete HH:MM start.
func (a Appointment) HasStartTime() bool {
	s := strings.TrimSpace(a.StartTime)
	return s != "" && !strings.EqualFold(s, NoStartTime)
}

func (a Appointment) IsFlexible() bool {
	return a.Flexibility != Inflexible
}

type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// AppointmentInput is an appointment as ingested, before its location is
// resolved. Latitude and Longitude are nil until geocoded.
type AppointmentInput struct {
	Appointment       `yaml:",inline"`
	Latitude          *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	NormalizedAddress string   `json:"normalized_address,omitempty" yaml:"normalized_address,omitempty"`
}

func (in AppointmentInput) HasCoordinates() bool {
	return in.Latitude != nil && in.Longitude != nil
}

type GeocodedAppointment struct {
	Appointment       `yaml:",inline"`
	Latitude          float64 `json:"latitude" yaml:"latitude"`
	Longitude         float64 `json:"longitude" yaml:"longitude"`
	NormalizedAddress string  `json:"normalized_address" yaml:"normalized_address"`
}

func (g GeocodedAppointment) Coordinates() Coordinates {
	return Coordinates{Lat: g.Latitude, Lon: g.Longitude}
}

type BufferConfiguration struct {
	BaseBufferMinutes    float64 `json:"base_buffer_minutes" yaml:"base_buffer_minutes" validate:"gt=0,gtefield=MinimumBufferMinutes,ltefield=MaximumBufferMinutes"`
	MinimumBufferMinutes float64 `json:"minimum_buffer_minutes" yaml:"minimum_buffer_minutes" validate:"gte=0"`
	MaximumBufferMinutes float64 `json:"maximum_buffer_minutes" yaml:"maximum_buffer_minutes" validate:"gtefield=MinimumBufferMinutes"`
	FlexibleFactor       float64 `json:"flexible_factor" yaml:"flexible_factor" validate:"gt=0"`
}

func DefaultBufferConfiguration() BufferConfiguration {
	return BufferConfiguration{
		BaseBufferMinutes:    45,
		MinimumBufferMinutes: 15,
		MaximumBufferMinutes: 120,
		FlexibleFactor:       0.8,
	}
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

type Conflict struct {
	Earlier         GeocodedAppointment `json:"earlier"`
	Later           GeocodedAppointment `json:"later"`
	Date            string              `json:"date"`
	GapMinutes      int                 `json:"gap_minutes"`
	RequiredMinutes int                 `json:"required_minutes"`
	Severity        Severity            `json:"severity"`
}

func (c Conflict) ShortfallMinutes() int {
	return c.RequiredMinutes - c.GapMinutes
}

type ChangeKind string

const (
	ChangeReorder        ChangeKind = "reorder"
	ChangeReschedule     ChangeKind = "reschedule"
	ChangeBufferAdjust   ChangeKind = "buffer-adjust"
	ChangeDurationAdjust ChangeKind = "duration-adjust"
)

type ScheduleChange struct {
	Kind          ChangeKind `json:"kind"`
	AppointmentID string     `json:"appointment_id"`
	OriginalTime  string     `json:"original_time"`
	ProposedTime  string     `json:"proposed_time"`
	Reason        string     `json:"reason"`
	ImpactMinutes int        `json:"impact_minutes"`
}

type Strategy string

const (
	StrategyReordering   Strategy = "reordering"
	StrategyBuffer       Strategy = "buffer_variation"
	StrategyRescheduling Strategy = "rescheduling"
)

type Feasibility string

const (
	FeasibilityFeasible   Feasibility = "feasible"
	FeasibilityLikely     Feasibility = "likely"
	FeasibilityInfeasible Feasibility = "infeasible"
)

type SimulationStats struct {
	ScenariosTested   int     `json:"scenarios_tested"`
	FeasibleScenarios int     `json:"feasible_scenarios"`
	BestGapMinutes    float64 `json:"best_gap_minutes"`
	WorstGapMinutes   float64 `json:"worst_gap_minutes"`
	AverageGapMinutes float64 `json:"average_gap_minutes"`
}

type Solution struct {
	Strategy    Strategy         `json:"strategy"`
	Changes     []ScheduleChange `json:"changes"`
	SuccessRate float64          `json:"success_rate"`
	ImpactScore float64          `json:"impact_score"`
	Feasibility Feasibility      `json:"feasibility"`
	Reasoning   []string         `json:"reasoning"`
	Stats       *SimulationStats `json:"stats,omitempty"`
}

type ConflictResolution struct {
	Conflict            Conflict   `json:"conflict"`
	Solutions           []Solution `json:"solutions"`
	RecommendedSolution *Solution  `json:"recommended_solution"`
}

type ResolutionReport struct {
	Resolutions     []ConflictResolution `json:"resolutions"`
	TotalConflicts  int                  `json:"total_conflicts"`
	Processed       int                  `json:"processed"`
	BudgetExhausted bool                 `json:"budget_exhausted"`
	ElapsedMs       int64                `json:"elapsed_ms"`
}

type StopStatus string

const (
	StatusOnTime StopStatus = "on_time"
	StatusEarly  StopStatus = "early"
	StatusLate   StopStatus = "late"
)

type VisitStop struct {
	Sequence             int                 `json:"sequence"`
	Appointment          GeocodedAppointment `json:"appointment"`
	ArrivalMinutes       int                 `json:"arrival_minutes"`
	ArrivalTime          string              `json:"arrival_time"`
	DepartureTime        string              `json:"departure_time"`
	TravelMinutes        int                 `json:"travel_minutes"`
	TravelMeters         int                 `json:"travel_meters"`
	Status               StopStatus          `json:"status"`
	MinutesFromPreferred int                 `json:"minutes_from_preferred"`
	EstimatedTravel      bool                `json:"estimated_travel"`
}

type OptimizedRoute struct {
	Date                string      `json:"date"`
	Stops               []VisitStop `json:"stops"`
	TotalDistanceMeters int         `json:"total_distance_meters"`
	TotalTravelMinutes  int         `json:"total_travel_minutes"`
	TotalVisitMinutes   int         `json:"total_visit_minutes"`
	StartTime           string      `json:"start_time"`
	EndTime             string      `json:"end_time"`
	OnTimeCount         int         `json:"on_time_count"`
	EarlyCount          int         `json:"early_count"`
	LateCount           int         `json:"late_count"`
	Success             bool        `json:"success"`
	Warnings            []string    `json:"warnings,omitempty"`
	Error               string      `json:"error,omitempty"`
}
