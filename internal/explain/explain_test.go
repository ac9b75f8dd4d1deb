package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/visitplan/backend/internal/models"
)

func sampleConflict() models.Conflict {
	earlier := models.GeocodedAppointment{Appointment: models.Appointment{ID: "a", Name: "Smith", StartTime: "09:00", DurationMinutes: 30}}
	later := models.GeocodedAppointment{Appointment: models.Appointment{ID: "b", Name: "Jones", StartTime: "09:20", DurationMinutes: 30}}
	return models.Conflict{Earlier: earlier, Later: later, Date: "2024-03-04", GapMinutes: 20, RequiredMinutes: 30, Severity: models.SeverityMinor}
}

func TestCategorizeImpact(t *testing.T) {
	cases := map[float64]string{0: "low", 30: "low", 30.01: "medium", 60: "medium", 60.5: "high"}
	for score, want := range cases {
		if got := CategorizeImpact(score); got != want {
			t.Fatalf("score %.2f: expected %s, got %s", score, want, got)
		}
	}
}

func TestGrade(t *testing.T) {
	cases := map[float64]string{25: "A", 25.5: "B", 40: "B", 55: "C", 70: "D", 70.1: "F"}
	for score, want := range cases {
		if got := Grade(score); got != want {
			t.Fatalf("score %.2f: expected %s, got %s", score, want, got)
		}
	}
}

func TestTemplateDescribesChanges(t *testing.T) {
	sol := models.Solution{
		Strategy: models.StrategyRescheduling,
		Changes: []models.ScheduleChange{{
			Kind: models.ChangeReschedule, AppointmentID: "b", OriginalTime: "09:20", ProposedTime: "10:15", Reason: "after Smith plus buffer",
		}},
		SuccessRate: 0.8,
		ImpactScore: 40,
		Feasibility: models.FeasibilityLikely,
	}
	lines, err := Template{}.Explain(context.Background(), sampleConflict(), sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"short by 10 min", "Move b from 09:20 to 10:15", "Success rate 80%", "grade B"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in:\n%s", want, joined)
		}
	}
}

func TestHTTPExplainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/explain" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Conflict.Later.ID != "b" {
			t.Errorf("unexpected conflict in body: %+v", body.Conflict)
		}
		_ = json.NewEncoder(w).Encode(responseBody{Lines: []string{"remote"}})
	}))
	defer srv.Close()

	lines, err := NewHTTPExplainer(srv.URL).Explain(context.Background(), sampleConflict(), models.Solution{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "remote" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestHTTPExplainerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTPExplainer(srv.URL).Explain(context.Background(), sampleConflict(), models.Solution{}); err == nil {
		t.Fatalf("expected error on 500")
	}
}
