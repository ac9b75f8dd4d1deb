package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/visitplan/backend/internal/models"
)

type ImportSummary struct {
	Appointments []models.AppointmentInput `json:"appointments"`
	Parsed       int                       `json:"parsed"`
	Errors       []string                  `json:"errors"`
}

// @Summary Import appointments CSV
// @Description Parses an appointments CSV into plan inputs without routing them
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param appointments formData file true "appointments.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/appointments/import [post]
func (h *Handler) ImportAppointments(c *gin.Context) {
	file, err := c.FormFile("appointments")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "appointments file required", nil)
		return
	}
	if !validateExt(file.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return
	}
	appts, errs := parseAppointmentsFile(file)
	if appts == nil {
		appts = []models.AppointmentInput{}
	}
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, ImportSummary{Appointments: appts, Parsed: len(appts), Errors: errs})
}

func parseAppointmentsFile(file *multipart.FileHeader) ([]models.AppointmentInput, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()
	return parseAppointmentsCSV(f)
}

// parseAppointmentsCSV reads one appointment per row. Rows with unusable
// dates are skipped; other bad values are kept for the readiness stages to
// report.
func parseAppointmentsCSV(r io.Reader) ([]models.AppointmentInput, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)

	var (
		errs []string
		out  []models.AppointmentInput
	)
	row := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", row, err))
			continue
		}

		id := getFieldAny(rec, index, "id", "appointment_id", "appointment id")
		if id == "" {
			id = fmt.Sprintf("APPT-%04d", len(out)+1)
		}
		date, err := parseDate(getFieldAny(rec, index, "date", "visit_date", "day"))
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", row, err))
			continue
		}

		durationRaw := getFieldAny(rec, index, "duration_minutes", "duration", "minutes")
		duration, err := strconv.Atoi(durationRaw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: invalid duration %q", row, durationRaw))
		}

		start := getFieldAny(rec, index, "start_time", "start time", "time", "preferred_time")
		flex := models.Flexibility(strings.ToLower(getFieldAny(rec, index, "flexibility", "type")))
		switch flex {
		case models.Flexible, models.Inflexible:
		case "fixed":
			flex = models.Inflexible
		default:
			flex = inferFlexibility(start)
		}

		in := models.AppointmentInput{
			Appointment: models.Appointment{
				ID:              id,
				Name:            getFieldAny(rec, index, "name", "client", "customer"),
				Address:         getFieldAny(rec, index, "address", "location"),
				DurationMinutes: duration,
				StartTime:       start,
				Date:            date,
				Flexibility:     flex,
				SourceRow:       row,
			},
		}
		lat, latOK := parseCoord(getFieldAny(rec, index, "latitude", "lat"))
		lon, lonOK := parseCoord(getFieldAny(rec, index, "longitude", "lon", "lng"))
		if latOK && lonOK {
			in.Latitude, in.Longitude = &lat, &lon
		}
		out = append(out, in)
	}
	return out, errs
}

func parseDate(raw string) (string, error) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "2006/01/02"} {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", raw)
}

func parseCoord(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
