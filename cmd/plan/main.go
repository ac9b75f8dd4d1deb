package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/visitplan/backend/internal/config"
	"github.com/visitplan/backend/internal/distance"
	"github.com/visitplan/backend/internal/explain"
	"github.com/visitplan/backend/internal/geocode"
	"github.com/visitplan/backend/internal/http/handlers"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/route"
	"github.com/visitplan/backend/internal/service"
	"github.com/visitplan/backend/internal/simulation"
)

// Fixture is the YAML input of the plan command.
type Fixture struct {
	Appointments []models.AppointmentInput `yaml:"appointments"`
	Options      simulation.Options        `yaml:"options"`
	ForceGeocode bool                      `yaml:"force_geocode"`
}

func loadFixture(r io.Reader, defaults simulation.Options) (Fixture, error) {
	f := Fixture{Options: defaults}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	if len(f.Appointments) == 0 {
		return Fixture{}, fmt.Errorf("fixture has no appointments")
	}
	if err := handlers.NewValidator().Struct(f.Options); err != nil {
		return Fixture{}, fmt.Errorf("invalid options: %w", err)
	}
	for i := range f.Appointments {
		if f.Appointments[i].SourceRow == 0 {
			f.Appointments[i].SourceRow = i + 1
		}
		if f.Appointments[i].Flexibility == "" {
			f.Appointments[i].Flexibility = models.Flexible
			if f.Appointments[i].HasStartTime() {
				f.Appointments[i].Flexibility = models.Inflexible
			}
		}
	}
	return f, nil
}

func main() {
	fixturePath := flag.String("fixture", "", "path to a YAML fixture")
	withGeocoder := flag.Bool("geocode", false, "resolve missing coordinates with the configured geocoder")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: plan -fixture appointments.yaml")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "visitplan-cli").Logger()

	file, err := os.Open(*fixturePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open fixture")
	}
	fixture, err := loadFixture(file, cfg.SimulationOptions())
	_ = file.Close()
	if err != nil {
		logger.Fatal().Err(err).Str("fixture", *fixturePath).Msg("load fixture")
	}

	var provider distance.Provider = distance.HaversineProvider{}
	if cfg.RoutingURL != "" {
		provider = distance.NewOSRMProvider(cfg.RoutingURL, cfg.RoutingBatchSize, cfg.RoutingRPS, logger)
	}
	planner := &service.PlanningService{
		Builder:  route.NewBuilder(provider, nil, logger),
		Resolver: simulation.NewResolver(explain.Template{}, nil, logger),
		Logger:   logger,
	}
	if *withGeocoder {
		g := geocode.NewNominatimGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderAPIKey, cfg.GeocoderRPS)
		g.RequireKey = cfg.GeocoderKeyNeeded
		planner.Geocoder = g
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := planner.Plan(ctx, service.PlanRequest{
		Appointments: fixture.Appointments,
		Options:      fixture.Options,
		ForceGeocode: fixture.ForceGeocode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("plan")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal().Err(err).Msg("write result")
	}
}
