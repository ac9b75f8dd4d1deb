// Package simulation proposes and ranks fixes for scheduling conflicts.
package simulation

import (
	"time"

	"github.com/visitplan/backend/internal/models"
)

const (
	DefaultMaxReorderingScenarios = 50
	DefaultTimeBudget             = 2 * time.Second
)

var DefaultTestBufferSizes = []float64{30, 35, 40, 45, 50, 55, 60}

type Options struct {
	MaxReorderingScenarios int                        `json:"max_reordering_scenarios" yaml:"max_reordering_scenarios" validate:"gte=0"`
	TestBufferSizes        []float64                  `json:"test_buffer_sizes" yaml:"test_buffer_sizes" validate:"dive,gt=0"`
	RunRescheduling        bool                       `json:"run_rescheduling" yaml:"run_rescheduling"`
	BufferConfig           models.BufferConfiguration `json:"buffer_config" yaml:"buffer_config"`
	TimeBudgetMs           int                        `json:"time_budget_ms" yaml:"time_budget_ms" validate:"gte=0"`
}

func DefaultOptions() Options {
	return Options{
		MaxReorderingScenarios: DefaultMaxReorderingScenarios,
		TestBufferSizes:        append([]float64(nil), DefaultTestBufferSizes...),
		RunRescheduling:        true,
		BufferConfig:           models.DefaultBufferConfiguration(),
		TimeBudgetMs:           int(DefaultTimeBudget / time.Millisecond),
	}
}

// withDefaults fills zero-valued fields. RunRescheduling is taken as given.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxReorderingScenarios <= 0 {
		o.MaxReorderingScenarios = def.MaxReorderingScenarios
	}
	if len(o.TestBufferSizes) == 0 {
		o.TestBufferSizes = def.TestBufferSizes
	}
	if o.BufferConfig == (models.BufferConfiguration{}) {
		o.BufferConfig = def.BufferConfig
	}
	if o.TimeBudgetMs <= 0 {
		o.TimeBudgetMs = def.TimeBudgetMs
	}
	return o
}

func (o Options) TimeBudget() time.Duration {
	return time.Duration(o.TimeBudgetMs) * time.Millisecond
}
