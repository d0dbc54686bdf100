package backtester

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"swarmbt/internal"
	"swarmbt/internal/backtest"
)

// FileSaver writes full run traces (equity curves, allocations, per-step
// statistics) to a single JSON file for plotting and analysis downstream.
type FileSaver struct{}

func NewFileSaver() *FileSaver {
	return &FileSaver{}
}

type savedTrace struct {
	Variant        string                `json:"variant"`
	Metrics        backtest.Metrics      `json:"metrics"`
	DegradedSteps  int                   `json:"degraded_steps"`
	Values         []float64             `json:"values"`
	Returns        []float64             `json:"returns"`
	Allocations    []internal.Allocation `json:"allocations"`
	Turnovers      []float64             `json:"turnovers"`
	Concentrations []float64             `json:"concentrations"`
}

func (s *FileSaver) SaveResults(results map[string]*backtest.Result, outputPath string) error {
	traces := make(map[string]savedTrace, len(results))
	for name, res := range results {
		traces[name] = savedTrace{
			Variant:        string(res.Variant),
			Metrics:        res.Metrics,
			DegradedSteps:  res.DegradedSteps,
			Values:         res.Values,
			Returns:        res.Returns,
			Allocations:    res.Allocations,
			Turnovers:      res.Turnovers,
			Concentrations: res.Concentrations,
		}
	}
	data, err := json.MarshalIndent(traces, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", outputPath)
	}
	return nil
}
