package backtester

import (
	"time"

	"swarmbt/internal"
	"swarmbt/internal/backtest"
)

// VariantResult is one row of the comparison table.
type VariantResult struct {
	Name          string
	Metrics       backtest.Metrics
	DegradedSteps int
	ExecutionTime time.Duration
}

// Runner runs one or more backtest variants over a return matrix.
type Runner interface {
	RunVariant(matrix *internal.ReturnMatrix, variant backtest.Variant) (*VariantResult, error)
	RunAllVariants(matrix *internal.ReturnMatrix) ([]VariantResult, error)
}

// ResultPrinter renders the comparison table.
type ResultPrinter interface {
	PrintComparison(results []VariantResult)
}

// ResultSaver persists full run traces.
type ResultSaver interface {
	SaveResults(results map[string]*backtest.Result, outputPath string) error
}
