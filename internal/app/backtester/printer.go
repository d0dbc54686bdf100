package backtester

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConsolePrinter renders the variant comparison as a plain table, best
// total return first.
type ConsolePrinter struct{}

func NewConsolePrinter() *ConsolePrinter {
	return &ConsolePrinter{}
}

func (p *ConsolePrinter) PrintComparison(results []VariantResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Metrics.TotalReturn > results[j].Metrics.TotalReturn
	})

	fmt.Println("\n" + strings.Repeat("=", 96))
	fmt.Println("VARIANT COMPARISON")
	fmt.Println(strings.Repeat("=", 96))
	fmt.Printf("%-16s %-10s %-8s %-10s %-10s %-10s %-9s %-8s\n",
		"Variant", "Return", "Sharpe", "MaxDD", "Turnover", "Concentr.", "Degraded", "Time")
	fmt.Println(strings.Repeat("-", 96))

	for _, r := range results {
		m := r.Metrics
		fmt.Printf("%-16s %+9.2f%% %8.2f %9.2f%% %10.4f %10.4f %9d %8s\n",
			r.Name,
			m.TotalReturn*100,
			m.AnnualizedSharpe,
			m.MaxDrawdown*100,
			m.AvgTurnover,
			m.AvgConcentration,
			r.DegradedSteps,
			formatDuration(r.ExecutionTime))
	}
	fmt.Println(strings.Repeat("-", 96))
}

func formatDuration(d time.Duration) string {
	if d > time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
}
