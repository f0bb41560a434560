package analysis

import (
	"fmt"

	"povtools/internal/telemetry"
)

// BalanceAnalyzer runs the harmonic pipeline and turns its output into the
// balancing recommendation. It also publishes the Processed result on the
// context for the report writers.
type BalanceAnalyzer struct{}

func (this *BalanceAnalyzer) Name() string {
	return "balance"
}

func (this *BalanceAnalyzer) Analyze(ctx *Context) (*Result, error) {
	pd, err := telemetry.NewPipeline(ctx.Config).Run(ctx.Accel, ctx.Events)
	if err != nil {
		return nil, err
	}
	ctx.Processed = pd

	result := &Result{
		Name: this.Name(),
		Metrics: map[string]interface{}{
			"segments":  pd.Segments,
			"estimates": pd.Estimates,
		},
	}

	retained := 0
	for _, e := range pd.Estimates {
		if e.Order == telemetry.ORDER_IMBALANCE && e.RSquared > ctx.Config.ConfidenceFloor {
			retained++
		}
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Harmonic estimates: %d total, %d fundamental above confidence floor",
			len(pd.Estimates), retained))

	if pd.Balance == nil {
		result.Findings = append(result.Findings,
			"Insufficient data for a balancing recommendation")
		return result, nil
	}

	result.Metrics["balancing"] = pd.Balance
	result.Findings = append(result.Findings,
		fmt.Sprintf("Peak imbalance at: %.0f deg", pd.Balance.MeanPhaseDeg),
		fmt.Sprintf("Place counterweight at: %.0f deg", pd.Balance.CounterweightDeg))
	if pd.Balance.Used > 0 {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Phase agreement across %d estimates: std=%.0f deg",
				pd.Balance.Used, pd.Balance.CircularStdDeg))
	} else {
		result.Findings = append(result.Findings,
			"Recommendation from peak-bin fallback, no confident phase fits")
	}
	return result, nil
}
