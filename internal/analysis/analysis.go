package analysis

import (
	"log"

	"povtools/internal/telemetry"
)

// Context carries one capture through every analyzer. NewContext performs
// the synchronization and segmentation once; analyzers only read from it,
// except Processed which the balance analyzer fills for the report writer.
type Context struct {
	Accel    *telemetry.AccelTable
	Events   []telemetry.RotationEvent
	SpeedLog []telemetry.SpeedLogEntry
	Config   telemetry.PipelineConfig

	Enriched []telemetry.EnrichedSample
	Clean    []telemetry.EnrichedSample
	Slices   []telemetry.SegmentSlice

	Processed *telemetry.Processed
}

// Result is one analyzer's contribution to the findings report.
type Result struct {
	Name     string                 `codec:"," json:"name"`
	Metrics  map[string]interface{} `codec:"," json:"metrics"`
	Findings []string               `codec:"," json:"findings"`
}

// Analyzer is one independent analysis pass over a prepared Context.
type Analyzer interface {
	Name() string
	Analyze(ctx *Context) (*Result, error)
}

// NewContext synchronizes the streams and partitions the capture. When a
// speed log is present it drives the segmentation; otherwise the legacy RPM
// bands apply.
func NewContext(accel *telemetry.AccelTable, events []telemetry.RotationEvent,
	speedLog []telemetry.SpeedLogEntry, cfg telemetry.PipelineConfig) (*Context, error) {

	if len(speedLog) > 0 {
		cfg.Segmenter = &telemetry.SpeedLogSegments{Log: speedLog}
	} else if cfg.Segmenter == nil {
		cfg.Segmenter = telemetry.NewFixedThresholdSegments()
	}

	enriched, err := telemetry.Synchronize(accel, events, cfg.Calibration, cfg.DropLeadingSamples)
	if err != nil {
		return nil, err
	}
	clean := telemetry.FilterGlitches(enriched, cfg.MaxPlausibleRPM)

	return &Context{
		Accel:    accel,
		Events:   events,
		SpeedLog: speedLog,
		Config:   cfg,
		Enriched: enriched,
		Clean:    clean,
		Slices:   cfg.Segmenter.Partition(clean),
	}, nil
}

// DefaultAnalyzers is the standard battery in execution order. The balance
// analyzer runs last so the cross-checks never depend on its output.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{
		&QualityAnalyzer{},
		&SweepAnalyzer{},
		&WobbleAnalyzer{},
		&ValidationAnalyzer{},
		&BalanceAnalyzer{},
	}
}

// RunAll executes the analyzers in order. A failing analyzer is logged and
// skipped; the battery always finishes.
func RunAll(ctx *Context, analyzers []Analyzer) []*Result {
	results := make([]*Result, 0, len(analyzers))
	for _, a := range analyzers {
		result, err := a.Analyze(ctx)
		if err != nil {
			log.Println("[ERR] analyzer", a.Name(), "failed:", err)
			continue
		}
		results = append(results, result)
		log.Println("[OK] analyzer", a.Name(), "finished")
	}
	return results
}
