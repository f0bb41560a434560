package main

import (
	"log"
	"os"
	"path"
	"time"

	"encoding/json"
	"github.com/jessevdk/go-flags"

	"povtools/internal/analysis"
	"povtools/internal/capture"
	"povtools/internal/report"
	"povtools/internal/telemetry"
)

type calibrationFile struct {
	Calibration telemetry.SensorCalibration `json:"calibration"`
	AccelMethod *telemetry.ConversionMethod `json:"accel_method"`
	GyroMethod  *telemetry.ConversionMethod `json:"gyro_method"`
	AccelInputs map[string]float64          `json:"accel_inputs"`
	GyroInputs  map[string]float64          `json:"gyro_inputs"`
}

func loadCalibration(file string) (telemetry.SensorCalibration, error) {
	var cf calibrationFile
	cf.Calibration = telemetry.DefaultCalibration()
	c, err := os.ReadFile(file)
	if err != nil {
		return cf.Calibration, err
	}
	if err = json.Unmarshal(c, &cf); err != nil {
		return cf.Calibration, err
	}
	if cf.AccelMethod != nil {
		if err = cf.AccelMethod.Prepare(cf.AccelInputs); err != nil {
			return cf.Calibration, err
		}
		cf.Calibration.AccelMethod = cf.AccelMethod
	}
	if cf.GyroMethod != nil {
		if err = cf.GyroMethod.Prepare(cf.GyroInputs); err != nil {
			return cf.Calibration, err
		}
		cf.Calibration.GyroMethod = cf.GyroMethod
	}
	return cf.Calibration, nil
}

func main() {
	var opts struct {
		DataDir     string  `short:"d" long:"data" description:"Capture directory (accel + hall CSVs, optional speed log)" required:"true"`
		Calibration string  `short:"c" long:"calibration" description:"Sensor calibration file (JSON)"`
		OutputDir   string  `short:"o" long:"output" description:"Output directory (defaults to the capture directory)"`
		Bins        int     `short:"b" long:"bins" description:"Number of angular bins" default:"72"`
		Confidence  float64 `long:"confidence" description:"Minimum fit r-squared kept for aggregation" default:"0.15"`
		Coverage    float64 `long:"coverage" description:"Minimum angular bin coverage per slice" default:"0.8"`
		DropLeading bool    `long:"drop-leading" description:"Exclude samples recorded before the first hall event"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	cfg := telemetry.DefaultPipelineConfig()
	cfg.Bins = opts.Bins
	cfg.ConfidenceFloor = opts.Confidence
	cfg.MinBinCoverage = opts.Coverage
	cfg.DropLeadingSamples = opts.DropLeading
	if opts.Calibration != "" {
		cfg.Calibration, err = loadCalibration(opts.Calibration)
		if err != nil {
			log.Fatalln(err)
		}
	}

	accel, events, speedLog, err := capture.LoadDirectory(opts.DataDir)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, err := analysis.NewContext(accel, events, speedLog, cfg)
	if err != nil {
		log.Fatalln(err)
	}
	results := analysis.RunAll(ctx, analysis.DefaultAnalyzers())
	r := report.New(opts.DataDir, time.Now().Unix(), results, ctx.Processed)

	var output = opts.OutputDir
	if output == "" {
		output = opts.DataDir
	}

	if err = capture.WriteEnrichedCSV(path.Join(output, "enriched.csv"), ctx.Enriched, accel.HasGyro); err != nil {
		log.Fatalln(err)
	}
	if ctx.Processed != nil {
		if err = capture.WriteEstimatesCSV(path.Join(output, "estimates.csv"), ctx.Processed.Estimates); err != nil {
			log.Fatalln(err)
		}
	} else {
		log.Println("[WARN] no pipeline output, estimates.csv not written")
	}
	if err = r.WriteJSON(path.Join(output, "report.json")); err != nil {
		log.Fatalln(err)
	}

	fo, err := os.Create(path.Join(output, "report.POVR"))
	if err != nil {
		log.Fatalln(err)
	}
	defer fo.Close()
	if err = r.Encode(fo); err != nil {
		log.Fatalln(err)
	}

	for _, finding := range r.Findings {
		log.Println(finding)
	}
}
