package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ugorji/go/codec"

	"povtools/internal/analysis"
	"povtools/internal/telemetry"
)

const VERSION = 1

// Report is the merged findings document of one analyzed capture: the
// balancing recommendation and harmonic estimates from the pipeline plus
// every analyzer's metrics and human-readable findings.
type Report struct {
	Version   uint8                        `codec:"," json:"version"`
	DataDir   string                       `codec:"," json:"data_dir"`
	Timestamp int64                        `codec:"," json:"timestamp"`
	Segments  []telemetry.SegmentSummary   `codec:"," json:"segments"`
	Estimates []telemetry.HarmonicEstimate `codec:"," json:"estimates"`
	Balance   *telemetry.BalancingResult   `codec:"," json:"balancing,omitempty"`
	Analyzers []*analysis.Result           `codec:"," json:"analyzers"`
	Findings  []string                     `codec:"," json:"findings"`
}

// New assembles a report from the analyzer battery output. The processed
// pipeline result may be nil when the balance analyzer failed; the report
// then carries the other analyzers' findings only.
func New(dataDir string, timestamp int64, results []*analysis.Result, pd *telemetry.Processed) *Report {
	r := &Report{
		Version:   VERSION,
		DataDir:   dataDir,
		Timestamp: timestamp,
		Analyzers: results,
	}
	if pd != nil {
		r.Segments = pd.Segments
		r.Estimates = pd.Estimates
		r.Balance = pd.Balance
	}
	for _, result := range results {
		r.Findings = append(r.Findings, result.Findings...)
	}
	return r
}

// WriteJSON writes the indented JSON rendition, the format the external
// renderer and ad-hoc tooling consume.
func (this *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(this, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode writes the msgpack rendition used for storage and transfer.
func (this *Report) Encode(w io.Writer) error {
	var h codec.MsgpackHandle
	return codec.NewEncoder(w, &h).Encode(this)
}

// EncodeBytes is Encode into a fresh byte slice.
func (this *Report) EncodeBytes() ([]byte, error) {
	var data []byte
	var h codec.MsgpackHandle
	if err := codec.NewEncoderBytes(&data, &h).Encode(this); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode reads a msgpack-encoded report.
func Decode(data []byte) (*Report, error) {
	var h codec.MsgpackHandle
	var r Report
	if err := codec.NewDecoderBytes(data, &h).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
