// Package report writes rolling evaluation runs to disk as JSON, long-format
// CSV and a YAML summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/rollforecast/accuracy"
	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/rolling"
	"github.com/sartorproj/rollforecast/timeseries"
)

// Output formats accepted by WriteFiles.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// File names used by WriteFiles.
const (
	JSONFile    = "forecasts.json"
	CSVFile     = "forecasts.csv"
	SummaryFile = "summary.yaml"
)

var (
	// ErrUnknownFormat is returned for an output format WriteFiles does not know.
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrMissingResult is returned when a run has no result to write.
	ErrMissingResult = errors.New("run has no result")
)

const dateLayout = "2006-01"

// Run is one completed evaluation.
type Run struct {
	InitialOrder forecast.Order
	TrainLen     int
	Result       *rolling.Result
	// Scores may be nil when the run was not scored.
	Scores *accuracy.Scores
	// Config is echoed verbatim into the JSON and YAML outputs.
	Config any
}

func (r *Run) check() error {
	if r == nil || r.Result == nil {
		return ErrMissingResult
	}
	return nil
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type jsonMetrics struct {
	RMSE     jsonFloat `json:"rmse"`
	MAE      jsonFloat `json:"mae"`
	MAPE     jsonFloat `json:"mape"`
	Coverage jsonFloat `json:"coverage"`
	N        int       `json:"n"`
}

type jsonScores struct {
	Steps   []jsonMetrics `json:"steps"`
	Overall jsonMetrics   `json:"overall"`
}

type jsonRun struct {
	RunID        string           `json:"run_id"`
	Mode         rolling.Mode     `json:"mode"`
	Horizon      int              `json:"horizon"`
	Origins      int              `json:"origins"`
	TrainLen     int              `json:"train_len"`
	InitialOrder forecast.Order   `json:"initial_order"`
	Orders       []forecast.Order `json:"orders"`
	Predictions  [][]jsonFloat    `json:"predictions"`
	Lower        [][]jsonFloat    `json:"lower"`
	Upper        [][]jsonFloat    `json:"upper"`
	Scores       *jsonScores      `json:"scores,omitempty"`
	Config       any              `json:"config,omitempty"`
}

func rows(m *mat.Dense) [][]jsonFloat {
	n, h := m.Dims()
	out := make([][]jsonFloat, n)
	for i := range out {
		out[i] = make([]jsonFloat, h)
		for j := range out[i] {
			out[i][j] = jsonFloat(m.At(i, j))
		}
	}
	return out
}

func toJSONMetrics(m accuracy.Metrics) jsonMetrics {
	return jsonMetrics{
		RMSE:     jsonFloat(m.RMSE),
		MAE:      jsonFloat(m.MAE),
		MAPE:     jsonFloat(m.MAPE),
		Coverage: jsonFloat(m.Coverage),
		N:        m.N,
	}
}

// WriteJSON writes the full run with the result matrices as nested arrays.
func WriteJSON(w io.Writer, run *Run) error {
	if err := run.check(); err != nil {
		return err
	}
	res := run.Result
	doc := jsonRun{
		RunID:        res.RunID,
		Mode:         res.Mode,
		Horizon:      res.Horizon,
		Origins:      res.Origins(),
		TrainLen:     run.TrainLen,
		InitialOrder: run.InitialOrder,
		Orders:       res.Orders,
		Predictions:  rows(res.Predictions),
		Lower:        rows(res.Lower),
		Upper:        rows(res.Upper),
		Config:       run.Config,
	}
	if run.Scores != nil {
		s := &jsonScores{Overall: toJSONMetrics(run.Scores.Overall)}
		for _, m := range run.Scores.Steps {
			s.Steps = append(s.Steps, toJSONMetrics(m))
		}
		doc.Scores = s
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes one row per (origin, step) pair with the targeted test
// observation. test must be the series the run was evaluated on.
func WriteCSV(w io.Writer, run *Run, test *timeseries.Series) error {
	if err := run.check(); err != nil {
		return err
	}
	res := run.Result
	n, h := res.Dims()
	if test == nil || test.Len() != n+h-1 {
		return fmt.Errorf("write csv: test series does not match result: %w", accuracy.ErrLengthMismatch)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"origin", "step", "date", "actual", "mean", "lower", "upper"}); err != nil {
		return err
	}

	format := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	for i := 0; i < n; i++ {
		for step := 1; step <= h; step++ {
			k := i + step - 1
			date := ""
			if len(test.Timestamps) == test.Len() {
				date = test.Timestamps[k].Format(dateLayout)
			}
			record := []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(step),
				date,
				format(test.Values[k]),
				format(res.Predictions.At(i, step-1)),
				format(res.Lower.At(i, step-1)),
				format(res.Upper.At(i, step-1)),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// OrderCount is one entry of the order histogram.
type OrderCount struct {
	Order string `yaml:"order"`
	Count int    `yaml:"count"`
}

// Summary is the document written by WriteSummaryYAML.
type Summary struct {
	RunID        string           `yaml:"run_id"`
	Mode         rolling.Mode     `yaml:"mode"`
	Horizon      int              `yaml:"horizon"`
	Origins      int              `yaml:"origins"`
	TrainLen     int              `yaml:"train_len"`
	InitialOrder string           `yaml:"initial_order"`
	Orders       []OrderCount     `yaml:"orders"`
	Scores       *accuracy.Scores `yaml:"scores,omitempty"`
	Config       any              `yaml:"config,omitempty"`
}

// Summarize builds the summary document for run.
func Summarize(run *Run) (*Summary, error) {
	if err := run.check(); err != nil {
		return nil, err
	}
	res := run.Result
	return &Summary{
		RunID:        res.RunID,
		Mode:         res.Mode,
		Horizon:      res.Horizon,
		Origins:      res.Origins(),
		TrainLen:     run.TrainLen,
		InitialOrder: run.InitialOrder.String(),
		Orders:       histogram(res.Orders),
		Scores:       run.Scores,
		Config:       run.Config,
	}, nil
}

// histogram counts orders, most frequent first.
func histogram(orders []forecast.Order) []OrderCount {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.String()]++
	}
	out := make([]OrderCount, 0, len(counts))
	for order, count := range counts {
		out = append(out, OrderCount{Order: order, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// WriteSummaryYAML writes the run summary as YAML.
func WriteSummaryYAML(w io.Writer, run *Run) error {
	summary, err := Summarize(run)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFiles writes the requested formats into dir, creating it if needed,
// and returns the paths written.
func WriteFiles(dir string, run *Run, test *timeseries.Series, formats []string) ([]string, error) {
	if err := run.check(); err != nil {
		return nil, err
	}
	for _, f := range formats {
		switch f {
		case FormatJSON, FormatCSV, FormatYAML:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, f := range formats {
		var (
			name  string
			write func(io.Writer) error
		)
		switch f {
		case FormatJSON:
			name = JSONFile
			write = func(w io.Writer) error { return WriteJSON(w, run) }
		case FormatCSV:
			name = CSVFile
			write = func(w io.Writer) error { return WriteCSV(w, run, test) }
		case FormatYAML:
			name = SummaryFile
			write = func(w io.Writer) error { return WriteSummaryYAML(w, run) }
		}

		path := filepath.Join(dir, name)
		if err := writeFile(path, write); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
