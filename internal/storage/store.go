package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/newtonsolve/internal/newton"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

// ErrMalformedTrace indicates a trace file whose header or rows do not
// describe a consistent set of records.
var ErrMalformedTrace = errors.New("storage: malformed trace")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string        `json:"id"`
	System     string        `json:"system"`
	Timestamp  time.Time     `json:"timestamp"`
	VarCount   int           `json:"var_count"`
	FuncCount  int           `json:"func_count"`
	Initial    Vector        `json:"initial"`
	Final      Vector        `json:"final"`
	Status     string        `json:"status"`
	Iterations int           `json:"iterations"`
	Eps        Float         `json:"eps"`
	Error      string        `json:"error,omitempty"`
	Config     newton.Config `json:"config"`
}

// Run is everything Save persists about one solve.
type Run struct {
	System    string
	FuncCount int
	Config    newton.Config
	Initial   []float64
	Final     []float64
	Result    newton.Result
	Trace     *newton.Trace
}

// Save writes metadata.json and trace.csv into a new run directory and
// returns its id.
func (s *Store) Save(run Run) (string, error) {
	ts := s.now()
	runID := fmt.Sprintf("%s_%d", run.System, ts.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)
	for n := 1; ; n++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d-%d", run.System, ts.UnixMilli(), n)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		System:     run.System,
		Timestamp:  ts,
		VarCount:   len(run.Initial),
		FuncCount:  run.FuncCount,
		Initial:    Vector(run.Initial),
		Final:      Vector(run.Final),
		Status:     run.Result.Status.String(),
		Iterations: run.Result.Iterations,
		Eps:        Float(run.Result.Eps),
		Config:     run.Config,
	}
	if run.Result.Err != nil {
		meta.Error = run.Result.Err.Error()
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteTraceCSV(csvFile, len(run.Initial), run.Trace); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs in %s", s.baseDir)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) LoadTrace(runID string) (*newton.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTraceCSV(file)
}

// WriteTraceCSV writes one row per record: iteration, coef, eps_before,
// eps_after, trial_eps, then the before, after and step vectors of vars
// components each. Values are written with full precision.
func WriteTraceCSV(out io.Writer, vars int, trace *newton.Trace) error {
	w := csv.NewWriter(out)

	header := []string{"iteration", "coef", "eps_before", "eps_after", "trial_eps"}
	for _, prefix := range []string{"before", "after", "step"} {
		for i := 0; i < vars; i++ {
			header = append(header, fmt.Sprintf("%s_%d", prefix, i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	if trace != nil {
		for _, r := range trace.Records() {
			row := []string{
				strconv.Itoa(r.Iteration),
				formatFloat(r.Coef),
				formatFloat(r.EpsBefore),
				formatFloat(r.EpsAfter),
				formatFloat(r.TrialEps),
			}
			for _, vec := range [][]float64{r.Before, r.After, r.Step} {
				if len(vec) != vars {
					return fmt.Errorf("%w: iteration %d has %d components, want %d", ErrMalformedTrace, r.Iteration, len(vec), vars)
				}
				for _, v := range vec {
					row = append(row, formatFloat(v))
				}
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

// ReadTraceCSV parses the format written by WriteTraceCSV.
func ReadTraceCSV(in io.Reader) (*newton.Trace, error) {
	r := csv.NewReader(in)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrace, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTrace)
	}

	cols := len(records[0])
	if cols < traceFixedCols || (cols-traceFixedCols)%3 != 0 {
		return nil, fmt.Errorf("%w: %d columns", ErrMalformedTrace, cols)
	}
	vars := (cols - traceFixedCols) / 3
	const v0 = traceFixedCols

	trace := &newton.Trace{}
	for line, row := range records[1:] {
		vals := make([]float64, len(row))
		for j, field := range row {
			if j == 0 {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrMalformedTrace, line+1, j, err)
			}
			vals[j] = v
		}
		it, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTrace, line+1, err)
		}

		trace.Append(newton.Record{
			Iteration: it,
			Coef:      vals[1],
			EpsBefore: vals[2],
			EpsAfter:  vals[3],
			TrialEps:  vals[4],
			Before:    vals[v0 : v0+vars],
			After:     vals[v0+vars : v0+2*vars],
			Step:      vals[v0+2*vars:],
		})
	}
	return trace, nil
}

// traceFixedCols counts the scalar columns ahead of the vectors.
const traceFixedCols = 5

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
