package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/newtonsolve/internal/newton"
)

func sampleTrace() *newton.Trace {
	tr := &newton.Trace{}
	tr.Append(newton.Record{
		Iteration: 1, Coef: 0.25, EpsBefore: 12.5, EpsAfter: 3.1, TrialEps: 3.1,
		Before: []float64{4, 1}, After: []float64{2.5, 1.75}, Step: []float64{-6, 3},
	})
	tr.Append(newton.Record{
		Iteration: 2, Coef: 1, EpsBefore: 3.1, EpsAfter: 0.1 + 0.2, TrialEps: 0.1 + 0.2,
		Before: []float64{2.5, 1.75}, After: []float64{1.0 / 3, 1e-17}, Step: []float64{-2.1666666666666665, -1.75},
	})
	return tr
}

func sampleRun() Run {
	return Run{
		System:    "circles",
		FuncCount: 2,
		Config:    newton.DefaultConfig(),
		Initial:   []float64{4, 1},
		Final:     []float64{1.0 / 3, 1e-17},
		Result:    newton.Result{Status: newton.StatusMaxIterExceeded, Iterations: 2, Eps: 0.1 + 0.2, Err: newton.ErrMaxIterExceeded},
		Trace:     sampleTrace(),
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return st, tmpDir
}

func TestStoreSaveLoad(t *testing.T) {
	st, _ := newTestStore(t)

	runID, err := st.Save(sampleRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "circles_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.System != "circles" {
		t.Errorf("expected system circles, got %s", meta.System)
	}
	if meta.Status != "max_iter_exceeded" {
		t.Errorf("expected status max_iter_exceeded, got %s", meta.Status)
	}
	if meta.VarCount != 2 || meta.FuncCount != 2 {
		t.Errorf("expected 2x2, got %dx%d", meta.FuncCount, meta.VarCount)
	}
	if float64(meta.Eps) != 0.1+0.2 {
		t.Errorf("eps not preserved exactly: %v", meta.Eps)
	}
	if meta.Error != newton.ErrMaxIterExceeded.Error() {
		t.Errorf("unexpected error text %q", meta.Error)
	}
	if meta.Config != newton.DefaultConfig() {
		t.Errorf("config not preserved: %+v", meta.Config)
	}

	trace, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if diff := cmp.Diff(sampleTrace().Records(), trace.Records()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSave_DistinctIDs(t *testing.T) {
	st, _ := newTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	first, err := st.Save(sampleRun())
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(sampleRun())
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("expected distinct ids, got %s twice", first)
	}
}

func TestStoreList(t *testing.T) {
	st, tmpDir := newTestStore(t)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); err == nil {
		t.Error("expected error for empty store")
	}

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, name := range []string{"arctan", "trig", "circles"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		st.now = func() time.Time { return ts }
		run := sampleRun()
		run.System = name
		if _, err := st.Save(run); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := make([]string, len(runs))
	for i, r := range runs {
		got[i] = r.System
	}
	if diff := cmp.Diff([]string{"arctan", "trig", "circles"}, got); diff != "" {
		t.Errorf("list order (-want +got):\n%s", diff)
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.System != "circles" {
		t.Errorf("expected latest circles, got %s", latest.System)
	}
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	st, tmpDir := newTestStore(t)

	runID, err := st.Save(sampleRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}

	data, err := os.ReadFile(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		t.Fatalf("trace.csv not created: %v", err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	want := "iteration,coef,eps_before,eps_after,trial_eps,before_0,before_1,after_0,after_1,step_0,step_1"
	if header != want {
		t.Errorf("header = %q, want %q", header, want)
	}
}

func TestTraceCSV_NonFinite(t *testing.T) {
	tr := &newton.Trace{}
	tr.Append(newton.Record{
		Iteration: 1, EpsBefore: math.NaN(), EpsAfter: math.NaN(), TrialEps: math.NaN(),
		Before: []float64{1e10}, After: []float64{1e10}, Step: []float64{math.Inf(-1)},
	})

	var buf bytes.Buffer
	if err := WriteTraceCSV(&buf, 1, tr); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTraceCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tr.Records(), got.Records(), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceCSV_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTraceCSV(&buf, 3, sampleTrace()); !errors.Is(err, ErrMalformedTrace) {
		t.Errorf("expected ErrMalformedTrace for wrong width, got %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short header", "iteration,coef\n"},
		{"uneven header", "iteration,coef,eps_before,eps_after,trial_eps,before_0\n"},
		{"bad number", "iteration,coef,eps_before,eps_after,trial_eps,before_0,after_0,step_0\n1,x,1,1,1,1,1,1\n"},
		{"bad iteration", "iteration,coef,eps_before,eps_after,trial_eps,before_0,after_0,step_0\none,1,1,1,1,1,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTraceCSV(strings.NewReader(tt.input)); !errors.Is(err, ErrMalformedTrace) {
				t.Errorf("expected ErrMalformedTrace, got %v", err)
			}
		})
	}
}

func TestExportJSON(t *testing.T) {
	st, _ := newTestStore(t)
	runID, err := st.Save(sampleRun())
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}

	tr := sampleTrace()
	tr.Append(newton.Record{
		Iteration: 3, EpsBefore: 0.3, EpsAfter: 0.3, TrialEps: 0.25,
		Before: []float64{0, 0}, After: []float64{0, 0}, Step: []float64{math.Inf(1), math.NaN()},
	})

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta, tr); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Run.ID != runID {
		t.Errorf("expected run %s, got %s", runID, decoded.Run.ID)
	}
	if len(decoded.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(decoded.Records))
	}
	if diff := cmp.Diff(Vector{12.5, 3.1, 0.1 + 0.2, 0.3}, decoded.Epsilons); diff != "" {
		t.Errorf("epsilons (-want +got):\n%s", diff)
	}
	if got := float64(decoded.Records[2].TrialEps); got != 0.25 {
		t.Errorf("trial eps = %v, want 0.25", got)
	}
	step := decoded.Records[2].Step
	if !math.IsInf(step[0], 1) || !math.IsNaN(step[1]) {
		t.Errorf("non-finite step not preserved: %v", step)
	}
}

func TestExportJSON_NoTrace(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, &RunMetadata{ID: "x"}, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"records": []`) {
		t.Errorf("expected empty records array, got %s", buf.String())
	}
}
