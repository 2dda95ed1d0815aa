package newton

// Record captures one iteration. Before and After are equal when the
// iteration terminated the solve without moving. Step is the undamped
// Newton direction; the applied move is Coef·Step.
//
// EpsAfter is always the residual norm at After, so a terminating record
// has EpsAfter == EpsBefore. TrialEps is the norm at the last damped trial:
// equal to EpsAfter on accepted iterations, the norm of the rejected trial
// on a local-optimum record, and EpsBefore when no direction was found.
type Record struct {
	Iteration int       `json:"iteration"`
	Before    []float64 `json:"before"`
	After     []float64 `json:"after"`
	Step      []float64 `json:"step"`
	EpsBefore float64   `json:"eps_before"`
	EpsAfter  float64   `json:"eps_after"`
	TrialEps  float64   `json:"trial_eps"`
	Coef      float64   `json:"coef"`
}

// Trace collects iteration records. It is owned by the caller and written
// synchronously by Solve, which resets it before the first iteration.
type Trace struct {
	records []Record
}

// Reset drops all records. It allocates fresh storage, so slices returned
// by Records before the reset keep their contents.
func (t *Trace) Reset() { t.records = nil }

func (t *Trace) Len() int { return len(t.records) }

// Records returns the collected records in iteration order. The slice is
// shared with the trace until the next Reset.
func (t *Trace) Records() []Record { return t.records }

// Append stores a copy of r.
func (t *Trace) Append(r Record) {
	r.Before = clonePoint(r.Before)
	r.After = clonePoint(r.After)
	r.Step = clonePoint(r.Step)
	t.records = append(t.records, r)
}

// Last returns the final record, if any.
func (t *Trace) Last() (Record, bool) {
	if len(t.records) == 0 {
		return Record{}, false
	}
	return t.records[len(t.records)-1], true
}

// Epsilons returns the residual norm before the first iteration followed by
// the norm after each iteration.
func (t *Trace) Epsilons() []float64 {
	if len(t.records) == 0 {
		return nil
	}
	out := make([]float64, 0, len(t.records)+1)
	out = append(out, t.records[0].EpsBefore)
	for _, r := range t.records {
		out = append(out, r.EpsAfter)
	}
	return out
}

func clonePoint(p []float64) []float64 {
	if p == nil {
		return nil
	}
	c := make([]float64, len(p))
	copy(c, p)
	return c
}
