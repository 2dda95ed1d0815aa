package newton

import (
	"math"
	"sort"
)

type maskKind int

const (
	maskNone maskKind = iota
	maskMoreVars
	maskMoreFuncs
)

type ranked struct {
	idx   int
	score float64
}

// selectMask marks the drop lowest-scoring entries false and the rest true.
// Ties keep index order. buf must have len(scores) capacity.
func selectMask(scores []float64, drop int, mask []bool, buf []ranked) {
	buf = buf[:len(scores)]
	for i, s := range scores {
		buf[i] = ranked{idx: i, score: s}
	}
	sort.SliceStable(buf, func(a, b int) bool {
		return buf[a].score < buf[b].score
	})
	for i, r := range buf {
		mask[r.idx] = i >= drop
	}
}

// computeMask ranks functions by |F_i| or variables by their largest
// |∂F_k/∂x_v| and fills s.mask. It expects s.fx and s.full to be current.
func (s *Solver) computeMask() {
	switch s.kind {
	case maskMoreFuncs:
		for i, v := range s.fx {
			s.scores[i] = math.Abs(v)
		}
		selectMask(s.scores, s.funcCount-s.varCount, s.mask, s.rank)

	case maskMoreVars:
		for v := 0; v < s.varCount; v++ {
			best := 0.0
			for fn := 0; fn < s.funcCount; fn++ {
				best = math.Max(best, math.Abs(s.full.At(fn, v)))
			}
			s.scores[v] = best
		}
		selectMask(s.scores, s.varCount-s.funcCount, s.mask, s.rank)
	}
}
