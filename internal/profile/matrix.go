package profile

// State is the lifecycle stage of a Matrix.
type State int

const (
	StateEmpty State = iota
	StateBuilt
	StateFactored
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilt:
		return "built"
	case StateFactored:
		return "factored"
	default:
		return "unknown"
	}
}

// Matrix is a square matrix in skyline storage. The zero value is an empty
// matrix ready for Build.
type Matrix struct {
	diag     []float64
	rowStart []int
	lower    []float64
	upper    []float64
	state    State
}

// Size returns the dimension of the matrix.
func (m *Matrix) Size() int { return len(m.diag) }

// BandLen returns the number of stored off-diagonal positions per triangle.
func (m *Matrix) BandLen() int { return len(m.lower) }

func (m *Matrix) State() State { return m.state }

// Band returns the first stored column of row i and views of its lower and
// upper band entries. The slices alias the matrix storage.
func (m *Matrix) Band(i int) (first int, lower, upper []float64) {
	k0, k1 := m.rowStart[i], m.rowStart[i+1]
	return i - (k1 - k0), m.lower[k0:k1], m.upper[k0:k1]
}

// Diag returns the i-th diagonal entry (the pivot after Factor).
func (m *Matrix) Diag(i int) float64 { return m.diag[i] }

// Build copies the square matrix d into skyline storage, replacing any
// previous contents. Buffers are reused across calls.
func (m *Matrix) Build(d *Dense) error {
	if !d.IsSquare() {
		return opErrorf("Matrix.Build", ErrDimensionMismatch, "%dx%d is not square", d.Rows(), d.Cols())
	}
	n := d.Rows()

	m.diag = resize(m.diag, n)
	if cap(m.rowStart) < n+1 {
		m.rowStart = make([]int, n+1)
	}
	m.rowStart = m.rowStart[:n+1]

	// first pass sizes the band, second fills it
	size := 0
	for i := 0; i < n; i++ {
		m.rowStart[i] = size
		size += i - firstBandColumn(d, i)
	}
	m.rowStart[n] = size

	m.lower = resize(m.lower, size)
	m.upper = resize(m.upper, size)

	for i := 0; i < n; i++ {
		m.diag[i] = d.At(i, i)
		k := m.rowStart[i]
		for j := i - (m.rowStart[i+1] - k); j < i; j++ {
			m.lower[k] = d.At(i, j)
			m.upper[k] = d.At(j, i)
			k++
		}
	}

	m.state = StateBuilt
	return nil
}

// firstBandColumn returns the first column j<i with a non-zero entry in
// row i or column i, or i when the row has no off-diagonal entries.
func firstBandColumn(d *Dense, i int) int {
	for j := 0; j < i; j++ {
		if d.At(i, j) != 0 || d.At(j, i) != 0 {
			return j
		}
	}
	return i
}

// Factor performs the in-place LU factorization A = L·U, where L (lower
// band + diag) carries the pivots and U (upper band) has a unit diagonal.
// It requires StateBuilt and leaves the matrix in StateFactored. On a zero
// pivot the partially factored contents are unusable and the matrix drops
// back to StateEmpty.
func (m *Matrix) Factor() error {
	if m.state != StateBuilt {
		return opErrorf("Matrix.Factor", ErrInvalidState, "state is %s, want %s", m.state, StateBuilt)
	}

	n := len(m.diag)
	for i := 0; i < n; i++ {
		i0, i1 := m.rowStart[i], m.rowStart[i+1]
		firstI := i - (i1 - i0)
		j := firstI
		var sumDiag float64

		for k := i0; k < i1; k, j = k+1, j+1 {
			j0, j1 := m.rowStart[j], m.rowStart[j+1]
			firstJ := j - (j1 - j0)

			// overlap starts at whichever band starts later
			ki, kj := i0, j0
			if firstI < firstJ {
				ki += firstJ - firstI
			} else {
				kj += firstI - firstJ
			}

			var sumL, sumU float64
			for ; ki < k; ki, kj = ki+1, kj+1 {
				sumL += m.lower[ki] * m.upper[kj]
				sumU += m.upper[ki] * m.lower[kj]
			}

			if m.diag[j] == 0 {
				m.state = StateEmpty
				return opErrorf("Matrix.Factor", ErrNotFactorable, "pivot %d", j)
			}
			m.lower[k] -= sumL
			m.upper[k] = (m.upper[k] - sumU) / m.diag[j]
			sumDiag += m.lower[k] * m.upper[k]
		}

		m.diag[i] -= sumDiag
		// every pivot divides in the forward substitution
		if m.diag[i] == 0 {
			m.state = StateEmpty
			return opErrorf("Matrix.Factor", ErrNotFactorable, "pivot %d", i)
		}
	}

	m.state = StateFactored
	return nil
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
