package profile

import (
	"fmt"
	"strings"
)

// Dense is a row-major matrix of float64 values.
type Dense struct {
	r, c int
	data []float64
}

// NewDense creates an r×c zero matrix. Negative sizes are clamped to zero.
func NewDense(rows, cols int) *Dense {
	d := &Dense{}
	d.Reshape(rows, cols)
	return d
}

// NewDenseFrom copies a slice of rows into a new Dense. All rows must have
// the same length.
func NewDenseFrom(rows [][]float64) (*Dense, error) {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	d := NewDense(r, c)
	for i, row := range rows {
		if len(row) != c {
			return nil, opErrorf("NewDenseFrom", ErrDimensionMismatch, "row %d has %d columns, want %d", i, len(row), c)
		}
		copy(d.data[i*c:(i+1)*c], row)
	}
	return d, nil
}

// Reshape resizes the matrix to rows×cols, reusing the backing slice when
// it is large enough. All elements are zeroed.
func (m *Dense) Reshape(rows, cols int) {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	n := rows * cols
	if cap(m.data) < n {
		m.data = make([]float64, n)
	} else {
		m.data = m.data[:n]
		clear(m.data)
	}
	m.r, m.c = rows, cols
}

func (m *Dense) Rows() int { return m.r }
func (m *Dense) Cols() int { return m.c }

// IsSquare reports whether the matrix has as many rows as columns.
func (m *Dense) IsSquare() bool { return m.r == m.c }

// At returns the element at (i, j). It panics on out-of-range indices.
func (m *Dense) At(i, j int) float64 {
	m.check(i, j)
	return m.data[i*m.c+j]
}

// Set assigns v at (i, j). It panics on out-of-range indices.
func (m *Dense) Set(i, j int, v float64) {
	m.check(i, j)
	m.data[i*m.c+j] = v
}

func (m *Dense) check(i, j int) {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		panic(fmt.Sprintf("profile: index (%d,%d) out of range for %dx%d matrix", i, j, m.r, m.c))
	}
}

// MulVec writes m·x into dst.
func (m *Dense) MulVec(x, dst []float64) error {
	if len(x) != m.c || len(dst) != m.r {
		return opErrorf("Dense.MulVec", ErrDimensionMismatch, "%dx%d by %d into %d", m.r, m.c, len(x), len(dst))
	}
	for i := 0; i < m.r; i++ {
		row := m.data[i*m.c : (i+1)*m.c]
		sum := 0.0
		for j, v := range row {
			sum += v * x[j]
		}
		dst[i] = sum
	}
	return nil
}

func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
