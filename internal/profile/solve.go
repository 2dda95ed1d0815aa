package profile

// Solve computes x from L·U·x = rhs against a factored matrix. Both
// vectors must have length m.Size(); x may alias rhs.
func Solve(m *Matrix, rhs, x []float64) error {
	if m.state != StateFactored {
		return opErrorf("Solve", ErrNotFactored, "state is %s", m.state)
	}
	n := m.Size()
	if len(rhs) != n || len(x) != n {
		return opErrorf("Solve", ErrDimensionMismatch, "size %d, rhs %d, x %d", n, len(rhs), len(x))
	}

	// L·y = rhs
	for i := 0; i < n; i++ {
		k0, k1 := m.rowStart[i], m.rowStart[i+1]
		j := i - (k1 - k0)
		sum := 0.0
		for k := k0; k < k1; k, j = k+1, j+1 {
			sum += m.lower[k] * x[j]
		}
		x[i] = (rhs[i] - sum) / m.diag[i]
	}

	// U·x = y, column sweep
	for i := n - 1; i >= 0; i-- {
		k0, k1 := m.rowStart[i], m.rowStart[i+1]
		j := i - (k1 - k0)
		for k := k0; k < k1; k, j = k+1, j+1 {
			x[j] -= x[i] * m.upper[k]
		}
	}
	return nil
}
