// Package profile provides skyline (profile) storage for square matrices
// together with an in-place LU factorization and the matching triangular
// solves.
//
// The package is built around three pieces:
//
//   - [Dense]: row-major container for a dense matrix (the Jacobian)
//   - [Matrix]: compact skyline copy of a square Dense, factored in place
//   - [Solve]: forward/backward substitution against a factored Matrix
//
// Row i of a Matrix stores a contiguous band that starts at the first
// column j<i where either A(i,j) or A(j,i) is non-zero and runs up to the
// diagonal. The lower array holds the row entries A(i,j) and the upper
// array the mirrored column entries A(j,i), aligned by offset. After
// Factor, lower and diag hold L (A = L·U) and upper holds the unit upper
// factor U.
//
// # Example
//
//	d, _ := profile.NewDenseFrom([][]float64{{4, 1}, {2, 3}})
//	var m profile.Matrix
//	_ = m.Build(d)
//	_ = m.Factor()
//	x := make([]float64, 2)
//	_ = profile.Solve(&m, []float64{1, 2}, x)
//
// # Thread Safety
//
// Matrix values are scratch state. They are NOT safe for concurrent use.
package profile
