// Package newton solves systems of nonlinear equations F(x)=0 with a damped
// Newton-Raphson iteration.
//
// Square systems take a plain Newton step J·Δx = -F. Non-square systems are
// squared every iteration by a selection mask:
//
//   - more functions than variables: the least-violated equations
//     (smallest |F_i|) are dropped for the iteration
//   - more variables than functions: the least-influential variables
//     (smallest max_k |∂F_k/∂x_v|) are held fixed for the iteration
//
// The Jacobian is factored in skyline storage (package profile) and the
// step is damped by halving until the residual norm decreases.
//
// # Example
//
//	sys := newton.Funcs{F: residual, DF: partial}
//	s, _ := newton.NewSolver(2, 2, sys, newton.DefaultConfig())
//	x := []float64{4, 1}
//	var trace newton.Trace
//	res, err := s.Solve(x, &trace)
//
// # Outcomes
//
// Malformed input is returned as an error. Running out of iterations or
// getting stuck is not: it is reported through [Result.Status] with the
// best point found written back to x.
//
// # Thread Safety
//
// A Solver owns scratch buffers reused by every Solve call. It is NOT
// safe for concurrent use; create one Solver per goroutine.
package newton
