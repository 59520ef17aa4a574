package powerflow

import "fmt"

// ConvergenceError is returned when Newton-Raphson stops without meeting the
// tolerance. Mismatch is the largest bus power mismatch, in MVA, at the last
// iterate.
type ConvergenceError struct {
	Iterations   int
	MaxIteration int
	Mismatch     float64
	Singular     bool
}

func (e *ConvergenceError) Error() string {
	if e.Singular {
		return fmt.Sprintf("power flow did not converge: singular jacobian at iteration %d (mismatch %.6g MVA)",
			e.Iterations, e.Mismatch)
	}
	return fmt.Sprintf("power flow did not converge after %d of %d iterations (mismatch %.6g MVA)",
		e.Iterations, e.MaxIteration, e.Mismatch)
}
