package stokes

import (
	"fmt"
)

// InnerConfig selects and tunes the velocity block (K) solver. The direct
// methods are serial only.
type InnerConfig struct {
	Method  string  // "cholesky", "lu", "cg" or "fgmres"; default "cholesky"
	RTol    float64 // iterative methods only; default 1e-10
	MaxIter int     // iterative methods only; default 10000
	Precon  string  // iterative methods only; "none" or "jacobi", default "jacobi"
}

// OuterConfig selects and tunes the Krylov method for the reduced pressure
// system S p = ĥ.
type OuterConfig struct {
	Method  string  // "fgmres" or "cg"; default "fgmres"
	RTol    float64 // default 1e-7
	MaxIter int     // default 1000
	Restart int     // fgmres restart length, default 30
}

// SolverConfig is the full solver configuration. All recognized options are
// named fields with documented defaults.
type SolverConfig struct {
	Inner InnerConfig
	Outer OuterConfig

	// Penalty, when positive, augments C with (1/Penalty) I before the
	// reduction (Augmented Lagrangian).
	Penalty float64

	// RestoreC returns C to its pre penalty state after the solve, for
	// callers that keep operating on the blocks.
	RestoreC bool

	// RemoveNullSpace projects the constant mode out of the pressure
	// solution, required when boundary conditions leave pressure defined
	// only up to a constant.
	RemoveNullSpace bool

	// Processes is the communicator size this configuration targets.
	// Serial only methods are rejected when it exceeds one.
	Processes int

	Verbose bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() SolverConfig {
	return SolverConfig{
		Inner: InnerConfig{
			Method:  "cholesky",
			RTol:    1.e-10,
			MaxIter: 10000,
			Precon:  "jacobi",
		},
		Outer: OuterConfig{
			Method:  "fgmres",
			RTol:    1.e-7,
			MaxIter: 1000,
			Restart: 30,
		},
		RemoveNullSpace: true,
		Processes:       1,
	}
}

var (
	innerMethods  = map[string]bool{"cholesky": true, "lu": true, "cg": true, "fgmres": true}
	serialMethods = map[string]bool{"cholesky": true, "lu": true}
	outerMethods  = map[string]bool{"fgmres": true, "cg": true}
)

// Validate checks the configuration against the system it will solve.
// Configuration errors are fatal at configure time, before any numerics run.
func (c SolverConfig) Validate(sys *BlockSystem) error {
	if !innerMethods[c.Inner.Method] {
		return fmt.Errorf("unrecognized inner method %q: recognized methods are [cg cholesky fgmres lu]", c.Inner.Method)
	}
	if !outerMethods[c.Outer.Method] {
		return fmt.Errorf("unrecognized outer method %q: recognized methods are [cg fgmres]", c.Outer.Method)
	}
	if c.Processes > 1 && serialMethods[c.Inner.Method] {
		return fmt.Errorf("inner method %q is serial only and cannot run on %d processes", c.Inner.Method, c.Processes)
	}
	if c.Penalty < 0 {
		return fmt.Errorf("penalty must be non negative, have %g", c.Penalty)
	}
	if sys != nil {
		if err := sys.Check(); err != nil {
			return err
		}
		// a pure saddle point with no regularization and no null space
		// handling has an indeterminate pressure: refuse to guess
		if sys.C == nil && c.Penalty == 0 && !c.RemoveNullSpace {
			return fmt.Errorf("pure saddle point (C absent, no penalty) requires null space removal: " +
				"set RemoveNullSpace, a penalty, or provide a C block")
		}
	}
	return nil
}
