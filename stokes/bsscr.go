package stokes

import (
	"errors"
	"fmt"
	"time"

	"github.com/geomech/mantle/linsolve"
	"github.com/geomech/mantle/utils"
)

// Stats reports the iteration counts and wall clock phase timings of the most
// recent solve. Inner iteration counts are split by phase: the rhs presolve,
// the accumulated K solves driven by the outer pressure iteration, and the
// velocity backsolve.
type Stats struct {
	PressureIts      int // outer Krylov iterations on S p = ĥ
	PresolveIts      int // inner K solve iterations for ĥ = Gᵀ K⁻¹ f − h
	PressureSolveIts int // total inner K solve iterations during the outer solve
	BacksolveIts     int // inner K solve iterations for K u = f − G p
	NonlinearIts     int // Picard iterations performed

	SetupTime         time.Duration
	PresolveTime      time.Duration
	PressureSolveTime time.Duration
	BacksolveTime     time.Duration

	Converged bool
}

// OperatorSource recomputes velocity dependent operators for the Picard loop.
// Update receives the current velocity iterate and returns freshly assembled
// blocks (viscosity, and hence K and possibly f, depend on strain rate).
type OperatorSource interface {
	Update(u utils.Vector) (*BlockSystem, error)
}

// StokesSolver orchestrates the Schur complement reduction over a block
// system. U and P are the caller owned solution storage, written in place:
// after a failed solve they hold the last valid iterate and Stats().Converged
// reports false.
type StokesSolver struct {
	Config SolverConfig
	U, P   utils.Vector

	sys    *BlockSystem
	source OperatorSource
	stats  Stats
}

// NewSolver validates the configuration against the system and returns a
// configured solver. Configuration errors are fatal here, before any solve.
func NewSolver(sys *BlockSystem, cfg SolverConfig) (s *StokesSolver, err error) {
	if err = cfg.Validate(sys); err != nil {
		return
	}
	s = &StokesSolver{
		Config: cfg,
		U:      utils.NewVector(sys.NU()),
		P:      utils.NewVector(sys.NP()),
		sys:    sys,
	}
	return
}

// SetOperatorSource installs the reassembly hook required for non linear
// iteration.
func (s *StokesSolver) SetOperatorSource(src OperatorSource) { s.source = src }

// Stats returns the statistics of the most recent solve.
func (s *StokesSolver) Stats() Stats { return s.stats }

// System returns the block system currently bound to the solver.
func (s *StokesSolver) System() *BlockSystem { return s.sys }

// Solve runs the BSSCR reduction, writing the solution into U and P in place.
//
// With nonLinearIterate set, the entire linear solve is repeated with
// operators reassembled from each velocity iterate until the relative update
// ‖Δu‖/‖u‖ falls below nonLinearTolerance or maxNonLinearIterations is
// reached. This Picard loop is the only automatic retry in the solver.
//
// Non convergence - a Krylov method hitting its iteration cap, or the Picard
// loop hitting its - is reported through Stats().Converged with the best
// iterate committed to U and P, and escalated to an error only when
// killOnNonConvergence is set. Breakdowns and configuration failures are
// errors regardless.
func (s *StokesSolver) Solve(nonLinearIterate bool, nonLinearTolerance float64, maxNonLinearIterations int, killOnNonConvergence bool) (err error) {
	s.stats = Stats{}
	if !nonLinearIterate {
		return s.solveLinear(killOnNonConvergence)
	}

	if s.source == nil {
		return fmt.Errorf("non linear iteration requires an operator source: call SetOperatorSource first")
	}
	if nonLinearTolerance <= 0 {
		return fmt.Errorf("non linear tolerance must be positive, have %g", nonLinearTolerance)
	}
	if maxNonLinearIterations < 1 {
		return fmt.Errorf("maximum non linear iterations must be at least 1, have %d", maxNonLinearIterations)
	}

	var uPrev utils.Vector
	for it := 1; it <= maxNonLinearIterations; it++ {
		s.stats.NonlinearIts = it
		if err = s.solveLinear(killOnNonConvergence); err != nil {
			return fmt.Errorf("non linear iteration %d: %s", it, err.Error())
		}
		if it > 1 {
			du := s.U.Copy()
			du.Subtract(uPrev)
			norm := s.U.Norm()
			var rel float64
			if norm > 0 {
				rel = du.Norm() / norm
			}
			if s.Config.Verbose {
				fmt.Printf("Non linear iteration %3d: |du|/|u| = %10.4e\n", it, rel)
			}
			if rel < nonLinearTolerance {
				// Converged keeps the verdict of the last linear solve, so a
				// tolerated Krylov cap inside the loop is not masked
				return
			}
		}
		uPrev = s.U.Copy()
		var sys *BlockSystem
		if sys, err = s.source.Update(s.U); err != nil {
			return fmt.Errorf("non linear iteration %d: operator update failed: %s", it, err.Error())
		}
		if err = s.Config.Validate(sys); err != nil {
			return fmt.Errorf("non linear iteration %d: updated system invalid: %s", it, err.Error())
		}
		s.sys = sys
	}
	// cap reached without meeting the update tolerance
	s.stats.Converged = false
	if killOnNonConvergence {
		return fmt.Errorf("non linear iteration failed to converge in %d iterations", maxNonLinearIterations)
	}
	return
}

// solveLinear performs one full Schur complement reduction against the
// current blocks, leaving its convergence verdict in stats.Converged. With
// kill unset an iteration capped Krylov phase is tolerated: the reduction
// carries on with the best iterate and the verdict reports false.
func (s *StokesSolver) solveLinear(kill bool) (err error) {
	var (
		cfg       = s.Config
		sys       = s.sys
		start     = time.Now()
		converged = true
	)
	// tolerate filters a phase error: iteration caps flip the verdict when
	// the caller has not requested escalation, everything else stays fatal
	tolerate := func(serr error) error {
		if serr == nil {
			return nil
		}
		if !kill && errors.Is(serr, linsolve.ErrNotConverged) {
			converged = false
			return nil
		}
		return serr
	}

	// penalty augmentation, undone on exit when so configured; an already
	// augmented system (a repeated solve without RestoreC) is left alone
	if cfg.Penalty > 0 && !sys.Augmented() {
		if err = sys.AugmentC(cfg.Penalty); err != nil {
			return
		}
		if cfg.RestoreC {
			defer func() {
				if rerr := sys.RestoreC(); rerr != nil && err == nil {
					err = rerr
				}
			}()
		}
	}

	inner, err := linsolve.New(cfg.Inner.Method, sys.K, linsolve.Options{
		RTol:    cfg.Inner.RTol,
		MaxIter: cfg.Inner.MaxIter,
		Precon:  innerPrecon(cfg.Inner),
	})
	if err != nil {
		return fmt.Errorf("inner solver setup failed: %s", err.Error())
	}
	s.stats.SetupTime = time.Since(start)

	// rhs presolve: ĥ = Gᵀ K⁻¹ f − h
	start = time.Now()
	t, res, err := inner.Solve(sys.F)
	s.stats.PresolveIts += res.Iterations
	s.stats.PresolveTime += time.Since(start)
	if err = tolerate(err); err != nil {
		return fmt.Errorf("rhs presolve against K failed: %s", err.Error())
	}
	hHat := sys.G.MulVecT(t)
	hHat.Subtract(sys.H)
	if cfg.RemoveNullSpace {
		removeConstant(hHat)
	}

	// outer solve on S p = ĥ, S = Gᵀ K⁻¹ G − C; each application of S
	// performs one inner K solve
	start = time.Now()
	var innerFailure error
	schur := linsolve.OpFunc{
		Rows: sys.NP(),
		Cols: sys.NP(),
		Apply: func(x utils.Vector) utils.Vector {
			gx := sys.G.MulVec(x)
			y, ires, ierr := inner.Solve(gx)
			s.stats.PressureSolveIts += ires.Iterations
			if ierr = tolerate(ierr); ierr != nil && innerFailure == nil {
				innerFailure = ierr
			}
			r := sys.G.MulVecT(y)
			r.Subtract(sys.ApplyC(x))
			return r
		},
	}
	outer, err := linsolve.New(cfg.Outer.Method, schur, linsolve.Options{
		RTol:    cfg.Outer.RTol,
		MaxIter: cfg.Outer.MaxIter,
		Restart: cfg.Outer.Restart,
	})
	if err != nil {
		return fmt.Errorf("outer solver setup failed: %s", err.Error())
	}
	p, ores, err := outer.Solve(hHat)
	s.stats.PressureIts += ores.Iterations
	s.stats.PressureSolveTime += time.Since(start)
	if innerFailure != nil {
		return fmt.Errorf("inner K solve failed during the outer pressure solve: %s", innerFailure.Error())
	}
	if err = tolerate(err); err != nil {
		return fmt.Errorf("outer pressure solve failed after %d iterations: %s", ores.Iterations, err.Error())
	}
	if cfg.RemoveNullSpace {
		removeConstant(p)
	}

	// backsolve: K u = f − G p
	start = time.Now()
	rhs := sys.F.Copy()
	rhs.Subtract(sys.G.MulVec(p))
	u, bres, err := inner.Solve(rhs)
	s.stats.BacksolveIts += bres.Iterations
	s.stats.BacksolveTime += time.Since(start)
	if err = tolerate(err); err != nil {
		return fmt.Errorf("velocity backsolve against K failed: %s", err.Error())
	}

	// commit the iterate into the caller owned storage
	s.U.V.CopyVec(u.V)
	s.P.V.CopyVec(p.V)
	s.stats.Converged = converged

	if cfg.Verbose {
		mom, cont := sys.Residuals(s.U, s.P)
		fmt.Printf("BSSCR: pressure its %4d, presolve its %4d, backsolve its %4d, |r_u| = %10.4e, |r_p| = %10.4e\n",
			ores.Iterations, res.Iterations, bres.Iterations, mom, cont)
	}
	return
}

func innerPrecon(c InnerConfig) string {
	// direct methods take no preconditioner; iterative methods default to jacobi
	if c.Method == "lu" || c.Method == "cholesky" {
		return "none"
	}
	if c.Precon == "" {
		return "jacobi"
	}
	return c.Precon
}

// removeConstant projects the constant vector out of v, the null space of the
// Schur operator under all Dirichlet velocity boundary conditions.
func removeConstant(v utils.Vector) {
	mean := v.Mean()
	var (
		data = v.Data()
	)
	for i := range data {
		data[i] -= mean
	}
}

// PrintStats writes a solve summary in the style of the long form solver
// reports.
func (s *StokesSolver) PrintStats() {
	var (
		st = s.stats
	)
	fmt.Printf("Stokes solve summary:\n")
	fmt.Printf("  Pressure (outer) iterations:      %8d\n", st.PressureIts)
	fmt.Printf("  Velocity presolve iterations:     %8d\n", st.PresolveIts)
	fmt.Printf("  Velocity pressure-solve iterations:%7d\n", st.PressureSolveIts)
	fmt.Printf("  Velocity backsolve iterations:    %8d\n", st.BacksolveIts)
	if st.NonlinearIts > 0 {
		fmt.Printf("  Non linear iterations:            %8d\n", st.NonlinearIts)
	}
	fmt.Printf("  Setup time:                       %12v\n", st.SetupTime)
	fmt.Printf("  Presolve time:                    %12v\n", st.PresolveTime)
	fmt.Printf("  Pressure solve time:              %12v\n", st.PressureSolveTime)
	fmt.Printf("  Backsolve time:                   %12v\n", st.BacksolveTime)
	fmt.Printf("  Converged:                        %8v\n", st.Converged)
}
