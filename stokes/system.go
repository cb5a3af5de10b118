// Package stokes solves the saddle point Stokes system
//
//	[ K  G ] [u]   [f]
//	[ Gᵀ C ] [p] = [h]
//
// by Schur complement reduction (BSSCR): the velocity block is eliminated,
// the reduced pressure system S p = ĥ with S = Gᵀ K⁻¹ G − C is solved by an
// outer Krylov method whose every iteration applies one inner K solve, and the
// velocity follows from a backsolve. Penalty augmentation, constant pressure
// null space removal and Picard iteration for velocity dependent rheology sit
// on top of the linear kernel.
//
// All solves are synchronous and, in a distributed run, collective: every
// process in the communicator must call them in the same order. A call order
// or process count mismatch is a deadlock, not a recoverable condition.
package stokes

import (
	"fmt"

	"github.com/geomech/mantle/utils"
)

// BlockSystem holds references to the assembled block operators and right hand
// sides. The assembly layer owns the storage; the solver borrows it for the
// duration of a solve and mutates it only through the penalty augment/restore
// pair below.
type BlockSystem struct {
	K utils.CSR    // velocity stiffness, SPD, Nu x Nu
	G utils.CSR    // gradient coupling, Nu x Np
	C *utils.CSR   // pressure block, Np x Np, nil for pure incompressibility
	F utils.Vector // momentum rhs, length Nu
	H utils.Vector // continuity rhs, length Np

	penalty   float64
	savedDiag []float64 // C diagonal before augmentation
	madeC     bool      // C was created by augmentation and must revert to nil
}

// NU and NP return the velocity and pressure space dimensions.
func (b *BlockSystem) NU() int { r, _ := b.K.Dims(); return r }
func (b *BlockSystem) NP() int { _, c := b.G.Dims(); return c }

// Check validates block dimensions against each other.
func (b *BlockSystem) Check() error {
	var (
		kr, kc = b.K.Dims()
		gr, gc = b.G.Dims()
	)
	if kr != kc {
		return fmt.Errorf("K must be square, have %dx%d", kr, kc)
	}
	if gr != kr {
		return fmt.Errorf("G row count (%d) must match K dimension (%d)", gr, kr)
	}
	if b.C != nil {
		cr, cc := b.C.Dims()
		if cr != gc || cc != gc {
			return fmt.Errorf("C must be %dx%d to match G, have %dx%d", gc, gc, cr, cc)
		}
	}
	if b.F.Len() != kr {
		return fmt.Errorf("f length (%d) must match K dimension (%d)", b.F.Len(), kr)
	}
	if b.H.Len() != gc {
		return fmt.Errorf("h length (%d) must match G column count (%d)", b.H.Len(), gc)
	}
	return nil
}

// Augmented reports whether the penalty augmentation is currently applied.
func (b *BlockSystem) Augmented() bool { return b.penalty > 0 }

// AugmentC applies the Augmented Lagrangian regularization C ← C + (1/penalty) I
// in place. A nil C block is materialized as the pure diagonal. The caller must
// pair this with RestoreC before performing further unpenalized operations on
// the blocks.
func (b *BlockSystem) AugmentC(penalty float64) error {
	if penalty <= 0 {
		return fmt.Errorf("penalty must be positive, have %g", penalty)
	}
	if b.penalty > 0 {
		return fmt.Errorf("C block is already augmented with penalty %g: call RestoreC first", b.penalty)
	}
	np := b.NP()
	if b.C == nil {
		d := utils.NewDOK(np, np)
		for i := 0; i < np; i++ {
			d.Set(i, i, 1/penalty)
		}
		csr := d.ToCSR()
		b.C = &csr
		b.madeC = true
		b.savedDiag = nil
	} else {
		b.savedDiag = b.C.Diagonal().Data()
		for i := 0; i < np; i++ {
			b.C.M.Set(i, i, b.savedDiag[i]+1/penalty)
		}
	}
	b.penalty = penalty
	return nil
}

// RestoreC undoes AugmentC, returning C to its pre penalty state.
func (b *BlockSystem) RestoreC() error {
	if b.penalty == 0 {
		return fmt.Errorf("C block is not augmented")
	}
	if b.madeC {
		b.C = nil
		b.madeC = false
	} else {
		for i, val := range b.savedDiag {
			b.C.M.Set(i, i, val)
		}
		b.savedDiag = nil
	}
	b.penalty = 0
	return nil
}

// ApplyC computes C*p, zero when the block is absent.
func (b *BlockSystem) ApplyC(p utils.Vector) (R utils.Vector) {
	if b.C == nil {
		R = utils.NewVector(p.Len())
		return
	}
	R = b.C.MulVec(p)
	return
}

// Residuals returns the block residual norms ‖K u + G p − f‖ and
// ‖Gᵀ u + C p − h‖ for a candidate solution.
func (b *BlockSystem) Residuals(u, p utils.Vector) (momentum, continuity float64) {
	rm := b.K.MulVec(u)
	rm.Add(b.G.MulVec(p))
	rm.Subtract(b.F)
	momentum = rm.Norm()

	rc := b.G.MulVecT(u)
	rc.Add(b.ApplyC(p))
	rc.Subtract(b.H)
	continuity = rc.Norm()
	return
}
