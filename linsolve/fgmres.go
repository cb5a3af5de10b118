package linsolve

import (
	"fmt"
	"math"

	"github.com/geomech/mantle/utils"
)

// FGMRES is the flexible restarted GMRES method with right preconditioning.
// Flexibility means the preconditioner may itself be an inner iterative solve
// that varies between applications, the situation the Schur complement outer
// solve is in.
type FGMRES struct {
	A    Operator
	M    Preconditioner
	Opts Options
}

func (g *FGMRES) Solve(b utils.Vector) (x utils.Vector, res Result, err error) {
	var (
		n, _ = g.A.Dims()
		opts = g.Opts.withDefaults()
	)
	if b.Len() != n {
		err = fmt.Errorf("dimension mismatch: operator is %dx%d, rhs length %d", n, n, b.Len())
		return
	}
	x = utils.NewVector(n)
	normB := b.Norm()
	if normB == 0 {
		res.Converged = true
		return
	}
	tol := math.Max(opts.RTol*normB, opts.ATol)
	var (
		m     = opts.Restart
		total int
	)
	for total < opts.MaxIter {
		// r = b - A x
		r := b.Copy()
		r.Subtract(g.A.MulVec(x))
		beta := r.Norm()
		res.ResidualNorm = beta
		if beta <= tol {
			res.Converged = true
			res.Iterations = total
			return
		}

		V := make([]utils.Vector, m+1) // Krylov basis
		Z := make([]utils.Vector, m)   // preconditioned directions
		H := utils.NewMatrix(m+1, m)   // Hessenberg
		cs := make([]float64, m)       // Givens cosines
		sn := make([]float64, m)       // Givens sines
		gv := make([]float64, m+1)     // rotated residual vector
		gv[0] = beta
		V[0] = r.Copy().Scale(1 / beta)

		var j int
		for j = 0; j < m && total < opts.MaxIter; j++ {
			total++
			Z[j] = g.M.Apply(V[j])
			w := g.A.MulVec(Z[j])
			// modified Gram-Schmidt
			for i := 0; i <= j; i++ {
				hij := w.Dot(V[i])
				H.Set(i, j, hij)
				w.AXPY(-hij, V[i])
			}
			hj1 := w.Norm()
			H.Set(j+1, j, hj1)
			if hj1 > 0 {
				V[j+1] = w.Copy().Scale(1 / hj1)
			}
			// apply the accumulated rotations to the new column
			for i := 0; i < j; i++ {
				h0 := H.At(i, j)
				h1 := H.At(i+1, j)
				H.Set(i, j, cs[i]*h0+sn[i]*h1)
				H.Set(i+1, j, -sn[i]*h0+cs[i]*h1)
			}
			h0 := H.At(j, j)
			h1 := H.At(j+1, j)
			d := math.Hypot(h0, h1)
			cs[j], sn[j] = h0/d, h1/d
			H.Set(j, j, d)
			H.Set(j+1, j, 0)
			gv[j+1] = -sn[j] * gv[j]
			gv[j] = cs[j] * gv[j]

			res.ResidualNorm = math.Abs(gv[j+1])
			if res.ResidualNorm <= tol || hj1 == 0 {
				j++
				break
			}
		}
		// back substitute for y and update x with the flexible directions
		y := make([]float64, j)
		for i := j - 1; i >= 0; i-- {
			sum := gv[i]
			for k := i + 1; k < j; k++ {
				sum -= H.At(i, k) * y[k]
			}
			y[i] = sum / H.At(i, i)
		}
		for i := 0; i < j; i++ {
			x.AXPY(y[i], Z[i])
		}
		if res.ResidualNorm <= tol {
			res.Converged = true
			res.Iterations = total
			return
		}
	}
	res.Iterations = total
	// recompute the true residual for reporting
	r := b.Copy()
	r.Subtract(g.A.MulVec(x))
	res.ResidualNorm = r.Norm()
	res.Converged = res.ResidualNorm <= tol
	if !res.Converged {
		err = fmt.Errorf("fgmres %w in %d iterations: residual %g, tolerance %g",
			ErrNotConverged, opts.MaxIter, res.ResidualNorm, tol)
	}
	return
}
