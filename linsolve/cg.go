package linsolve

import (
	"fmt"
	"math"

	"github.com/geomech/mantle/utils"
)

// CG is the preconditioned conjugate gradient method for symmetric positive
// definite operators.
type CG struct {
	A    Operator
	M    Preconditioner
	Opts Options
}

func (c *CG) Solve(b utils.Vector) (x utils.Vector, res Result, err error) {
	var (
		n, _ = c.A.Dims()
		opts = c.Opts.withDefaults()
	)
	if b.Len() != n {
		err = fmt.Errorf("dimension mismatch: operator is %dx%d, rhs length %d", n, n, b.Len())
		return
	}
	x = utils.NewVector(n)
	r := b.Copy()
	normB := b.Norm()
	if normB == 0 {
		res.Converged = true
		return
	}
	tol := math.Max(opts.RTol*normB, opts.ATol)

	z := c.M.Apply(r)
	p := z.Copy()
	rz := r.Dot(z)
	for k := 0; k < opts.MaxIter; k++ {
		res.ResidualNorm = r.Norm()
		if res.ResidualNorm <= tol {
			res.Converged = true
			res.Iterations = k
			return
		}
		ap := c.A.MulVec(p)
		pap := p.Dot(ap)
		if pap <= 0 {
			err = fmt.Errorf("cg breakdown at iteration %d: operator is not positive definite (pAp = %g)", k, pap)
			res.Iterations = k
			return
		}
		alpha := rz / pap
		x.AXPY(alpha, p)
		r.AXPY(-alpha, ap)
		z = c.M.Apply(r)
		rzNew := r.Dot(z)
		beta := rzNew / rz
		rz = rzNew
		pNew := z.Copy()
		pNew.AXPY(beta, p)
		p = pNew
	}
	res.Iterations = opts.MaxIter
	res.ResidualNorm = r.Norm()
	res.Converged = res.ResidualNorm <= tol
	if !res.Converged {
		err = fmt.Errorf("cg %w in %d iterations: residual %g, tolerance %g",
			ErrNotConverged, opts.MaxIter, res.ResidualNorm, tol)
	}
	return
}
