// Package linsolve provides the pluggable linear algebra backend: operators,
// preconditioners and solvers selectable by string key. Iterative methods
// report iteration counts and residual norms; non convergence is a qualified
// error carrying the partial result, never a silent success.
package linsolve

import (
	"errors"
	"fmt"

	"github.com/geomech/mantle/utils"
)

// ErrNotConverged marks an iteration cap reached before the tolerance. The
// returned iterate is the best available; callers decide whether that is fatal.
var ErrNotConverged = errors.New("failed to converge")

// Operator is anything that can apply itself to a vector. Dense and sparse
// matrices satisfy it, as do matrix free operators like the Schur complement.
type Operator interface {
	Dims() (r, c int)
	MulVec(x utils.Vector) utils.Vector
}

// Denseable operators can expand to dense storage, required by the serial
// direct methods.
type Denseable interface {
	ToDense() utils.Matrix
}

// Diagonalable operators expose their diagonal, required by the Jacobi
// preconditioner.
type Diagonalable interface {
	Diagonal() utils.Vector
}

// OpFunc is a matrix free operator defined by an apply callback.
type OpFunc struct {
	Rows, Cols int
	Apply      func(x utils.Vector) utils.Vector
}

func (o OpFunc) Dims() (r, c int)                      { return o.Rows, o.Cols }
func (o OpFunc) MulVec(x utils.Vector) (R utils.Vector) { return o.Apply(x) }

// Options configures an iterative solve.
type Options struct {
	RTol    float64 // relative residual tolerance, default 1e-8
	ATol    float64 // absolute residual tolerance, default 1e-50
	MaxIter int     // iteration cap, default 10000
	Restart int     // fgmres restart length, default 30
	Precon  string  // "none" or "jacobi", default "none"
}

func (o Options) withDefaults() Options {
	if o.RTol == 0 {
		o.RTol = 1.e-8
	}
	if o.ATol == 0 {
		o.ATol = 1.e-50
	}
	if o.MaxIter == 0 {
		o.MaxIter = 10000
	}
	if o.Restart == 0 {
		o.Restart = 30
	}
	if o.Precon == "" {
		o.Precon = "none"
	}
	return o
}

// Result reports the outcome of one solve.
type Result struct {
	Iterations   int
	ResidualNorm float64
	Converged    bool
}

// Solver produces solutions against a fixed operator.
type Solver interface {
	Solve(b utils.Vector) (x utils.Vector, res Result, err error)
}

// Methods lists the recognized solver keys.
var Methods = []string{"cg", "fgmres", "lu", "cholesky"}

// New constructs a solver for A by method key. Unknown keys, or methods whose
// requirements A cannot meet (direct methods need dense expansion, jacobi
// preconditioning needs a diagonal), are configuration errors.
func New(method string, A Operator, opts Options) (s Solver, err error) {
	opts = opts.withDefaults()
	var precon Preconditioner
	if precon, err = newPreconditioner(opts.Precon, A); err != nil {
		return
	}
	switch method {
	case "cg":
		s = &CG{A: A, M: precon, Opts: opts}
	case "fgmres":
		s = &FGMRES{A: A, M: precon, Opts: opts}
	case "lu":
		s, err = NewLU(A)
	case "cholesky":
		s, err = NewCholesky(A)
	default:
		err = fmt.Errorf("unrecognized solver method %q: recognized methods are %v", method, Methods)
	}
	return
}

// Preconditioner approximates the inverse action of an operator.
type Preconditioner interface {
	Apply(r utils.Vector) utils.Vector
}

type identityPrecon struct{}

func (identityPrecon) Apply(r utils.Vector) utils.Vector { return r.Copy() }

type jacobiPrecon struct {
	invDiag utils.Vector
}

func (p jacobiPrecon) Apply(r utils.Vector) (z utils.Vector) {
	z = r.Copy()
	var (
		zD = z.Data()
		dD = p.invDiag.Data()
	)
	for i := range zD {
		zD[i] *= dD[i]
	}
	return
}

func newPreconditioner(key string, A Operator) (p Preconditioner, err error) {
	switch key {
	case "none":
		p = identityPrecon{}
	case "jacobi":
		dg, ok := A.(Diagonalable)
		if !ok {
			err = fmt.Errorf("jacobi preconditioning requires an operator exposing its diagonal")
			return
		}
		d := dg.Diagonal().Copy()
		dD := d.Data()
		for i, val := range dD {
			if val == 0 {
				err = fmt.Errorf("jacobi preconditioning hit a zero diagonal entry at row %d", i)
				return
			}
			dD[i] = 1 / val
		}
		p = jacobiPrecon{invDiag: d}
	default:
		err = fmt.Errorf("unrecognized preconditioner %q: recognized preconditioners are [none jacobi]", key)
	}
	return
}
