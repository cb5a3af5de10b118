package linsolve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/geomech/mantle/utils"
)

// LU is a serial dense LU factorization, factored once at construction and
// reused across solves.
type LU struct {
	n  int
	lu *mat.LU
}

func NewLU(A Operator) (s *LU, err error) {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("lu requires a square operator, have %dx%d", nr, nc)
		return
	}
	dn, ok := A.(Denseable)
	if !ok {
		err = fmt.Errorf("lu requires an assembled matrix, not a matrix free operator")
		return
	}
	s = &LU{n: nr, lu: &mat.LU{}}
	s.lu.Factorize(dn.ToDense().M)
	if s.lu.Cond() > 1.e16 {
		err = fmt.Errorf("lu factorization of a numerically singular matrix: condition number %g", s.lu.Cond())
		s = nil
	}
	return
}

func (s *LU) Solve(b utils.Vector) (x utils.Vector, res Result, err error) {
	if b.Len() != s.n {
		err = fmt.Errorf("dimension mismatch: operator is %dx%d, rhs length %d", s.n, s.n, b.Len())
		return
	}
	x = utils.NewVector(s.n)
	if err = s.lu.SolveVecTo(x.V, false, b.V); err != nil {
		err = fmt.Errorf("lu solve failed: %s", err.Error())
		return
	}
	res.Iterations = 1
	res.Converged = true
	return
}

// Cholesky is a serial dense Cholesky factorization for symmetric positive
// definite operators.
type Cholesky struct {
	n    int
	chol *mat.Cholesky
}

func NewCholesky(A Operator) (s *Cholesky, err error) {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("cholesky requires a square operator, have %dx%d", nr, nc)
		return
	}
	dn, ok := A.(Denseable)
	if !ok {
		err = fmt.Errorf("cholesky requires an assembled matrix, not a matrix free operator")
		return
	}
	var (
		D   = dn.ToDense()
		sym = mat.NewSymDense(nr, nil)
	)
	// symmetrize against assembly roundoff
	for i := 0; i < nr; i++ {
		for j := i; j < nr; j++ {
			sym.SetSym(i, j, 0.5*(D.At(i, j)+D.At(j, i)))
		}
	}
	s = &Cholesky{n: nr, chol: &mat.Cholesky{}}
	if ok := s.chol.Factorize(sym); !ok {
		err = fmt.Errorf("cholesky factorization failed: operator is not positive definite")
		s = nil
	}
	return
}

func (s *Cholesky) Solve(b utils.Vector) (x utils.Vector, res Result, err error) {
	if b.Len() != s.n {
		err = fmt.Errorf("dimension mismatch: operator is %dx%d, rhs length %d", s.n, s.n, b.Len())
		return
	}
	x = utils.NewVector(s.n)
	if err = s.chol.SolveVecTo(x.V, b.V); err != nil {
		err = fmt.Errorf("cholesky solve failed: %s", err.Error())
		return
	}
	res.Iterations = 1
	res.Converged = true
	return
}
