package linsolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomech/mantle/utils"
)

// spd4 is a small symmetric positive definite test matrix.
func spd4() utils.Matrix {
	return utils.NewMatrix(4, 4, []float64{
		4, 1, 0, 0,
		1, 5, 1, 0,
		0, 1, 6, 1,
		0, 0, 1, 7,
	})
}

func residual(A Operator, x, b utils.Vector) float64 {
	r := b.Copy()
	r.Subtract(A.MulVec(x))
	return r.Norm()
}

func TestMethodsAgainstEachOther(t *testing.T) {
	var (
		A = spd4()
		b = utils.NewVector(4, []float64{1, 2, 3, 4})
	)
	var solutions []utils.Vector
	for _, method := range Methods {
		s, err := New(method, A, Options{RTol: 1.e-12})
		require.NoError(t, err, method)
		x, res, err := s.Solve(b)
		require.NoError(t, err, method)
		assert.True(t, res.Converged, method)
		assert.Less(t, residual(A, x, b), 1.e-10, method)
		solutions = append(solutions, x)
	}
	for _, x := range solutions[1:] {
		assert.Less(t, utils.VecMaxAbsDiff(solutions[0], x), 1.e-9)
	}
}

func TestUnknownMethodIsConfigError(t *testing.T) {
	_, err := New("mumps", spd4(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized solver method")
}

func TestJacobiPreconditioning(t *testing.T) {
	var (
		A = spd4()
		b = utils.NewVector(4, []float64{1, 0, 0, 1})
	)
	s, err := New("cg", A, Options{RTol: 1.e-12, Precon: "jacobi"})
	require.NoError(t, err)
	x, res, err := s.Solve(b)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, residual(A, x, b), 1.e-10)
}

func TestJacobiRequiresDiagonal(t *testing.T) {
	op := OpFunc{Rows: 2, Cols: 2, Apply: func(x utils.Vector) utils.Vector { return x.Copy() }}
	_, err := New("cg", op, Options{Precon: "jacobi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagonal")
}

func TestDirectRequiresAssembledMatrix(t *testing.T) {
	op := OpFunc{Rows: 2, Cols: 2, Apply: func(x utils.Vector) utils.Vector { return x.Copy() }}
	for _, method := range []string{"lu", "cholesky"} {
		_, err := New(method, op, Options{})
		require.Error(t, err, method)
		assert.Contains(t, err.Error(), "matrix free", method)
	}
}

func TestIterationCapIsQualifiedFailure(t *testing.T) {
	var (
		A = spd4()
		b = utils.NewVector(4, []float64{1, 2, 3, 4})
	)
	s, err := New("cg", A, Options{RTol: 1.e-14, MaxIter: 1})
	require.NoError(t, err)
	x, res, err := s.Solve(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConverged))
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.Contains(t, err.Error(), "failed to converge")
	// the partial iterate is still handed back
	assert.Greater(t, x.Norm(), 0.)
}

func TestFGMRESNonSymmetric(t *testing.T) {
	A := utils.NewMatrix(3, 3, []float64{
		2, 1, 0,
		0, 3, 1,
		1, 0, 4,
	})
	b := utils.NewVector(3, []float64{3, 4, 5})
	s, err := New("fgmres", A, Options{RTol: 1.e-12})
	require.NoError(t, err)
	x, res, err := s.Solve(b)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, residual(A, x, b), 1.e-10)
}

func TestFGMRESRestart(t *testing.T) {
	// force several restart cycles on a larger diagonal dominant system
	n := 20
	d := utils.NewDOK(n, n)
	for i := 0; i < n; i++ {
		d.Set(i, i, float64(4+i))
		if i > 0 {
			d.Set(i, i-1, 1)
			d.Set(i-1, i, -1)
		}
	}
	A := d.ToCSR()
	b := utils.NewVectorConst(n, 1)
	s, err := New("fgmres", A, Options{RTol: 1.e-10, Restart: 5})
	require.NoError(t, err)
	x, res, err := s.Solve(b)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, residual(A, x, b), 1.e-8)
}

func TestMatrixFreeOperator(t *testing.T) {
	// the identity as a matrix free operator
	op := OpFunc{Rows: 3, Cols: 3, Apply: func(x utils.Vector) utils.Vector { return x.Copy() }}
	b := utils.NewVector(3, []float64{1, 2, 3})
	s, err := New("cg", op, Options{RTol: 1.e-12})
	require.NoError(t, err)
	x, res, err := s.Solve(b)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, utils.VecMaxAbsDiff(x, b), 1.e-12)
}

func TestZeroRHS(t *testing.T) {
	s, err := New("cg", spd4(), Options{})
	require.NoError(t, err)
	x, res, err := s.Solve(utils.NewVector(4))
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 0., x.Norm())
}
