package stokes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomech/mantle/function"
	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/utils"
)

func benchmarkAssembler(nx, ny int) *Assembler {
	m := mesh.NewCartesian(nx, ny, 0, 1, 0, 1)
	return &Assembler{
		Mesh:      m,
		Viscosity: function.NewConstant(1),
		BodyForce: function.NewConstant(0, -1),
		BCs:       BoundaryBCs(m),
	}
}

func TestBoundaryBCs(t *testing.T) {
	m := mesh.NewCartesian(4, 4, 0, 1, 0, 1)
	bcs := BoundaryBCs(m)
	// 16 boundary vertices of the 5x5 grid, two components each
	assert.Equal(t, 32, len(bcs))
	for _, bc := range bcs {
		assert.Equal(t, 0., bc.Value)
	}
}

func TestAssemble(t *testing.T) {
	a := benchmarkAssembler(4, 4)
	sys, err := a.Assemble()
	require.NoError(t, err)
	require.NoError(t, sys.Check())
	assert.Equal(t, 50, sys.NU())
	assert.Equal(t, 16, sys.NP())
	assert.Nil(t, sys.C)
	// no slip conditions contribute nothing to the continuity rhs
	assert.Equal(t, 0., sys.H.Norm())

	// K is symmetric after the Dirichlet elimination
	var (
		D     = sys.K.ToDense()
		nu, _ = D.Dims()
	)
	for i := 0; i < nu; i++ {
		for j := i + 1; j < nu; j++ {
			assert.InDelta(t, D.At(i, j), D.At(j, i), 1.e-13)
		}
	}

	// constrained rows reduce to the identity carrying the prescribed value
	// and decouple from pressure
	d := 2*0 + 0 // x component at the lower left corner vertex
	assert.Equal(t, 1., sys.K.At(d, d))
	assert.Equal(t, 0., sys.F.AtVec(d))
	for e := 0; e < sys.NP(); e++ {
		assert.Equal(t, 0., sys.G.At(d, e))
	}
}

func TestAssembleValidation(t *testing.T) {
	a := benchmarkAssembler(2, 2)
	a.Viscosity = function.NewConstant(1, 2)
	_, err := a.Assemble()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "viscosity function must be scalar")

	a = benchmarkAssembler(2, 2)
	a.BodyForce = function.NewConstant(1)
	_, err = a.Assemble()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body force function must have 2 components")

	a = benchmarkAssembler(2, 2)
	a.BCs = append(a.BCs, VelocityBC{Vertex: 0, Component: 2})
	_, err = a.Assemble()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component 2 out of range")
}

func TestScatter(t *testing.T) {
	var (
		a  = benchmarkAssembler(2, 2)
		m  = a.Mesh
		nu = 2 * m.NVertices()
	)
	u := utils.NewVector(nu)
	for i := 0; i < nu; i++ {
		u.SetVec(i, float64(i))
	}
	v := mesh.NewMeshVariable(m, 2)
	a.ScatterVelocity(u, v)
	assert.Equal(t, []float64{8, 9}, v.VertexValues(4))
	assert.Panics(t, func() { a.ScatterVelocity(u, mesh.NewMeshVariable(m, 1)) })

	p := utils.NewVector(m.NElements(), []float64{1, 2, 3, 4})
	pv := mesh.NewElementVariable(m, 1)
	a.ScatterPressure(p, pv)
	assert.Equal(t, 3., pv.ElementValues(2)[0])
	assert.Panics(t, func() { a.ScatterPressure(p, mesh.NewElementVariable(m, 2)) })
}

func TestUpdateScattersVelocityField(t *testing.T) {
	a := benchmarkAssembler(2, 2)
	a.VelocityField = mesh.NewMeshVariable(a.Mesh, 2)

	u := utils.NewVectorConst(2*a.Mesh.NVertices(), 2.5)
	sys, err := a.Update(u)
	require.NoError(t, err)
	require.NoError(t, sys.Check())
	assert.Equal(t, []float64{2.5, 2.5}, a.VelocityField.VertexValues(3))
}

func TestBuoyancyDrivenCavity(t *testing.T) {
	// no slip box driven by a sinusoidal buoyancy; checks the assembled
	// system solves to small block residuals with a zero mean pressure
	var (
		a = benchmarkAssembler(8, 8)
	)
	a.BodyForce = &sinForce{}
	sys, err := a.Assemble()
	require.NoError(t, err)

	cfg := DefaultConfig()
	s, err := NewSolver(sys, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Solve(false, 0, 0, false))
	require.True(t, s.Stats().Converged)

	mom, cont := sys.Residuals(s.U, s.P)
	assert.Less(t, mom, 1.e-8)
	assert.Less(t, cont, 1.e-6)
	assert.InDelta(t, 0., s.P.Mean(), 1.e-12)

	// the flow is nontrivial
	assert.Greater(t, s.U.Norm(), 1.e-4)

	// no slip boundary values survive the solve exactly
	for _, bc := range a.BCs {
		assert.InDelta(t, 0., s.U.AtVec(2*bc.Vertex+bc.Component), 1.e-12)
	}
}

func TestPicardWithAssembler(t *testing.T) {
	// a velocity independent rheology reaches the Picard fixed point on the
	// second pass
	a := benchmarkAssembler(4, 4)
	a.VelocityField = mesh.NewMeshVariable(a.Mesh, 2)
	sys, err := a.Assemble()
	require.NoError(t, err)

	cfg := DefaultConfig()
	s, err := NewSolver(sys, cfg)
	require.NoError(t, err)
	s.SetOperatorSource(a)

	require.NoError(t, s.Solve(true, 1.e-6, 10, true))
	st := s.Stats()
	assert.True(t, st.Converged)
	assert.Equal(t, 2, st.NonlinearIts)
}

// sinForce is the benchmark buoyancy f = (0, -sin(pi y) cos(pi x)).
type sinForce struct{}

func (b *sinForce) GetFunction(sample function.Input) (function.Closure, error) {
	coord, err := function.NewCoord().GetFunction(sample)
	if err != nil {
		return nil, err
	}
	out := function.NewIO(2, function.Vector)
	return func(in function.Input) (*function.IO, error) {
		x, err := coord(in)
		if err != nil {
			return nil, err
		}
		out.Data[0] = 0
		out.Data[1] = -math.Sin(math.Pi*x.Data[1]) * math.Cos(math.Pi*x.Data[0])
		return out, nil
	}, nil
}
