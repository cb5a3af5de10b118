package function

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomech/mantle/fpenv"
	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/swarm"
)

func TestConstantAndCoord(t *testing.T) {
	c := NewConstant(3, 4)
	out, err := Evaluate(c, GlobalCoord(0, 0))
	require.NoError(t, err)
	assert.Equal(t, Vector, out.Type)
	assert.Equal(t, []float64{3, 4}, out.Data)

	s := NewConstant(7)
	out, err = Evaluate(s, GlobalCoord(0, 0))
	require.NoError(t, err)
	assert.Equal(t, Scalar, out.Type)

	_, err = Evaluate(&Constant{}, GlobalCoord(0, 0))
	require.Error(t, err)

	out, err = Evaluate(NewCoord(), GlobalCoord(0.25, 0.75))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, out.Data)

	// element local inputs resolve to their global coordinate
	m := mesh.NewCartesian(2, 2, 0, 1, 0, 1)
	out, err = Evaluate(NewCoord(), ElementLocal(m, 0, []float64{0, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, out.Data[0], 1.e-14)
	assert.InDelta(t, 0.25, out.Data[1], 1.e-14)
}

func TestAtComponentExtraction(t *testing.T) {
	c := NewConstant(10, 20, 30)
	out, err := Evaluate(NewAt(c, 2), GlobalCoord(0, 0))
	require.NoError(t, err)
	assert.Equal(t, Scalar, out.Type)
	assert.Equal(t, 30., out.Data[0])

	// out of range components are construction errors with the exact bounds
	_, err = NewAt(c, 3).GetFunction(GlobalCoord(0, 0))
	require.Error(t, err)
	assert.Equal(t, "trying to extract component 3 from object with size 3: index must be in [0,2]", err.Error())

	_, err = NewAt(c, -1).GetFunction(GlobalCoord(0, 0))
	require.Error(t, err)

	// nil argument extracts from the input coordinate itself
	out, err = Evaluate(NewAt(nil, 1), GlobalCoord(2, 5))
	require.NoError(t, err)
	assert.Equal(t, 5., out.Data[0])
}

func TestMathUnary(t *testing.T) {
	f := NewMathUnary(NewConstant(4, 9), "sqrt", math.Sqrt)
	out, err := Evaluate(f, GlobalCoord(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, out.Data)
}

func TestBinary(t *testing.T) {
	var (
		in = GlobalCoord(0, 0)
		a  = NewConstant(1, 2, 3)
		b  = NewConstant(4, 5, 6)
	)
	out, err := Evaluate(Add(a, b), in)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, out.Data)

	out, err = Evaluate(Subtract(b, a), in)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3}, out.Data)

	out, err = Evaluate(Multiply(a, b), in)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 10, 18}, out.Data)

	out, err = Evaluate(Dot(a, b), in)
	require.NoError(t, err)
	assert.Equal(t, Scalar, out.Type)
	assert.Equal(t, 32., out.Data[0])

	// scalars broadcast against vectors
	out, err = Evaluate(Multiply(NewConstant(2), b), in)
	require.NoError(t, err)
	assert.Equal(t, Vector, out.Type)
	assert.Equal(t, []float64{8, 10, 12}, out.Data)

	// incompatible sizes are construction errors
	_, err = Add(NewConstant(1, 2), a).GetFunction(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible")

	_, err = Dot(NewConstant(1, 2), a).GetFunction(in)
	require.Error(t, err)
}

func TestSafeMathsReportsFaults(t *testing.T) {
	fpenv.Clear()
	var (
		in  = GlobalCoord(0, 0)
		bad = Divide(NewConstant(1), NewConstant(0))
	)
	f, err := NewSafeMaths(bad).GetFunction(in)
	require.NoError(t, err)
	_, err = f(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floating point exception(s) encountered while evaluating SafeMaths argument function")
	assert.Contains(t, err.Error(), "Divide by zero")
	// the fault state is reinstated, not polluted by the failed evaluation
	assert.Equal(t, fpenv.Flags(0), fpenv.Test(fpenv.All))

	// repeat evaluations fail identically
	_, err2 := f(in)
	require.Error(t, err2)
	assert.Equal(t, err.Error(), err2.Error())
}

func TestSafeMathsPreservesPriorFlags(t *testing.T) {
	fpenv.Clear()
	fpenv.Raise(fpenv.Invalid)

	// a failing evaluation restores the prior state exactly
	f, err := NewSafeMaths(Divide(NewConstant(1), NewConstant(0))).GetFunction(GlobalCoord(0, 0))
	require.NoError(t, err)
	_, err = f(GlobalCoord(0, 0))
	require.Error(t, err)
	assert.Equal(t, fpenv.Invalid, fpenv.Test(fpenv.All))

	// a clean evaluation keeps the prior state too
	g, err := NewSafeMaths(NewConstant(1)).GetFunction(GlobalCoord(0, 0))
	require.NoError(t, err)
	_, err = g(GlobalCoord(0, 0))
	require.NoError(t, err)
	assert.Equal(t, fpenv.Invalid, fpenv.Test(fpenv.All))
	fpenv.Clear()
}

func TestSafeMathsClassifiesUncheckedResults(t *testing.T) {
	fpenv.Clear()
	// NaN produced without a checked operation still surfaces
	nan := NewMathUnary(NewConstant(1), "nan", func(float64) float64 { return math.NaN() })
	_, err := Evaluate(NewSafeMaths(nan), GlobalCoord(0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid domain")
	assert.Equal(t, fpenv.Flags(0), fpenv.Test(fpenv.All))
}

func linearField(m *mesh.FeMesh) *mesh.MeshVariable {
	v := mesh.NewMeshVariable(m, 1)
	for vtx := 0; vtx < m.NVertices(); vtx++ {
		x := m.Vertex(vtx)
		v.SetVertex(vtx, 2*x[0]+3*x[1])
	}
	return v
}

func TestFieldValueDispatch(t *testing.T) {
	var (
		m  = mesh.NewCartesian(2, 2, 0, 1, 0, 1)
		v  = linearField(m)
		fv = NewFieldValue(v)
	)
	// element local: direct interpolation
	out, err := Evaluate(fv, ElementLocal(m, 0, []float64{0, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 2*0.25+3*0.25, out.Data[0], 1.e-13)

	// vertex on the same mesh: nodal read, exact
	out, err = Evaluate(fv, MeshVertex(m, 4))
	require.NoError(t, err)
	assert.Equal(t, v.VertexValues(4)[0], out.Data[0])

	// global coordinate: point location then interpolation
	out, err = Evaluate(fv, GlobalCoord(0.3, 0.7))
	require.NoError(t, err)
	assert.InDelta(t, 2*0.3+3*0.7, out.Data[0], 1.e-13)

	// outside the domain is a recoverable range error
	f, err := fv.GetFunction(GlobalCoord(0.5, 0.5))
	require.NoError(t, err)
	_, err = f(GlobalCoord(2, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideDomain))

	// dimension mismatch fails at construction
	_, err = fv.GetFunction(GlobalCoord(0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear to match mesh variable dimensionality")

	// particle inputs have no field dispatch branch
	s := swarm.New(1, 0)
	_, err = fv.GetFunction(Particle(s, 0))
	require.Error(t, err)
}

func TestGradientField(t *testing.T) {
	var (
		m = mesh.NewCartesian(2, 2, 0, 1, 0, 1)
		v = linearField(m)
		g = NewGradientField(v)
	)
	// scalar field gradient is a Vector of length Dim
	out, err := Evaluate(g, ElementLocal(m, 0, []float64{0, 0}))
	require.NoError(t, err)
	assert.Equal(t, Vector, out.Type)
	require.Equal(t, 2, out.Size())
	assert.InDelta(t, 2., out.Data[0], 1.e-13)
	assert.InDelta(t, 3., out.Data[1], 1.e-13)

	// global coordinate branch
	out, err = Evaluate(g, GlobalCoord(0.3, 0.7))
	require.NoError(t, err)
	assert.InDelta(t, 2., out.Data[0], 1.e-13)
	assert.InDelta(t, 3., out.Data[1], 1.e-13)

	f, err := g.GetFunction(GlobalCoord(0.5, 0.5))
	require.NoError(t, err)
	_, err = f(GlobalCoord(-1, 0.5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideDomain))

	_, err = g.GetFunction(GlobalCoord(0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear to match mesh variable dimensionality")

	// vector field gradient is a Tensor of NComponents*Dim
	w := mesh.NewMeshVariable(m, 2)
	out, err = Evaluate(NewGradientField(w), ElementLocal(m, 0, []float64{0, 0}))
	require.NoError(t, err)
	assert.Equal(t, Tensor, out.Type)
	assert.Equal(t, 4, out.Size())
}

func TestGradientFieldVertexTieBreak(t *testing.T) {
	// a hat function peaked at the central vertex has element dependent
	// gradients there; the vertex branch must use the last incident element
	m := mesh.NewCartesian(2, 2, 0, 2, 0, 2)
	v := mesh.NewMeshVariable(m, 1)
	v.SetVertex(4, 1) // central vertex of the 3x3 vertex grid

	inc := m.VertexElements(4)
	require.Equal(t, []int{0, 1, 2, 3}, []int(inc))

	out, err := Evaluate(NewGradientField(v), MeshVertex(m, 4))
	require.NoError(t, err)
	// in element 3 the central vertex is the lower left corner, where the
	// hat decays with both x and y
	assert.InDelta(t, -1., out.Data[0], 1.e-13)
	assert.InDelta(t, -1., out.Data[1], 1.e-13)
}

func TestSwarmValue(t *testing.T) {
	s := swarm.New(3, 2)
	v := s.AddVariable("plasticStrain", 1)
	v.ParticleValues(1)[0] = 0.5

	out, err := Evaluate(NewSwarmValue(v), Particle(s, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Data[0])

	// any non particle input is rejected at construction
	_, err = NewSwarmValue(v).GetFunction(GlobalCoord(0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a particle input")

	_, err = s.Variable("missing")
	require.Error(t, err)
	assert.Panics(t, func() { s.AddVariable("plasticStrain", 1) })
}

func TestComposedGraph(t *testing.T) {
	// viscosity(x) * coord dispatching through a shared sample input
	var (
		m    = mesh.NewCartesian(2, 2, 0, 1, 0, 1)
		v    = linearField(m)
		expr = Multiply(NewFieldValue(v), NewAt(NewCoord(), 0))
	)
	out, err := Evaluate(expr, GlobalCoord(0.5, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, (2*0.5+3*0.5)*0.5, out.Data[0], 1.e-13)
}
