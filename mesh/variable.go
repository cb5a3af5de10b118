package mesh

import (
	"fmt"
)

// MeshVariable stores per vertex degrees of freedom over a Q1 mesh and
// supports bilinear interpolation of values and derivatives at element local
// coordinates.
type MeshVariable struct {
	Mesh        *FeMesh
	NComponents int
	Data        []float64 // NVertices * NComponents, vertex major
}

func NewMeshVariable(m *FeMesh, nComponents int) (v *MeshVariable) {
	v = &MeshVariable{
		Mesh:        m,
		NComponents: nComponents,
		Data:        make([]float64, m.NVertices()*nComponents),
	}
	return
}

// SetVertex sets all components at vertex vtx.
func (v *MeshVariable) SetVertex(vtx int, vals ...float64) {
	if len(vals) != v.NComponents {
		err := fmt.Errorf("component count mismatch: variable has %d, got %d", v.NComponents, len(vals))
		panic(err)
	}
	copy(v.Data[vtx*v.NComponents:], vals)
}

// VertexValues returns the component slice at vertex vtx, backed by the
// variable storage.
func (v *MeshVariable) VertexValues(vtx int) []float64 {
	return v.Data[vtx*v.NComponents : (vtx+1)*v.NComponents]
}

// shapeQ1 evaluates the four bilinear shape functions at reference
// coordinates (r,s) in [-1,1]^2, ordered to match the element connectivity.
func shapeQ1(r, s float64) [4]float64 {
	return [4]float64{
		0.25 * (1 - r) * (1 - s),
		0.25 * (1 + r) * (1 - s),
		0.25 * (1 + r) * (1 + s),
		0.25 * (1 - r) * (1 + s),
	}
}

// shapeQ1Deriv evaluates the shape function derivatives wrt (r,s).
func shapeQ1Deriv(r, s float64) (dNdr, dNds [4]float64) {
	dNdr = [4]float64{
		-0.25 * (1 - s),
		0.25 * (1 - s),
		0.25 * (1 + s),
		-0.25 * (1 + s),
	}
	dNds = [4]float64{
		-0.25 * (1 - r),
		-0.25 * (1 + r),
		0.25 * (1 + r),
		0.25 * (1 - r),
	}
	return
}

// Interpolate evaluates the variable at local coordinates within element e,
// writing NComponents values into out.
func (v *MeshVariable) Interpolate(e int, local []float64, out []float64) {
	var (
		N     = shapeQ1(local[0], local[1])
		verts = v.Mesh.ElementVertices(e)
	)
	for c := 0; c < v.NComponents; c++ {
		out[c] = 0
	}
	for a, vtx := range verts {
		vals := v.VertexValues(vtx)
		for c := 0; c < v.NComponents; c++ {
			out[c] += N[a] * vals[c]
		}
	}
}

// InterpolateDerivatives evaluates the gradient of each component wrt the
// global coordinates at local coordinates within element e. out receives
// NComponents*Dim values ordered component major: d c0/dx, d c0/dy, d c1/dx, ...
func (v *MeshVariable) InterpolateDerivatives(e int, local []float64, out []float64) {
	var (
		dNdr, dNds = shapeQ1Deriv(local[0], local[1])
		verts      = v.Mesh.ElementVertices(e)
		dx, dy     = v.Mesh.ElementSize()
		// reference to global: r = 2(x-x0)/dx - 1, so dr/dx = 2/dx
		rx, sy = 2 / dx, 2 / dy
	)
	for i := range out[:v.NComponents*v.Mesh.Dim] {
		out[i] = 0
	}
	for a, vtx := range verts {
		vals := v.VertexValues(vtx)
		for c := 0; c < v.NComponents; c++ {
			out[c*v.Mesh.Dim] += dNdr[a] * rx * vals[c]
			out[c*v.Mesh.Dim+1] += dNds[a] * sy * vals[c]
		}
	}
}

// ElementVariable stores one constant value set per element, the discontinuous
// DQ0 space used for pressure.
type ElementVariable struct {
	Mesh        *FeMesh
	NComponents int
	Data        []float64 // NElements * NComponents
}

func NewElementVariable(m *FeMesh, nComponents int) (v *ElementVariable) {
	v = &ElementVariable{
		Mesh:        m,
		NComponents: nComponents,
		Data:        make([]float64, m.NElements()*nComponents),
	}
	return
}

// ElementValues returns the component slice for element e, backed by the
// variable storage.
func (v *ElementVariable) ElementValues(e int) []float64 {
	return v.Data[e*v.NComponents : (e+1)*v.NComponents]
}

// Interpolate evaluates the variable within element e; the local coordinate is
// irrelevant for a piecewise constant space.
func (v *ElementVariable) Interpolate(e int, _ []float64, out []float64) {
	copy(out, v.ElementValues(e))
}
