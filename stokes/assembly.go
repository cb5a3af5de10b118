package stokes

import (
	"fmt"
	"math"

	"github.com/geomech/mantle/function"
	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/utils"
)

// VelocityBC pins one velocity component at one vertex.
type VelocityBC struct {
	Vertex    int
	Component int
	Value     float64
}

// Assembler builds the block operators for a Q1/DQ0 Stokes discretization on
// a Cartesian mesh. Viscosity is a scalar function and body force a vector
// function, both evaluated at the quadrature points through the function
// layer. The velocity dof numbering is 2*vertex+component; pressure dofs are
// element indices.
type Assembler struct {
	Mesh      *mesh.FeMesh
	Viscosity function.Function
	BodyForce function.Function
	BCs       []VelocityBC

	// VelocityField, when set, receives each Picard velocity iterate before
	// reassembly, so that a strain rate dependent viscosity function bound
	// to it sees the updated flow.
	VelocityField *mesh.MeshVariable

	bcVals map[int]float64 // dof -> prescribed value
}

// gauss2 holds the 2 point Gauss rule per direction; weights are 1.
var gauss2 = [2]float64{-1 / math.Sqrt(3.), 1 / math.Sqrt(3.)}

// Assemble builds K, G, f and h for the current viscosity and body force.
// C is absent: the discretization is purely incompressible.
func (a *Assembler) Assemble() (sys *BlockSystem, err error) {
	var (
		m  = a.Mesh
		nu = 2 * m.NVertices()
		np = m.NElements()
	)
	a.bcVals = make(map[int]float64, len(a.BCs))
	for _, bc := range a.BCs {
		if bc.Component < 0 || bc.Component >= m.Dim {
			err = fmt.Errorf("boundary condition component %d out of range for a %dD mesh", bc.Component, m.Dim)
			return
		}
		a.bcVals[2*bc.Vertex+bc.Component] = bc.Value
	}

	// closures are built once against a representative sample input and
	// reused at every quadrature point
	sampleLocal := []float64{0, 0}
	sample := function.ElementLocal(m, 0, sampleLocal)
	visc, err := a.Viscosity.GetFunction(sample)
	if err != nil {
		err = fmt.Errorf("viscosity function rejected element local input: %s", err.Error())
		return
	}
	vio, err := visc(sample)
	if err != nil {
		return
	}
	if vio.Size() != 1 {
		err = fmt.Errorf("viscosity function must be scalar, produces size %d", vio.Size())
		return
	}
	body, err := a.BodyForce.GetFunction(sample)
	if err != nil {
		err = fmt.Errorf("body force function rejected element local input: %s", err.Error())
		return
	}
	bio, err := body(sample)
	if err != nil {
		return
	}
	if bio.Size() != m.Dim {
		err = fmt.Errorf("body force function must have %d components, produces size %d", m.Dim, bio.Size())
		return
	}

	var (
		Kd     = utils.NewDOK(nu, nu)
		Gd     = utils.NewDOK(nu, np)
		F      = utils.NewVector(nu)
		H      = utils.NewVector(np)
		dx, dy = m.ElementSize()
		detJ   = 0.25 * dx * dy
		rx, sy = 2 / dx, 2 / dy
	)

	for e := 0; e < m.NElements(); e++ {
		verts := m.ElementVertices(e)
		var (
			ke [4][4]float64    // per component diffusion block
			ge [4][2]float64    // divergence coupling per vertex and component
			fe [4][2]float64    // body force load per vertex and component
		)
		for _, gr := range gauss2 {
			for _, gs := range gauss2 {
				local := []float64{gr, gs}
				in := function.ElementLocal(m, e, local)
				vio, verr := visc(in)
				if verr != nil {
					err = fmt.Errorf("viscosity evaluation failed in element %d: %s", e, verr.Error())
					return
				}
				eta := vio.Data[0]
				bio, berr := body(in)
				if berr != nil {
					err = fmt.Errorf("body force evaluation failed in element %d: %s", e, berr.Error())
					return
				}
				bx, by := bio.Data[0], bio.Data[1]

				N, dNdx, dNdy := q1Basis(gr, gs, rx, sy)
				for i := 0; i < 4; i++ {
					for j := 0; j < 4; j++ {
						ke[i][j] += eta * (dNdx[i]*dNdx[j] + dNdy[i]*dNdy[j]) * detJ
					}
					ge[i][0] -= dNdx[i] * detJ
					ge[i][1] -= dNdy[i] * detJ
					fe[i][0] += N[i] * bx * detJ
					fe[i][1] += N[i] * by * detJ
				}
			}
		}
		// scatter with Dirichlet elimination: constrained rows are dropped,
		// constrained columns move to the rhs
		for i, vi := range verts {
			for c := 0; c < 2; c++ {
				row := 2*vi + c
				if _, constrained := a.bcVals[row]; constrained {
					continue
				}
				for j, vj := range verts {
					col := 2*vj + c
					if g, constrained := a.bcVals[col]; constrained {
						if g != 0 {
							F.SetVec(row, F.AtVec(row)-ke[i][j]*g)
						}
						continue
					}
					Kd.AddAt(row, col, ke[i][j])
				}
				Gd.AddAt(row, e, ge[i][c])
				F.SetVec(row, F.AtVec(row)+fe[i][c])
			}
			// continuity row: constrained velocity dofs contribute their
			// prescribed values to h
			for c := 0; c < 2; c++ {
				row := 2*vi + c
				if g, constrained := a.bcVals[row]; constrained && g != 0 {
					H.SetVec(e, H.AtVec(e)-ge[i][c]*g)
				}
			}
		}
	}
	// identity rows carry the prescribed values through the velocity solves
	for dof, g := range a.bcVals {
		Kd.Set(dof, dof, 1)
		F.SetVec(dof, g)
	}

	sys = &BlockSystem{
		K: Kd.ToCSR(),
		G: Gd.ToCSR(),
		F: F,
		H: H,
	}
	err = sys.Check()
	return
}

// q1Basis evaluates the bilinear basis and its global derivatives at the
// reference point (r,s); rx and sy are the constant reference to global
// derivative factors.
func q1Basis(r, s, rx, sy float64) (N, dNdx, dNdy [4]float64) {
	N = [4]float64{
		0.25 * (1 - r) * (1 - s),
		0.25 * (1 + r) * (1 - s),
		0.25 * (1 + r) * (1 + s),
		0.25 * (1 - r) * (1 + s),
	}
	dNdx = [4]float64{
		-0.25 * (1 - s) * rx,
		0.25 * (1 - s) * rx,
		0.25 * (1 + s) * rx,
		-0.25 * (1 + s) * rx,
	}
	dNdy = [4]float64{
		-0.25 * (1 - r) * sy,
		-0.25 * (1 + r) * sy,
		0.25 * (1 + r) * sy,
		0.25 * (1 - r) * sy,
	}
	return
}

// Update implements OperatorSource: scatter the velocity iterate into the
// bound field variable, then reassemble.
func (a *Assembler) Update(u utils.Vector) (sys *BlockSystem, err error) {
	if a.VelocityField != nil {
		a.ScatterVelocity(u, a.VelocityField)
	}
	return a.Assemble()
}

// ScatterVelocity writes a velocity dof vector into a two component mesh
// variable.
func (a *Assembler) ScatterVelocity(u utils.Vector, v *mesh.MeshVariable) {
	if v.NComponents != 2 {
		err := fmt.Errorf("velocity field must have 2 components, has %d", v.NComponents)
		panic(err)
	}
	for vtx := 0; vtx < a.Mesh.NVertices(); vtx++ {
		v.SetVertex(vtx, u.AtVec(2*vtx), u.AtVec(2*vtx+1))
	}
}

// ScatterPressure writes a pressure dof vector into a per element variable.
func (a *Assembler) ScatterPressure(p utils.Vector, v *mesh.ElementVariable) {
	if v.NComponents != 1 {
		err := fmt.Errorf("pressure field must have 1 component, has %d", v.NComponents)
		panic(err)
	}
	for e := 0; e < a.Mesh.NElements(); e++ {
		v.ElementValues(e)[0] = p.AtVec(e)
	}
}

// BoundaryBCs builds zero velocity conditions on every boundary vertex, the
// no slip box used by the benchmark problems.
func BoundaryBCs(m *mesh.FeMesh) (bcs []VelocityBC) {
	var (
		nvx, nvy = m.NX + 1, m.NY + 1
	)
	for j := 0; j < nvy; j++ {
		for i := 0; i < nvx; i++ {
			if i == 0 || i == nvx-1 || j == 0 || j == nvy-1 {
				vtx := j*nvx + i
				bcs = append(bcs,
					VelocityBC{Vertex: vtx, Component: 0},
					VelocityBC{Vertex: vtx, Component: 1})
			}
		}
	}
	return
}
