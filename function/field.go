package function

import (
	"fmt"

	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/swarm"
)

// FieldValue evaluates a mesh variable at the sample input. Dispatch follows
// the information available in the input, decided once at closure
// construction: element local coordinates interpolate directly, vertex inputs
// on the same mesh read the nodal values, and bare global coordinates go
// through point location.
type FieldValue struct {
	Field *mesh.MeshVariable
}

func NewFieldValue(v *mesh.MeshVariable) *FieldValue { return &FieldValue{Field: v} }

func (f *FieldValue) GetFunction(sample Input) (Closure, error) {
	var (
		fv  = f.Field
		out = NewIO(fv.NComponents, shapeForSize(fv.NComponents))
	)
	if sample.Kind == KindElementLocal && sample.Mesh == fv.Mesh {
		return func(in Input) (*IO, error) {
			fv.Interpolate(in.Element, in.LocalCoord, out.Data)
			return out, nil
		}, nil
	}
	if sample.Kind == KindMeshVertex && sample.Mesh == fv.Mesh {
		return func(in Input) (*IO, error) {
			copy(out.Data, fv.VertexValues(in.Vertex))
			return out, nil
		}, nil
	}
	if sample.Kind == KindGlobalCoord {
		if len(sample.Coord) != fv.Mesh.Dim {
			return nil, fmt.Errorf("function input dimensionality (%d) does not appear to match mesh variable dimensionality (%d)",
				len(sample.Coord), fv.Mesh.Dim)
		}
		return func(in Input) (*IO, error) {
			e, local, status, err := fv.Mesh.Locate(in.Coord)
			if err != nil {
				return nil, err
			}
			if status != mesh.Local && status != mesh.Shadow {
				return nil, fmt.Errorf("field interpolation at location %v does not appear to be valid: %w", in.Coord, ErrOutsideDomain)
			}
			fv.Interpolate(e, local, out.Data)
			return out, nil
		}, nil
	}
	return nil, fmt.Errorf("field value function does not appear to be compatible with the provided input type")
}

// GradientField evaluates the gradient of a mesh variable. The closure branch
// is chosen in order of preference at construction time:
//
//  1. an element local coordinate on the field's own mesh interpolates
//     derivatives at that coordinate;
//  2. a vertex on the identical mesh interpolates using the LAST element in
//     the vertex's incidence list, a deterministic tie break;
//  3. a bare global coordinate is located in the domain, failing with a range
//     error when the point is neither local nor shadow.
//
// The output holds NComponents*Dim values: a Tensor for a multi component
// field, a Vector for a scalar field.
type GradientField struct {
	Field *mesh.MeshVariable
}

func NewGradientField(v *mesh.MeshVariable) *GradientField { return &GradientField{Field: v} }

func (g *GradientField) GetFunction(sample Input) (Closure, error) {
	var (
		fv   = g.Field
		dim  = fv.Mesh.Dim
		size = fv.NComponents * dim
	)
	iotype := Tensor
	if fv.NComponents == 1 {
		iotype = Vector
	}
	out := NewIO(size, iotype)

	if sample.Kind == KindElementLocal && sample.Mesh == fv.Mesh {
		return func(in Input) (*IO, error) {
			fv.InterpolateDerivatives(in.Element, in.LocalCoord, out.Data)
			return out, nil
		}, nil
	}

	if sample.Kind == KindMeshVertex && sample.Mesh == fv.Mesh {
		return func(in Input) (*IO, error) {
			inc := fv.Mesh.VertexElements(in.Vertex)
			// use the last element in the incidence list
			e := inc[len(inc)-1]
			local := fv.Mesh.CoordGlobalToLocal(e, fv.Mesh.Vertex(in.Vertex))
			fv.InterpolateDerivatives(e, local, out.Data)
			return out, nil
		}, nil
	}

	if sample.Kind == KindGlobalCoord {
		if len(sample.Coord) != dim {
			return nil, fmt.Errorf("function input dimensionality (%d) does not appear to match mesh variable dimensionality (%d)",
				len(sample.Coord), dim)
		}
		return func(in Input) (*IO, error) {
			e, local, status, err := fv.Mesh.Locate(in.Coord)
			if err != nil {
				return nil, err
			}
			if status != mesh.Local && status != mesh.Shadow {
				return nil, fmt.Errorf("derivative interpolation at location %v does not appear to be valid: %w", in.Coord, ErrOutsideDomain)
			}
			fv.InterpolateDerivatives(e, local, out.Data)
			return out, nil
		}, nil
	}

	return nil, fmt.Errorf("gradient function does not appear to be compatible with the provided input type")
}

// SwarmValue reads a per particle history variable, a leaf over the swarm
// store.
type SwarmValue struct {
	Variable *swarm.Variable
}

func NewSwarmValue(v *swarm.Variable) *SwarmValue { return &SwarmValue{Variable: v} }

func (s *SwarmValue) GetFunction(sample Input) (Closure, error) {
	if sample.Kind != KindParticle {
		return nil, fmt.Errorf("swarm variable function requires a particle input")
	}
	var (
		v   = s.Variable
		out = NewIO(v.NComponents, shapeForSize(v.NComponents))
	)
	return func(in Input) (*IO, error) {
		copy(out.Data, v.ParticleValues(in.Particle))
		return out, nil
	}, nil
}
