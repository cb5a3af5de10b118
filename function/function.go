// Package function provides a composable graph of typed function nodes,
// evaluated lazily at sample points. A node validates its children once, at
// GetFunction time, and returns a closure that can be evaluated repeatedly for
// inputs of the same validated kind and shape. Changing the effective shape
// requires constructing a new closure.
//
// Graphs are acyclic by construction: a node can only reference functions that
// already exist when it is built.
package function

import (
	"errors"
	"fmt"

	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/swarm"
)

// IOType describes the shape class of a function value.
type IOType int

const (
	Scalar IOType = iota
	Vector
	Tensor
)

func (t IOType) String() string {
	switch t {
	case Scalar:
		return "Scalar"
	case Vector:
		return "Vector"
	default:
		return "Tensor"
	}
}

// IO is a value descriptor: a typed, fixed size slice of doubles. Closures
// reuse their IO output buffer between evaluations; callers that retain
// results must copy them.
type IO struct {
	Type IOType
	Data []float64
}

func NewIO(size int, t IOType) *IO {
	return &IO{Type: t, Data: make([]float64, size)}
}

func (io *IO) Size() int { return len(io.Data) }

// InputKind discriminates the sample input union. The kinds mirror the
// coordinate tokens a field evaluation can receive, in decreasing order of
// available information.
type InputKind int

const (
	// KindElementLocal - an element index plus local reference coordinates
	KindElementLocal InputKind = iota
	// KindMeshVertex - a vertex index on a known mesh
	KindMeshVertex
	// KindGlobalCoord - a bare global coordinate
	KindGlobalCoord
	// KindParticle - a particle id within a swarm
	KindParticle
)

// Input is the tagged union of sample inputs dispatched on at closure
// construction time. Inputs are immutable for the duration of a call.
type Input struct {
	Kind       InputKind
	Mesh       *mesh.FeMesh
	Element    int
	LocalCoord []float64
	Vertex     int
	Coord      []float64
	Swarm      *swarm.Swarm
	Particle   int
}

// ElementLocal builds an element local coordinate input.
func ElementLocal(m *mesh.FeMesh, element int, local []float64) Input {
	return Input{Kind: KindElementLocal, Mesh: m, Element: element, LocalCoord: local}
}

// MeshVertex builds a mesh vertex input.
func MeshVertex(m *mesh.FeMesh, vertex int) Input {
	return Input{Kind: KindMeshVertex, Mesh: m, Vertex: vertex}
}

// GlobalCoord builds a bare global coordinate input.
func GlobalCoord(coord ...float64) Input {
	return Input{Kind: KindGlobalCoord, Coord: coord}
}

// Particle builds a swarm particle input.
func Particle(s *swarm.Swarm, id int) Input {
	return Input{Kind: KindParticle, Swarm: s, Particle: id}
}

// GlobalCoordinate resolves the input to a global coordinate where possible.
func (in Input) GlobalCoordinate() (x []float64, err error) {
	switch in.Kind {
	case KindGlobalCoord:
		x = in.Coord
	case KindMeshVertex:
		x = in.Mesh.Vertex(in.Vertex)
	case KindElementLocal:
		x = localToGlobal(in.Mesh, in.Element, in.LocalCoord)
	case KindParticle:
		if in.Swarm.Dim == 0 {
			err = errors.New("particle input carries no coordinate")
			return
		}
		x = in.Swarm.Positions[in.Particle*in.Swarm.Dim : (in.Particle+1)*in.Swarm.Dim]
	}
	return
}

func localToGlobal(m *mesh.FeMesh, e int, local []float64) []float64 {
	var (
		ll     = m.Vertex(m.ElementVertices(e)[0])
		dx, dy = m.ElementSize()
	)
	return []float64{
		ll[0] + 0.5*(local[0]+1)*dx,
		ll[1] + 0.5*(local[1]+1)*dy,
	}
}

// Closure evaluates one node for one input. Closures are safe to call
// repeatedly with inputs of the kind and shape validated at construction, from
// a single goroutine.
type Closure func(in Input) (*IO, error)

// Function is a node in the evaluation graph.
type Function interface {
	// GetFunction validates the node against the sample input and returns an
	// evaluation closure. Type and shape mismatches are reported here, not at
	// evaluation time.
	GetFunction(sample Input) (Closure, error)
}

// ErrOutsideDomain marks a recoverable range error: the evaluation point is
// not within the local or shadow domain.
var ErrOutsideDomain = errors.New("point outside local domain")

// Evaluate builds a closure for in and evaluates it once. Prefer holding the
// closure when evaluating many points of the same kind.
func Evaluate(fn Function, in Input) (out *IO, err error) {
	f, err := fn.GetFunction(in)
	if err != nil {
		return
	}
	return f(in)
}

func shapeForSize(size int) IOType {
	switch size {
	case 1:
		return Scalar
	default:
		return Vector
	}
}

func checkSameSize(ctx string, a, b *IO) error {
	if a.Size() != b.Size() {
		return fmt.Errorf("%s: operand sizes differ (%d vs %d)", ctx, a.Size(), b.Size())
	}
	return nil
}
