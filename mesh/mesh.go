package mesh

import (
	"fmt"

	"github.com/geomech/mantle/utils"
)

// Status reports the outcome of a point location query.
type Status int

const (
	// Local - the point lies in an element owned by this process
	Local Status = iota
	// Shadow - the point lies in a halo element borrowed from a neighbour
	Shadow
	// Outside - the point is not in the local or shadow domain
	Outside
)

func (s Status) String() string {
	switch s {
	case Local:
		return "Local"
	case Shadow:
		return "Shadow"
	default:
		return "Outside"
	}
}

// FeMesh is a structured Cartesian Q1 mesh on a rectangle. Elements are
// numbered row major from the lower left corner, vertices likewise.
//
// The owned element count models the distributed partition boundary: elements
// below Owned are local, the remainder are shadow copies. A serial mesh owns
// everything.
type FeMesh struct {
	Dim        int
	NX, NY     int // element counts per direction
	XMin, XMax float64
	YMin, YMax float64
	Owned      int // elements [0,Owned) are locally owned

	dx, dy    float64
	verts     []float64     // vertex coordinates, Dim per vertex
	elemVerts [][4]int      // connectivity, counter clockwise from lower left
	vertElems []utils.Index // incident elements per vertex, ascending element index
}

func NewCartesian(nx, ny int, xmin, xmax, ymin, ymax float64) (m *FeMesh) {
	if nx < 1 || ny < 1 {
		err := fmt.Errorf("mesh must have at least one element per direction, have %dx%d", nx, ny)
		panic(err)
	}
	m = &FeMesh{
		Dim:  2,
		NX:   nx,
		NY:   ny,
		XMin: xmin, XMax: xmax,
		YMin: ymin, YMax: ymax,
		Owned: nx * ny,
		dx:    (xmax - xmin) / float64(nx),
		dy:    (ymax - ymin) / float64(ny),
	}
	var (
		nvx, nvy = nx + 1, ny + 1
	)
	m.verts = make([]float64, 2*nvx*nvy)
	for j := 0; j < nvy; j++ {
		for i := 0; i < nvx; i++ {
			v := j*nvx + i
			m.verts[2*v] = xmin + float64(i)*m.dx
			m.verts[2*v+1] = ymin + float64(j)*m.dy
		}
	}
	m.elemVerts = make([][4]int, nx*ny)
	m.vertElems = make([]utils.Index, nvx*nvy)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			e := j*nx + i
			ll := j*nvx + i
			m.elemVerts[e] = [4]int{ll, ll + 1, ll + nvx + 1, ll + nvx}
			for _, v := range m.elemVerts[e] {
				m.vertElems[v] = append(m.vertElems[v], e)
			}
		}
	}
	return
}

func (m *FeMesh) NElements() int { return m.NX * m.NY }
func (m *FeMesh) NVertices() int { return (m.NX + 1) * (m.NY + 1) }

// Vertex returns the global coordinates of vertex v.
func (m *FeMesh) Vertex(v int) []float64 {
	return m.verts[2*v : 2*v+2]
}

// ElementVertices returns the four vertex ids of element e, counter clockwise
// from the lower left corner.
func (m *FeMesh) ElementVertices(e int) [4]int {
	return m.elemVerts[e]
}

// VertexElements returns the elements incident to vertex v in ascending
// element order. The returned slice is owned by the mesh.
func (m *FeMesh) VertexElements(v int) utils.Index {
	return m.vertElems[v]
}

// ElementSize returns the element extents, constant on a Cartesian mesh.
func (m *FeMesh) ElementSize() (dx, dy float64) {
	return m.dx, m.dy
}

// CoordGlobalToLocal maps a global coordinate to the reference coordinates
// [-1,1]^2 of element e. The point need not lie inside the element.
func (m *FeMesh) CoordGlobalToLocal(e int, x []float64) (local []float64) {
	var (
		ll = m.Vertex(m.elemVerts[e][0])
	)
	local = []float64{
		2*(x[0]-ll[0])/m.dx - 1,
		2*(x[1]-ll[1])/m.dy - 1,
	}
	return
}

// Locate finds the element containing the global coordinate x and its local
// reference coordinates. Points outside the mesh bounding box report Outside.
// A dimension mismatch is an input validation error, raised before any search.
func (m *FeMesh) Locate(x []float64) (e int, local []float64, status Status, err error) {
	if len(x) != m.Dim {
		err = fmt.Errorf("coordinate dimensionality (%d) does not match mesh dimensionality (%d)", len(x), m.Dim)
		return
	}
	// negated form so non finite coordinates (NaN, ±Inf) report Outside
	// instead of falling through to the index arithmetic
	if !(x[0] >= m.XMin && x[0] <= m.XMax) || !(x[1] >= m.YMin && x[1] <= m.YMax) {
		status = Outside
		e = -1
		return
	}
	i := int((x[0] - m.XMin) / m.dx)
	j := int((x[1] - m.YMin) / m.dy)
	// points on the upper boundaries belong to the last element row/column
	if i == m.NX {
		i--
	}
	if j == m.NY {
		j--
	}
	e = j*m.NX + i
	local = m.CoordGlobalToLocal(e, x)
	if e < m.Owned {
		status = Local
	} else {
		status = Shadow
	}
	return
}
