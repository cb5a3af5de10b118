package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK wraps a dictionary-of-keys sparse matrix for assembly. Convert to CSR
// before handing it to a solver.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, val float64) DOK {
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

// AddAt accumulates val into entry (i,j), the usual FEM assembly operation.
func (m DOK) AddAt(i, j int, val float64) DOK {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

// CSR wraps a compressed sparse row matrix, the operator storage format handed
// to the solvers.
type CSR struct {
	M    *sparse.CSR
	name string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix       { return m.M.T() }

func (m CSR) NNZ() int { return m.M.NNZ() }

// MulVec computes R = M * v.
func (m CSR) MulVec(v Vector) (R Vector) {
	var (
		nr, nc = m.Dims()
	)
	if nc != v.Len() {
		err := fmt.Errorf("dimension mismatch in MulVec: matrix is %dx%d, vector length %d", nr, nc, v.Len())
		panic(err)
	}
	R = NewVector(nr)
	var (
		vD = v.Data()
		rD = R.Data()
	)
	m.M.DoNonZero(func(i, j int, val float64) {
		rD[i] += val * vD[j]
	})
	return
}

// MulVecT computes R = Mᵀ * v without forming the transpose.
func (m CSR) MulVecT(v Vector) (R Vector) {
	var (
		nr, nc = m.Dims()
	)
	if nr != v.Len() {
		err := fmt.Errorf("dimension mismatch in MulVecT: matrix is %dx%d, vector length %d", nr, nc, v.Len())
		panic(err)
	}
	R = NewVector(nc)
	var (
		vD = v.Data()
		rD = R.Data()
	)
	m.M.DoNonZero(func(i, j int, val float64) {
		rD[j] += val * vD[i]
	})
	return
}

// Diagonal returns the matrix diagonal as a dense vector.
func (m CSR) Diagonal() (D Vector) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		err := fmt.Errorf("diagonal of a non-square matrix: %dx%d", nr, nc)
		panic(err)
	}
	D = NewVector(nr)
	dD := D.Data()
	m.M.DoNonZero(func(i, j int, val float64) {
		if i == j {
			dD[i] = val
		}
	})
	return
}

// ToDense expands the sparse matrix, used by the serial direct solvers.
func (m CSR) ToDense() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	m.M.DoNonZero(func(i, j int, val float64) {
		R.M.Set(i, j, val)
	})
	return
}
