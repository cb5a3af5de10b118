package utils

import (
	"bytes"
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

func NewDiagMatrix(n int, diag []float64) (R Matrix) {
	R = NewMatrix(n, n)
	for i := 0; i < n; i++ {
		R.M.Set(i, i, diag[i])
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }

func (m Matrix) IsEmpty() bool { return m.M == nil }

// ToDense satisfies the dense expansion interface used by the direct solvers.
func (m Matrix) ToDense() Matrix { return m }

// Diagonal returns the matrix diagonal as a dense vector.
func (m Matrix) Diagonal() (D Vector) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		err := fmt.Errorf("diagonal of a non-square matrix: %dx%d", nr, nc)
		panic(err)
	}
	D = NewVector(nr)
	for i := 0; i < nr; i++ {
		D.V.SetVec(i, m.M.At(i, i))
	}
	return
}

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m *Matrix) SetWritable() Matrix {
	m.readOnly = false
	return *m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, data)
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for j := 0; j < nc; j++ {
		for i := 0; i < nr; i++ {
			R.M.Set(j, i, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return R
}

func (m Matrix) MulVec(v Vector) (R Vector) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	if nc != v.Len() {
		err := fmt.Errorf("dimension mismatch in MulVec: matrix is %dx%d, vector length %d", nr, nc, v.Len())
		panic(err)
	}
	R = NewVector(nr)
	R.V.MulVec(m.M, v.V)
	return
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Add(m.M, A.M)
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Sub(m.M, A.M)
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Scale(a, m.M)
	return m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) AddAt(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix { // Changes receiver
	var (
		data = m.Data()
	)
	m.checkWritable()
	for i, val := range data {
		data[i] = f(val)
	}
	return m
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("cannot invert a non-square matrix: %dx%d", nr, nc)
		return
	}
	R = NewMatrix(nr, nc)
	if err = R.M.Inverse(m.M); err != nil {
		err = fmt.Errorf("unable to invert matrix: %s", err.Error())
	}
	return
}

func (m Matrix) Col(j int) (V Vector) {
	var (
		nr, _ = m.Dims()
	)
	V = NewVector(nr)
	for i := 0; i < nr; i++ {
		V.V.SetVec(i, m.M.At(i, j))
	}
	return
}

func (m Matrix) Row(i int) (V Vector) {
	var (
		_, nc = m.Dims()
	)
	V = NewVector(nc)
	for j := 0; j < nc; j++ {
		V.V.SetVec(j, m.M.At(i, j))
	}
	return
}

func (m Matrix) Print(msgI ...string) (o string) {
	var (
		buf bytes.Buffer
		msg string
	)
	if len(msgI) != 0 {
		msg = msgI[0]
	}
	buf.WriteString(fmt.Sprintf("%s = \n%8.5f\n", msg, mat.Formatted(m.M, mat.Squeeze())))
	o = buf.String()
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
