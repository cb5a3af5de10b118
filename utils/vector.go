package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (V Vector) {
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v\n", n, len(dataO[0]))
			panic(err)
		}
		V = Vector{mat.NewVecDense(n, dataO[0])}
	} else {
		V = Vector{mat.NewVecDense(n, make([]float64, n))}
	}
	return
}

func NewVectorConst(n int, val float64) (V Vector) {
	V = NewVector(n)
	for i := 0; i < n; i++ {
		V.V.SetVec(i, val)
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Data() []float64          { return v.V.RawVector().Data }

func (v Vector) Copy() (R Vector) {
	R = NewVector(v.Len())
	R.V.CopyVec(v.V)
	return
}

func (v Vector) Set(val float64) Vector { // Changes receiver
	var (
		data = v.Data()
	)
	for i := range data {
		data[i] = val
	}
	return v
}

func (v Vector) SetVec(i int, val float64) Vector { // Changes receiver
	v.V.SetVec(i, val)
	return v
}

func (v Vector) Add(a Vector) Vector { // Changes receiver
	v.V.AddVec(v.V, a.V)
	return v
}

func (v Vector) Subtract(a Vector) Vector { // Changes receiver
	v.V.SubVec(v.V, a.V)
	return v
}

func (v Vector) Scale(a float64) Vector { // Changes receiver
	v.V.ScaleVec(a, v.V)
	return v
}

// AXPY adds a*x to the receiver in place.
func (v Vector) AXPY(a float64, x Vector) Vector { // Changes receiver
	v.V.AddScaledVec(v.V, a, x.V)
	return v
}

func (v Vector) Dot(a Vector) float64 {
	return mat.Dot(v.V, a.V)
}

func (v Vector) Norm() float64 {
	return mat.Norm(v.V, 2)
}

func (v Vector) Mean() (mean float64) {
	var (
		data = v.Data()
	)
	for _, val := range data {
		mean += val
	}
	mean /= float64(len(data))
	return
}

func (v Vector) Min() (min float64) {
	var (
		data = v.Data()
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	var (
		data = v.Data()
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

func (v Vector) Apply(f func(float64) float64) Vector { // Changes receiver
	var (
		data = v.Data()
	)
	for i, val := range data {
		data[i] = f(val)
	}
	return v
}

func (v Vector) Print(msgI ...string) (o string) {
	var (
		msg string
	)
	if len(msgI) != 0 {
		msg = msgI[0]
	}
	o = fmt.Sprintf("%s = \n%8.5f\n", msg, mat.Formatted(v.V, mat.Squeeze()))
	return
}

// VecMaxAbsDiff returns the largest elementwise absolute difference between a and b.
func VecMaxAbsDiff(a, b Vector) (max float64) {
	var (
		aD, bD = a.Data(), b.Data()
	)
	if len(aD) != len(bD) {
		err := fmt.Errorf("dimension mismatch: len(a) = %d, len(b) = %d", len(aD), len(bD))
		panic(err)
	}
	for i, val := range aD {
		if d := math.Abs(val - bD[i]); d > max {
			max = d
		}
	}
	return
}
