package function

import (
	"fmt"

	"github.com/geomech/mantle/fpenv"
)

// Constant returns a fixed value for every input.
type Constant struct {
	Values []float64
	Type   IOType
}

func NewConstant(vals ...float64) *Constant {
	return &Constant{Values: vals, Type: shapeForSize(len(vals))}
}

func (c *Constant) GetFunction(_ Input) (Closure, error) {
	if len(c.Values) == 0 {
		return nil, fmt.Errorf("constant function has no values")
	}
	out := NewIO(len(c.Values), c.Type)
	vals := c.Values
	return func(_ Input) (*IO, error) {
		copy(out.Data, vals)
		return out, nil
	}, nil
}

// Coord evaluates to the global coordinate of the sample input.
type Coord struct{}

func NewCoord() *Coord { return &Coord{} }

func (c *Coord) GetFunction(sample Input) (Closure, error) {
	x, err := sample.GlobalCoordinate()
	if err != nil {
		return nil, fmt.Errorf("coordinate function is not compatible with the provided input: %s", err.Error())
	}
	out := NewIO(len(x), Vector)
	return func(in Input) (*IO, error) {
		x, err := in.GlobalCoordinate()
		if err != nil {
			return nil, err
		}
		copy(out.Data, x)
		return out, nil
	}, nil
}

// At extracts a single component from its argument function. With a nil
// argument it extracts from the input itself.
type At struct {
	Fn        Function
	Component int
}

func NewAt(fn Function, component int) *At {
	return &At{Fn: fn, Component: component}
}

func (a *At) GetFunction(sample Input) (Closure, error) {
	inner, err := a.child(sample)
	if err != nil {
		return nil, err
	}
	probe, err := inner(sample)
	if err != nil {
		return nil, err
	}
	if a.Component < 0 || a.Component >= probe.Size() {
		return nil, fmt.Errorf("trying to extract component %d from object with size %d: index must be in [0,%d]",
			a.Component, probe.Size(), probe.Size()-1)
	}
	out := NewIO(1, Scalar)
	k := a.Component
	return func(in Input) (*IO, error) {
		io, err := inner(in)
		if err != nil {
			return nil, err
		}
		out.Data[0] = io.Data[k]
		return out, nil
	}, nil
}

func (a *At) child(sample Input) (Closure, error) {
	if a.Fn == nil {
		// no argument: pass the input coordinate straight through
		return NewCoord().GetFunction(sample)
	}
	return a.Fn.GetFunction(sample)
}

// MathUnary applies an elementwise operation to its argument function.
type MathUnary struct {
	Fn   Function
	Name string
	Op   func(float64) float64
}

func NewMathUnary(fn Function, name string, op func(float64) float64) *MathUnary {
	return &MathUnary{Fn: fn, Name: name, Op: op}
}

func (u *MathUnary) GetFunction(sample Input) (Closure, error) {
	inner, err := u.Fn.GetFunction(sample)
	if err != nil {
		return nil, err
	}
	probe, err := inner(sample)
	if err != nil {
		return nil, err
	}
	out := NewIO(probe.Size(), probe.Type)
	op := u.Op
	return func(in Input) (*IO, error) {
		io, err := inner(in)
		if err != nil {
			return nil, err
		}
		for i, v := range io.Data {
			out.Data[i] = op(v)
		}
		return out, nil
	}, nil
}

// BinaryOp identifies an elementwise binary operation.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpDot
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	default:
		return "dot"
	}
}

// Binary combines two argument functions elementwise. Scalar operands
// broadcast against vector operands; otherwise sizes must agree. Division
// raises floating point fault flags through fpenv, so a SafeMaths wrapper can
// report them.
type Binary struct {
	A, B Function
	Op   BinaryOp
}

func NewBinary(a, b Function, op BinaryOp) *Binary {
	return &Binary{A: a, B: b, Op: op}
}

func Add(a, b Function) *Binary      { return NewBinary(a, b, OpAdd) }
func Subtract(a, b Function) *Binary { return NewBinary(a, b, OpSubtract) }
func Multiply(a, b Function) *Binary { return NewBinary(a, b, OpMultiply) }
func Divide(a, b Function) *Binary   { return NewBinary(a, b, OpDivide) }
func Dot(a, b Function) *Binary      { return NewBinary(a, b, OpDot) }

func (b *Binary) GetFunction(sample Input) (Closure, error) {
	fa, err := b.A.GetFunction(sample)
	if err != nil {
		return nil, err
	}
	fb, err := b.B.GetFunction(sample)
	if err != nil {
		return nil, err
	}
	pa, err := fa(sample)
	if err != nil {
		return nil, err
	}
	pb, err := fb(sample)
	if err != nil {
		return nil, err
	}
	var (
		na, nb = pa.Size(), pb.Size()
		ctx    = fmt.Sprintf("binary %s", b.Op)
	)
	if b.Op == OpDot {
		if err = checkSameSize(ctx, pa, pb); err != nil {
			return nil, err
		}
		out := NewIO(1, Scalar)
		return func(in Input) (*IO, error) {
			ia, err := fa(in)
			if err != nil {
				return nil, err
			}
			ib, err := fb(in)
			if err != nil {
				return nil, err
			}
			var sum float64
			for i, v := range ia.Data {
				sum += v * ib.Data[i]
			}
			out.Data[0] = sum
			return out, nil
		}, nil
	}
	if na != nb && na != 1 && nb != 1 {
		return nil, fmt.Errorf("%s: operand sizes %d and %d are incompatible (must match or broadcast from scalar)",
			ctx, na, nb)
	}
	n := na
	if nb > n {
		n = nb
	}
	t := pa.Type
	if pb.Size() > pa.Size() {
		t = pb.Type
	}
	out := NewIO(n, t)
	op := b.Op
	return func(in Input) (*IO, error) {
		ia, err := fa(in)
		if err != nil {
			return nil, err
		}
		ib, err := fb(in)
		if err != nil {
			return nil, err
		}
		for i := range out.Data {
			av := ia.Data[i%na]
			bv := ib.Data[i%nb]
			switch op {
			case OpAdd:
				out.Data[i] = av + bv
			case OpSubtract:
				out.Data[i] = av - bv
			case OpMultiply:
				out.Data[i] = av * bv
			case OpDivide:
				out.Data[i] = fpenv.Div(av, bv)
			}
		}
		return out, nil
	}, nil
}
