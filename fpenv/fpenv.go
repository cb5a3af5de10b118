// Package fpenv models the floating point exception environment as an explicit
// sticky flag register. Checked operations and value classification raise
// flags; Hold and Update mirror the feholdexcept/feupdateenv save, clear and
// merge-restore protocol so a guarded evaluation can be bracketed without
// disturbing the caller's accumulated state.
//
// The environment is process global and single threaded, matching the one
// logical thread of control per process that the numerical kernels assume.
package fpenv

import (
	"math"
	"strings"
)

// Flags is a bitmask of floating point fault conditions.
type Flags uint8

const (
	DivByZero Flags = 1 << iota
	Invalid
	Overflow
	Underflow
)

// All covers every fault condition tested by guarded evaluation.
const All = DivByZero | Invalid | Overflow | Underflow

func (f Flags) String() string {
	var parts []string
	if f&DivByZero != 0 {
		parts = append(parts, "Divide by zero")
	}
	if f&Invalid != 0 {
		parts = append(parts, "Invalid domain")
	}
	if f&Overflow != 0 {
		parts = append(parts, "Value overflow")
	}
	if f&Underflow != 0 {
		parts = append(parts, "Value underflow")
	}
	return strings.Join(parts, ", ")
}

var current Flags

// Raise sets the given fault flags in the environment.
func Raise(f Flags) { current |= f }

// Test reports which of the given flags are currently set.
func Test(f Flags) Flags { return current & f }

// Clear clears all fault flags.
func Clear() { current = 0 }

// Env is a saved copy of the environment, returned by Hold.
type Env struct {
	saved Flags
}

// Hold saves the current environment and clears the flags, so faults raised
// inside the guarded region can be inspected in isolation.
func Hold() Env {
	e := Env{saved: current}
	current = 0
	return e
}

// Update merges the flags raised since Hold back into the saved environment
// and reinstates it, the feupdateenv half of the protocol. Safe to call on
// every exit path.
func (e Env) Update() {
	current |= e.saved
}

// Restore reinstates the saved environment, discarding flags raised since Hold.
func (e Env) Restore() {
	current = e.saved
}

// Classify raises the flags implied by the value v: NaN raises Invalid, ±Inf
// raises Overflow, and a subnormal raises Underflow. It returns the flags
// raised for this value.
func Classify(v float64) (f Flags) {
	switch {
	case math.IsNaN(v):
		f = Invalid
	case math.IsInf(v, 0):
		f = Overflow
	case v != 0 && math.Abs(v) < minNormal:
		f = Underflow
	}
	Raise(f)
	return
}

const minNormal = 2.2250738585072014e-308 // smallest positive normal float64

// Div computes a/b, raising DivByZero or Invalid as the hardware would.
func Div(a, b float64) float64 {
	if b == 0 {
		if a == 0 || math.IsNaN(a) {
			Raise(Invalid)
		} else {
			Raise(DivByZero)
		}
		return a / b
	}
	r := a / b
	Classify(r)
	return r
}

// Sqrt computes the square root, raising Invalid for negative arguments.
func Sqrt(a float64) float64 {
	if a < 0 {
		Raise(Invalid)
	}
	return math.Sqrt(a)
}

// Log computes the natural logarithm, raising DivByZero at zero and Invalid
// for negative arguments.
func Log(a float64) float64 {
	switch {
	case a == 0:
		Raise(DivByZero)
	case a < 0:
		Raise(Invalid)
	}
	return math.Log(a)
}

// Pow computes a**b with overflow and invalid domain detection.
func Pow(a, b float64) float64 {
	r := math.Pow(a, b)
	Classify(r)
	return r
}
