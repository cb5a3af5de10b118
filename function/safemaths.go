package function

import (
	"fmt"

	"github.com/geomech/mantle/fpenv"
)

// SafeMaths brackets the evaluation of its argument function with floating
// point fault tracking. The prior fault state is held before the call and
// reinstated on every exit path; faults raised by the wrapped evaluation are
// converted into a descriptive error naming each condition that fired, never
// propagated as silently corrupted values.
type SafeMaths struct {
	Fn Function
}

func NewSafeMaths(fn Function) *SafeMaths { return &SafeMaths{Fn: fn} }

func (s *SafeMaths) GetFunction(sample Input) (Closure, error) {
	inner, err := s.Fn.GetFunction(sample)
	if err != nil {
		return nil, err
	}
	return func(in Input) (*IO, error) {
		env := fpenv.Hold()

		out, err := inner(in)
		if err != nil {
			env.Update()
			return nil, err
		}
		// classify results too - faults produced by unchecked operations
		// still surface through their values
		for _, v := range out.Data {
			fpenv.Classify(v)
		}
		if flags := fpenv.Test(fpenv.All); flags != 0 {
			env.Restore()
			return nil, fmt.Errorf("floating point exception(s) encountered while evaluating SafeMaths argument function: %s", flags)
		}
		env.Update()
		return out, nil
	}, nil
}
