package utils

// Index holds a list of indices, used for element incidence and dof maps.
type Index []int

func NewRangeIndex(min, max int) (I Index) {
	I = make(Index, max-min)
	for i := range I {
		I[i] = i + min
	}
	return
}

func (I Index) Copy() (R Index) {
	R = make(Index, len(I))
	copy(R, I)
	return
}

func (I Index) Contains(target int) bool {
	for _, val := range I {
		if val == target {
			return true
		}
	}
	return false
}
