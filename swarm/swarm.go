// Package swarm holds per particle history variables, such as accumulated
// plastic strain, consumed read only by the function layer.
package swarm

import (
	"fmt"
)

// Swarm is a set of particles with named history variables indexed by
// particle id.
type Swarm struct {
	NParticles int
	Positions  []float64 // NParticles * dim
	Dim        int
	vars       map[string]*Variable
}

// Variable is a per particle array with NComponents values per particle.
type Variable struct {
	Name        string
	NComponents int
	Data        []float64
}

func New(nParticles, dim int) (s *Swarm) {
	s = &Swarm{
		NParticles: nParticles,
		Dim:        dim,
		Positions:  make([]float64, nParticles*dim),
		vars:       make(map[string]*Variable),
	}
	return
}

// AddVariable allocates a new history variable over the swarm.
func (s *Swarm) AddVariable(name string, nComponents int) (v *Variable) {
	if _, exists := s.vars[name]; exists {
		err := fmt.Errorf("swarm variable %q already exists", name)
		panic(err)
	}
	v = &Variable{
		Name:        name,
		NComponents: nComponents,
		Data:        make([]float64, s.NParticles*nComponents),
	}
	s.vars[name] = v
	return
}

// Variable looks up a history variable by name.
func (s *Swarm) Variable(name string) (v *Variable, err error) {
	v, ok := s.vars[name]
	if !ok {
		err = fmt.Errorf("swarm has no variable named %q", name)
	}
	return
}

// ParticleValues returns the component slice for particle id, backed by the
// variable storage. Callers must treat it as read only.
func (v *Variable) ParticleValues(id int) []float64 {
	return v.Data[id*v.NComponents : (id+1)*v.NComponents]
}
