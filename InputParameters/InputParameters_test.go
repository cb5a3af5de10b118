package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	var (
		yamlInput = `
Title: "Layered viscosity benchmark"
NX: 16
NY: 8
ViscosityContrast: 1.e6
Penalty: 100.
NonLinear: true
`
	)
	sp := DefaultParameters()
	require.NoError(t, sp.Parse([]byte(yamlInput)))
	assert.Equal(t, "Layered viscosity benchmark", sp.Title)
	assert.Equal(t, 16, sp.NX)
	assert.Equal(t, 8, sp.NY)
	assert.Equal(t, 1.e6, sp.ViscosityContrast)
	assert.Equal(t, 100., sp.Penalty)
	assert.True(t, sp.NonLinear)

	// fields absent from the input keep their defaults
	assert.Equal(t, "cholesky", sp.InnerMethod)
	assert.Equal(t, "fgmres", sp.OuterMethod)
	assert.Equal(t, 1.e-7, sp.OuterRTol)
	assert.True(t, sp.RemoveNullSpace)
	assert.Equal(t, 500, sp.NonLinearMaxIts)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	sp := DefaultParameters()
	assert.Error(t, sp.Parse([]byte("NX: [not, an, int]")))
}
