package stokes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomech/mantle/utils"
)

// denseCSR builds a sparse block from row major dense data.
func denseCSR(rows, cols int, data []float64) utils.CSR {
	d := utils.NewDOK(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := data[i*cols+j]; v != 0 {
				d.Set(i, j, v)
			}
		}
	}
	return d.ToCSR()
}

func zeroCSR(n int) utils.CSR { return utils.NewDOK(n, n).ToCSR() }

// manufactured builds a diagonal model system with the known solution
// u = [0,0,3,4], p = [2,4].
func manufactured(withC bool) (sys *BlockSystem) {
	sys = &BlockSystem{
		K: denseCSR(4, 4, []float64{
			2, 0, 0, 0,
			0, 2, 0, 0,
			0, 0, 2, 0,
			0, 0, 0, 2,
		}),
		G: denseCSR(4, 2, []float64{
			1, 0,
			0, 1,
			0, 0,
			0, 0,
		}),
		F: utils.NewVector(4, []float64{2, 4, 6, 8}),
		H: utils.NewVector(2),
	}
	if withC {
		c := zeroCSR(2)
		sys.C = &c
	}
	return
}

func TestBlockSystemCheck(t *testing.T) {
	sys := manufactured(true)
	require.NoError(t, sys.Check())
	assert.Equal(t, 4, sys.NU())
	assert.Equal(t, 2, sys.NP())

	bad := manufactured(false)
	bad.K = denseCSR(4, 3, make([]float64, 12))
	assert.ErrorContains(t, bad.Check(), "must be square")

	bad = manufactured(false)
	bad.G = denseCSR(3, 2, make([]float64, 6))
	assert.ErrorContains(t, bad.Check(), "G row count")

	bad = manufactured(true)
	c := zeroCSR(3)
	bad.C = &c
	assert.ErrorContains(t, bad.Check(), "C must be")

	bad = manufactured(false)
	bad.F = utils.NewVector(3)
	assert.ErrorContains(t, bad.Check(), "f length")

	bad = manufactured(false)
	bad.H = utils.NewVector(3)
	assert.ErrorContains(t, bad.Check(), "h length")
}

func TestAugmentRestoreMaterializesC(t *testing.T) {
	sys := manufactured(false)
	require.Nil(t, sys.C)
	require.False(t, sys.Augmented())

	require.NoError(t, sys.AugmentC(10))
	require.True(t, sys.Augmented())
	require.NotNil(t, sys.C)
	assert.InDelta(t, 0.1, sys.C.At(0, 0), 1.e-14)
	assert.InDelta(t, 0.1, sys.C.At(1, 1), 1.e-14)

	// double augmentation must be refused
	assert.ErrorContains(t, sys.AugmentC(10), "already augmented")

	require.NoError(t, sys.RestoreC())
	assert.Nil(t, sys.C)
	assert.False(t, sys.Augmented())
}

func TestAugmentRestoreExistingC(t *testing.T) {
	sys := manufactured(false)
	c := denseCSR(2, 2, []float64{1, 0, 0, 2})
	sys.C = &c

	require.NoError(t, sys.AugmentC(4))
	assert.InDelta(t, 1.25, sys.C.At(0, 0), 1.e-14)
	assert.InDelta(t, 2.25, sys.C.At(1, 1), 1.e-14)

	require.NoError(t, sys.RestoreC())
	assert.InDelta(t, 1., sys.C.At(0, 0), 1.e-14)
	assert.InDelta(t, 2., sys.C.At(1, 1), 1.e-14)

	// restoring an unaugmented system is an error
	assert.ErrorContains(t, sys.RestoreC(), "not augmented")

	assert.ErrorContains(t, sys.AugmentC(0), "must be positive")
	assert.ErrorContains(t, sys.AugmentC(-1), "must be positive")
}

func TestApplyC(t *testing.T) {
	sys := manufactured(false)
	p := utils.NewVector(2, []float64{1, 2})

	// absent C acts as zero
	assert.Equal(t, 0., sys.ApplyC(p).Norm())

	c := denseCSR(2, 2, []float64{3, 0, 0, 4})
	sys.C = &c
	assert.Equal(t, []float64{3, 8}, sys.ApplyC(p).Data())
}

func TestResiduals(t *testing.T) {
	var (
		sys = manufactured(true)
		u   = utils.NewVector(4, []float64{0, 0, 3, 4})
		p   = utils.NewVector(2, []float64{2, 4})
	)
	mom, cont := sys.Residuals(u, p)
	assert.InDelta(t, 0., mom, 1.e-13)
	assert.InDelta(t, 0., cont, 1.e-13)

	// perturb the pressure: only the momentum residual reacts for C = 0
	p.SetVec(0, 3)
	mom, cont = sys.Residuals(u, p)
	assert.InDelta(t, 1., mom, 1.e-13)
	assert.InDelta(t, 0., cont, 1.e-13)
}
