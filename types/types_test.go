package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Test variant labels
		m, err := NewModel("NGL")
		assert.NoError(t, err)
		assert.Equal(t, NumericGL, m)
		m, err = NewModel("modified-london")
		assert.NoError(t, err)
		assert.Equal(t, ModifiedLondon, m)
		_, err = NewModel("bogus")
		assert.Error(t, err)

		s, err := NewSymmetry(" Triangular ")
		assert.NoError(t, err)
		assert.Equal(t, Triangular, s)
		s, err = NewSymmetry("SQ")
		assert.NoError(t, err)
		assert.Equal(t, Square, s)
		_, err = NewSymmetry("oblique")
		assert.Error(t, err)

		v := Variant{Model: NumericGL, Symmetry: Triangular, Film: true}
		assert.Equal(t, "FilmTriangularNumericGL", v.String())
		assert.Equal(t, "Model(9)", Model(9).String())
	}
	{ // Test arena views
		a := NewArena(8)
		f := a.Real("omega")
		f.Set(3, 2.5)
		assert.Equal(t, 2.5, a.Real("omega").At(3)) // same backing storage
		assert.Panics(t, func() { f.At(8) })
		assert.Panics(t, func() { f.Set(-1, 0) })

		s := a.Complex("A")
		s.LoadReal(f)
		assert.Equal(t, complex(2.5, 0), s.At(3))
		s.Set(3, complex(1, 2))
		g := a.Real("g")
		s.StoreReal(g)
		assert.Equal(t, 1., g.At(3))
		s.Zero()
		assert.Equal(t, complex(0, 0), s.At(3))
		assert.Equal(t, 8*8*2+16*8*1, a.Footprint())

		b := NewArena(4)
		assert.Panics(t, func() { s.CopyFrom(b.Complex("x")) })
		assert.Panics(t, func() { NewArena(0) })
	}
}
