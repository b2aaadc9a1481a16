// Package lattice holds the physical parameters of a vortex lattice and the
// reciprocal-lattice tables derived from them.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/aPeter1/musrfit-fork-sub008/types"
)

const (
	FluxQuantum = 2.067833848e7 // G nm^2
	sqrt3       = 1.7320508075688772
)

var (
	ErrParameterCount   = errors.New("wrong number of lattice parameters")
	ErrMissingParameter = errors.New("field, penetration depth and coherence length must be finite and non-zero")
	ErrMissingThickness = errors.New("film thickness must be finite and non-zero")
)

// Parameters in Gauss and nm, in the positional order {field, lambda, xi, [thickness]}
type Parameters struct {
	Field     float64
	Lambda    float64
	Xi        float64
	Thickness float64
}

func NewParameters(values []float64, film bool) (p Parameters, err error) {
	want := 3
	if film {
		want = 4
	}
	if len(values) != want {
		err = fmt.Errorf("%w: have %d, want %d {field, lambda, xi%s}", ErrParameterCount,
			len(values), want, map[bool]string{true: ", thickness", false: ""}[film])
		return
	}
	p = Parameters{Field: values[0], Lambda: values[1], Xi: values[2]}
	if film {
		p.Thickness = values[3]
	}
	return
}

func (p Parameters) Validate(film bool) (err error) {
	for _, v := range []float64{p.Field, p.Lambda, p.Xi} {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrMissingParameter
		}
	}
	if film && (p.Thickness == 0 || math.IsNaN(p.Thickness) || math.IsInf(p.Thickness, 0)) {
		return ErrMissingThickness
	}
	return
}

// Hc2 is the upper critical field Phi0/(2 pi xi^2) in Gauss
func (p Parameters) Hc2() float64 {
	xi := math.Abs(p.Xi)
	return FluxQuantum / (2 * math.Pi * xi * xi)
}

func (p Parameters) Kappa() float64 {
	return math.Abs(p.Lambda) / math.Abs(p.Xi)
}

// ReducedField is b = B/Hc2
func (p Parameters) ReducedField() float64 {
	return math.Abs(p.Field) / p.Hc2()
}

// ScaledField is the average induction in units of Hc2/kappa, where Hc2 = kappa
func (p Parameters) ScaledField() float64 {
	return p.Kappa() * p.ReducedField()
}

// IsNormalState reports field >= Hc2 or a non type-II ratio lambda < xi/sqrt(2).
// Both are solved by the uniform field without vortices.
func (p Parameters) IsNormalState() bool {
	return math.Abs(p.Field) >= p.Hc2() || math.Abs(p.Lambda) < math.Abs(p.Xi)/math.Sqrt2
}

// LatticeConstant in units of lambda, for average induction scaledB in units of Hc2/kappa
func LatticeConstant(sym types.Symmetry, kappa, scaledB float64) float64 {
	switch sym {
	case types.Square:
		return math.Sqrt(2 * math.Pi / (kappa * scaledB))
	default:
		return math.Sqrt(4 * math.Pi / (sqrt3 * kappa * scaledB))
	}
}

// LatticeConstant in nm
func (p Parameters) LatticeConstant(sym types.Symmetry) float64 {
	return LatticeConstant(sym, p.Kappa(), p.ScaledField()) * math.Abs(p.Lambda)
}

func (p Parameters) Print() string {
	return fmt.Sprintf("B = %8.3f G, lambda = %8.3f nm, xi = %8.3f nm, d = %8.3f nm, kappa = %8.4f, Hc2 = %10.3f G, b = %10.6f",
		p.Field, p.Lambda, p.Xi, p.Thickness, p.Kappa(), p.Hc2(), p.ReducedField())
}

/*
Geometry is the unit cell in units of lambda:
  - Triangular: Lx = a, Ly = sqrt(3) a, vortices at (0,0) and (a/2, sqrt(3) a/2)
  - Square: Lx = Ly = a, vortex at (0,0)

Lz is the film thickness (zero for bulk). C = (a/2pi)^2 converts the
dimensionless reciprocal vectors of the tables into inverse lambda squared.
*/
type Geometry struct {
	Symmetry    types.Symmetry
	Kappa       float64
	ScaledField float64
	Hc2         float64
	A, Lx, Ly   float64
	Lz          float64
	C           float64
}

func NewGeometry(sym types.Symmetry, p Parameters, film bool) (g Geometry) {
	g = Geometry{
		Symmetry:    sym,
		Kappa:       p.Kappa(),
		ScaledField: p.ScaledField(),
		Hc2:         p.Hc2(),
	}
	g.A = LatticeConstant(sym, g.Kappa, g.ScaledField)
	g.Lx = g.A
	g.Ly = g.A
	if sym == types.Triangular {
		g.Ly = sqrt3 * g.A
	}
	if film {
		g.Lz = math.Abs(p.Thickness) / math.Abs(p.Lambda)
	}
	g.C = g.A * g.A / (4 * math.Pi * math.Pi)
	return
}

// KzScale converts a plane frequency l into the dimensionless k_z = l a/Lz
func (g Geometry) KzScale() float64 {
	if g.Lz == 0 {
		return 0
	}
	return g.A / g.Lz
}

// Boundary is the surface coupling 2 sqrt(C)/d of the stray field, zero for bulk
func (g Geometry) Boundary() float64 {
	if g.Lz == 0 {
		return 0
	}
	return 2 * math.Sqrt(g.C) / g.Lz
}

// FieldScale converts reduced induction into Gauss
func (g Geometry) FieldScale() float64 {
	return g.Hc2 / g.Kappa
}
