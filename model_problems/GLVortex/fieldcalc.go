/*
Package GLVortex computes the magnetic field of a periodic vortex lattice by
solving the Ginzburg-Landau equations in reciprocal space with Brandt's
iterative method.

Inside the solver lengths are in units of lambda and fields in units of
Hc2/kappa (so that Hc2 = kappa and a flux quantum is 2pi/kappa). The order
parameter density and the field are expanded as

	omega(r) = sum_K a_K (1 - exp(i K.r))
	B(r)     = B0 + sum_K b_K exp(i K.r)

with the zero mode of both arrays pinned at zero. The supervelocity is the
Abrikosov part Q_A, fixed by the seed, plus the part generated by b_K.
*/
package GLVortex

import (
	"errors"
	"fmt"

	"github.com/aPeter1/musrfit-fork-sub008/types"
)

var (
	ErrUnsupportedModel  = errors.New("only the numeric Ginzburg-Landau model is iterative")
	ErrGridSize          = errors.New("invalid grid size")
	ErrInvalidParameters = errors.New("invalid vortex lattice parameters")
	ErrGridInvalid       = errors.New("field grid has not been calculated for valid parameters")
)

// FieldCalc is the surface consumed by lineshape and histogram builders
type FieldCalc interface {
	SetParameters(values []float64) error
	CalculateGrid() error
	GetBmin() (float64, error)
	GetBmax() (float64, error)
	IsTriangular() bool
	// DataB returns Bx, By, Bz in Gauss flattened as k + Nz*(j + Nx*i)
	DataB() (bx, by, bz []float64)
	GetNumberOfSteps() (nx, ny, nz int)
	Close() error
}

// NewFieldCalc builds the calculator selected by a {Model}x{Symmetry} variant
func NewFieldCalc(v types.Variant, cfg Config) (fc FieldCalc, err error) {
	if v.Model != types.NumericGL {
		err = fmt.Errorf("%w: %s is a closed form model", ErrUnsupportedModel, v)
		return
	}
	cfg.Variant = v
	var s *Solver
	if s, err = NewSolver(cfg); err != nil {
		return
	}
	fc = s
	return
}
