package GLVortex

import (
	"fmt"
	"log/slog"

	"github.com/aPeter1/musrfit-fork-sub008/types"
)

// Config of a numeric Ginzburg-Landau field calculator. Grid sizes are fixed
// for the lifetime of a solver; the physical parameters are set separately.
type Config struct {
	Variant       types.Variant
	Nx, Ny, Nz    int
	MaxIterations int     // hard cap on fixed point passes
	Tolerance     float64 // relative per-mode change counted as converged
	AbsoluteFloor float64 // coefficients below this magnitude are not compared
	ProcLimit     int     // go routines for data parallel loops, 0 = one per CPU
	PlanCacheFile string  // transform plan cache, empty disables it
	// MirrorOnReadout re-imposes Hermitian symmetry on the coefficient arrays after each update
	MirrorOnReadout bool
	// ImplicitBoundary solves the film surface coupling per column instead of
	// taking it from the previous pass
	ImplicitBoundary bool
	Logger           *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Variant:       types.Variant{Model: types.NumericGL, Symmetry: types.Triangular},
		Nx:            64,
		Ny:            64,
		Nz:            1,
		MaxIterations: 2000,
		Tolerance:     0.01,
		AbsoluteFloor: 1.e-5,
	}
}

// DefaultFilmConfig is DefaultConfig with a film geometry of 16 planes
func DefaultFilmConfig() (cfg Config) {
	cfg = DefaultConfig()
	cfg.Variant.Film = true
	cfg.Nz = 16
	return
}

func (cfg Config) Validate() (err error) {
	if cfg.Variant.Model != types.NumericGL {
		return fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Variant.Model)
	}
	mult := 2
	if cfg.Variant.Symmetry == types.Triangular {
		mult = 4
	}
	if cfg.Nx < mult || cfg.Ny < mult || cfg.Nx%mult != 0 || cfg.Ny%mult != 0 {
		return fmt.Errorf("%w: %s lattice needs Nx, Ny multiples of %d, have %dx%d",
			ErrGridSize, cfg.Variant.Symmetry, mult, cfg.Nx, cfg.Ny)
	}
	switch {
	case cfg.Variant.Film && (cfg.Nz < 2 || cfg.Nz%2 != 0):
		return fmt.Errorf("%w: film needs an even Nz >= 2, have %d", ErrGridSize, cfg.Nz)
	case !cfg.Variant.Film && cfg.Nz != 1:
		return fmt.Errorf("%w: bulk lattice is two dimensional, have Nz = %d", ErrGridSize, cfg.Nz)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("iteration cap must be positive, have %d", cfg.MaxIterations)
	}
	if cfg.Tolerance <= 0 || cfg.AbsoluteFloor < 0 {
		return fmt.Errorf("tolerance must be positive and floor non-negative, have %g and %g",
			cfg.Tolerance, cfg.AbsoluteFloor)
	}
	return
}
