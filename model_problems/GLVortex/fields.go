package GLVortex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// extractFields converts the converged coefficients into Bx, By, Bz in Gauss
// and records the field extrema
func (s *Solver) extractFields() {
	var (
		scale = s.geom.FieldScale()
		b0    = s.geom.ScaledField
		bx    = s.Bx.Data()
		by    = s.By.Data()
		bz    = s.Bz.Data()
	)
	if s.cfg.Variant.Film {
		s.work.CopyFrom(s.B)
		s.RemapForFieldX(s.work, s.Bx)
		s.work.CopyFrom(s.B)
		s.RemapForFieldY(s.work, s.By)
		floats.Scale(scale, bx)
		floats.Scale(scale, by)
	} else {
		s.Bx.Fill(0)
		s.By.Fill(0)
	}
	s.work.CopyFrom(s.B)
	s.grid.Inverse(s.work.Data(), s.work.Data())
	w := s.work.Data()
	s.forEach(func(ind int) {
		bz[ind] = (b0 + real(w[ind])) * scale
	})
	s.grid.ThicknessAverage(s.BzAverage, bz)

	s.bmax = s.magnitude(0)
	s.bmin = math.Inf(1)
	for i := 0; i <= s.cfg.Ny/2; i++ {
		for j := 0; j <= s.cfg.Nx/2; j++ {
			for k := 0; k < s.cfg.Nz; k++ {
				s.bmin = math.Min(s.bmin, s.magnitude(s.grid.Index(i, j, k)))
			}
		}
	}
}

func (s *Solver) magnitude(ind int) float64 {
	bx, by, bz := s.Bx.At(ind), s.By.At(ind), s.Bz.At(ind)
	return math.Sqrt(bx*bx + by*by + bz*bz)
}

// ensureGrid recalculates a stale grid and fails if no valid grid exists
func (s *Solver) ensureGrid() (err error) {
	if s.dirty {
		if err = s.CalculateGrid(); err != nil {
			return fmt.Errorf("%w: %w", ErrGridInvalid, err)
		}
	}
	if !s.gridValid {
		if s.lastErr != nil {
			return fmt.Errorf("%w: %w", ErrGridInvalid, s.lastErr)
		}
		return ErrGridInvalid
	}
	return
}

// GetBmin is the smallest field magnitude in the irreducible quarter of the cell, in Gauss
func (s *Solver) GetBmin() (bmin float64, err error) {
	if err = s.ensureGrid(); err != nil {
		return
	}
	return s.bmin, nil
}

// GetBmax is the field magnitude at the vortex core at the origin, in Gauss
func (s *Solver) GetBmax() (bmax float64, err error) {
	if err = s.ensureGrid(); err != nil {
		return
	}
	return s.bmax, nil
}

func (s *Solver) DataB() (bx, by, bz []float64) {
	return s.Bx.Data(), s.By.Data(), s.Bz.Data()
}

// DataBAverage is Bz averaged over the film thickness, one value per column
// flattened as j + Nx*i. For bulk it equals Bz.
func (s *Solver) DataBAverage() []float64 {
	return s.BzAverage
}
