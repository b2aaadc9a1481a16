package GLVortex

import (
	"math"

	"github.com/aPeter1/musrfit-fork-sub008/types"
)

/*
ComputeOmega evaluates the order parameter density from its coefficients,

	omega(r) = D(0, 0, z) - D(r),  D = IDFT(A)

so that omega vanishes on the core column of every plane. Round-off below
zero is clipped and the core points are pinned to exactly zero.
*/
func (s *Solver) ComputeOmega(A types.Spectrum) {
	s.work.CopyFrom(A)
	s.grid.Inverse(s.work.Data(), s.work.Data())
	s.anchorTo(s.work, s.Omega, true)
}

/*
ComputeGradient evaluates the three components of grad omega in units of
1/lambda. Along x and y the anchor is constant and drops out, along z it
does not and is treated as in ComputeOmega. The z component vanishes until
the thickness modes are released.
*/
func (s *Solver) ComputeGradient(A types.Spectrum) {
	var (
		invSqrtC = 1 / math.Sqrt(s.geom.C)
		kzs      = s.geom.KzScale()
		w        = s.work.Data()
		a        = A.Data()
	)
	s.forEach(func(ind int) {
		_, j, _ := s.grid.Coordinates(ind)
		w[ind] = complex(0, -s.rec.Kx[j]*invSqrtC) * a[ind]
	})
	s.grid.Inverse(w, w)
	s.work.StoreReal(s.DOx)

	s.forEach(func(ind int) {
		i, _, _ := s.grid.Coordinates(ind)
		w[ind] = complex(0, -s.rec.Ky[i]*invSqrtC) * a[ind]
	})
	s.grid.Inverse(w, w)
	s.work.StoreReal(s.DOy)

	if !s.stage3D {
		s.DOz.Fill(0)
		return
	}
	s.forEach(func(ind int) {
		_, _, k := s.grid.Coordinates(ind)
		w[ind] = complex(0, s.rec.Lz[k]*kzs*invSqrtC) * a[ind]
	})
	s.grid.Inverse(w, w)
	s.anchorTo(s.work, s.DOz, false)
}

// anchorTo writes D(0,0,z) - D(r) into dst, optionally clipped at zero, and zeroes the cores
func (s *Solver) anchorTo(D types.Spectrum, dst types.RealField, clip bool) {
	var (
		d   = D.Data()
		out = dst.Data()
		Nz  = s.cfg.Nz
	)
	for k := 0; k < Nz; k++ {
		s.anchor[k] = d[k]
	}
	s.forEach(func(ind int) {
		v := real(s.anchor[ind%Nz] - d[ind])
		if clip && v < 0 {
			v = 0
		}
		out[ind] = v
	})
	for _, core := range s.rec.Cores() {
		for k := 0; k < Nz; k++ {
			out[s.grid.Index(core[0], core[1], k)] = 0
		}
	}
}
