package GLVortex

import (
	"math"

	"github.com/aPeter1/musrfit-fork-sub008/types"
)

// activeA reports whether mode (i, j, k) of the order parameter may be non-zero
func (s *Solver) activeA(i, j, k int) bool {
	return s.rec.Allowed(i, j) && (k == 0 || s.stage3D)
}

/*
UpdateA performs one fixed point step for the order parameter coefficients,

	a_K = g_K 2 kappa^2 C / (G^2 + kz^2 + 2 kappa^2 C)
	g   = omega (omega + Q^2 - 2) + |grad omega|^2 / (4 kappa^2 omega)

followed by re-evaluation of omega and its gradient and the rescaling that
makes the free energy stationary with respect to the amplitude. At points
where omega vanishes g is taken from the nearest non-vanishing point along x.
*/
func (s *Solver) UpdateA() {
	var (
		kappa  = s.geom.Kappa
		fk2    = 4 * kappa * kappa
		fac    = 2 * kappa * kappa * s.geom.C
		kzs2   = s.geom.KzScale() * s.geom.KzScale()
		invN   = 1 / s.grid.Normalization()
		omega  = s.Omega.Data()
		qx, qy = s.Qx.Data(), s.Qy.Data()
		dox    = s.DOx.Data()
		doy    = s.DOy.Data()
		doz    = s.DOz.Data()
		w      = s.work.Data()
		a      = s.A.Data()
	)
	s.forEach(func(ind int) {
		o := omega[ind]
		if o == 0 {
			w[ind] = 0
			return
		}
		grad2 := dox[ind]*dox[ind] + doy[ind]*doy[ind] + doz[ind]*doz[ind]
		w[ind] = complex(o*(o+qx[ind]*qx[ind]+qy[ind]*qy[ind]-2)+grad2/(fk2*o), 0)
	})
	s.fillPoles(w)
	s.grid.Forward(w, w)
	s.forEach(func(ind int) {
		i, j, k := s.grid.Coordinates(ind)
		if !s.activeA(i, j, k) {
			a[ind] = 0
			return
		}
		a[ind] = w[ind] * complex(invN*fac/(s.rec.G2(i, j)+s.rec.Lz2[k]*kzs2+fac), 0)
	})
	if s.cfg.MirrorOnReadout {
		s.grid.Mirror(a)
	}
	s.ComputeOmega(s.A)
	s.ComputeGradient(s.A)

	sc := s.amplitudeScale()
	s.forEach(func(ind int) {
		a[ind] *= complex(sc, 0)
		omega[ind] *= sc
		dox[ind] *= sc
		doy[ind] *= sc
		doz[ind] *= sc
	})
}

// fillPoles copies the source term of every point with vanishing omega from
// the next point along x where omega is positive, or zeroes it if the whole
// row vanishes
func (s *Solver) fillPoles(w []complex128) {
	var (
		omega = s.Omega.Data()
		Nx    = s.cfg.Nx
	)
	s.poles = s.poles[:0]
	for ind, o := range omega {
		if o == 0 {
			s.poles = append(s.poles, ind)
		}
	}
	for _, ind := range s.poles {
		i, j, k := s.grid.Coordinates(ind)
		w[ind] = 0
		for step := 1; step < Nx; step++ {
			nbr := s.grid.Index(i, (j+step)%Nx, k)
			if omega[nbr] > 0 {
				w[ind] = w[nbr]
				break
			}
		}
	}
}

// amplitudeScale is the factor that minimizes the free energy along the
// current omega, clipped at zero
func (s *Solver) amplitudeScale() (sc float64) {
	var (
		kappa  = s.geom.Kappa
		fk2    = 4 * kappa * kappa
		omega  = s.Omega.Data()
		qx, qy = s.Qx.Data(), s.Qy.Data()
		dox    = s.DOx.Data()
		doy    = s.DOy.Data()
		doz    = s.DOz.Data()
	)
	sums := s.reduce(func(ind int, acc *[4]float64) {
		o := omega[ind]
		if o <= 0 {
			return
		}
		grad2 := dox[ind]*dox[ind] + doy[ind]*doy[ind] + doz[ind]*doz[ind]
		acc[0] += o - o*(qx[ind]*qx[ind]+qy[ind]*qy[ind]) - grad2/(fk2*o)
		acc[1] += o * o
	})
	if sums[1] == 0 || sums[0] <= 0 || math.IsNaN(sums[0]) {
		return 0
	}
	return sums[0] / sums[1]
}

/*
UpdateB performs one fixed point step for the field coefficients,

	b_l = (R_l - c BS) / (G^2 + C <omega>)                 l = 0
	b_l = (R_l - c BS) / (1/2 (G^2 + kz^2) + C <omega>)    l != 0
	R_l = -sqrt(C) i (kx P^x - ky P^y)_l + C <omega> b_l(old)
	BS  = sum_l (-1)^l b_l(old)

with P^x = omega Q_y, P^y = omega Q_x and c = 2 sqrt(C G^2)/d the coupling
to the stray field outside a film of thickness d, zero for bulk. With
ImplicitBoundary set each column instead solves

	(G^2 + kz^2 + C <omega>) b_l + c (-1)^l sum_l' (-1)^l' b_l' = R_l

exactly as a rank one update.
*/
func (s *Solver) UpdateB() {
	var (
		omega  = s.Omega.Data()
		qx, qy = s.Qx.Data(), s.Qy.Data()
		px, py = s.Px.Data(), s.Py.Data()
		b      = s.B.Data()
		invN   = 1 / s.grid.Normalization()
		Nx     = s.cfg.Nx
		Nz     = s.cfg.Nz
	)
	s.forEach(func(ind int) {
		px[ind] = complex(omega[ind]*qy[ind], 0)
		py[ind] = complex(omega[ind]*qx[ind], 0)
	})
	s.grid.Forward(px, px)
	s.grid.Forward(py, py)
	sums := s.reduce(func(ind int, acc *[4]float64) {
		acc[0] += omega[ind]
	})
	cw := s.geom.C * sums[0] * invN

	s.columns.Run(func(_, cMin, cMax int) {
		for c := cMin; c < cMax; c++ {
			i, j := c/Nx, c%Nx
			col := b[Nz*c : Nz*(c+1)]
			if !s.rec.Allowed(i, j) {
				for k := range col {
					col[k] = 0
				}
				continue
			}
			if s.cfg.ImplicitBoundary {
				s.implicitColumn(i, j, Nz*c, col, cw)
			} else {
				s.explicitColumn(i, j, Nz*c, col, cw)
			}
		}
	})
	if s.cfg.MirrorOnReadout {
		s.grid.Mirror(b)
	}
}

// curlTerm is R_l of the column mode at flat index ind
func (s *Solver) curlTerm(i, j, ind int, bOld complex128, cw float64) complex128 {
	var (
		px, py = s.Px.Data(), s.Py.Data()
		scale  = math.Sqrt(s.geom.C) / s.grid.Normalization()
		kx, ky = s.rec.Kx[j], s.rec.Ky[i]
	)
	curl := complex(0, -scale) * (complex(kx, 0)*px[ind] - complex(ky, 0)*py[ind])
	return curl + complex(cw, 0)*bOld
}

func (s *Solver) explicitColumn(i, j, base int, col []complex128, cw float64) {
	var (
		G2   = s.rec.G2(i, j)
		kzs2 = s.geom.KzScale() * s.geom.KzScale()
		coup = complex(s.geom.Boundary()*math.Sqrt(G2), 0)
		BS   complex128
	)
	for k := range col {
		BS += complex(s.rec.Sign[k], 0) * col[k]
	}
	for k := range col {
		if k != 0 && !s.stage3D {
			col[k] = 0
			continue
		}
		D := G2 + cw
		if k != 0 {
			D = 0.5*(G2+s.rec.Lz2[k]*kzs2) + cw
		}
		col[k] = (s.curlTerm(i, j, base+k, col[k], cw) - coup*BS) / complex(D, 0)
	}
}

func (s *Solver) implicitColumn(i, j, base int, col []complex128, cw float64) {
	var (
		G2   = s.rec.G2(i, j)
		kzs2 = s.geom.KzScale() * s.geom.KzScale()
		coup = s.geom.Boundary() * math.Sqrt(G2)
		sR   complex128
		sU   float64
	)
	for k := range col {
		if k != 0 && !s.stage3D {
			col[k] = 0
			continue
		}
		D := G2 + s.rec.Lz2[k]*kzs2 + cw
		col[k] = s.curlTerm(i, j, base+k, col[k], cw) / complex(D, 0)
		sR += complex(s.rec.Sign[k], 0) * col[k]
		sU += 1 / D
	}
	if coup == 0 {
		return
	}
	surface := sR / complex(1+coup*sU, 0)
	for k := range col {
		if k != 0 && !s.stage3D {
			continue
		}
		D := G2 + s.rec.Lz2[k]*kzs2 + cw
		col[k] -= complex(coup*s.rec.Sign[k]/D, 0) * surface
	}
}

// remap multiplies buf by f(i, j, k) mode by mode, transforms it back to real
// space in place and stores the real part in out. Modes with vanishing
// in-plane vector are dropped.
func (s *Solver) remap(buf types.Spectrum, out types.RealField, f func(i, j, k int, G2 float64) complex128) {
	d := buf.Data()
	s.forEach(func(ind int) {
		i, j, k := s.grid.Coordinates(ind)
		G2 := s.rec.G2(i, j)
		if G2 == 0 {
			d[ind] = 0
			return
		}
		d[ind] *= f(i, j, k, G2)
	})
	s.grid.Inverse(d, d)
	buf.StoreReal(out)
}

// RemapForQx turns field coefficients into the x supervelocity correction, i sqrt(C) ky/G^2
func (s *Solver) RemapForQx(buf types.Spectrum, out types.RealField) {
	sqrtC := math.Sqrt(s.geom.C)
	s.remap(buf, out, func(i, _, _ int, G2 float64) complex128 {
		return complex(0, sqrtC*s.rec.Ky[i]/G2)
	})
}

// RemapForQy turns field coefficients into the y supervelocity correction, -i sqrt(C) kx/G^2
func (s *Solver) RemapForQy(buf types.Spectrum, out types.RealField) {
	sqrtC := math.Sqrt(s.geom.C)
	s.remap(buf, out, func(_, j, _ int, G2 float64) complex128 {
		return complex(0, -sqrtC*s.rec.Kx[j]/G2)
	})
}

// RemapForFieldX turns field coefficients into the reduced in-plane field Bx, -kx kz/G^2
func (s *Solver) RemapForFieldX(buf types.Spectrum, out types.RealField) {
	kzs := s.geom.KzScale()
	s.remap(buf, out, func(_, j, k int, G2 float64) complex128 {
		return complex(-s.rec.Kx[j]*s.rec.Lz[k]*kzs/G2, 0)
	})
}

// RemapForFieldY turns field coefficients into the reduced in-plane field By, -ky kz/G^2
func (s *Solver) RemapForFieldY(buf types.Spectrum, out types.RealField) {
	kzs := s.geom.KzScale()
	s.remap(buf, out, func(i, _, k int, G2 float64) complex128 {
		return complex(-s.rec.Ky[i]*s.rec.Lz[k]*kzs/G2, 0)
	})
}
