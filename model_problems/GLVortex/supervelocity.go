package GLVortex

import (
	"github.com/aPeter1/musrfit-fork-sub008/types"
)

// ComputeBackground sets the Abrikosov supervelocity
//
//	Q_A = (d_y omega, -d_x omega) / (2 kappa omega)
//
// from the current order parameter, zero where omega vanishes. It is taken
// once from the seed and held fixed for the rest of the iteration.
func (s *Solver) ComputeBackground() {
	var (
		kappa2   = 2 * s.geom.Kappa
		omega    = s.Omega.Data()
		dox, doy = s.DOx.Data(), s.DOy.Data()
		qax, qay = s.QAx.Data(), s.QAy.Data()
	)
	s.forEach(func(ind int) {
		if omega[ind] == 0 {
			qax[ind], qay[ind] = 0, 0
			return
		}
		qax[ind] = doy[ind] / (kappa2 * omega[ind])
		qay[ind] = -dox[ind] / (kappa2 * omega[ind])
	})
}

// ComputeCorrection refreshes Q = Q_A + Q_b from the field coefficients B.
// B is left untouched.
func (s *Solver) ComputeCorrection(B types.Spectrum) {
	var (
		qax, qay = s.QAx.Data(), s.QAy.Data()
		qx, qy   = s.Qx.Data(), s.Qy.Data()
		tmp      = s.tmp.Data()
	)
	s.work.CopyFrom(B)
	s.RemapForQx(s.work, s.tmp)
	s.forEach(func(ind int) {
		qx[ind] = qax[ind] + tmp[ind]
	})
	s.work.CopyFrom(B)
	s.RemapForQy(s.work, s.tmp)
	s.forEach(func(ind int) {
		qy[ind] = qay[ind] + tmp[ind]
	})
}
