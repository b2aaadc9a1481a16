package lattice

import (
	"math"

	"github.com/aPeter1/musrfit-fork-sub008/spectral"
	"github.com/aPeter1/musrfit-fork-sub008/types"
)

// ParityClass of a reciprocal index, from the parities of its (row, column) frequencies
type ParityClass uint8

const (
	EvenEven ParityClass = iota
	EvenOdd
	OddEven
	OddOdd
)

func NewParityClass(n, m int) ParityClass {
	return ParityClass((n&1)<<1 | (m & 1))
}

/*
Reciprocal holds the dimensionless reciprocal-lattice tables of a grid, in
units of 2pi/a. They depend only on the grid and the symmetry; the lattice
constant enters through Geometry.C and Geometry.KzScale.

On the rectangular cell of the triangular lattice only the parity classes
EvenEven and OddOdd are reciprocal lattice vectors. The per-class tables
carry that selection and the wavevector mixing of the non-orthogonal basis:
the column frequency m contributes m and the row frequency n contributes
n/sqrt(3).
*/
type Reciprocal struct {
	Symmetry   types.Symmetry
	Nx, Ny, Nz int
	Kx         []float64 // derivative multiplier per column, Nyquist removed
	Ky         []float64 // derivative multiplier per row, Nyquist removed
	Lz         []float64 // derivative plane frequency per plane, Nyquist removed
	Gx2        []float64 // squared column wavevector
	Gy2        []float64 // squared row wavevector
	Lz2        []float64 // squared plane frequency
	Sign       []float64 // (-1)^l per plane, evaluates a column at the surface plane Nz/2
	allowed    [4]bool
	rowScale   float64
	m, n       []int // signed frequencies per column and row
}

func NewReciprocal(sym types.Symmetry, Nx, Ny, Nz int) (r *Reciprocal) {
	r = &Reciprocal{
		Symmetry: sym,
		Nx:       Nx, Ny: Ny, Nz: Nz,
		Kx:  make([]float64, Nx),
		Ky:  make([]float64, Ny),
		Lz:  make([]float64, Nz),
		Gx2: make([]float64, Nx),
		Gy2: make([]float64, Ny),
		Lz2: make([]float64, Nz),
		Sign: make([]float64, Nz),
		m:   make([]int, Nx),
		n:   make([]int, Ny),
	}
	switch sym {
	case types.Triangular:
		r.rowScale = 1 / sqrt3
		r.allowed = [4]bool{EvenEven: true, OddOdd: true}
	default:
		r.rowScale = 1
		r.allowed = [4]bool{true, true, true, true}
	}
	for j := 0; j < Nx; j++ {
		r.m[j] = spectral.Freq(j, Nx)
		r.Kx[j] = float64(spectral.DerivFreq(j, Nx))
		r.Gx2[j] = float64(r.m[j] * r.m[j])
	}
	for i := 0; i < Ny; i++ {
		r.n[i] = spectral.Freq(i, Ny)
		r.Ky[i] = float64(spectral.DerivFreq(i, Ny)) * r.rowScale
		r.Gy2[i] = float64(r.n[i]*r.n[i]) * r.rowScale * r.rowScale
	}
	for k := 0; k < Nz; k++ {
		l := spectral.Freq(k, Nz)
		r.Lz[k] = float64(spectral.DerivFreq(k, Nz))
		r.Lz2[k] = float64(l * l)
		r.Sign[k] = 1 - 2*float64(l&1)
	}
	return
}

func (r *Reciprocal) Class(i, j int) ParityClass {
	return NewParityClass(r.n[i], r.m[j])
}

// Allowed reports whether in-plane index (i, j) is a non-zero reciprocal lattice vector
func (r *Reciprocal) Allowed(i, j int) bool {
	if i == 0 && j == 0 {
		return false
	}
	return r.allowed[r.Class(i, j)]
}

// G2 is the squared in-plane wavevector of index (i, j)
func (r *Reciprocal) G2(i, j int) float64 {
	return r.Gx2[j] + r.Gy2[i]
}

// Cores lists the (row, column) grid positions of the vortex cores in the cell
func (r *Reciprocal) Cores() (cores [][2]int) {
	cores = [][2]int{{0, 0}}
	if r.Symmetry == types.Triangular {
		cores = append(cores, [2]int{r.Ny / 2, r.Nx / 2})
	}
	return
}

/*
AbrikosovSeed fills the in-plane (k = 0) modes of dst with the coefficients
of the linearized solution near Hc2,

	a_K = -(-1)^nu exp(-K^2 S/(8 pi)),

where S is the cell area per vortex and nu the squared length of K in units
of the shortest reciprocal vector (triangular) or the Abrikosov parity
m + n + mn (square). All other modes are zeroed.
*/
func (r *Reciprocal) AbrikosovSeed(dst []complex128) {
	for ind := range dst {
		dst[ind] = 0
	}
	for i := 0; i < r.Ny; i++ {
		for j := 0; j < r.Nx; j++ {
			if !r.Allowed(i, j) {
				continue
			}
			var (
				m, n     = r.m[j], r.n[i]
				G2       = r.G2(i, j)
				exponent float64
				parity   int
			)
			switch r.Symmetry {
			case types.Triangular:
				exponent = sqrt3 * math.Pi / 4 * G2
				parity = (3*m*m + n*n) / 4
			default:
				exponent = math.Pi / 2 * G2
				parity = m + n + m*n
			}
			sign := 1.
			if parity&1 == 1 {
				sign = -1
			}
			dst[r.Nz*(j+r.Nx*i)] = complex(-sign*math.Exp(-exponent), 0)
		}
	}
}
