/*
Package spectral implements the periodic box transforms used by the vortex
lattice solvers. Arrays are flattened as k + Nz*(j + Nx*i) with i along y,
j along x and k along z; transforms are applied pencil by pencil with
gonum's FFTPACK port, one set of plans per worker.
*/
package spectral

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/aPeter1/musrfit-fork-sub008/utils"
)

const (
	AxisX = iota
	AxisY
	AxisZ
)

type Grid struct {
	Nx, Ny, Nz int
	N          int
	pencils    [3]*utils.PartitionMap // pencil partitions, one map per axis
	columns    *utils.PartitionMap    // z-columns, used by the thickness average
	workers    []*workerPlan
	cache      *PlanCache
}

type workerPlan struct {
	fft  [3]*fourier.CmplxFFT
	line []complex128
}

// NewGrid builds the transform plans for an Nx x Ny x Nz periodic box.
// ProcLimit bounds the number of go routines, 0 means one per CPU. The
// plan cache may be nil.
func NewGrid(Nx, Ny, Nz, ProcLimit int, cache *PlanCache) (g *Grid, err error) {
	if Nx < 1 || Ny < 1 || Nz < 1 {
		err = fmt.Errorf("grid dimensions must be positive, have %dx%dx%d", Nx, Ny, Nz)
		return
	}
	g = &Grid{
		Nx: Nx, Ny: Ny, Nz: Nz,
		N:     Nx * Ny * Nz,
		cache: cache,
	}
	var (
		dims    = [3]int{Nx, Ny, Nz}
		maxLen  int
		NPar    = utils.ParallelDegreeFor(ProcLimit, Nx*Ny*Nz)
		pencilN = [3]int{Ny * Nz, Nx * Nz, Nx * Ny}
	)
	for axis := 0; axis < 3; axis++ {
		g.pencils[axis] = utils.NewPartitionMap(utils.ParallelDegreeFor(NPar, pencilN[axis]), pencilN[axis])
		if dims[axis] > maxLen {
			maxLen = dims[axis]
		}
	}
	g.columns = g.pencils[AxisZ]
	g.workers = make([]*workerPlan, NPar)
	for np := 0; np < NPar; np++ {
		w := &workerPlan{line: make([]complex128, maxLen)}
		for axis := 0; axis < 3; axis++ {
			if dims[axis] > 1 {
				w.fft[axis] = fourier.NewCmplxFFT(dims[axis])
			}
		}
		g.workers[np] = w
	}
	// Verify each distinct length once unless the cache already vouches for it
	for axis := 0; axis < 3; axis++ {
		n := dims[axis]
		if n == 1 {
			continue
		}
		if _, known := g.cache.Lookup(n); known {
			continue
		}
		if err = measure(g.workers[0].fft[axis], n); err != nil {
			return nil, err
		}
		g.cache.Record(n, Factorize(n))
	}
	return
}

func (g *Grid) Len() int { return g.N }

// Normalization is the factor picked up by an unnormalized round trip
func (g *Grid) Normalization() float64 { return float64(g.N) }

// Index maps row i (y), column j (x) and plane k (z) to the flat index
func (g *Grid) Index(i, j, k int) int {
	return k + g.Nz*(j+g.Nx*i)
}

// Coordinates is the inverse of Index
func (g *Grid) Coordinates(ind int) (i, j, k int) {
	k = ind % g.Nz
	ind /= g.Nz
	j = ind % g.Nx
	i = ind / g.Nx
	return
}

// Workers is the number of go routines used by the transforms
func (g *Grid) Workers() int { return len(g.workers) }

// Forward computes the unnormalized forward DFT of src into dst, dst may alias src
func (g *Grid) Forward(dst, src []complex128) {
	g.transform(dst, src, false)
}

// Inverse computes the unnormalized inverse DFT of src into dst, dst may alias src
func (g *Grid) Inverse(dst, src []complex128) {
	g.transform(dst, src, true)
}

func (g *Grid) transform(dst, src []complex128, inverse bool) {
	if len(dst) != g.N || len(src) != g.N {
		panic(fmt.Errorf("transform buffers must have length %d, have %d and %d", g.N, len(dst), len(src)))
	}
	if &dst[0] != &src[0] {
		copy(dst, src)
	}
	dims := [3]int{g.Nx, g.Ny, g.Nz}
	for axis := 0; axis < 3; axis++ {
		n := dims[axis]
		if n == 1 {
			continue
		}
		stride := g.stride(axis)
		g.pencils[axis].Run(func(np, pMin, pMax int) {
			var (
				w    = g.workers[np]
				fft  = w.fft[axis]
				line = w.line[:n]
			)
			for p := pMin; p < pMax; p++ {
				base := g.pencilBase(axis, p)
				for m := 0; m < n; m++ {
					line[m] = dst[base+m*stride]
				}
				if inverse {
					fft.Sequence(line, line)
				} else {
					fft.Coefficients(line, line)
				}
				for m := 0; m < n; m++ {
					dst[base+m*stride] = line[m]
				}
			}
		})
	}
}

func (g *Grid) stride(axis int) int {
	switch axis {
	case AxisX:
		return g.Nz
	case AxisY:
		return g.Nz * g.Nx
	}
	return 1
}

func (g *Grid) pencilBase(axis, p int) int {
	switch axis {
	case AxisX: // p enumerates (i, k)
		i, k := p/g.Nz, p%g.Nz
		return k + g.Nz*g.Nx*i
	case AxisY: // p enumerates (j, k), already k + Nz*j
		return p
	}
	return g.Nz * p // p enumerates (i, j)
}

// ThicknessAverage writes the across-thickness average of each z-column of
// src (length N) into dst (length Nx*Ny), using the l=0 coefficient of a
// 1D transform along z
func (g *Grid) ThicknessAverage(dst, src []float64) {
	if len(dst) != g.Nx*g.Ny || len(src) != g.N {
		panic(fmt.Errorf("thickness average needs %d and %d values, have %d and %d",
			g.Nx*g.Ny, g.N, len(dst), len(src)))
	}
	if g.Nz == 1 {
		copy(dst, src)
		return
	}
	scale := 1. / float64(g.Nz)
	g.columns.Run(func(np, cMin, cMax int) {
		var (
			w    = g.workers[np]
			line = w.line[:g.Nz]
		)
		for c := cMin; c < cMax; c++ {
			base := g.Nz * c
			for k := 0; k < g.Nz; k++ {
				line[k] = complex(src[base+k], 0)
			}
			w.fft[AxisZ].Coefficients(line, line)
			dst[c] = real(line[0]) * scale
		}
	})
}

// Mirror enforces c(-K) = conj(c(K)), the symmetry of the spectrum of a real
// field. It stands in for a packed half-spectrum layout and can be applied
// to any coefficient array before it is read out.
func (g *Grid) Mirror(c []complex128) {
	if len(c) != g.N {
		panic(fmt.Errorf("mirror needs %d values, have %d", g.N, len(c)))
	}
	for ind := 0; ind < g.N; ind++ {
		i, j, k := g.Coordinates(ind)
		mind := g.Index((g.Ny-i)%g.Ny, (g.Nx-j)%g.Nx, (g.Nz-k)%g.Nz)
		switch {
		case mind == ind:
			c[ind] = complex(real(c[ind]), 0)
		case mind > ind:
			v := 0.5 * (c[ind] + cmplx.Conj(c[mind]))
			c[ind], c[mind] = v, cmplx.Conj(v)
		}
	}
}

// Close releases the grid and persists the plan cache, if any
func (g *Grid) Close() error {
	return g.cache.Save()
}

// Freq is the signed frequency of index p on an axis of length n, the
// Nyquist index maps to +n/2
func Freq(p, n int) int {
	if p <= n/2 {
		return p
	}
	return p - n
}

// DerivFreq is Freq with the Nyquist frequency removed, as used for odd
// (derivative-like) multipliers so that real fields stay real
func DerivFreq(p, n int) int {
	if n%2 == 0 && p == n/2 {
		return 0
	}
	return Freq(p, n)
}

// Factorize splits n into the radices used by FFTPACK, 4 and 2 first
func Factorize(n int) (factors []int) {
	for _, r := range []int{4, 2, 3, 5} {
		for n%r == 0 && n > 1 {
			factors = append(factors, r)
			n /= r
		}
	}
	for r := 7; n > 1; r += 2 {
		for n%r == 0 {
			factors = append(factors, r)
			n /= r
		}
	}
	return
}

func measure(fft *fourier.CmplxFFT, n int) (err error) {
	var (
		seq = make([]complex128, n)
		tol = 1.e-9 * float64(n)
	)
	seq[1%n] = 1
	fft.Coefficients(seq, seq)
	fft.Sequence(seq, seq)
	for m := range seq {
		want := 0.
		if m == 1%n {
			want = float64(n)
		}
		if cmplx.Abs(seq[m]-complex(want, 0)) > tol {
			err = fmt.Errorf("transform of length %d failed its round trip check", n)
			return
		}
	}
	return
}
