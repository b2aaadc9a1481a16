package GLVortex

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/aPeter1/musrfit-fork-sub008/lattice"
	"github.com/aPeter1/musrfit-fork-sub008/types"
)

func testConfig(sym types.Symmetry, film bool, Nx, Ny, Nz int) (cfg Config) {
	cfg = DefaultConfig()
	cfg.Variant = types.Variant{Model: types.NumericGL, Symmetry: sym, Film: film}
	cfg.Nx, cfg.Ny, cfg.Nz = Nx, Ny, Nz
	cfg.ProcLimit = 2
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return
}

func newTestSolver(t *testing.T, sym types.Symmetry, film bool, Nx, Ny, Nz int) *Solver {
	s, err := NewSolver(testConfig(sym, film, Nx, Ny, Nz))
	require.NoError(t, err)
	return s
}

func meanOf(v []float64) float64 {
	return floats.Sum(v) / float64(len(v))
}

func TestConfig(t *testing.T) {
	{ // Test the defaults are valid
		assert.NoError(t, DefaultConfig().Validate())
		assert.NoError(t, DefaultFilmConfig().Validate())
	}
	{ // Test grid size rules
		cfg := DefaultConfig()
		cfg.Nx = 30
		assert.True(t, errors.Is(cfg.Validate(), ErrGridSize))
		cfg.Variant.Symmetry = types.Square
		assert.NoError(t, cfg.Validate())
		cfg.Nx = 31
		assert.True(t, errors.Is(cfg.Validate(), ErrGridSize))
		cfg = DefaultConfig()
		cfg.Nz = 2
		assert.True(t, errors.Is(cfg.Validate(), ErrGridSize))
		cfg = DefaultFilmConfig()
		cfg.Nz = 3
		assert.True(t, errors.Is(cfg.Validate(), ErrGridSize))
		cfg.Nz = 0
		assert.True(t, errors.Is(cfg.Validate(), ErrGridSize))
	}
	{ // Test iteration settings
		cfg := DefaultConfig()
		cfg.MaxIterations = 0
		assert.Error(t, cfg.Validate())
		cfg = DefaultConfig()
		cfg.Tolerance = 0
		assert.Error(t, cfg.Validate())
	}
	{ // Test closed form models are not built here
		for _, m := range []types.Model{types.London, types.ModifiedLondon, types.AnalyticGL} {
			fc, err := NewFieldCalc(types.Variant{Model: m, Symmetry: types.Triangular}, DefaultConfig())
			assert.Nil(t, fc)
			assert.True(t, errors.Is(err, ErrUnsupportedModel))
		}
		cfg := DefaultConfig()
		cfg.Nx, cfg.Ny = 8, 8
		fc, err := NewFieldCalc(types.Variant{Model: types.NumericGL, Symmetry: types.Square}, cfg)
		require.NoError(t, err)
		assert.False(t, fc.IsTriangular())
		nx, ny, nz := fc.GetNumberOfSteps()
		assert.Equal(t, [3]int{8, 8, 1}, [3]int{nx, ny, nz})
		assert.NoError(t, fc.Close())
	}
}

func TestController(t *testing.T) {
	arena := types.NewArena(4)
	cur, old := arena.Complex("cur"), arena.Complex("old")
	{ // Test relative change against the previous pass
		c := NewController(10, 0.01, 1.e-5, false, 2, 4)
		old.Set(0, 1)
		old.Set(1, 2)
		cur.Set(0, 1.005)
		cur.Set(1, 2)
		assert.True(t, c.Check(cur, old))
		assert.Equal(t, complex(1.005, 0), old.At(0))
		cur.Set(1, 2.1)
		assert.False(t, c.Check(cur, old))
		assert.True(t, c.Check(cur, old))
	}
	{ // Test modes below the floor and modes appearing from nothing
		c := NewController(10, 0.01, 1.e-5, false, 1, 4)
		cur.Zero()
		old.Zero()
		assert.True(t, c.Check(cur, old))
		cur.Set(2, 1.e-6)
		assert.True(t, c.Check(cur, old))
		cur.Set(3, 0.5)
		assert.False(t, c.Check(cur, old))
	}
	{ // Test a film passes through both stages
		c := NewController(10, 0.01, 1.e-5, true, 1, 4)
		c.AConverged, c.BConverged = true, false
		assert.False(t, c.Advance())
		assert.Equal(t, SearchingTwoD, c.State)
		c.AConverged, c.BConverged = true, true
		assert.True(t, c.Advance())
		assert.Equal(t, SearchingThreeD, c.State)
		assert.False(t, c.AConverged || c.BConverged)
		assert.False(t, c.Done())
		c.AConverged, c.BConverged = true, true
		assert.False(t, c.Advance())
		assert.Equal(t, Converged, c.State)
		assert.True(t, c.Done())
		assert.Equal(t, 3, c.Passes)
	}
	{ // Test the iteration cap is a soft failure
		c := NewController(3, 0.01, 1.e-5, false, 1, 4)
		for !c.Done() {
			c.Advance()
		}
		assert.Equal(t, Failed, c.State)
		assert.Equal(t, 3, c.Passes)
		c.Reset()
		assert.Equal(t, SearchingTwoD, c.State)
		assert.Equal(t, "converged", Converged.String())
	}
	{ // Test the cap also holds when the in-plane stage converges on the last pass
		c := NewController(2, 0.01, 1.e-5, true, 1, 4)
		assert.False(t, c.Advance())
		c.AConverged, c.BConverged = true, true
		assert.False(t, c.Advance())
		assert.Equal(t, Failed, c.State)
		assert.Equal(t, 2, c.Passes)
		assert.True(t, c.Done())
	}
}

func TestSolverDegenerate(t *testing.T) {
	s := newTestSolver(t, types.Triangular, false, 16, 16, 1)
	defer s.Close()
	{ // Test a field above Hc2 gives the uniform applied field
		require.NoError(t, s.SetParameters([]float64{2000, 100, 50}))
		bmin, err := s.GetBmin()
		require.NoError(t, err)
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		assert.Equal(t, 2000., bmin)
		assert.Equal(t, 2000., bmax)
		bx, by, bz := s.DataB()
		for ind := range bz {
			assert.Equal(t, 2000., bz[ind])
			assert.Equal(t, 0., bx[ind])
			assert.Equal(t, 0., by[ind])
		}
		assert.True(t, s.Converged())
		assert.Equal(t, 0, s.Passes())
	}
	{ // Test a type-I ratio of lengths gives the uniform applied field
		require.NoError(t, s.SetParameters([]float64{100, 10, 50}))
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		assert.Equal(t, 100., bmax)
	}
}

func TestSolverInvalid(t *testing.T) {
	s := newTestSolver(t, types.Square, true, 8, 8, 2)
	defer s.Close()
	{ // Test a calculation without parameters fails
		assert.True(t, errors.Is(s.CalculateGrid(), ErrInvalidParameters))
		_, err := s.GetBmin()
		assert.True(t, errors.Is(err, ErrGridInvalid))
	}
	{ // Test the wrong parameter count
		err := s.SetParameters([]float64{100, 150, 5})
		assert.True(t, errors.Is(err, ErrInvalidParameters))
		assert.True(t, errors.Is(err, lattice.ErrParameterCount))
	}
	{ // Test zero and missing values are reported and leave no valid grid
		require.NoError(t, s.SetParameters([]float64{100, 150, 5, 0}))
		err := s.CalculateGrid()
		assert.True(t, errors.Is(err, ErrInvalidParameters))
		assert.True(t, errors.Is(err, lattice.ErrMissingThickness))
		_, err = s.GetBmax()
		assert.True(t, errors.Is(err, ErrGridInvalid))
		require.NoError(t, s.SetParameters([]float64{0, 150, 5, 100}))
		_, err = s.GetBmin()
		assert.True(t, errors.Is(err, ErrGridInvalid))
		assert.True(t, errors.Is(err, lattice.ErrMissingParameter))
	}
	{ // Test a rejected vector invalidates a grid solved for earlier parameters
		valid := []float64{400, 100, 50, 200}
		require.NoError(t, s.SetParameters(valid))
		require.NoError(t, s.CalculateGrid())
		_, err := s.GetBmax()
		require.NoError(t, err)
		err = s.SetParameters([]float64{400, 100, 50})
		assert.True(t, errors.Is(err, lattice.ErrParameterCount))
		err = s.CalculateGrid()
		assert.True(t, errors.Is(err, ErrInvalidParameters))
		assert.True(t, errors.Is(err, lattice.ErrParameterCount))
		_, err = s.GetBmax()
		assert.True(t, errors.Is(err, ErrGridInvalid))
		_, err = s.GetBmin()
		assert.True(t, errors.Is(err, ErrGridInvalid))
		// The same valid vector as before brings the grid back
		require.NoError(t, s.SetParameters(valid))
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		assert.Greater(t, bmax, 0.)
	}
}

func TestSolverBulk(t *testing.T) {
	var (
		field = 400.
		N     = 32
	)
	s := newTestSolver(t, types.Triangular, false, N, N, 1)
	defer s.Close()
	var passes int
	s.OnPass = func(pass int, state State) { passes++ }
	require.NoError(t, s.SetParameters([]float64{field, 100, 50}))
	require.NoError(t, s.CalculateGrid())
	{ // Test the iteration settles and the cell keeps its flux
		assert.True(t, s.Converged())
		assert.Equal(t, passes, s.Passes())
		_, _, bz := s.DataB()
		assert.InDelta(t, field, meanOf(bz), 1.e-9*field)
		assert.Equal(t, bz, s.DataBAverage())
	}
	{ // Test the order parameter is non-negative and vanishes at the cores
		for _, o := range s.Omega.Data() {
			assert.True(t, o >= 0)
		}
		for _, core := range s.rec.Cores() {
			assert.Equal(t, 0., s.Omega.At(s.grid.Index(core[0], core[1], 0)))
		}
	}
	{ // Test the field peaks at the core and dips between vortices
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		bmin, err := s.GetBmin()
		require.NoError(t, err)
		_, _, bz := s.DataB()
		assert.Equal(t, bz[0], bmax)
		assert.Greater(t, bmax, field)
		assert.Less(t, bmin, field)
		assert.LessOrEqual(t, floats.Max(bz), bmax+1.e-9)
	}
	{ // Test the field respects the symmetry of the triangular lattice
		_, _, bz := s.DataB()
		var (
			b02  = bz[s.grid.Index(0, 2, 0)]
			b11  = bz[s.grid.Index(1, 1, 0)]
			b1m1 = bz[s.grid.Index(1, N-1, 0)]
		)
		bmax, _ := s.GetBmax()
		bmin, _ := s.GetBmin()
		assert.InDelta(t, b11, b1m1, 1.e-9*field)
		assert.InDelta(t, b02, b11, 0.02*(bmax-bmin))
		// Both cores carry the same field
		assert.InDelta(t, bz[0], bz[s.grid.Index(N/2, N/2, 0)], 1.e-6*field)
	}
	{ // Test repeated calculations with unchanged parameters do no work
		count := passes
		require.NoError(t, s.CalculateGrid())
		require.NoError(t, s.SetParameters([]float64{field, 100, 50}))
		_, err := s.GetBmin()
		require.NoError(t, err)
		assert.Equal(t, count, passes)
		require.NoError(t, s.SetParameters([]float64{300, 100, 50}))
		require.NoError(t, s.CalculateGrid())
		assert.Greater(t, passes, count)
	}
}

func TestSolverFluxConservation(t *testing.T) {
	for _, sym := range []types.Symmetry{types.Triangular, types.Square} {
		s := newTestSolver(t, sym, false, 16, 16, 1)
		for _, p := range [][]float64{{400, 100, 50}, {150, 120, 20}, {900, 80, 40}} {
			require.NoError(t, s.SetParameters(p))
			require.NoError(t, s.CalculateGrid())
			bx, by, bz := s.DataB()
			assert.InDelta(t, p[0], meanOf(bz), 1.e-9*p[0])
			assert.Equal(t, 0., meanOf(bx))
			assert.Equal(t, 0., meanOf(by))
			assert.False(t, math.IsNaN(bz[0]))
		}
		assert.NoError(t, s.Close())
	}
}

func TestSolverLowField(t *testing.T) {
	var (
		field = 100.
	)
	s := newTestSolver(t, types.Triangular, false, 32, 32, 1)
	defer s.Close()
	require.NoError(t, s.SetParameters([]float64{field, 150, 5}))
	require.NoError(t, s.CalculateGrid())
	{ // Test the derived lattice of a strongly type-II superconductor
		g := s.Geometry()
		assert.InDelta(t, 30., g.Kappa, 1.e-12)
		assert.InDelta(t, 488.6, s.Parameters().LatticeConstant(types.Triangular), 0.1)
		assert.True(t, s.Converged())
		assert.LessOrEqual(t, s.Passes(), s.cfg.MaxIterations)
	}
	{ // Test field extrema and flux
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		bmin, err := s.GetBmin()
		require.NoError(t, err)
		assert.Greater(t, bmax, field)
		assert.Less(t, bmin, field)
		assert.Greater(t, bmin, 0.)
		_, _, bz := s.DataB()
		assert.InDelta(t, field, meanOf(bz), 1.e-9*field)
	}
}

func TestSolverFilm(t *testing.T) {
	var (
		field      = 400.
		Nx, Ny, Nz = 16, 16, 4
	)
	for _, implicit := range []bool{false, true} {
		cfg := testConfig(types.Triangular, true, Nx, Ny, Nz)
		cfg.ImplicitBoundary = implicit
		s, err := NewSolver(cfg)
		require.NoError(t, err)
		var states []State
		s.OnPass = func(pass int, state State) { states = append(states, state) }
		require.NoError(t, s.SetParameters([]float64{field, 100, 50, 200}))
		require.NoError(t, s.CalculateGrid())
		{ // Test both stages ran
			assert.Contains(t, states, SearchingThreeD)
			assert.Equal(t, SearchingTwoD, states[0])
			assert.Equal(t, len(states), s.Passes())
			assert.LessOrEqual(t, s.Passes(), cfg.MaxIterations)
			_, err = s.GetBmax()
			require.NoError(t, err)
			require.Equal(t, Nx*Ny, len(s.DataBAverage()))
		}
		if implicit { // Test the thickness average keeps the flux and the cores have no in-plane field
			assert.InDelta(t, field, meanOf(s.DataBAverage()), 1.e-9*field)
			bx, by, _ := s.DataB()
			for k := 0; k < Nz; k++ {
				ind := s.grid.Index(0, 0, k)
				assert.InDelta(t, 0., bx[ind], 1.e-9*field)
				assert.InDelta(t, 0., by[ind], 1.e-9*field)
			}
			bmax, err := s.GetBmax()
			require.NoError(t, err)
			assert.Greater(t, bmax, field)
		}
		require.NoError(t, s.Close())
	}
}

func TestFieldColumns(t *testing.T) {
	var (
		Nz   = 4
		i, j = 0, 2
		cw   = 0.3
		old  = []complex128{1, 0.5 - 0.1i, 0.25, 0.125 + 0.2i}
	)
	s := newTestSolver(t, types.Triangular, true, 16, 16, Nz)
	defer s.Close()
	p, err := lattice.NewParameters([]float64{400, 100, 50, 200}, true)
	require.NoError(t, err)
	s.geom = lattice.NewGeometry(types.Triangular, p, true)
	s.stage3D = true
	s.Px.Zero()
	s.Py.Zero()
	var (
		G2   = s.rec.G2(i, j)
		kzs2 = s.geom.KzScale() * s.geom.KzScale()
		coup = s.geom.Boundary() * math.Sqrt(G2)
		base = s.grid.Index(i, j, 0)
	)
	require.True(t, s.rec.Allowed(i, j))
	require.Greater(t, coup, 0.)
	{ // Test the surface sum is taken from the previous pass and thickness modes use the halved denominator
		col := append([]complex128{}, old...)
		s.explicitColumn(i, j, base, col, cw)
		var BS complex128
		for k := range old {
			BS += complex(s.rec.Sign[k], 0) * old[k]
		}
		for k := range old {
			D := G2 + cw
			if k != 0 {
				D = 0.5*(G2+s.rec.Lz2[k]*kzs2) + cw
			}
			want := (complex(cw, 0)*old[k] - complex(coup, 0)*BS) / complex(D, 0)
			assert.True(t, cmplx.Abs(want-col[k]) < 1.e-14)
		}
	}
	{ // Test the implicit column satisfies the coupled equations
		col := append([]complex128{}, old...)
		s.implicitColumn(i, j, base, col, cw)
		var S complex128
		for k := range col {
			S += complex(s.rec.Sign[k], 0) * col[k]
		}
		for k := range col {
			D := G2 + s.rec.Lz2[k]*kzs2 + cw
			lhs := complex(D, 0)*col[k] + complex(coup*s.rec.Sign[k], 0)*S
			assert.True(t, cmplx.Abs(lhs-complex(cw, 0)*old[k]) < 1.e-12)
		}
	}
	{ // Test only the in-plane mode survives before the thickness modes are released
		s.stage3D = false
		col := []complex128{old[0], 0, 0, 0}
		s.explicitColumn(i, j, base, col, cw)
		want := (complex(cw, 0)*old[0] - complex(coup, 0)*old[0]) / complex(G2+cw, 0)
		assert.True(t, cmplx.Abs(want-col[0]) < 1.e-14)
		for k := 1; k < Nz; k++ {
			assert.Equal(t, complex128(0), col[k])
		}
	}
}

func TestSolverSoftFailure(t *testing.T) {
	{ // Test the iteration cap keeps the last iterate
		cfg := testConfig(types.Triangular, false, 16, 16, 1)
		cfg.MaxIterations = 2
		s, err := NewSolver(cfg)
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.SetParameters([]float64{400, 100, 50}))
		require.NoError(t, s.CalculateGrid())
		assert.Equal(t, Failed, s.State())
		assert.False(t, s.Converged())
		assert.Equal(t, 2, s.Passes())
		bmax, err := s.GetBmax()
		require.NoError(t, err)
		assert.Greater(t, bmax, 0.)
		_, err = s.GetBmin()
		require.NoError(t, err)
	}
	{ // Test a non-finite order parameter ends the iteration
		s := newTestSolver(t, types.Triangular, false, 16, 16, 1)
		defer s.Close()
		s.OnPass = func(pass int, state State) {
			if pass == 1 {
				s.Omega.Set(s.grid.Index(3, 3, 0), math.NaN())
			}
		}
		require.NoError(t, s.SetParameters([]float64{400, 100, 50}))
		require.NoError(t, s.CalculateGrid())
		assert.Equal(t, Failed, s.State())
		assert.Equal(t, 2, s.Passes())
	}
}

func TestPoles(t *testing.T) {
	var (
		Nx, Ny = 8, 8
	)
	s := newTestSolver(t, types.Triangular, false, Nx, Ny, 1)
	defer s.Close()
	p, err := lattice.NewParameters([]float64{400, 100, 50}, false)
	require.NoError(t, err)
	s.geom = lattice.NewGeometry(types.Triangular, p, false)
	s.Omega.Fill(1)
	s.DOx.Fill(0.5)
	s.DOy.Fill(0.25)
	zeros := [][2]int{{0, 0}, {0, 1}, {5, 6}}
	for _, z := range zeros {
		s.Omega.Set(s.grid.Index(z[0], z[1], 0), 0)
	}
	for j := 0; j < Nx; j++ {
		s.Omega.Set(s.grid.Index(2, j, 0), 0)
	}
	{ // Test the supervelocity vanishes with the order parameter
		s.ComputeBackground()
		kappa2 := 2 * s.geom.Kappa
		for ind := 0; ind < s.grid.Len(); ind++ {
			if s.Omega.At(ind) == 0 {
				assert.Equal(t, 0., s.QAx.At(ind))
				assert.Equal(t, 0., s.QAy.At(ind))
				continue
			}
			assert.InDelta(t, 0.25/kappa2, s.QAx.At(ind), 1.e-15)
			assert.InDelta(t, -0.5/kappa2, s.QAy.At(ind), 1.e-15)
		}
	}
	{ // Test the source term at a pole comes from the next point along x
		w := make([]complex128, s.grid.Len())
		for ind := range w {
			w[ind] = complex(float64(ind+1), 0)
		}
		s.fillPoles(w)
		assert.Equal(t, w[s.grid.Index(0, 2, 0)], w[s.grid.Index(0, 0, 0)])
		assert.Equal(t, w[s.grid.Index(0, 2, 0)], w[s.grid.Index(0, 1, 0)])
		assert.Equal(t, w[s.grid.Index(5, 7, 0)], w[s.grid.Index(5, 6, 0)])
		for j := 0; j < Nx; j++ {
			assert.Equal(t, complex128(0), w[s.grid.Index(2, j, 0)])
		}
		assert.Equal(t, complex(float64(s.grid.Index(4, 4, 0)+1), 0), w[s.grid.Index(4, 4, 0)])
	}
}

func TestRemaps(t *testing.T) {
	var (
		Nx, Ny = 16, 16
		m, n   = 1, 1
	)
	s := newTestSolver(t, types.Triangular, false, Nx, Ny, 1)
	defer s.Close()
	p, err := lattice.NewParameters([]float64{400, 100, 50}, false)
	require.NoError(t, err)
	s.geom = lattice.NewGeometry(types.Triangular, p, false)
	{ // Test the supervelocity of a single cosine field mode
		s.B.Zero()
		s.B.Set(s.grid.Index(n, m, 0), 1)
		s.B.Set(s.grid.Index(Ny-n, Nx-m, 0), 1)
		s.work.CopyFrom(s.B)
		s.RemapForQx(s.work, s.tmp)
		var (
			sqrtC = math.Sqrt(s.geom.C)
			ky    = float64(n) / math.Sqrt(3)
			G2    = float64(m*m) + ky*ky
		)
		for i := 0; i < Ny; i++ {
			for j := 0; j < Nx; j++ {
				theta := 2 * math.Pi * (float64(m*j)/float64(Nx) + float64(n*i)/float64(Ny))
				want := -2 * sqrtC * ky * math.Sin(theta) / G2
				assert.InDelta(t, want, s.tmp.At(s.grid.Index(i, j, 0)), 1.e-12)
			}
		}
		s.work.CopyFrom(s.B)
		s.RemapForQy(s.work, s.tmp)
		for i := 0; i < Ny; i++ {
			for j := 0; j < Nx; j++ {
				theta := 2 * math.Pi * (float64(m*j)/float64(Nx) + float64(n*i)/float64(Ny))
				want := 2 * sqrtC * float64(m) * math.Sin(theta) / G2
				assert.InDelta(t, want, s.tmp.At(s.grid.Index(i, j, 0)), 1.e-12)
			}
		}
	}
	{ // Test the zero mode never leaks into the supervelocity
		s.B.Zero()
		s.B.Set(0, 5)
		s.work.CopyFrom(s.B)
		s.RemapForQx(s.work, s.tmp)
		for _, v := range s.tmp.Data() {
			assert.Equal(t, 0., v)
		}
	}
}
