package GLVortex

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/aPeter1/musrfit-fork-sub008/lattice"
	"github.com/aPeter1/musrfit-fork-sub008/spectral"
	"github.com/aPeter1/musrfit-fork-sub008/types"
	"github.com/aPeter1/musrfit-fork-sub008/utils"
)

type Solver struct {
	cfg    Config
	logger *slog.Logger
	grid   *spectral.Grid
	rec    *lattice.Reciprocal
	arena  *types.Arena
	params lattice.Parameters
	geom   lattice.Geometry
	ctl    *Controller

	// Coefficients and their snapshots from the previous pass
	A, B, Aold, Bold types.Spectrum
	// Transform scratch
	work, Px, Py types.Spectrum
	// Real space fields
	Omega, DOx, DOy, DOz types.RealField
	QAx, QAy, Qx, Qy     types.RealField
	Bx, By, Bz, tmp      types.RealField
	BzAverage            []float64

	points  *utils.PartitionMap // over all N grid points
	columns *utils.PartitionMap // over the Nx*Ny z-columns
	partial [][4]float64        // per worker reduction slots
	anchor  []complex128        // per plane value of the inverse transform at the core column
	poles   []int               // scratch list of points with a vanishing order parameter

	stage3D   bool
	paramsSet bool
	dirty     bool
	gridValid bool
	lastErr   error
	bmin      float64
	bmax      float64

	// OnPass, when set, is called after every completed fixed point pass
	OnPass func(pass int, state State)
}

func NewSolver(cfg Config) (s *Solver, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s = &Solver{
		cfg: cfg,
		logger: cfg.Logger.With(
			slog.String("variant", cfg.Variant.String()),
			slog.Int("nx", cfg.Nx), slog.Int("ny", cfg.Ny), slog.Int("nz", cfg.Nz)),
	}
	cache := spectral.LoadPlanCache(cfg.PlanCacheFile, s.logger)
	if s.grid, err = spectral.NewGrid(cfg.Nx, cfg.Ny, cfg.Nz, cfg.ProcLimit, cache); err != nil {
		return nil, err
	}
	s.rec = lattice.NewReciprocal(cfg.Variant.Symmetry, cfg.Nx, cfg.Ny, cfg.Nz)
	s.ctl = NewController(cfg.MaxIterations, cfg.Tolerance, cfg.AbsoluteFloor, cfg.Variant.Film, cfg.ProcLimit, s.grid.Len())

	N := s.grid.Len()
	s.arena = types.NewArena(N)
	s.A, s.B = s.arena.Complex("A"), s.arena.Complex("B")
	s.Aold, s.Bold = s.arena.Complex("Aold"), s.arena.Complex("Bold")
	s.work, s.Px, s.Py = s.arena.Complex("work"), s.arena.Complex("Px"), s.arena.Complex("Py")
	s.Omega = s.arena.Real("omega")
	s.DOx, s.DOy, s.DOz = s.arena.Real("dOmega/dx"), s.arena.Real("dOmega/dy"), s.arena.Real("dOmega/dz")
	s.QAx, s.QAy = s.arena.Real("QAx"), s.arena.Real("QAy")
	s.Qx, s.Qy = s.arena.Real("Qx"), s.arena.Real("Qy")
	s.Bx, s.By, s.Bz = s.arena.Real("Bx"), s.arena.Real("By"), s.arena.Real("Bz")
	s.tmp = s.arena.Real("tmp")
	s.BzAverage = make([]float64, cfg.Nx*cfg.Ny)

	s.points = utils.NewPartitionMap(utils.ParallelDegreeFor(cfg.ProcLimit, N), N)
	s.columns = utils.NewPartitionMap(utils.ParallelDegreeFor(cfg.ProcLimit, cfg.Nx*cfg.Ny), cfg.Nx*cfg.Ny)
	s.partial = make([][4]float64, s.points.ParallelDegree)
	s.anchor = make([]complex128, cfg.Nz)
	s.logger.Debug("allocated solver buffers",
		slog.Int("bytes", s.arena.Footprint()), slog.Int("workers", s.points.ParallelDegree),
		slog.Int("transform_workers", s.grid.Workers()), utils.MemStats())
	return
}

// SetParameters stores {field, lambda, xi[, thickness]} in G and nm. The grid
// is recalculated lazily; only the count is checked here. A rejected vector
// invalidates the grid until valid parameters are set.
func (s *Solver) SetParameters(values []float64) (err error) {
	p, err := lattice.NewParameters(values, s.cfg.Variant.Film)
	if err != nil {
		s.logger.Error("rejected parameter vector", slog.Any("error", err))
		s.lastErr = fmt.Errorf("%w: %w", ErrInvalidParameters, err)
		s.paramsSet, s.dirty, s.gridValid = false, false, false
		return s.lastErr
	}
	if s.paramsSet && p == s.params {
		return
	}
	s.params, s.paramsSet = p, true
	s.dirty = true
	return
}

func (s *Solver) Parameters() lattice.Parameters { return s.params }

// CalculateGrid brings the field grid up to date with the last parameters.
// It is a no-op when nothing changed since the previous call.
func (s *Solver) CalculateGrid() (err error) {
	if !s.dirty {
		if s.lastErr != nil {
			return s.lastErr
		}
		if !s.paramsSet {
			return fmt.Errorf("%w: no parameters set", ErrInvalidParameters)
		}
		return
	}
	s.dirty = false
	s.gridValid = false
	if err = s.params.Validate(s.cfg.Variant.Film); err != nil {
		s.logger.Error("cannot calculate field grid", slog.String("parameters", s.params.Print()), slog.Any("error", err))
		s.lastErr = fmt.Errorf("%w: %w", ErrInvalidParameters, err)
		return s.lastErr
	}
	s.lastErr = nil
	s.geom = lattice.NewGeometry(s.cfg.Variant.Symmetry, s.params, s.cfg.Variant.Film)
	if s.params.IsNormalState() {
		s.logger.Info("parameters describe the normal state, field is uniform",
			slog.String("parameters", s.params.Print()))
		s.uniformField()
		s.gridValid = true
		return
	}
	s.iterate()
	s.extractFields()
	s.gridValid = true
	return
}

func (s *Solver) uniformField() {
	field := math.Abs(s.params.Field)
	s.A.Zero()
	s.B.Zero()
	s.Bx.Fill(0)
	s.By.Fill(0)
	s.Bz.Fill(field)
	for c := range s.BzAverage {
		s.BzAverage[c] = field
	}
	s.bmin, s.bmax = field, field
	s.ctl.Reset()
	s.ctl.State = Converged
}

// iterate runs the fixed point loop from the Abrikosov seed until both
// coefficient arrays converge or the iteration cap is reached
func (s *Solver) iterate() {
	s.ctl.Reset()
	s.stage3D = false
	s.rec.AbrikosovSeed(s.A.Data())
	s.B.Zero()
	s.Aold.CopyFrom(s.A)
	s.Bold.Zero()

	s.ComputeOmega(s.A)
	s.ComputeGradient(s.A)
	s.ComputeBackground()
	s.Qx.CopyFrom(s.QAx)
	s.Qy.CopyFrom(s.QAy)

	s.logger.Debug("starting vortex lattice iteration",
		slog.String("parameters", s.params.Print()),
		slog.Float64("a", s.geom.A), slog.Float64("C", s.geom.C))
	for !s.ctl.Done() {
		s.UpdateA()
		s.ctl.AConverged = s.ctl.Check(s.A, s.Aold)
		s.UpdateB()
		s.ctl.BConverged = s.ctl.Check(s.B, s.Bold)
		s.ComputeCorrection(s.B)
		if s.ctl.Advance() {
			s.stage3D = true
			s.logger.Debug("in-plane solution converged, releasing thickness modes",
				slog.Int("pass", s.ctl.Passes))
		}
		if utils.IsNan(s.Omega.Data()) || utils.IsNan(s.B.Data()) {
			s.logger.Error("iteration diverged", slog.Int("pass", s.ctl.Passes))
			s.ctl.State = Failed
		}
		if s.OnPass != nil {
			s.OnPass(s.ctl.Passes, s.ctl.State)
		}
	}
	switch s.ctl.State {
	case Converged:
		s.logger.Info("vortex lattice converged", slog.Int("passes", s.ctl.Passes))
		s.logger.Debug("memory after iteration", utils.MemStats())
	default:
		s.logger.Warn("vortex lattice did not converge, keeping last iterate",
			slog.Int("passes", s.ctl.Passes),
			slog.Bool("a_converged", s.ctl.AConverged), slog.Bool("b_converged", s.ctl.BConverged))
	}
}

func (s *Solver) State() State { return s.ctl.State }

func (s *Solver) Converged() bool { return s.ctl.State == Converged }

func (s *Solver) Passes() int { return s.ctl.Passes }

func (s *Solver) IsTriangular() bool {
	return s.cfg.Variant.Symmetry == types.Triangular
}

func (s *Solver) GetNumberOfSteps() (nx, ny, nz int) {
	return s.cfg.Nx, s.cfg.Ny, s.cfg.Nz
}

func (s *Solver) Geometry() lattice.Geometry { return s.geom }

// Close persists the transform plan cache
func (s *Solver) Close() (err error) {
	if err = s.grid.Close(); err != nil {
		s.logger.Warn("could not save transform plan cache", slog.Any("error", err))
	}
	return
}

// reduce sums up to four per point quantities over the grid in parallel
func (s *Solver) reduce(f func(ind int, acc *[4]float64)) (tot [4]float64) {
	for np := range s.partial {
		s.partial[np] = [4]float64{}
	}
	s.points.Run(func(np, kMin, kMax int) {
		acc := &s.partial[np]
		for ind := kMin; ind < kMax; ind++ {
			f(ind, acc)
		}
	})
	for np := range s.partial {
		for n := range tot {
			tot[n] += s.partial[np][n]
		}
	}
	return
}

// forEach runs f over all grid points in parallel
func (s *Solver) forEach(f func(ind int)) {
	s.points.Run(func(_, kMin, kMax int) {
		for ind := kMin; ind < kMax; ind++ {
			f(ind)
		}
	})
}
