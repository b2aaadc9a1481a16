/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aPeter1/musrfit-fork-sub008/InputParameters"
	"github.com/aPeter1/musrfit-fork-sub008/lattice"
	"github.com/aPeter1/musrfit-fork-sub008/model_problems/GLVortex"
	"github.com/aPeter1/musrfit-fork-sub008/types"
)

type SolveRun struct {
	Config  GLVortex.Config
	Input   *InputParameters.VortexInput
	Values  []float64
	Title   string
	CSVFile string
	Profile string
	Verbose bool
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Calculate the field grid of one vortex lattice",
	Long: `
Calculates the local field over the unit cell of a triangular or square vortex
lattice with the numeric Ginzburg-Landau model. Values from an input file
(--input) take precedence over flags, flags over the config file.

vortexfield solve --field 100 --lambda 150 --xi 5 --film --thickness 300 --csv field.csv`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var run *SolveRun
		if run, err = NewSolveRun(viper.GetViper()); err != nil {
			return
		}
		switch run.Profile {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		default:
			return fmt.Errorf("unknown profile %q, want cpu or mem", run.Profile)
		}
		return run.Execute(cmd.OutOrStdout(), slog.Default())
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	def := GLVortex.DefaultConfig()
	SolveCmd.Flags().Float64("field", 0, "average field in Gauss")
	SolveCmd.Flags().Float64("lambda", 0, "penetration depth in nm")
	SolveCmd.Flags().Float64("xi", 0, "coherence length in nm")
	SolveCmd.Flags().Float64("thickness", 0, "film thickness in nm")
	SolveCmd.Flags().String("model", "NumericGL", "field model, only NumericGL is iterative")
	SolveCmd.Flags().StringP("symmetry", "s", "triangular", "vortex lattice symmetry: triangular or square")
	SolveCmd.Flags().Bool("film", false, "solve a thin film, needs --thickness")
	SolveCmd.Flags().Int("nx", def.Nx, "grid steps along x")
	SolveCmd.Flags().Int("ny", def.Ny, "grid steps along y")
	SolveCmd.Flags().Int("nz", 0, "grid steps across the film, 0 picks 1 for bulk and 16 for films")
	SolveCmd.Flags().Int("max-iterations", def.MaxIterations, "iteration cap")
	SolveCmd.Flags().Float64("tolerance", def.Tolerance, "relative change of a coefficient counted as converged")
	SolveCmd.Flags().Float64("floor", def.AbsoluteFloor, "coefficients smaller than this are not compared")
	SolveCmd.Flags().IntP("workers", "w", 0, "go routines for parallel loops, 0 uses every CPU")
	SolveCmd.Flags().String("plan-cache", "", "file caching transform plans between runs")
	SolveCmd.Flags().Bool("mirror", false, "re-impose Hermitian symmetry on the coefficients after each update")
	SolveCmd.Flags().Bool("implicit-boundary", false, "solve the film surface coupling of each column exactly instead of lagging it one pass")
	SolveCmd.Flags().StringP("input", "I", "", "YAML file with the run parameters")
	SolveCmd.Flags().String("csv", "", "write the field grid to this CSV file")
	SolveCmd.Flags().String("profile", "", "write a cpu or mem profile to the working directory")
	_ = viper.BindPFlags(SolveCmd.Flags())
}

// NewSolveRun collects a run from flags, environment, config file and an optional input file
func NewSolveRun(v *viper.Viper) (run *SolveRun, err error) {
	run = &SolveRun{
		Config:  GLVortex.DefaultConfig(),
		CSVFile: v.GetString("csv"),
		Profile: v.GetString("profile"),
		Verbose: v.GetBool("verbose"),
	}
	cfg := &run.Config
	if label := v.GetString("model"); label != "" {
		if cfg.Variant.Model, err = types.NewModel(label); err != nil {
			return nil, err
		}
	}
	ip := &InputParameters.VortexInput{
		Symmetry:      v.GetString("symmetry"),
		Film:          v.GetBool("film"),
		Field:         v.GetFloat64("field"),
		Lambda:        v.GetFloat64("lambda"),
		Xi:            v.GetFloat64("xi"),
		Thickness:     v.GetFloat64("thickness"),
		Nx:            v.GetInt("nx"),
		Ny:            v.GetInt("ny"),
		Nz:            v.GetInt("nz"),
		MaxIterations: v.GetInt("max-iterations"),
		Tolerance:     v.GetFloat64("tolerance"),
		AbsoluteFloor: v.GetFloat64("floor"),
		PlanCache:     v.GetString("plan-cache"),
	}
	if path := v.GetString("input"); path != "" {
		var file *InputParameters.VortexInput
		if file, err = InputParameters.ReadFile(path); err != nil {
			return nil, err
		}
		ip.Overlay(file)
	}
	run.Input = ip
	run.Title = ip.Title
	if ip.Symmetry != "" {
		if cfg.Variant.Symmetry, err = types.NewSymmetry(ip.Symmetry); err != nil {
			return nil, err
		}
	}
	cfg.Variant.Film = ip.Film
	cfg.Nz = ip.Nz
	overrideInt(&cfg.Nx, ip.Nx)
	overrideInt(&cfg.Ny, ip.Ny)
	overrideInt(&cfg.MaxIterations, ip.MaxIterations)
	overrideFloat(&cfg.Tolerance, ip.Tolerance)
	overrideFloat(&cfg.AbsoluteFloor, ip.AbsoluteFloor)
	cfg.ProcLimit = v.GetInt("workers")
	cfg.PlanCacheFile = ip.PlanCache
	cfg.MirrorOnReadout = v.GetBool("mirror")
	cfg.ImplicitBoundary = v.GetBool("implicit-boundary")
	if cfg.Nz == 0 {
		cfg.Nz = 1
		if cfg.Variant.Film {
			cfg.Nz = GLVortex.DefaultFilmConfig().Nz
		}
	}
	run.Values = ip.ParameterVector()
	return
}

func overrideFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Execute solves the run, prints a summary to w and writes the CSV file if requested
func (run *SolveRun) Execute(w io.Writer, logger *slog.Logger) (err error) {
	run.Config.Logger = logger
	var fc GLVortex.FieldCalc
	if fc, err = GLVortex.NewFieldCalc(run.Config.Variant, run.Config); err != nil {
		return
	}
	defer func() {
		if cerr := fc.Close(); err == nil {
			err = cerr
		}
	}()
	if err = fc.SetParameters(run.Values); err != nil {
		return
	}
	if err = fc.CalculateGrid(); err != nil {
		return
	}
	var bmin, bmax float64
	if bmin, err = fc.GetBmin(); err != nil {
		return
	}
	if bmax, err = fc.GetBmax(); err != nil {
		return
	}
	s := fc.(*GLVortex.Solver)
	p := s.Parameters()
	if run.Verbose && run.Input != nil {
		run.Input.Print(w)
	} else if run.Title != "" {
		fmt.Fprintf(w, "\"%s\"\n", run.Title)
	}
	fmt.Fprintf(w, "%s\n", p.Print())
	fmt.Fprintf(w, "%-14s = %s\n", "variant", run.Config.Variant)
	fmt.Fprintf(w, "%-14s = %d x %d x %d\n", "grid", run.Config.Nx, run.Config.Ny, run.Config.Nz)
	fmt.Fprintf(w, "%-14s = %10.3f nm\n", "lattice a", p.LatticeConstant(run.Config.Variant.Symmetry))
	fmt.Fprintf(w, "%-14s = %s after %d passes\n", "state", s.State(), s.Passes())
	fmt.Fprintf(w, "%-14s = %10.4f G\n", "Bmin", bmin)
	fmt.Fprintf(w, "%-14s = %10.4f G\n", "Bmax", bmax)

	if run.CSVFile == "" {
		return
	}
	return writeGrid(run.CSVFile, fc, s.Geometry(), p)
}

func writeGrid(path string, fc GLVortex.FieldCalc, g lattice.Geometry, p lattice.Parameters) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return GLVortex.WriteCSV(f, GLVortex.Records(fc, g, math.Abs(p.Lambda)))
}
