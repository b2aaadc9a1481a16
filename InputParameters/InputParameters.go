package InputParameters

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"
)

// VortexInput holds a field grid run read from a YAML file
type VortexInput struct {
	Title         string  `json:"Title"`
	Symmetry      string  `json:"Symmetry"` // Triangular or Square
	Film          bool    `json:"Film"`
	Field         float64 `json:"Field"`     // Gauss
	Lambda        float64 `json:"Lambda"`    // nm
	Xi            float64 `json:"Xi"`        // nm
	Thickness     float64 `json:"Thickness"` // nm, films only
	Nx            int     `json:"Nx"`
	Ny            int     `json:"Ny"`
	Nz            int     `json:"Nz"`
	MaxIterations int     `json:"MaxIterations"`
	Tolerance     float64 `json:"Tolerance"`
	AbsoluteFloor float64 `json:"AbsoluteFloor"`
	PlanCache     string  `json:"PlanCache"`
}

func (ip *VortexInput) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func ReadFile(path string) (ip *VortexInput, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = &VortexInput{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return
}

// ParameterVector is the positional {field, lambda, xi[, thickness]} vector of a calculator
func (ip *VortexInput) ParameterVector() []float64 {
	if ip.Film {
		return []float64{ip.Field, ip.Lambda, ip.Xi, ip.Thickness}
	}
	return []float64{ip.Field, ip.Lambda, ip.Xi}
}

// Overlay replaces every value of ip that src sets. Film can only be switched on.
func (ip *VortexInput) Overlay(src *VortexInput) {
	if src.Title != "" {
		ip.Title = src.Title
	}
	if src.Symmetry != "" {
		ip.Symmetry = src.Symmetry
	}
	ip.Film = ip.Film || src.Film
	for _, f := range []struct{ dst, v *float64 }{
		{&ip.Field, &src.Field}, {&ip.Lambda, &src.Lambda}, {&ip.Xi, &src.Xi},
		{&ip.Thickness, &src.Thickness}, {&ip.Tolerance, &src.Tolerance},
		{&ip.AbsoluteFloor, &src.AbsoluteFloor},
	} {
		if *f.v != 0 {
			*f.dst = *f.v
		}
	}
	for _, n := range []struct{ dst, v *int }{
		{&ip.Nx, &src.Nx}, {&ip.Ny, &src.Ny}, {&ip.Nz, &src.Nz}, {&ip.MaxIterations, &src.MaxIterations},
	} {
		if *n.v != 0 {
			*n.dst = *n.v
		}
	}
	if src.PlanCache != "" {
		ip.PlanCache = src.PlanCache
	}
}

func (ip *VortexInput) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t= Symmetry\n", ip.Symmetry)
	fmt.Fprintf(w, "[%v]\t\t\t= Film\n", ip.Film)
	fmt.Fprintf(w, "%8.3f\t\t= Field (G)\n", ip.Field)
	fmt.Fprintf(w, "%8.3f\t\t= Lambda (nm)\n", ip.Lambda)
	fmt.Fprintf(w, "%8.3f\t\t= Xi (nm)\n", ip.Xi)
	if ip.Film {
		fmt.Fprintf(w, "%8.3f\t\t= Thickness (nm)\n", ip.Thickness)
	}
	fmt.Fprintf(w, "[%d x %d x %d]\t\t= Grid\n", ip.Nx, ip.Ny, ip.Nz)
	fmt.Fprintf(w, "[%d]\t\t\t= MaxIterations\n", ip.MaxIterations)
	fmt.Fprintf(w, "%8.5f\t\t= Tolerance\n", ip.Tolerance)
}
