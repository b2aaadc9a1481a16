package types

import (
	"fmt"
	"strings"
)

// Model selects the vortex-lattice field model of a calculator
type Model uint8

const (
	London Model = iota
	ModifiedLondon
	AnalyticGL
	NumericGL
)

var ModelNameMap = map[string]Model{
	"london":         London,
	"modifiedlondon": ModifiedLondon,
	"analyticgl":     AnalyticGL,
	"ngl":            NumericGL,
	"numericgl":      NumericGL,
}

func (m Model) String() string {
	switch m {
	case London:
		return "London"
	case ModifiedLondon:
		return "ModifiedLondon"
	case AnalyticGL:
		return "AnalyticGL"
	case NumericGL:
		return "NumericGL"
	}
	return fmt.Sprintf("Model(%d)", uint8(m))
}

// Symmetry is the vortex lattice symmetry
type Symmetry uint8

const (
	Triangular Symmetry = iota
	Square
)

var SymmetryNameMap = map[string]Symmetry{
	"triangular": Triangular,
	"tri":        Triangular,
	"hexagonal":  Triangular,
	"square":     Square,
	"sq":         Square,
}

func (s Symmetry) String() string {
	switch s {
	case Triangular:
		return "Triangular"
	case Square:
		return "Square"
	}
	return fmt.Sprintf("Symmetry(%d)", uint8(s))
}

// Variant is the {Model}x{Symmetry} tag used to pick a field calculator
type Variant struct {
	Model    Model
	Symmetry Symmetry
	Film     bool
}

func (v Variant) String() string {
	geom := "Bulk"
	if v.Film {
		geom = "Film"
	}
	return fmt.Sprintf("%s%s%s", geom, v.Symmetry, v.Model)
}

func NewModel(label string) (m Model, err error) {
	var ok bool
	if m, ok = ModelNameMap[normalizeLabel(label)]; !ok {
		err = fmt.Errorf("unknown model %q", label)
	}
	return
}

func NewSymmetry(label string) (s Symmetry, err error) {
	var ok bool
	if s, ok = SymmetryNameMap[normalizeLabel(label)]; !ok {
		err = fmt.Errorf("unknown lattice symmetry %q", label)
	}
	return
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "-", "")
	return strings.ReplaceAll(label, "_", "")
}
