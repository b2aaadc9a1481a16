package InputParameters

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVortexInput(t *testing.T) {
	input := `
########################################
Title: "Film at 100 G"
Symmetry: Triangular
Film: true
Field: 100
Lambda: 150
Xi: 5
Thickness: 300
Nx: 64
Ny: 64
Nz: 16
Tolerance: 0.005
########################################
`
	{ // Test parsing of a film run
		ip := &VortexInput{}
		require.NoError(t, ip.Parse([]byte(input)))
		assert.Equal(t, "Film at 100 G", ip.Title)
		assert.Equal(t, "Triangular", ip.Symmetry)
		assert.True(t, ip.Film)
		assert.Equal(t, []float64{100, 150, 5, 300}, ip.ParameterVector())
		assert.Equal(t, [3]int{64, 64, 16}, [3]int{ip.Nx, ip.Ny, ip.Nz})
		assert.Equal(t, 0.005, ip.Tolerance)
		assert.Equal(t, 0, ip.MaxIterations)
		ip.Film = false
		assert.Equal(t, []float64{100, 150, 5}, ip.ParameterVector())
	}
	{ // Test a file overlays only the values it sets
		ip := &VortexInput{Symmetry: "square", Field: 50, Lambda: 80, Xi: 4, Nx: 32, MaxIterations: 100}
		ip.Overlay(&VortexInput{Title: "overlay", Film: true, Field: 75, Thickness: 200, Nz: 8})
		assert.Equal(t, "overlay", ip.Title)
		assert.Equal(t, "square", ip.Symmetry)
		assert.Equal(t, []float64{75, 80, 4, 200}, ip.ParameterVector())
		assert.Equal(t, [3]int{32, 0, 8}, [3]int{ip.Nx, ip.Ny, ip.Nz})
		assert.Equal(t, 100, ip.MaxIterations)
	}
	{ // Test the echo of a run
		ip := &VortexInput{}
		require.NoError(t, ip.Parse([]byte(input)))
		var buf bytes.Buffer
		ip.Print(&buf)
		out := buf.String()
		assert.Contains(t, out, "\"Film at 100 G\"\t\t= Title")
		assert.Contains(t, out, " 300.000\t\t= Thickness (nm)")
		assert.Contains(t, out, "[64 x 64 x 16]\t\t= Grid")
		ip.Film = false
		buf.Reset()
		ip.Print(&buf)
		assert.NotContains(t, buf.String(), "Thickness")
	}
	{ // Test reading from a file
		path := filepath.Join(t.TempDir(), "run.yaml")
		require.NoError(t, os.WriteFile(path, []byte(input), 0644))
		ip, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 300., ip.Thickness)
		_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
		require.NoError(t, os.WriteFile(path, []byte("Field: [1, 2"), 0644))
		_, err = ReadFile(path)
		assert.Error(t, err)
	}
}
