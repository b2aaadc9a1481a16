package GLVortex

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/aPeter1/musrfit-fork-sub008/lattice"
)

// FieldRecord is one grid point of an exported field grid
type FieldRecord struct {
	X  float64 `csv:"x_nm"`
	Y  float64 `csv:"y_nm"`
	Z  float64 `csv:"z_nm"`
	Bx float64 `csv:"bx_G"`
	By float64 `csv:"by_G"`
	Bz float64 `csv:"bz_G"`
}

// Records lists the grid of fc with positions in nm. g and lambda describe
// the cell the grid was calculated for.
func Records(fc FieldCalc, g lattice.Geometry, lambda float64) (records []FieldRecord) {
	var (
		nx, ny, nz = fc.GetNumberOfSteps()
		bx, by, bz = fc.DataB()
		dx         = g.Lx * lambda / float64(nx)
		dy         = g.Ly * lambda / float64(ny)
		dz         = g.Lz * lambda / float64(nz)
	)
	records = make([]FieldRecord, 0, len(bz))
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			for k := 0; k < nz; k++ {
				ind := k + nz*(j+nx*i)
				records = append(records, FieldRecord{
					X: float64(j) * dx, Y: float64(i) * dy, Z: float64(k) * dz,
					Bx: bx[ind], By: by[ind], Bz: bz[ind],
				})
			}
		}
	}
	return
}

func WriteCSV(w io.Writer, records []FieldRecord) (err error) {
	if err = gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing field grid: %w", err)
	}
	return
}
