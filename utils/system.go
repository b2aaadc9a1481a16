package utils

import (
	"log/slog"
	"math"
	"math/cmplx"
	"runtime"
)

// MemStats reports the heap and system memory of the process as a log group
func MemStats() slog.Attr {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	toMiB := func(b uint64) uint64 { return b >> 20 }
	return slog.Group("mem",
		slog.Uint64("alloc_mib", toMiB(m.Alloc)),
		slog.Uint64("total_alloc_mib", toMiB(m.TotalAlloc)),
		slog.Uint64("sys_mib", toMiB(m.Sys)),
		slog.Uint64("num_gc", uint64(m.NumGC)))
}

func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case complex128:
		return cmplx.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case []complex128:
		for _, c := range v {
			if cmplx.IsNaN(c) {
				return true
			}
		}
	case [3][]float64:
		for n := 0; n < 3; n++ {
			if IsNan(v[n]) {
				return true
			}
		}
	}
	return false
}
