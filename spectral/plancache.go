package spectral

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ghodss/yaml"
)

const planCacheVersion = 1

type PlanRecord struct {
	Length  int   `json:"length"`
	Factors []int `json:"factors"`
}

/*
PlanCache persists which transform lengths have been planned and verified,
so later runs can skip the verification. It is an optimization only: any
failure to read or write the file disables it and is logged, never returned
to the solver. All methods accept a nil receiver.
*/
type PlanCache struct {
	Version int          `json:"version"`
	Plans   []PlanRecord `json:"plans"`

	path     string
	dirty    bool
	disabled bool
	logger   *slog.Logger
}

// LoadPlanCache reads the cache at path. An empty path yields a disabled
// cache, a missing file an empty one that will be created on Save.
func LoadPlanCache(path string, logger *slog.Logger) (pc *PlanCache) {
	if logger == nil {
		logger = slog.Default()
	}
	pc = &PlanCache{
		Version: planCacheVersion,
		path:    path,
		logger:  logger,
	}
	if len(path) == 0 {
		pc.disabled = true
		return
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return
	case err != nil:
		pc.disable("reading plan cache", err)
		return
	}
	var onDisk PlanCache
	if err = yaml.Unmarshal(data, &onDisk); err != nil {
		pc.disable("parsing plan cache", err)
		return
	}
	if onDisk.Version != planCacheVersion {
		pc.disable("plan cache version", fmt.Errorf("have %d, want %d", onDisk.Version, planCacheVersion))
		return
	}
	for _, rec := range onDisk.Plans {
		if rec.Length < 1 || !sameFactors(rec.Factors, Factorize(rec.Length)) {
			pc.disable("plan cache entry", fmt.Errorf("invalid record for length %d", rec.Length))
			return
		}
	}
	pc.Plans = onDisk.Plans
	logger.Debug("loaded transform plan cache", "path", path, "entries", len(pc.Plans))
	return
}

func (pc *PlanCache) disable(what string, err error) {
	pc.disabled = true
	pc.Plans = nil
	pc.logger.Warn("transform plan cache disabled", "step", what, "path", pc.path, "error", err)
}

func (pc *PlanCache) Enabled() bool {
	return pc != nil && !pc.disabled
}

func (pc *PlanCache) Lookup(n int) (factors []int, known bool) {
	if !pc.Enabled() {
		return
	}
	for _, rec := range pc.Plans {
		if rec.Length == n {
			return rec.Factors, true
		}
	}
	return
}

func (pc *PlanCache) Record(n int, factors []int) {
	if !pc.Enabled() {
		return
	}
	if _, known := pc.Lookup(n); known {
		return
	}
	pc.Plans = append(pc.Plans, PlanRecord{Length: n, Factors: factors})
	sort.Slice(pc.Plans, func(i, j int) bool { return pc.Plans[i].Length < pc.Plans[j].Length })
	pc.dirty = true
}

// Save writes the cache if anything new was recorded. Errors are logged and
// disable the cache; the returned error is informational.
func (pc *PlanCache) Save() (err error) {
	if !pc.Enabled() || !pc.dirty {
		return
	}
	var data []byte
	if data, err = yaml.Marshal(pc); err != nil {
		pc.disable("encoding plan cache", err)
		return
	}
	if err = writeFileAtomic(pc.path, data); err != nil {
		pc.disable("writing plan cache", err)
		return
	}
	pc.dirty = false
	return
}

func writeFileAtomic(path string, data []byte) (err error) {
	var f *os.File
	if f, err = os.CreateTemp(filepath.Dir(path), ".plancache-*"); err != nil {
		return
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return
	}
	if err = f.Close(); err != nil {
		return
	}
	err = os.Rename(tmp, path)
	return
}

func sameFactors(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
