package GLVortex

import (
	"math/cmplx"

	"github.com/aPeter1/musrfit-fork-sub008/types"
	"github.com/aPeter1/musrfit-fork-sub008/utils"
)

type State uint8

const (
	SearchingTwoD State = iota
	SearchingThreeD
	Converged
	Failed
)

var StateNames = map[State]string{
	SearchingTwoD:   "searching (in-plane)",
	SearchingThreeD: "searching (thickness)",
	Converged:       "converged",
	Failed:          "failed",
}

func (s State) String() string {
	if name, ok := StateNames[s]; ok {
		return name
	}
	return "unknown"
}

/*
Controller tracks the convergence of the two coefficient arrays across
fixed point passes. A film is first solved with in-plane modes only; once
both arrays settle the thickness modes are released and both flags reset.
Reaching the iteration cap is a soft failure: the last iterate is kept.
*/
type Controller struct {
	State                  State
	AConverged, BConverged bool
	Passes                 int
	MaxIterations          int
	Tolerance, Floor       float64
	film                   bool
	pm                     *utils.PartitionMap
	results                []checkResult
}

type checkResult struct {
	compared int
	changed  bool
	nonZero  bool
}

func NewController(MaxIterations int, Tolerance, Floor float64, film bool, ProcLimit, N int) (c *Controller) {
	c = &Controller{
		MaxIterations: MaxIterations,
		Tolerance:     Tolerance,
		Floor:         Floor,
		film:          film,
		pm:            utils.NewPartitionMap(utils.ParallelDegreeFor(ProcLimit, N), N),
	}
	c.results = make([]checkResult, c.pm.ParallelDegree)
	c.Reset()
	return
}

func (c *Controller) Reset() {
	c.State = SearchingTwoD
	c.AConverged, c.BConverged = false, false
	c.Passes = 0
}

/*
Check compares the new coefficients with the snapshot of the previous pass
and then overwrites the snapshot. Modes are compared where the old magnitude
exceeds the floor; a mode jumping from below the floor to well above it
counts as changed. An array with no comparable modes is converged only if
it is negligible everywhere.
*/
func (c *Controller) Check(cur, old types.Spectrum) (converged bool) {
	var (
		nd = cur.Data()
		od = old.Data()
	)
	c.pm.Run(func(np, kMin, kMax int) {
		r := checkResult{}
		for ind := kMin; ind < kMax; ind++ {
			var (
				mOld = cmplx.Abs(od[ind])
				mNew = cmplx.Abs(nd[ind])
			)
			if mNew > c.Floor {
				r.nonZero = true
			}
			switch {
			case mOld > c.Floor:
				r.compared++
				if cmplx.Abs(nd[ind]-od[ind]) >= c.Tolerance*mOld {
					r.changed = true
				}
			case mNew > 10*c.Floor:
				r.changed = true
			}
			od[ind] = nd[ind]
		}
		c.results[np] = r
	})
	var (
		compared         int
		changed, nonZero bool
	)
	for np := range c.results {
		compared += c.results[np].compared
		changed = changed || c.results[np].changed
		nonZero = nonZero || c.results[np].nonZero
		c.results[np] = checkResult{}
	}
	if changed {
		return false
	}
	return compared > 0 || !nonZero
}

// Advance closes a pass and reports whether the thickness modes were just released
func (c *Controller) Advance() (enteredThreeD bool) {
	c.Passes++
	if c.AConverged && c.BConverged {
		if c.State == SearchingTwoD && c.film {
			if c.Passes >= c.MaxIterations {
				c.State = Failed
				return
			}
			c.State = SearchingThreeD
			c.AConverged, c.BConverged = false, false
			return true
		}
		c.State = Converged
		return
	}
	if c.Passes >= c.MaxIterations {
		c.State = Failed
	}
	return
}

func (c *Controller) Done() bool {
	return c.State == Converged || c.State == Failed
}
