package engine

import (
	"math"
	"time"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/store"
)

// AgingEngine applies corruption whose likelihood and severity grow with
// record age:
//
//	chance = min(ChanceBase + ageDays*ChanceGrowth, ChanceCap)
//	rate   = min(RateBase   + ageDays*RateGrowth,   RateCap)
//
// Both curves saturate, so no record is ever certain to be hit or wiped in
// a single pass.
type AgingEngine struct {
	eroder
	config.AgingConfig
	now func() time.Time
}

// AgeDays returns the age of a record created at createdAt, in fractional
// days. Records stamped in the future count as brand new.
func AgeDays(now, createdAt time.Time) float64 {
	d := now.Sub(createdAt).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// CorruptionChance is the probability that a record of the given age is
// eroded in one pass.
func (a *AgingEngine) CorruptionChance(ageDays float64) float64 {
	return math.Min(a.ChanceBase+math.Max(ageDays, 0)*a.ChanceGrowth, a.ChanceCap)
}

// CorruptionRate is the per-character deletion probability applied to a
// record of the given age once it is selected.
func (a *AgingEngine) CorruptionRate(ageDays float64) float64 {
	return math.Min(a.RateBase+math.Max(ageDays, 0)*a.RateGrowth, a.RateCap)
}

// Apply runs one aging pass against the current clock.
func (a *AgingEngine) Apply() (PassResult, error) {
	now := a.now()
	return a.pass("aging", func(rec store.Record) (float64, float64) {
		age := AgeDays(now, rec.CreatedAt)
		return a.CorruptionChance(age), a.CorruptionRate(age)
	})
}
