// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"math"

	"github.com/platformbuilds/classprof/internal/pgolog"
)

// Ratio is a fraction kept with its denominator so an empty denominator can
// be reported as undefined instead of zero.
type Ratio struct {
	Num float64
	Den float64
}

func ratio[T int64 | float64](num, den T) Ratio {
	return Ratio{Num: float64(num), Den: float64(den)}
}

// Value is Num/Den, or NaN when Den is zero.
func (r Ratio) Value() float64 {
	if r.Den == 0 {
		return math.NaN()
	}
	return r.Num / r.Den
}

// Percent is 100*Value.
func (r Ratio) Percent() float64 {
	return 100 * r.Value()
}

// Defined reports whether the denominator is non-zero.
func (r Ratio) Defined() bool {
	return r.Den != 0
}

const numCategories = int(PolymorphicRemainder) + 1

// Counts holds one value per Category.
type Counts [numCategories]int64

// Get returns the value for c.
func (c Counts) Get(cat Category) int64 { return c[cat] }

// Sum adds up all categories.
func (c Counts) Sum() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Polymorphic adds up the three polymorphic categories.
func (c Counts) Polymorphic() int64 {
	return c[PolymorphicPredictable] + c[PolymorphicMarginal] + c[PolymorphicRemainder]
}

// GDV adds up the categories a guarded devirtualization speculates on.
func (c Counts) GDV() int64 {
	return c[Monomorphic] + c[Bimorphic] + c[PolymorphicPredictable] + c[PolymorphicMarginal]
}

// StaticStats counts call sites.
type StaticStats struct {
	Total    int64
	Missed   int64 // no samples
	Profiled int64 // at least one sample
	Sites    Counts
}

// Share is n as a fraction of all call sites.
func (s StaticStats) Share(n int64) Ratio { return ratio(n, s.Total) }

// GDVSites is the number of sites a guarded devirtualization would make a
// prediction at.
func (s StaticStats) GDVSites() int64 { return s.Sites.GDV() }

// GDVCoverage is GDVSites over all call sites.
func (s StaticStats) GDVCoverage() Ratio { return s.Share(s.GDVSites()) }

// DynamicStats sums Samples over call sites.
type DynamicStats struct {
	ProfiledCalls int64
	Calls         Counts
}

// Share is n as a fraction of the profiled call volume.
func (d DynamicStats) Share(n int64) Ratio { return ratio(n, d.ProfiledCalls) }

// Impact estimates how many sampled calls a guarded devirtualization would
// predict correctly. Monomorphic calls are fully credited; bimorphic and
// polymorphic sites are credited with their dominant calls, truncated per
// category.
type Impact struct {
	Wins Counts

	// GDVCalls is the total over the speculated categories. Remainder wins
	// are excluded.
	GDVCalls int64
}

// Stats is the full breakdown for one set of call sites.
type Stats struct {
	Static  StaticStats
	Dynamic DynamicStats
	Impact  Impact
}

// GDVImpact is the predicted calls over the profiled call volume.
func (s *Stats) GDVImpact() Ratio {
	return s.Dynamic.Share(s.Impact.GDVCalls)
}

// WinRate is the predicted share of a category's own calls.
func (s *Stats) WinRate(c Category) Ratio {
	return ratio(s.Impact.Wins[c], s.Dynamic.Calls[c])
}

// Analyze computes the static and dynamic breakdown of sites.
func Analyze(sites []*pgolog.CallSite, th Thresholds) *Stats {
	st := &Stats{}
	var dominant [numCategories]float64

	for _, cs := range sites {
		cat := Classify(cs, th)
		samples := int64(cs.Samples)

		st.Static.Total++
		st.Static.Sites[cat]++
		if Profiled(cs) {
			st.Static.Profiled++
			st.Dynamic.ProfiledCalls += samples
		} else {
			st.Static.Missed++
		}

		st.Dynamic.Calls[cat] += samples
		dominant[cat] += cs.DominantCalls()
	}

	st.Impact.Wins[Monomorphic] = st.Dynamic.Calls[Monomorphic]
	for _, c := range []Category{Bimorphic, PolymorphicPredictable, PolymorphicMarginal, PolymorphicRemainder} {
		st.Impact.Wins[c] = int64(dominant[c])
	}
	st.Impact.GDVCalls = st.Impact.Wins.GDV()
	return st
}
