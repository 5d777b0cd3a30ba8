// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify buckets call sites by how predictable their receiver type
// is and aggregates those buckets by site count and by sampled call volume.
package classify

import (
	"fmt"

	"github.com/platformbuilds/classprof/internal/pgolog"
)

// Category buckets a call site by the number of distinct receiver types it saw
// and, for polymorphic sites, by how dominant the most common one is.
type Category int

const (
	// Empty sites declare no receiver types at all.
	Empty Category = iota
	Monomorphic
	Bimorphic
	PolymorphicPredictable
	PolymorphicMarginal
	PolymorphicRemainder
)

// Categories lists every category in report order.
var Categories = []Category{
	Empty,
	Monomorphic,
	Bimorphic,
	PolymorphicPredictable,
	PolymorphicMarginal,
	PolymorphicRemainder,
}

func (c Category) String() string {
	switch c {
	case Empty:
		return "empty"
	case Monomorphic:
		return "monomorphic"
	case Bimorphic:
		return "bimorphic"
	case PolymorphicPredictable:
		return "polymorphic_predictable"
	case PolymorphicMarginal:
		return "polymorphic_marginal"
	case PolymorphicRemainder:
		return "polymorphic_remainder"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Polymorphic reports whether the site saw more than two receiver types.
func (c Category) Polymorphic() bool {
	return c >= PolymorphicPredictable
}

// GDVCandidate reports whether a guarded devirtualization would speculate on
// sites of this category.
func (c Category) GDVCandidate() bool {
	return c >= Monomorphic && c <= PolymorphicMarginal
}

// Thresholds are the dominant-entry likelihoods splitting polymorphic sites.
type Thresholds struct {
	Predictable float64 `yaml:"predictable"`
	Marginal    float64 `yaml:"marginal"`
}

// DefaultThresholds returns the stock 0.5 / 0.3 split
func DefaultThresholds() Thresholds {
	return Thresholds{Predictable: 0.5, Marginal: 0.3}
}

// Validate checks 0 < Marginal <= Predictable <= 1.
func (t Thresholds) Validate() error {
	if t.Marginal <= 0 || t.Predictable > 1 || t.Marginal > t.Predictable {
		return fmt.Errorf("thresholds must satisfy 0 < marginal (%g) <= predictable (%g) <= 1", t.Marginal, t.Predictable)
	}
	return nil
}

// Classify assigns a site to exactly one category from its declared entry
// count and histogram. It does not look at Samples.
func Classify(cs *pgolog.CallSite, th Thresholds) Category {
	switch {
	case cs.Entries == 0:
		return Empty
	case cs.Entries == 1:
		return Monomorphic
	case cs.Entries == 2:
		return Bimorphic
	}
	if _, ok := cs.DominantEntry(th.Predictable); ok {
		return PolymorphicPredictable
	}
	if _, ok := cs.DominantEntry(th.Marginal); ok {
		return PolymorphicMarginal
	}
	return PolymorphicRemainder
}

// Profiled reports whether the site was hit at runtime.
func Profiled(cs *pgolog.CallSite) bool {
	return cs.Samples > 0
}
