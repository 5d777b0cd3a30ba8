// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platformbuilds/classprof/internal/pgolog"
)

var tracer = otel.Tracer("github.com/platformbuilds/classprof/internal/classify")

// Scope selects a subset of call sites to report on.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeVirtual
	ScopeInterface
)

// DefaultScopes is the report order.
var DefaultScopes = []Scope{ScopeAll, ScopeVirtual, ScopeInterface}

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all sites"
	case ScopeVirtual:
		return "virtual sites"
	case ScopeInterface:
		return "interface sites"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Label is the short name used for metric labels and config.
func (s Scope) Label() string {
	switch s {
	case ScopeVirtual:
		return "virtual"
	case ScopeInterface:
		return "interface"
	default:
		return "all"
	}
}

// ParseScope maps a label back to a Scope.
func ParseScope(label string) (Scope, error) {
	for _, s := range DefaultScopes {
		if s.Label() == label {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown scope %q (want all, virtual or interface)", label)
}

// Includes reports whether the site belongs to the scope.
func (s Scope) Includes(cs *pgolog.CallSite) bool {
	switch s {
	case ScopeVirtual:
		return cs.IsVirtual
	case ScopeInterface:
		return !cs.IsVirtual
	default:
		return true
	}
}

// Filter returns the sites in scope, preserving order.
func (s Scope) Filter(sites []*pgolog.CallSite) []*pgolog.CallSite {
	if s == ScopeAll {
		return sites
	}
	out := make([]*pgolog.CallSite, 0, len(sites))
	for _, cs := range sites {
		if s.Includes(cs) {
			out = append(out, cs)
		}
	}
	return out
}

// ScopeStats pairs a scope with its breakdown.
type ScopeStats struct {
	Scope Scope
	*Stats
}

// AnalyzeScopes analyzes each scope concurrently. sites must not be modified
// until it returns. Results are in the order of scopes.
func AnalyzeScopes(ctx context.Context, sites []*pgolog.CallSite, th Thresholds, scopes ...Scope) ([]ScopeStats, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	ctx, span := tracer.Start(ctx, "classify.AnalyzeScopes")
	defer span.End()

	out := make([]ScopeStats, len(scopes))
	g, ctx := errgroup.WithContext(ctx)
	for i, scope := range scopes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, sp := tracer.Start(ctx, "classify.Analyze", trace.WithAttributes(attribute.String("classprof.scope", scope.Label())))
			defer sp.End()

			st := Analyze(scope.Filter(sites), th)
			sp.SetAttributes(attribute.Int64("classprof.call_sites", st.Static.Total))
			out[i] = ScopeStats{Scope: scope, Stats: st}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HotSite is a call site GDV cannot fully predict, with its classification.
type HotSite struct {
	Site       *pgolog.CallSite
	Category   Category
	Likelihood float64
	Dominant   string // class name of the most frequent receiver type
}

// Hottest returns up to n bimorphic or polymorphic sites in scope, ordered by
// samples, most sampled first.
func Hottest(sites []*pgolog.CallSite, th Thresholds, scope Scope, n int) []HotSite {
	var hot []HotSite
	for _, cs := range sites {
		if !scope.Includes(cs) || cs.Samples == 0 {
			continue
		}
		cat := Classify(cs, th)
		if cat != Bimorphic && !cat.Polymorphic() {
			continue
		}
		hot = append(hot, HotSite{
			Site:       cs,
			Category:   cat,
			Likelihood: cs.DominantLikelihood(),
			Dominant:   dominantClass(cs),
		})
	}

	sort.SliceStable(hot, func(i, j int) bool {
		a, b := hot[i].Site, hot[j].Site
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		if a.Method != nil && b.Method != nil && a.Method.Token != b.Method.Token {
			return a.Method.Token < b.Method.Token
		}
		return a.ILOffset < b.ILOffset
	})
	if n > 0 && len(hot) > n {
		hot = hot[:n]
	}
	return hot
}

func dominantClass(cs *pgolog.CallSite) string {
	if cs.Histogram == nil {
		return ""
	}
	var best *pgolog.HistogramEntry
	for i := range cs.Histogram.Entries {
		e := &cs.Histogram.Entries[i]
		if best == nil || e.Count > best.Count {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return best.ClassName
}
