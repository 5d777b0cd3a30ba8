// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes parse counters and call-site classification results
// as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/platformbuilds/classprof/internal/classify"
	"github.com/platformbuilds/classprof/internal/pgolog"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "classprof"

// Registry holds the classprof collectors on a private prometheus.Registry.
type Registry struct {
	ParseLines    *prometheus.CounterVec
	Methods       prometheus.Gauge
	Inconsistent  prometheus.Gauge
	CallSites     *prometheus.GaugeVec
	CallVolume    *prometheus.GaugeVec
	GDVSites      *prometheus.GaugeVec
	GDVCalls      *prometheus.GaugeVec
	GDVWins       *prometheus.GaugeVec
	PartitionSite *prometheus.GaugeVec

	reg *prometheus.Registry
}

func NewRegistry(namespace string) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Registry{reg: prometheus.NewRegistry()}
	r.ParseLines = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_lines_total",
		Help:      "Dump lines consumed by kind",
	}, []string{"kind"})
	r.Methods = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "methods",
		Help:      "Methods in the dump",
	})
	r.Inconsistent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inconsistent_call_sites",
		Help:      "Call sites whose declared entry count differs from their histogram",
	})
	r.CallSites = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "call_sites",
		Help:      "Call sites by receiver-type category",
	}, []string{"scope", "category"})
	r.PartitionSite = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "call_sites_sampled",
		Help:      "Call sites by whether they were hit at runtime",
	}, []string{"scope", "sampled"})
	r.CallVolume = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "call_volume",
		Help:      "Sampled calls by receiver-type category",
	}, []string{"scope", "category"})
	r.GDVSites = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gdv_predicted_sites",
		Help:      "Call sites where guarded devirtualization would make a prediction",
	}, []string{"scope"})
	r.GDVCalls = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gdv_predicted_calls",
		Help:      "Sampled calls guarded devirtualization would predict correctly",
	}, []string{"scope"})
	r.GDVWins = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gdv_wins",
		Help:      "Correctly predicted calls by category; the remainder category is not speculated on",
	}, []string{"scope", "category"})

	r.reg.MustRegister(r.ParseLines, r.Methods, r.Inconsistent, r.CallSites, r.PartitionSite,
		r.CallVolume, r.GDVSites, r.GDVCalls, r.GDVWins)
	return r
}

// ObserveParse records what the parser consumed.
func (r *Registry) ObserveParse(res *pgolog.Result) {
	r.ParseLines.WithLabelValues(pgolog.KindMethodHeader.String()).Add(float64(res.Lines.Methods))
	r.ParseLines.WithLabelValues(pgolog.KindCallSiteHeader.String()).Add(float64(res.Lines.CallSites))
	r.ParseLines.WithLabelValues(pgolog.KindHistogramEntry.String()).Add(float64(res.Lines.Entries))
	r.ParseLines.WithLabelValues(pgolog.KindUnrecognized.String()).Add(float64(res.Lines.Ignored))
	r.Methods.Set(float64(len(res.Methods)))
	r.Inconsistent.Set(float64(len(res.Inconsistent)))
}

// ObserveScope records the breakdown of one scope.
func (r *Registry) ObserveScope(s classify.ScopeStats) {
	scope := s.Scope.Label()
	for _, c := range classify.Categories {
		r.CallSites.WithLabelValues(scope, c.String()).Set(float64(s.Static.Sites[c]))
		r.CallVolume.WithLabelValues(scope, c.String()).Set(float64(s.Dynamic.Calls[c]))
		if c != classify.Empty {
			r.GDVWins.WithLabelValues(scope, c.String()).Set(float64(s.Impact.Wins[c]))
		}
	}
	r.PartitionSite.WithLabelValues(scope, "false").Set(float64(s.Static.Missed))
	r.PartitionSite.WithLabelValues(scope, "true").Set(float64(s.Static.Profiled))
	r.GDVSites.WithLabelValues(scope).Set(float64(s.Static.GDVSites()))
	r.GDVCalls.WithLabelValues(scope).Set(float64(s.Impact.GDVCalls))
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
