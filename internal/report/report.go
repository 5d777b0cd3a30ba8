// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package report renders classification results.
package report

import (
	"fmt"
	"io"

	"github.com/platformbuilds/classprof/internal/classify"
	"github.com/platformbuilds/classprof/internal/metrics"
	"github.com/platformbuilds/classprof/internal/pgolog"
)

// Output formats
const (
	FormatText       = "text"
	FormatPrometheus = "prometheus"
)

// Input is everything a report can draw on.
type Input struct {
	Result *pgolog.Result
	Scopes []classify.ScopeStats

	// Hot is the optional hottest-sites listing; empty disables it.
	Hot []classify.HotSite
}

// Emitter writes a report.
type Emitter interface {
	Emit(w io.Writer, in Input) error
}

// New returns the emitter for format.
func New(format string) (Emitter, error) {
	switch format {
	case "", FormatText:
		return &Text{}, nil
	case FormatPrometheus:
		return &Prometheus{Namespace: metrics.DefaultNamespace}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want %s or %s)", format, FormatText, FormatPrometheus)
	}
}

// Prometheus writes the results in the Prometheus text exposition format.
type Prometheus struct {
	Namespace string
}

func (p *Prometheus) Emit(w io.Writer, in Input) error {
	reg := metrics.NewRegistry(p.Namespace)
	if in.Result != nil {
		reg.ObserveParse(in.Result)
	}
	for _, s := range in.Scopes {
		reg.ObserveScope(s)
	}
	return reg.WriteText(w)
}
