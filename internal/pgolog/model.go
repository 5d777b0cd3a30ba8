// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package pgolog parses class-profile dumps produced by the JIT's PGO
// instrumentation into methods, call sites and receiver-type histograms.
package pgolog

import "fmt"

// Method is one compiled method from the dump. Token, Hash, ILSize, Records
// and Index are carried for traceability only.
type Method struct {
	Token   uint32
	Hash    uint32
	ILSize  uint32
	Records uint32
	Index   uint64

	// CallSites in log order. Nil until the first call site is attached.
	CallSites []*CallSite
}

func (m *Method) String() string {
	return fmt.Sprintf("token 0x%08X hash 0x%08X", m.Token, m.Hash)
}

// HistogramEntry is one observed receiver type at a call site.
type HistogramEntry struct {
	MethodTable uint64
	ClassName   string
	Count       uint32
}

// Histogram holds the receiver types observed at a call site, in log order.
type Histogram struct {
	Entries []HistogramEntry
}

// CallSite is a single class-profile record.
//
// Samples and Total are independent counters: Samples counts profiling hits
// of the site, Total counts the observations spread across the histogram.
type CallSite struct {
	Method    *Method
	ILOffset  uint32
	Samples   uint32
	Entries   uint32 // declared number of distinct receiver types
	Total     uint32
	IsVirtual bool
	Histogram *Histogram
}

func (cs *CallSite) String() string {
	kind := "interface"
	if cs.IsVirtual {
		kind = "virtual"
	}
	if cs.Method == nil {
		return fmt.Sprintf("iloffs %d (%s)", cs.ILOffset, kind)
	}
	return fmt.Sprintf("%s iloffs %d (%s)", cs.Method, cs.ILOffset, kind)
}

// DominantEntry returns the first histogram entry, in log order, whose count
// is at least likelihood*Total.
func (cs *CallSite) DominantEntry(likelihood float64) (*HistogramEntry, bool) {
	if cs.Histogram == nil {
		return nil, false
	}
	threshold := float64(cs.Total) * likelihood
	for i := range cs.Histogram.Entries {
		e := &cs.Histogram.Entries[i]
		if float64(e.Count) >= threshold {
			return e, true
		}
	}
	return nil, false
}

// DominantLikelihood is the share of observations taken by the most frequent
// receiver type, capped at 1. It is 0 for an empty histogram or a zero total.
func (cs *CallSite) DominantLikelihood() float64 {
	if cs.Total == 0 || cs.Observed() == 0 {
		return 0
	}
	var top uint32
	for _, e := range cs.Histogram.Entries {
		if e.Count > top {
			top = e.Count
		}
	}
	if top >= cs.Total {
		return 1
	}
	return float64(top) / float64(cs.Total)
}

// DominantCalls estimates how many sampled calls would have been predicted
// correctly by always guessing the dominant receiver type.
func (cs *CallSite) DominantCalls() float64 {
	return cs.DominantLikelihood() * float64(cs.Samples)
}

// Observed is the number of histogram lines actually attached to the site.
func (cs *CallSite) Observed() int {
	if cs.Histogram == nil {
		return 0
	}
	return len(cs.Histogram.Entries)
}

// Consistent reports whether the declared entry count matches the histogram.
func (cs *CallSite) Consistent() bool {
	return int(cs.Entries) == cs.Observed()
}

// LineStats counts input lines by kind.
type LineStats struct {
	Methods   int
	CallSites int
	Entries   int
	Ignored   int
}

// Total is the number of lines consumed.
func (s LineStats) Total() int {
	return s.Methods + s.CallSites + s.Entries + s.Ignored
}

// Result is the parsed dump.
type Result struct {
	Methods []*Method

	// CallSites holds every call site in encounter order, independent of
	// method grouping.
	CallSites []*CallSite

	Lines LineStats

	// Inconsistent lists call sites whose declared entry count differs from
	// the number of histogram lines that followed them.
	Inconsistent []*CallSite
}
