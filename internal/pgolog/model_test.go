// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package pgolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func site(samples, total uint32, counts ...uint32) *CallSite {
	h := &Histogram{}
	for _, c := range counts {
		h.Entries = append(h.Entries, HistogramEntry{ClassName: "T", Count: c})
	}
	return &CallSite{Samples: samples, Entries: uint32(len(counts)), Total: total, Histogram: h}
}

func TestDominantEntry_FirstMatchWins(t *testing.T) {
	cs := site(10, 100, 10, 50, 50)
	e, ok := cs.DominantEntry(0.5)
	require.True(t, ok)
	assert.Same(t, &cs.Histogram.Entries[1], e)

	e, ok = cs.DominantEntry(0.1)
	require.True(t, ok)
	assert.Same(t, &cs.Histogram.Entries[0], e)
}

func TestDominantEntry_None(t *testing.T) {
	cs := site(10, 100, 25, 25, 25, 25)
	_, ok := cs.DominantEntry(0.3)
	assert.False(t, ok)

	_, ok = (&CallSite{}).DominantEntry(0.5)
	assert.False(t, ok)
}

func TestDominantEntry_Monotonic(t *testing.T) {
	for _, counts := range [][]uint32{
		{50, 30, 20},
		{34, 33, 33},
		{10, 10, 80},
		{1},
		{0, 0, 1},
	} {
		var total uint32
		for _, c := range counts {
			total += c
		}
		cs := site(1, total, counts...)
		if _, ok := cs.DominantEntry(0.5); ok {
			_, ok30 := cs.DominantEntry(0.3)
			assert.True(t, ok30, "counts %v", counts)
		}
	}
}

func TestDominantLikelihood(t *testing.T) {
	cs := site(40, 100, 50, 30, 20)
	assert.InDelta(t, 0.5, cs.DominantLikelihood(), 1e-9)
	assert.InDelta(t, 20.0, cs.DominantCalls(), 1e-9)

	// max entry, not first entry
	cs = site(10, 100, 20, 70, 10)
	assert.InDelta(t, 0.7, cs.DominantLikelihood(), 1e-9)
	assert.InDelta(t, 7.0, cs.DominantCalls(), 1e-9)
}

func TestDominantLikelihood_Degenerate(t *testing.T) {
	assert.Zero(t, site(0, 0).DominantLikelihood())
	assert.Zero(t, site(5, 0, 3).DominantLikelihood())
	assert.Zero(t, (&CallSite{Samples: 3, Total: 3}).DominantCalls())
}

func TestConsistent(t *testing.T) {
	cs := site(1, 1, 1)
	assert.True(t, cs.Consistent())
	cs.Entries = 2
	assert.False(t, cs.Consistent())
	assert.True(t, (&CallSite{}).Consistent())
}

func TestStrings(t *testing.T) {
	m := &Method{Token: 0x06004EBA, Hash: 0xBC4945F9}
	cs := &CallSite{Method: m, ILOffset: 7, IsVirtual: true}
	assert.Equal(t, "token 0x06004EBA hash 0xBC4945F9 iloffs 7 (virtual)", cs.String())
	assert.Equal(t, "iloffs 3 (interface)", (&CallSite{ILOffset: 3}).String())
}

func TestDominantLikelihood_CappedAtOne(t *testing.T) {
	cs := site(8, 10, 15)
	assert.InDelta(t, 1.0, cs.DominantLikelihood(), 1e-9)
	assert.InDelta(t, 8.0, cs.DominantCalls(), 1e-9)
}
