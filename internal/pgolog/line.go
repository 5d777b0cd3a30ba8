// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package pgolog

import (
	"fmt"
	"strconv"
	"strings"
)

// Line prefixes recognized in a class-profile dump.
//
// Examples:
//
//	@@@ token 0x06004EBA hash 0xBC4945F9 ilSize 0x00000019 records 0x00000005 index 126964
//	classProfile iloffs 7 samples 1 entries 1 totalCount 1 virtual
//	class 00007FF8BD8BEC10 (Microsoft.CodeAnalysis.CSharp.Syntax.VariableDeclaratorSyntax) count 23
const (
	PrefixMethod   = "@@@"
	PrefixCallSite = "classProfile"
	PrefixEntry    = "class"
)

// LineKind tags a dump line.
type LineKind int

const (
	KindUnrecognized LineKind = iota
	KindMethodHeader
	KindCallSiteHeader
	KindHistogramEntry
)

func (k LineKind) String() string {
	switch k {
	case KindMethodHeader:
		return "method"
	case KindCallSiteHeader:
		return "call_site"
	case KindHistogramEntry:
		return "entry"
	default:
		return "ignored"
	}
}

// Classify returns the kind of a line from its prefix. PrefixCallSite must be
// tested before PrefixEntry since the latter is a prefix of the former.
func Classify(line string) LineKind {
	switch {
	case strings.HasPrefix(line, PrefixMethod):
		return KindMethodHeader
	case strings.HasPrefix(line, PrefixCallSite):
		return KindCallSiteHeader
	case strings.HasPrefix(line, PrefixEntry):
		return KindHistogramEntry
	default:
		return KindUnrecognized
	}
}

// MethodHeader holds the fields of a "@@@" line.
type MethodHeader struct {
	Token   uint32
	Hash    uint32
	ILSize  uint32
	Records uint32
	Index   uint64
}

// CallSiteHeader holds the fields of a "classProfile" line.
type CallSiteHeader struct {
	ILOffset  uint32
	Samples   uint32
	Entries   uint32
	Total     uint32
	IsVirtual bool
}

// Line is a tokenized dump line. Exactly one of Method, CallSite and Entry is
// set, matching Kind; none is set for KindUnrecognized.
type Line struct {
	Kind     LineKind
	Method   *MethodHeader
	CallSite *CallSiteHeader
	Entry    *HistogramEntry
}

// ParseLine classifies and tokenizes a single line. Fields are separated by
// single spaces and there is no quoting.
func ParseLine(line string) (Line, error) {
	kind := Classify(line)
	switch kind {
	case KindMethodHeader:
		return Line{Kind: kind, Method: parseMethodHeader(line)}, nil
	case KindCallSiteHeader:
		cs, err := parseCallSiteHeader(line)
		if err != nil {
			return Line{Kind: kind}, err
		}
		return Line{Kind: kind, CallSite: cs}, nil
	case KindHistogramEntry:
		e, err := parseEntry(line)
		if err != nil {
			return Line{Kind: kind}, err
		}
		return Line{Kind: kind, Entry: e}, nil
	default:
		return Line{Kind: KindUnrecognized}, nil
	}
}

// parseMethodHeader never fails: the method fields are opaque and left zero
// when missing or unparsable.
func parseMethodHeader(line string) *MethodHeader {
	data := strings.Split(line, " ")
	h := &MethodHeader{}
	h.Token = uint32(optUint(data, 2, 0, 32))
	h.Hash = uint32(optUint(data, 4, 0, 32))
	h.ILSize = uint32(optUint(data, 6, 0, 32))
	h.Records = uint32(optUint(data, 8, 0, 32))
	h.Index = optUint(data, 10, 10, 64)
	return h
}

func parseCallSiteHeader(line string) (*CallSiteHeader, error) {
	data := strings.Split(line, " ")
	if len(data) < 10 {
		return nil, fmt.Errorf("%w: call site needs 10 fields, got %d", ErrMalformed, len(data))
	}

	h := &CallSiteHeader{}
	fields := []struct {
		name string
		idx  int
		dst  *uint32
	}{
		{"iloffs", 2, &h.ILOffset},
		{"samples", 4, &h.Samples},
		{"entries", 6, &h.Entries},
		{"totalCount", 8, &h.Total},
	}
	for _, f := range fields {
		v, err := strconv.ParseUint(data[f.idx], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.name, err)
		}
		*f.dst = uint32(v)
	}
	h.IsVirtual = data[len(data)-1] == "virtual"
	return h, nil
}

// parseEntry takes the class name from a fixed token. Names with embedded
// spaces are truncated to their first word.
func parseEntry(line string) (*HistogramEntry, error) {
	data := strings.Split(line, " ")
	if len(data) < 3 {
		return nil, fmt.Errorf("%w: class entry needs at least 3 fields, got %d", ErrMalformed, len(data))
	}
	count, err := strconv.ParseUint(data[len(data)-1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrMalformed, err)
	}
	return &HistogramEntry{
		MethodTable: optUint(data, 1, 16, 64),
		ClassName:   data[2],
		Count:       uint32(count),
	}, nil
}

func optUint(data []string, idx, base, bits int) uint64 {
	if idx >= len(data) {
		return 0
	}
	v, err := strconv.ParseUint(data[idx], base, bits)
	if err != nil {
		return 0
	}
	return v
}
