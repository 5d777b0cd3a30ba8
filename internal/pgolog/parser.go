// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package pgolog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/platformbuilds/classprof/internal/pgolog")

// Options configures the parser
type Options struct {
	// Strict turns a mismatch between a call site's declared entry count and
	// its histogram lines into a parse error. By default it is only logged.
	Strict bool

	Logger *zap.Logger
}

// Parser turns a class-profile dump into a Result
type Parser struct {
	opts   Options
	logger *zap.Logger
}

// New creates a new Parser
func New(opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Parser{
		opts:   opts,
		logger: opts.Logger,
	}
}

// state is the parse cursor threaded from one line to the next.
type state struct {
	method *Method
	site   *CallSite
	hist   *Histogram
}

// ParseFile reads and parses the dump at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	return p.Parse(ctx, f)
}

// Parse reads the whole input and folds it line by line into a Result. The
// first line that fails to parse aborts the rest of the input; no partial
// result is returned.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	_, span := tracer.Start(ctx, "pgolog.Parse")
	defer span.End()

	start := time.Now()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	lines := splitLines(string(raw))

	res := &Result{}
	var st state
	for i, text := range lines {
		ln, err := ParseLine(text)
		if err == nil {
			st, err = p.step(res, st, ln)
		}
		if err != nil {
			lerr := &LineError{Number: i + 1, Text: text, Err: err}
			p.logger.Error("Aborting parse", zap.Int("line", lerr.Number), zap.String("text", text), zap.Error(err))
			span.RecordError(lerr)
			return nil, lerr
		}
	}
	if err := p.closeSite(res, st.site); err != nil {
		return nil, &LineError{Number: len(lines), Text: lastLine(lines), Err: err}
	}

	span.SetAttributes(
		attribute.Int("classprof.methods", len(res.Methods)),
		attribute.Int("classprof.call_sites", len(res.CallSites)),
	)
	p.logger.Debug("Parsed dump",
		zap.Int("lines", res.Lines.Total()),
		zap.Int("methods", len(res.Methods)),
		zap.Int("callSites", len(res.CallSites)),
		zap.Int("inconsistent", len(res.Inconsistent)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// step applies one tokenized line to the result and returns the next cursor.
func (p *Parser) step(res *Result, st state, ln Line) (state, error) {
	switch ln.Kind {
	case KindMethodHeader:
		if err := p.closeSite(res, st.site); err != nil {
			return st, err
		}
		m := &Method{
			Token:   ln.Method.Token,
			Hash:    ln.Method.Hash,
			ILSize:  ln.Method.ILSize,
			Records: ln.Method.Records,
			Index:   ln.Method.Index,
		}
		res.Methods = append(res.Methods, m)
		res.Lines.Methods++
		return state{method: m}, nil

	case KindCallSiteHeader:
		if st.method == nil {
			return st, fmt.Errorf("%w: call site before any method header", ErrMissingContext)
		}
		if err := p.closeSite(res, st.site); err != nil {
			return st, err
		}
		h := &Histogram{}
		cs := &CallSite{
			Method:    st.method,
			ILOffset:  ln.CallSite.ILOffset,
			Samples:   ln.CallSite.Samples,
			Entries:   ln.CallSite.Entries,
			Total:     ln.CallSite.Total,
			IsVirtual: ln.CallSite.IsVirtual,
			Histogram: h,
		}
		st.method.CallSites = append(st.method.CallSites, cs)
		res.CallSites = append(res.CallSites, cs)
		res.Lines.CallSites++
		return state{method: st.method, site: cs, hist: h}, nil

	case KindHistogramEntry:
		if st.hist == nil {
			return st, fmt.Errorf("%w: class entry before any call site", ErrMissingContext)
		}
		st.hist.Entries = append(st.hist.Entries, *ln.Entry)
		res.Lines.Entries++
		return st, nil

	default:
		res.Lines.Ignored++
		return st, nil
	}
}

// closeSite checks a finished call site's declared entry count against its
// histogram.
func (p *Parser) closeSite(res *Result, cs *CallSite) error {
	if cs == nil || cs.Consistent() {
		return nil
	}
	if p.opts.Strict {
		return fmt.Errorf("%w: %s declares %d entries, found %d", ErrMalformed, cs, cs.Entries, cs.Observed())
	}
	res.Inconsistent = append(res.Inconsistent, cs)
	p.logger.Warn("Call site entry count mismatch",
		zap.Stringer("site", cs),
		zap.Uint32("declared", cs.Entries),
		zap.Int("observed", cs.Observed()),
	)
	return nil
}

// splitLines splits on '\n', dropping a trailing '\r' and the empty string
// after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func lastLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
