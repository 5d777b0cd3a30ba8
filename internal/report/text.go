// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/platformbuilds/classprof/internal/classify"
)

// Text is the console report.
type Text struct{}

func (t *Text) Emit(w io.Writer, in Input) error {
	bw := bufio.NewWriter(w)
	if in.Result != nil {
		fmt.Fprintf(bw, "%6d methods\n", len(in.Result.Methods))
		if n := len(in.Result.Inconsistent); n > 0 {
			fmt.Fprintf(bw, "%6d call sites declare a different entry count than their histogram\n", n)
		}
	}
	for _, s := range in.Scopes {
		writeScope(bw, s)
	}
	if len(in.Hot) > 0 {
		writeHot(bw, in.Hot)
	}
	return bw.Flush()
}

// pct renders a ratio as a percentage, NaN when the denominator is empty.
func pct(r classify.Ratio) string {
	if !r.Defined() {
		return fmt.Sprintf("%7s", "NaN")
	}
	return fmt.Sprintf("%6.2f%%", r.Percent())
}

type row struct {
	n    int64
	r    classify.Ratio
	what string
}

func writeRows(w io.Writer, rows []row) {
	for _, r := range rows {
		fmt.Fprintf(w, "%10d [%s] %s\n", r.n, pct(r.r), r.what)
	}
}

func writeScope(w io.Writer, s classify.ScopeStats) {
	st, dy, im := s.Static, s.Dynamic, s.Impact
	site := func(n int64, what string) row { return row{n, st.Share(n), "sites " + what} }
	call := func(n int64, what string) row { return row{n, dy.Share(n), "calls " + what} }
	win := func(c classify.Category, what string) row { return row{im.Wins[c], s.WinRate(c), what} }

	fmt.Fprintf(w, "\n--- static data for %s ---\n\n", s.Scope)
	fmt.Fprintf(w, "%10d           total call sites\n", st.Total)
	writeRows(w, []row{
		site(st.Missed, "were not hit at runtime"),
		site(st.Profiled, "were hit at runtime"),
		site(st.Sites[classify.Empty], "had no class observations"),
		site(st.Sites[classify.Monomorphic], "were monomorphic"),
		site(st.Sites[classify.Bimorphic], "were bimorphic"),
		site(st.Sites.Polymorphic(), "were polymorphic"),
		site(st.Sites[classify.PolymorphicPredictable], "were polymorphic predictable"),
		site(st.Sites[classify.PolymorphicMarginal], "were polymorphic marginally predictable"),
		site(st.Sites[classify.PolymorphicRemainder], "were truly polymorphic"),
	})
	fmt.Fprintf(w, "\n   GDV would make predictions at %d out of %d sites ==> %s of all call sites\n",
		st.GDVSites(), st.Total, pct(st.GDVCoverage()))

	fmt.Fprintf(w, "\n--- dynamic data for %s ---\n\n", s.Scope)
	fmt.Fprintf(w, "%10d           total calls\n", dy.ProfiledCalls)
	writeRows(w, []row{
		call(dy.Calls[classify.Empty], "had no class observations"),
		call(dy.Calls[classify.Monomorphic], "were monomorphic"),
		call(dy.Calls[classify.Bimorphic], "were bimorphic"),
		call(dy.Calls.Polymorphic(), "were polymorphic"),
		call(dy.Calls[classify.PolymorphicPredictable], "were polymorphic and predictable"),
		call(dy.Calls[classify.PolymorphicMarginal], "were polymorphic and marginally predictable"),
		call(dy.Calls[classify.PolymorphicRemainder], "were truly polymorphic"),
	})

	fmt.Fprintf(w, "\n  GDV would correctly predict %d out of %d calls ==> %s of profiled call volume\n\n",
		im.GDVCalls, dy.ProfiledCalls, pct(s.GDVImpact()))
	fmt.Fprintf(w, "%10d           monomorphic\n", im.Wins[classify.Monomorphic])
	writeRows(w, []row{
		win(classify.Bimorphic, "bimorphic"),
		win(classify.PolymorphicPredictable, "polymorphic predictable"),
		win(classify.PolymorphicMarginal, "polymorphic marginal"),
	})

	fmt.Fprintf(w, "\n  GDV would likely not try and predict these polymorphic calls, though it might pay off if virtual\n\n")
	writeRows(w, []row{win(classify.PolymorphicRemainder, "polymorphic remainder")})
}

func writeHot(w io.Writer, hot []classify.HotSite) {
	fmt.Fprintf(w, "\n--- top %d sampled call sites GDV cannot fully predict ---\n\n", len(hot))
	for _, h := range hot {
		fmt.Fprintf(w, "%12s  %-24s %s  %s -> %s\n",
			humanize.Comma(int64(h.Site.Samples)),
			h.Category,
			pct(classify.Ratio{Num: h.Likelihood, Den: 1}),
			h.Site,
			h.Dominant,
		)
	}
}
