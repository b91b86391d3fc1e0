package report

import (
	"bufio"
	"qcl-datasheet/internal/figure"
	"regexp"
	"strings"
)

var (
	expWord  = regexp.MustCompile(`\bexp\b`)
	unitExpr = regexp.MustCompile(`\[(.*?)\]`)

	graceStrip = strings.NewReplacer(`\q`, "", `\Q`, "", `\N`, "")
	graceSuper = strings.NewReplacer(`\S-2`, "^{-2}")
	graceRest  = strings.NewReplacer(`\S`, "", `\n`, "\n")

	latexEscaper = strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
		"\n", " ",
		"\r", " ",
	)
)

// ParseIthFormula recovers the threshold formulas from the text of a Grace
// project: the legend of series s1 holds the current fit and, after a
// blank line, the current density fit. Each right-hand side is returned in
// LaTeX math form with units as ~\mathrm{...}.
func ParseIthFormula(agr string) (figure.IthCaption, bool) {
	sc := bufio.NewScanner(strings.NewReader(agr))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "@") || !strings.Contains(line, "s1") || !strings.Contains(line, "legend") {
			continue
		}

		first := strings.IndexByte(line, '"')
		last := strings.LastIndexByte(line, '"')
		if first < 0 || first >= last {
			continue
		}

		legend := graceStrip.Replace(line[first+1 : last])
		legend = graceSuper.Replace(legend)
		legend = graceRest.Replace(legend)

		var formulas []string
		for _, f := range strings.Split(legend, "\n\n") {
			if f != "" {
				formulas = append(formulas, f)
			}
		}
		if len(formulas) < 2 {
			return figure.IthCaption{}, false
		}

		return figure.IthCaption{
			Ith: latexFormula(formulas[0]),
			Jth: latexFormula(formulas[1]),
		}, true
	}
	return figure.IthCaption{}, false
}

func latexFormula(f string) string {
	if _, rhs, ok := strings.Cut(f, "="); ok {
		f = rhs
	}
	f = strings.TrimSpace(f)
	f = expWord.ReplaceAllString(f, `\exp`)
	return unitExpr.ReplaceAllString(f, `~\mathrm{$1}`)
}

// EscapeLatex escapes text for use outside math mode and folds whitespace.
func EscapeLatex(s string) string {
	return strings.Join(strings.Fields(latexEscaper.Replace(s)), " ")
}

func trimTrailingBackslashes(s string) string {
	return strings.TrimRight(s, `\`)
}
