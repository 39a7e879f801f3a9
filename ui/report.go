package ui

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gozunis/domain/run"
	"gozunis/internal/profiling"
)

// ToHTML renders markdown with tables enabled
func ToHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}

// RunListMarkdown renders a table of runs linking to their reports
func RunListMarkdown(runs []*run.Run) []byte {
	var b bytes.Buffer
	b.WriteString("# Runs\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs recorded yet.\n")
		return b.Bytes()
	}
	b.WriteString("| Run | Integrand | d | Variant | Value | Error | Iterations | Created |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range runs {
		m := r.Manifest
		status := ""
		if r.Interrupted {
			status = " (interrupted)"
		}
		fmt.Fprintf(&b, "| [%s](/reports/%s)%s | %s | %d | %s | %s | %s | %d | %s |\n",
			shortID(m.RunID.String()), m.RunID, status, m.Integrand.Name, m.Integrand.Dims, m.Variant,
			num(r.Value), num(r.Error), len(r.History), m.CreatedAt)
	}
	return b.Bytes()
}

// RunMarkdown renders the full report of one run. profile may be nil.
func RunMarkdown(r *run.Run, profile *profiling.HistoryProfile) []byte {
	m := r.Manifest
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s in %d dimensions\n\n", m.Integrand.Name, m.Integrand.Dims)
	fmt.Fprintf(&b, "**Result:** `%s +/- %s`", num(r.Value), num(r.Error))
	if r.Interrupted {
		b.WriteString(" (interrupted, partial history)")
	}
	b.WriteString("\n\n## Manifest\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run | `%s` |\n", m.RunID)
	fmt.Fprintf(&b, "| Variant | %s |\n", m.Variant)
	fmt.Fprintf(&b, "| Seed | %d |\n", m.Seed)
	fmt.Fprintf(&b, "| Use survey | %t |\n", m.Config.UseSurvey)
	plan := m.Config.Plan()
	fmt.Fprintf(&b, "| Survey | %d x %d points |\n", plan.NIterSurvey, plan.NPointsSurvey)
	fmt.Fprintf(&b, "| Refine | %d x %d points |\n", plan.NIterRefine, plan.NPointsRefine)
	fmt.Fprintf(&b, "| Code version | %s |\n", m.CodeVersion)
	fmt.Fprintf(&b, "| Fingerprint | `%s` |\n", m.Fingerprint.Fingerprint.Short())
	for _, k := range sortedKeys(m.Integrand.Params) {
		fmt.Fprintf(&b, "| %s | %g |\n", k, m.Integrand.Params[k])
	}

	b.WriteString("\n## History\n\n")
	b.WriteString("| Step | Phase | Integral | Error | Points | Loss |\n|---|---|---|---|---|---|\n")
	for _, rec := range r.History {
		loss := ""
		if rec.Training != nil {
			loss = num(rec.Training.Loss)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n",
			rec.Step, rec.Phase, num(rec.Integral), num(rec.Error), rec.NPoints, loss)
	}

	if profile != nil {
		b.WriteString("\n## Profile\n\n")
		b.WriteString("| Phase | Iterations | Mean | Std | Median error | Improvement |\n|---|---|---|---|---|---|\n")
		for _, p := range profile.Phases {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
				p.Phase, p.Iterations, num(p.MeanIntegral), num(p.StdIntegral), num(p.MedianError), ratio(p.Improvement()))
		}
		if c := profile.Consistency; c != nil {
			fmt.Fprintf(&b, "\nChi-square %.2f on %d degrees of freedom (p = %.3f).\n", c.ChiSquare, c.DOF, c.PValue)
		}
	}
	return b.Bytes()
}

// BenchmarkMarkdown renders benchmark rows and their summary
func BenchmarkMarkdown(suite string, rows []run.BenchmarkRow) ([]byte, error) {
	summary, err := profiling.SummarizeBenchmarks(rows)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	title := "all suites"
	if suite != "" {
		title = suite
	}
	fmt.Fprintf(&b, "# Benchmarks: %s\n\n", title)
	if len(rows) == 0 {
		b.WriteString("No benchmark rows recorded yet.\n")
		return b.Bytes(), nil
	}
	fmt.Fprintf(&b, "%d of %d rows within cutoff, mean pull %.2f, max pull %.2f, median variance ratio %s.\n\n",
		summary.Matches, summary.Rows, summary.MeanPull, summary.MaxPull, ratio(summary.MedianVarianceRatio))
	b.WriteString("| Suite | d | Params | Target | Value | Error | Flat error | Pull | Match | Ratio |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range rows {
		params := ""
		for _, k := range sortedKeys(r.Params) {
			params += fmt.Sprintf("%s=%g ", k, r.Params[k])
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | [%s](/reports/%s) | %s | %s | %s | %t | %s |\n",
			r.Suite, r.Dims, params, num(r.Target), num(r.Value), r.RunID, num(r.Error), num(r.FlatError),
			ratio(r.Pull), r.Match, ratio(r.FlatVarianceRatio))
	}
	return b.Bytes(), nil
}

func num(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.5e", v)
}

func ratio(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.2f", v)
}

// shortID keeps the random tail of a time-ordered UUID
func shortID(id string) string {
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
