package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"sempower/domain/core"
	domainPower "sempower/domain/power"
	"sempower/internal/power"
)

// Format selects how results are written
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts json, markdown (or md) and html
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", core.NewInvalidArgumentError("format", "unknown output format %q", s)
	}
}

// Write renders v in the requested format. Types without a markdown table
// fall back to JSON.
func Write(w io.Writer, format Format, v interface{}) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	md, ok := Markdown(v)
	if !ok {
		return Write(w, FormatJSON, v)
	}
	if format == FormatHTML {
		_, err := w.Write(ToHTML(md, title(v)))
		return err
	}
	_, err := io.WriteString(w, md)
	return err
}

// Markdown renders the known result types as markdown tables
func Markdown(v interface{}) (string, bool) {
	switch t := v.(type) {
	case *domainPower.Analysis:
		return AnalysisMarkdown(t), true
	case *domainPower.Plan:
		return PlanMarkdown(t), true
	case *domainPower.Sweep:
		return SweepMarkdown(t), true
	case []power.CurvePoint:
		return CurveMarkdown(t), true
	case domainPower.PowerResult:
		return ResultMarkdown(t), true
	default:
		return "", false
	}
}

// ToHTML converts markdown to a complete HTML page
func ToHTML(md string, pageTitle string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: pageTitle,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func title(v interface{}) string {
	switch v.(type) {
	case *domainPower.Plan:
		return "Sample size plan"
	case *domainPower.Sweep:
		return "Power sweep"
	case []power.CurvePoint:
		return "Power curve"
	default:
		return "Power analysis"
	}
}

// ResultMarkdown renders a single power computation
func ResultMarkdown(r domainPower.PowerResult) string {
	var b strings.Builder
	b.WriteString("| alpha | df | ncp | critical value | power |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %.4g | %d | %.4f | %.4f | %.4f |\n",
		r.Query.Alpha, r.Query.DegreesOfFreedom, r.Query.Ncp, r.CriticalValue, r.Power)
	return b.String()
}

// AnalysisMarkdown renders a fitted design
func AnalysisMarkdown(a *domainPower.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Model)
	fmt.Fprintf(&b, "Constraint `%s`, group sizes %s, design `%s`.\n\n", a.Constraint, formatSizes(a.Sizes), a.DesignHash.Short())
	b.WriteString("| chi-square | df | alpha | critical value | power |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %.4f | %d | %.4g | %.4f | %.4f |\n",
		a.Fit.ChiSquare, a.Fit.DegreesOfFreedom, a.Result.Query.Alpha, a.Result.CriticalValue, a.Result.Power)
	return b.String()
}

// PlanMarkdown renders the before and after of a sample size plan
func PlanMarkdown(p *domainPower.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan for %s\n\n", p.Model)
	fmt.Fprintf(&b, "Target power %.2f at alpha %.4g. Multiplier %.4f, %d refits.\n\n", p.TargetPower, p.Alpha, p.Multiplier, p.Iterations)
	b.WriteString("| stage | sizes | ncp | power |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| initial | %s | %.4f | %.4f |\n", formatSizes(p.InitialSizes), p.Initial.Query.Ncp, p.Initial.Power)
	fmt.Fprintf(&b, "| planned | %s | %.4f | %.4f |\n", formatSizes(p.PlannedSizes), p.Achieved.Query.Ncp, p.Achieved.Power)
	return b.String()
}

// SweepMarkdown renders one row per grid point in input order
func SweepMarkdown(s *domainPower.Sweep) string {
	var b strings.Builder
	b.WriteString("| kind | effect size | correlation | n | alpha | chi-square | df | power |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range s.Results {
		n := fmt.Sprintf("%d", r.Point.Params.N)
		if r.Point.Params.N2 != 0 {
			n = fmt.Sprintf("%d/%d", r.Point.Params.N, r.Point.Params.N2)
		}
		fmt.Fprintf(&b, "| %s | %.3g | %.3g | %s | %.4g | %.4f | %d | %.4f |\n",
			r.Point.Params.Kind, r.Point.Params.EffectSize, r.Point.Params.Correlation, n,
			r.Result.Query.Alpha, r.Fit.ChiSquare, r.Fit.DegreesOfFreedom, r.Result.Power)
	}
	return b.String()
}

// CurveMarkdown renders a power curve
func CurveMarkdown(points []power.CurvePoint) string {
	var b strings.Builder
	b.WriteString("| N | ncp | power |\n")
	b.WriteString("|---|---|---|\n")
	for _, p := range points {
		fmt.Fprintf(&b, "| %d | %.4f | %.4f |\n", p.N, p.Ncp, p.Power)
	}
	return b.String()
}

func formatSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, " + ")
}
