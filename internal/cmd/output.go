package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/syncbench/internal/bench"
	"github.com/Iron-Ham/syncbench/internal/config"
	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/harness"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// Colors match the palette used across the project's terminal output.
var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	okColor      = lipgloss.Color("#10B981") // Green
	warnColor    = lipgloss.Color("#F59E0B") // Amber
	badColor     = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280") // Gray
)

const maxRuleWidth = 60

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	muted  lipgloss.Style
	border lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(primaryColor),
		label:  r.NewStyle().Foreground(mutedColor).Width(12),
		ok:     r.NewStyle().Bold(true).Foreground(okColor),
		warn:   r.NewStyle().Bold(true).Foreground(warnColor),
		bad:    r.NewStyle().Bold(true).Foreground(badColor),
		muted:  r.NewStyle().Foreground(mutedColor),
		border: r.NewStyle().Foreground(borderColor),
	}
}

// printer renders results in the configured output format.
type printer struct {
	w      io.Writer
	format string
	width  int
	styles styles
}

func newPrinter(w io.Writer, out config.OutputConfig) *printer {
	r := lipgloss.NewRenderer(w)
	if useColor(w, out.Color) {
		if out.Color == "always" && !isTerminal(w) {
			r.SetColorProfile(termenv.ANSI256)
		}
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	width := maxRuleWidth
	if f, ok := w.(*os.File); ok && isTerminal(w) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = min(cols, maxRuleWidth)
		}
	}

	format := out.Format
	if format == "" {
		format = "text"
	}
	return &printer{w: w, format: format, width: width, styles: newStyles(r)}
}

// useColor resolves the auto/always/never color mode for w. Auto honors
// NO_COLOR and only colors terminals.
func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		return isTerminal(w)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runReport is the serialized form of a run result.
type runReport struct {
	harness.Result `yaml:",inline"`
	Lost           int64  `json:"lost" yaml:"lost"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
	Retryable      bool   `json:"retryable,omitempty" yaml:"retryable,omitempty"`
}

func newRunReport(res *harness.Result) runReport {
	report := runReport{Result: *res, Lost: res.Lost()}
	if res.Err != nil {
		report.Error = res.Err.Error()
		report.Retryable = errors.IsRetryable(res.Err)
	}
	return report
}

// kindInfo is the serialized form of a strategy listing.
type kindInfo struct {
	Name        string `json:"name" yaml:"name"`
	Correct     bool   `json:"correct" yaml:"correct"`
	SharedCell  bool   `json:"shared_cell" yaml:"shared_cell"`
	Concurrent  bool   `json:"concurrent" yaml:"concurrent"`
	Description string `json:"description" yaml:"description"`
}

func (p *printer) encode(v any) (bool, error) {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// result renders a single run.
func (p *printer) result(res *harness.Result) error {
	if done, err := p.encode(newRunReport(res)); done {
		return err
	}

	s := p.styles
	fmt.Fprintf(p.w, "%s  %s\n", s.title.Render(res.Strategy.String()), p.outcome(res.Strategy, res.Outcome))
	fmt.Fprintln(p.w, p.rule())

	shape := fmt.Sprintf("%d × %d", res.Workers, res.Repetitions)
	if res.Batch {
		shape += s.muted.Render(" (batch)")
	}
	p.field("workers", shape)
	p.field("expected", strconv.FormatInt(res.ExpectedTotal, 10))
	p.field("observed", strconv.FormatInt(res.ObservedTotal, 10))
	if lost := res.Lost(); lost != 0 {
		p.field("lost", s.warn.Render(strconv.FormatInt(lost, 10)))
	}
	p.field("completed", fmt.Sprintf("%d/%d", res.Completed, res.Workers))
	p.field("duration", formatDuration(res.Duration))
	p.field("run", s.muted.Render(res.RunID))
	if res.Err != nil {
		fmt.Fprintln(p.w)
		style := p.errorStyle(res)
		for _, line := range p.wrap(res.Err.Error()) {
			fmt.Fprintln(p.w, style.Render(line))
		}
		if errors.IsRetryable(res.Err) {
			fmt.Fprintln(p.w, s.muted.Render("another trial may come out differently"))
		}
	}
	return nil
}

// wrap breaks text into lines no wider than the rule. Wordwrap keeps the
// space it broke on, so each line is trimmed. Lines are styled one at a time
// because a multi-line Render pads every line to the widest.
func (p *printer) wrap(text string) []string {
	lines := strings.Split(ansi.Wordwrap(text, p.width, " "), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return lines
}

// summaries renders a bench comparison.
func (p *printer) summaries(suite bench.Suite, sums []bench.Summary) error {
	if done, err := p.encode(sums); done {
		return err
	}

	s := p.styles
	header := fmt.Sprintf("%d workers × %d reps, %d trials each", suite.Workers, suite.Repetitions, suite.Trials)
	if suite.Batch {
		header += ", batch"
	}
	fmt.Fprintln(p.w, s.title.Render("Strategy comparison"))
	fmt.Fprintln(p.w, s.muted.Render(header))
	fmt.Fprintln(p.w)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.border).
		Headers("STRATEGY", "MATCHED", "MIN", "MAX", "DISTINCT", "LOST", "MEAN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.muted.Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for i := range sums {
		sum := &sums[i]
		t.Row(
			sum.Strategy.String(),
			p.matched(sum),
			strconv.FormatInt(sum.MinObserved, 10),
			strconv.FormatInt(sum.MaxObserved, 10),
			strconv.Itoa(sum.Distinct),
			fmt.Sprintf("%.2f%%", sum.LostRatio*100),
			formatDuration(sum.MeanDuration),
		)
	}
	fmt.Fprintln(p.w, t.Render())

	violations := 0
	for i := range sums {
		violations += sums[i].Violations()
	}
	if violations > 0 {
		fmt.Fprintln(p.w, s.bad.Render(fmt.Sprintf("%d trial(s) of correct strategies did not match", violations)))
	}
	return nil
}

// kinds renders the strategy catalogue.
func (p *printer) kinds(kinds []strategy.Kind) error {
	infos := make([]kindInfo, len(kinds))
	for i, k := range kinds {
		infos[i] = kindInfo{
			Name:        k.String(),
			Correct:     k.Correct(),
			SharedCell:  k.SharedCell(),
			Concurrent:  k.Concurrent(),
			Description: k.Description(),
		}
	}
	if done, err := p.encode(infos); done {
		return err
	}

	s := p.styles
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("NAME", "CORRECT", "SHARED CELL", "CONCURRENT", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.muted.Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	for _, info := range infos {
		t.Row(info.Name, p.yesNo(info.Correct), p.yesNo(info.SharedCell), p.yesNo(info.Concurrent), info.Description)
	}
	fmt.Fprintln(p.w, t.Render())
	return nil
}

func (p *printer) field(label, value string) {
	fmt.Fprintf(p.w, "%s%s\n", p.styles.label.Render(label), value)
}

func (p *printer) rule() string {
	return p.styles.border.Render(strings.Repeat("─", p.width))
}

func (p *printer) outcome(kind strategy.Kind, o harness.Outcome) string {
	label := strings.ToUpper(o.String())
	switch {
	case o == harness.OutcomeMatch:
		return p.styles.ok.Render(label)
	case !kind.Correct():
		return p.styles.warn.Render(label)
	default:
		return p.styles.bad.Render(label)
	}
}

func (p *printer) errorStyle(res *harness.Result) lipgloss.Style {
	if res.Violates() {
		return p.styles.bad
	}
	return p.styles.warn
}

func (p *printer) matched(sum *bench.Summary) string {
	text := fmt.Sprintf("%d/%d", sum.Matches, sum.Trials)
	switch {
	case sum.Reliable():
		return p.styles.ok.Render(text)
	case sum.Violations() > 0:
		return p.styles.bad.Render(text)
	default:
		return p.styles.warn.Render(text)
	}
}

func (p *printer) yesNo(v bool) string {
	if v {
		return p.styles.ok.Render("yes")
	}
	return p.styles.muted.Render("no")
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}
