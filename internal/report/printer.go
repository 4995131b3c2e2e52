package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/studiowebux/ballast/internal/executor"
	"github.com/studiowebux/ballast/internal/types"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Printer writes human-readable verdicts and progress lines. Styles are bound
// to the writer, so colors are dropped when it is not a terminal.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	stylePass    lipgloss.Style
	styleFail    lipgloss.Style
	styleWarning lipgloss.Style
	styleSubtle  lipgloss.Style
	styleTitle   lipgloss.Style
	styleUp      lipgloss.Style
	styleDown    lipgloss.Style
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:            w,
		stylePass:    r.NewStyle().Bold(true).Foreground(colorGreen),
		styleFail:    r.NewStyle().Bold(true).Foreground(colorRed),
		styleWarning: r.NewStyle().Bold(true).Foreground(colorYellow),
		styleSubtle:  r.NewStyle().Foreground(colorGray),
		styleTitle:   r.NewStyle().Bold(true).Foreground(colorCyan),
		styleUp:      r.NewStyle().Foreground(colorRed),
		styleDown:    r.NewStyle().Foreground(colorGreen),
	}
}

func (p *Printer) line(indent int, parts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, strings.Repeat(" ", indent)+strings.Join(parts, " "))
}

// Reports prints every report followed by the pass/fail summary
func (p *Printer) Reports(reports []EndpointReport) {
	for _, r := range reports {
		p.Report(r)
	}
	p.Summary(reports)
}

// Report prints one endpoint verdict, its failure reasons and its stat lines
func (p *Printer) Report(r EndpointReport) {
	p.line(0)
	if r.Passed {
		p.line(0, p.stylePass.Render("PASS"), r.Name, r.URL)
	} else {
		p.line(0, p.styleFail.Render("FAIL"), r.Name, r.URL)
	}

	for _, reason := range r.Reasons {
		title := "Expected"
		if reason.Kind == ReasonThreshold {
			title = "Threshold"
		}
		p.line(4, p.styleWarning.Render(title), reason.Message)
	}

	for _, s := range r.Stats {
		p.line(4, s.Label+":", formatMs(s.Value), p.formatDelta(s.Delta))
	}
}

func (p *Printer) formatDelta(d *float64) string {
	if d == nil {
		return p.styleSubtle.Render("(no previous snapshot)")
	}
	sign, style := "", p.styleDown
	if *d >= 0 {
		sign = "+"
	}
	if *d > 0 {
		style = p.styleUp
	}
	return style.Render(fmt.Sprintf("(%s%s)", sign, formatMs(*d)))
}

// Summary prints "N tests passed, M tests failed"
func (p *Printer) Summary(reports []EndpointReport) {
	passed, failed := Counts(reports)
	p.line(0)
	p.line(2, p.stylePass.Render(fmt.Sprint(passed)), "tests passed,", p.styleFail.Render(fmt.Sprint(failed)), "tests failed")
}

// Status prints a neutral progress or informational line
func (p *Printer) Status(format string, args ...any) {
	p.line(0, p.styleSubtle.Render(fmt.Sprintf(format, args...)))
}

// Snapshots prints a history listing, one snapshot per line
func (p *Printer) Snapshots(snapshots []types.Snapshot) {
	if len(snapshots) == 0 {
		p.line(0, p.styleSubtle.Render("No snapshots recorded."))
		return
	}
	for _, s := range snapshots {
		passed, failed := s.Counts()
		parts := []string{
			p.styleTitle.Render(fmt.Sprint(s.Timestamp)),
			p.stylePass.Render(fmt.Sprintf("%d passed", passed)),
			p.styleFail.Render(fmt.Sprintf("%d failed", failed)),
		}
		if s.ID != "" {
			parts = append(parts, p.styleSubtle.Render(s.ID))
		}
		if s.Description != "" {
			parts = append(parts, s.Description)
		}
		p.line(0, parts...)
	}
}

// RampStarted implements stresstest.Observer
func (p *Printer) RampStarted(ep *types.Endpoint, steps int) {
	p.Status("Warming up %s (%d steps)", ep.Name, steps)
}

// RampFinished implements stresstest.Observer
func (p *Printer) RampFinished(ep *types.Endpoint) {}

// CycleStarted implements stresstest.Observer
func (p *Printer) CycleStarted(ep *types.Endpoint, cycle, total int) {
	p.Status("Running %s %s cycle %d/%d", ep.Name, ep.URL, cycle+1, total)
}

// EndpointFinished implements stresstest.Observer
func (p *Printer) EndpointFinished(ep *types.Endpoint, run *types.EndpointRun) {
	var slowest float64
	for _, cycle := range run.Cycles {
		for _, r := range cycle {
			if r.DurationMs > slowest {
				slowest = r.DurationMs
			}
		}
	}
	p.Status("Finished %s after %d cycles (slowest %s)", ep.Name, run.NumCycles, executor.FormatDuration(slowest))
}
