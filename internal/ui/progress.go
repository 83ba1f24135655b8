package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/espmesh/internal/espmesh"
)

// StepStatus is the display state of one activation step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

func (s StepStatus) settled() bool {
	return s == StepComplete || s == StepFailed || s == StepSkipped
}

func (s StepStatus) marker() (string, lipgloss.Style) {
	switch s {
	case StepComplete:
		return StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		return StepMarkerRunning, StepRunningStyle
	case StepFailed:
		return FailureMarker, ErrorTitleStyle
	case StepSkipped:
		return StepMarkerSkipped, StepPendingStyle
	default:
		return StepMarkerPending, StepPendingStyle
	}
}

// StepStatusOf maps an activation step event to a display status
func StepStatusOf(ev espmesh.StepEvent) StepStatus {
	switch {
	case !ev.Done:
		return StepRunning
	case ev.Err != nil:
		return StepFailed
	case ev.Skipped:
		return StepSkipped
	default:
		return StepComplete
	}
}

// Step is one line of the step list
type Step struct {
	Index  int // 1-based, as in espmesh.StepEvent
	Name   string
	Status StepStatus
	Note   string // shown in parentheses after the marker
}

// Progress tracks activation steps and renders them as a bar and a list
type Progress struct {
	Label   string
	Steps   []Step
	Current int // index of the last step that changed
	bar     progress.Model
}

// NewProgress creates a progress display with one pending step per name
func NewProgress(label string, names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Index: i + 1, Name: name}
	}
	p := &Progress{Label: label, Steps: steps}
	return p.SetWidth(GetTerminalWidth())
}

// NewActivationProgress creates a progress display for espmesh.ActivationSteps
func NewActivationProgress() *Progress {
	return NewProgress("Activating mesh...", espmesh.ActivationSteps)
}

// SetWidth sizes the bar to fit width, leaving room for the counters
func (p *Progress) SetWidth(width int) *Progress {
	barWidth := min(max(width-20, 20), 50)
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// Set changes the status and note of step index. Out-of-range indexes are
// ignored and report false.
func (p *Progress) Set(index int, status StepStatus, note string) (Step, bool) {
	if index < 1 || index > len(p.Steps) {
		return Step{}, false
	}
	s := &p.Steps[index-1]
	s.Status = status
	s.Note = note
	p.Current = index
	return *s, true
}

// Apply records an activation step event. A skipped step is noted as not
// needed and a failed one carries the error.
func (p *Progress) Apply(ev espmesh.StepEvent) (Step, bool) {
	status := StepStatusOf(ev)
	var note string
	switch status {
	case StepSkipped:
		note = "not needed"
	case StepFailed:
		note = ev.Err.Error()
	}
	if ev.Name != "" && ev.Index >= 1 && ev.Index <= len(p.Steps) {
		p.Steps[ev.Index-1].Name = ev.Name
	}
	return p.Set(ev.Index, status, note)
}

// Fraction is the share of steps that completed or were skipped
func (p *Progress) Fraction() float64 {
	if len(p.Steps) == 0 {
		return 0
	}
	n := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			n++
		}
	}
	return float64(n) / float64(len(p.Steps))
}

// Render returns the label, bar and step list
func (p *Progress) Render() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	frac := p.Fraction()
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(frac), frac*100, p.Current, p.Total())))
	b.WriteString("\n\n")

	for i, s := range p.Steps {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.StepLine(s))
	}
	return b.String()
}

// StepLine renders a single step. Markers line up in one column.
func (p *Progress) StepLine(s Step) string {
	marker, style := s.Status.marker()
	pad := max(45-lipgloss.Width(s.Name), 1)

	line := fmt.Sprintf("  [%d/%d] %s%s%s", s.Index, p.Total(), style.Render(s.Name),
		strings.Repeat(" ", pad), style.Render(marker))
	if s.Note != "" {
		line += "  " + StepNoteStyle.Render("("+s.Note+")")
	}
	return line
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
