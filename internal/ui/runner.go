package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/espmesh/internal/espmesh"
)

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title     string            // Command title (e.g., "Mesh Up")
	Command   string            // Full command (e.g., "espmesh up")
	Params    map[string]string // Parameters to display in header
	StepNames []string          // Names for each step; no progress lines when empty
	Output    io.Writer         // Output writer (default: os.Stdout)

	// Troubleshoot returns hints for a failure. Optional.
	Troubleshoot func(error) []string
}

// Runner orchestrates the header, progress and result output of a
// multi-step command.
type Runner struct {
	config    RunnerConfig
	header    *Header
	progress  *Progress
	output    io.Writer
	startTime time.Time
	width     int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	var progress *Progress
	if len(config.StepNames) > 0 {
		progress = NewProgress("", config.StepNames).SetWidth(width)
	}

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: progress,
		output:   config.Output,
		width:    width,
	}
}

// Operation is the work a Runner reports on. It passes observe to the mesh
// so activation steps are printed as they settle. Details are shown in the
// success box.
type Operation func(observe espmesh.StepObserver) (map[string]string, error)

// Run prints the header, executes operation and prints the result
func (r *Runner) Run(operation Operation) error {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(r.Observer())
	duration := time.Since(r.startTime).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	result := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	result.AddDetail("Duration", duration.String())
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

// Observer records activation steps and prints each line once it settles
func (r *Runner) Observer() espmesh.StepObserver {
	return func(ev espmesh.StepEvent) {
		if r.progress == nil {
			return
		}
		step, ok := r.progress.Apply(ev)
		if !ok {
			return
		}
		line := r.progress.StepLine(step)
		if step.Status.settled() {
			_, _ = fmt.Fprintln(r.output, line)
			return
		}
		// Overwritten when the step settles
		_, _ = fmt.Fprint(r.output, line+"\r")
	}
}

// Progress returns the tracked progress, or nil when the runner has no steps
func (r *Runner) Progress() *Progress {
	return r.progress
}
