// Package ui provides terminal UI components for the espmesh CLI.
//
// Components render with Lipgloss and follow a "run once and exit" pattern,
// except EventStream, which is a live Bubble Tea view of incoming mesh
// events.
//
//   - Header: command banner showing operation name and parameters
//   - Progress: progress bar with step list, fed by activation steps
//   - Result: success, failure and warning boxes
//   - Runner: header, progress and result flow for one command
//   - EventStream: scrolling list of the latest mesh events
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Mesh Up",
//	    Command:   "espmesh up",
//	    StepNames: espmesh.ActivationSteps,
//	})
//	err := runner.Run(func(observe espmesh.StepObserver) (map[string]string, error) {
//	    return nil, espmesh.Get(espmesh.WithStepObserver(observe)).Activate()
//	})
//
// # Logging Integration
//
// zap logging is silent unless ESPMESH_LOG_LEVEL is set, so the curated UI
// output is displayed cleanly.
package ui
