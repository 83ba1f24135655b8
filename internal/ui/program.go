package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// RunOnceModel is a Bubble Tea model that renders once and exits.
// This is used for "run once and exit" output patterns rather than
// interactive TUIs.
type RunOnceModel struct {
	content string
	width   int
	height  int
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	width, height := GetTerminalSize()
	return RunOnceModel{
		content: content,
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = GetTerminalSize()
	}
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content using Bubble Tea's rendering engine and immediately exits.
func RenderOnce(content string) error {
	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(os.Stdout), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Printer provides methods for printing UI components to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintEvent prints one mesh event line
func (p *Printer) PrintEvent(ev espmesh.Event) {
	p.Println(RenderEventLine(ev, nowFunc()))
}

// PrintConfig prints the configuration table
func (p *Printer) PrintConfig(cfg *meshconfig.Config, active bool) {
	p.Println(RenderConfigTable(cfg, active))
}

// ConfigDetails flattens cfg for display. Passwords are shown only as set
// or not set.
func ConfigDetails(cfg *meshconfig.Config) map[string]string {
	secret := func(s string) string {
		if s == "" {
			return "not set"
		}
		return "set"
	}
	channel := "not set"
	if cfg.Channel != 0 {
		channel = fmt.Sprint(cfg.Channel)
	}
	return map[string]string{
		meshconfig.KeySSID:       cfg.SSID,
		meshconfig.KeyPassword:   secret(cfg.Password),
		meshconfig.KeyChannel:    channel,
		meshconfig.KeyAPPassword: secret(cfg.APPassword),
		meshconfig.KeyPowerSave:  fmt.Sprint(cfg.PowerSave),
		meshconfig.KeyTopology:   cfg.Topology.String(),
		meshconfig.KeyMaxLayer:   fmt.Sprint(cfg.MaxLayer),
		meshconfig.KeyAPAuthMode: cfg.APAuthMode.String(),
		meshconfig.KeyMeshID:     cfg.MeshID.String(),
	}
}

// RenderConfigTable renders the configuration as aligned key/value rows,
// settable keys first.
func RenderConfigTable(cfg *meshconfig.Config, active bool) string {
	details := ConfigDetails(cfg)
	keys := append(append([]string{}, meshconfig.SettableKeys...), meshconfig.ReadOnlyKeys...)

	var b strings.Builder
	state := StepPendingStyle.Render("inactive")
	if active {
		state = StepCompleteStyle.Render("active")
	}
	b.WriteString(HeaderTitleStyle.Render("MESH") + "  " + state + "\n")
	for _, key := range keys {
		b.WriteString(ResultKeyStyle.Render("  "+key) + " " + ResultValueStyle.Render(details[key]) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
