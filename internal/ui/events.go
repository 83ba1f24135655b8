package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espmesh/internal/espmesh"
)

// nowFunc is replaced in tests
var nowFunc = time.Now

// RenderEventLine renders one mesh event as "15:04:05.000  NAME".
// Codes with no name are shown as "event <code>".
func RenderEventLine(ev espmesh.Event, at time.Time) string {
	ts := EventTimeStyle.Render(at.Format("15:04:05.000"))
	if ev.Known() {
		return "  " + ts + "  " + EventNameStyle.Render(ev.Name)
	}
	return "  " + ts + "  " + EventRawStyle.Render(fmt.Sprintf("event %d", ev.Code))
}

// DefaultEventHistory is how many lines EventStream keeps on screen
const DefaultEventHistory = 20

type eventMsg struct {
	ev espmesh.Event
	at time.Time
}

type streamClosedMsg struct{}

// EventStream is a Bubble Tea model that shows the most recent mesh events
// as they arrive. It quits when the event channel closes or the user
// presses q or ctrl+c.
type EventStream struct {
	title   string
	events  <-chan espmesh.Event
	lines   []string
	history int
	count   int
	closed  bool
}

// NewEventStream creates a live view over events
func NewEventStream(title string, events <-chan espmesh.Event) EventStream {
	return EventStream{
		title:   title,
		events:  events,
		history: DefaultEventHistory,
	}
}

// Count returns the number of events received so far
func (m EventStream) Count() int {
	return m.count
}

func (m EventStream) waitForEvent() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return streamClosedMsg{}
	}
	return eventMsg{ev: ev, at: nowFunc()}
}

// Init implements tea.Model
func (m EventStream) Init() tea.Cmd {
	return m.waitForEvent
}

// Update implements tea.Model
func (m EventStream) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.count++
		m.lines = append(m.lines, RenderEventLine(msg.ev, msg.at))
		if len(m.lines) > m.history {
			m.lines = m.lines[len(m.lines)-m.history:]
		}
		return m, m.waitForEvent
	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model
func (m EventStream) View() string {
	var b strings.Builder
	b.WriteString(HeaderTitleStyle.Render(strings.ToUpper(m.title)))
	b.WriteString("  ")
	b.WriteString(StepNoteStyle.Render(fmt.Sprintf("%d events", m.count)))
	b.WriteString("\n\n")
	if len(m.lines) == 0 {
		b.WriteString(StepPendingStyle.Render("  waiting for events..."))
		b.WriteString("\n")
	}
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if !m.closed {
		b.WriteString("\n")
		b.WriteString(StepPendingStyle.Render("  q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// RunEventStream shows events until the channel closes or the user quits
func RunEventStream(title string, events <-chan espmesh.Event) error {
	_, err := tea.NewProgram(NewEventStream(title, events)).Run()
	return err
}
