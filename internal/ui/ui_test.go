package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
)

func TestProgress_Apply(t *testing.T) {
	p := NewActivationProgress()
	if p.Total() != len(espmesh.ActivationSteps) {
		t.Fatalf("Total() = %d, want %d", p.Total(), len(espmesh.ActivationSteps))
	}

	tests := []struct {
		name     string
		ev       espmesh.StepEvent
		wantOK   bool
		wantNote string
		wantFrac float64
	}{
		{"start", espmesh.StepEvent{Index: 1}, true, "", 0},
		{"complete", espmesh.StepEvent{Index: 1, Done: true}, true, "", 1.0 / 9},
		{"skipped", espmesh.StepEvent{Index: 2, Done: true, Skipped: true}, true, "not needed", 2.0 / 9},
		{"failed", espmesh.StepEvent{Index: 4, Done: true, Err: errors.New("ESP_ERR_NO_MEM")}, true, "ESP_ERR_NO_MEM", 2.0 / 9},
		{"index zero", espmesh.StepEvent{Index: 0, Done: true}, false, "", 2.0 / 9},
		{"index past end", espmesh.StepEvent{Index: 10, Done: true}, false, "", 2.0 / 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, ok := p.Apply(tt.ev)
			if ok != tt.wantOK {
				t.Fatalf("Apply() ok = %t, want %t", ok, tt.wantOK)
			}
			if ok && (step.Note != tt.wantNote || step.Index != tt.ev.Index || p.Current != tt.ev.Index) {
				t.Errorf("Apply() = %+v, Current = %d", step, p.Current)
			}
			if got := p.Fraction(); got != tt.wantFrac {
				t.Errorf("Fraction() = %v, want %v", got, tt.wantFrac)
			}
		})
	}

	out := p.Render()
	for _, s := range []string{espmesh.ActivationSteps[0], StepMarkerSkipped, "(not needed)", FailureMarker, "[4/9]"} {
		if !strings.Contains(out, s) {
			t.Errorf("Render() missing %q", s)
		}
	}
}

func TestStepStatusOf(t *testing.T) {
	tests := []struct {
		ev   espmesh.StepEvent
		want StepStatus
	}{
		{espmesh.StepEvent{Index: 1}, StepRunning},
		{espmesh.StepEvent{Index: 1, Done: true}, StepComplete},
		{espmesh.StepEvent{Index: 2, Done: true, Skipped: true}, StepSkipped},
		{espmesh.StepEvent{Index: 4, Done: true, Err: errors.New("boom")}, StepFailed},
	}
	for _, tt := range tests {
		if got := StepStatusOf(tt.ev); got != tt.want {
			t.Errorf("StepStatusOf(%+v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestHeader_ParamsSorted(t *testing.T) {
	out := NewHeader("Mesh Up", "espmesh up", map[string]string{"SSID": "home", "Channel": "6"}).SetWidth(80).Render()
	if !strings.Contains(out, "MESH UP") {
		t.Error("Render() missing upper-case title")
	}
	if strings.Index(out, "Channel") > strings.Index(out, "SSID") {
		t.Error("Render() params not in key order")
	}
}

func TestResult_Render(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{"success", NewSuccessResult("Mesh activated", map[string]string{"Topology": "tree"}), []string{"SUCCESS", "Mesh activated", "tree"}},
		{"failure", NewFailureResult("Mesh up failed", errors.New("Password not set"), []string{"pass --password"}), []string{"FAILED", "Password not set", "Troubleshooting", "pass --password"}},
		{"warning", NewWarningResult("Events dropped", map[string]string{"Dropped": "3"}), []string{"WARNING", "Dropped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("Render() missing %q", s)
				}
			}
		})
	}
}

func TestRenderEventLine(t *testing.T) {
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	if got := RenderEventLine(espmesh.EventName(engine.EventStarted), at); !strings.Contains(got, "MESH_EVENT_STARTED") || !strings.Contains(got, "15:04:05.000") {
		t.Errorf("RenderEventLine(known) = %q", got)
	}
	if got := RenderEventLine(espmesh.EventName(9999), at); !strings.Contains(got, "event 9999") {
		t.Errorf("RenderEventLine(unknown) = %q", got)
	}
}

func TestEventStream_Update(t *testing.T) {
	events := make(chan espmesh.Event, 1)
	var m tea.Model = NewEventStream("events", events)

	for i := 0; i < DefaultEventHistory+5; i++ {
		var cmd tea.Cmd
		m, cmd = m.Update(eventMsg{ev: espmesh.EventName(engine.EventStarted), at: time.Now()})
		if cmd == nil {
			t.Fatal("Update(event) returned no command to wait for the next event")
		}
	}
	es := m.(EventStream)
	if es.Count() != DefaultEventHistory+5 {
		t.Errorf("Count() = %d", es.Count())
	}
	if len(es.lines) != DefaultEventHistory {
		t.Errorf("kept %d lines, want %d", len(es.lines), DefaultEventHistory)
	}

	m, cmd := m.Update(streamClosedMsg{})
	if cmd == nil {
		t.Error("Update(closed) did not quit")
	}
	if strings.Contains(m.View(), "q to quit") {
		t.Error("View() after close still shows quit hint")
	}

	close(events)
	if _, ok := NewEventStream("events", events).waitForEvent().(streamClosedMsg); !ok {
		t.Error("waitForEvent() on closed channel did not report close")
	}
}

func TestRunner_Run(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{
		Title:     "Mesh Up",
		Command:   "espmesh up",
		StepNames: espmesh.ActivationSteps,
		Output:    &buf,
		Troubleshoot: func(error) []string {
			return []string{"check the router"}
		},
	})

	err := r.Run(func(observe espmesh.StepObserver) (map[string]string, error) {
		observe(espmesh.StepEvent{Index: 1, Name: espmesh.ActivationSteps[0]})
		observe(espmesh.StepEvent{Index: 1, Name: espmesh.ActivationSteps[0], Done: true})
		observe(espmesh.StepEvent{Index: 2, Name: espmesh.ActivationSteps[1], Done: true, Skipped: true})
		return map[string]string{"SSID": "home"}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := buf.String()
	for _, s := range []string{"MESH UP", espmesh.ActivationSteps[0], "not needed", "Mesh Up complete", "Duration"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q", s)
		}
	}

	buf.Reset()
	wantErr := errors.New("radio failed")
	if err := r.Run(func(espmesh.StepObserver) (map[string]string, error) { return nil, wantErr }); err != wantErr {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
	if !strings.Contains(buf.String(), "check the router") {
		t.Error("failure output missing troubleshooting hint")
	}
}

func TestRenderConfigTable(t *testing.T) {
	cfg := meshconfig.New()
	cfg.SSID = "home"
	cfg.Password = "hunter2"

	out := RenderConfigTable(cfg, true)
	if strings.Contains(out, "hunter2") {
		t.Error("RenderConfigTable() shows the password")
	}
	for _, key := range append(append([]string{}, meshconfig.SettableKeys...), meshconfig.ReadOnlyKeys...) {
		if !strings.Contains(out, key) {
			t.Errorf("RenderConfigTable() missing %q", key)
		}
	}
	if d := ConfigDetails(cfg); d[meshconfig.KeyChannel] != "not set" || d[meshconfig.KeyPassword] != "set" {
		t.Errorf("ConfigDetails() = %v", d)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Overwrite?"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
