package host

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
)

func newTestBinding(t *testing.T) (*Binding, *engine.Sim) {
	t.Helper()
	espmesh.Reset()
	sim := engine.NewSim()
	b := New(espmesh.Get(espmesh.WithEngine(sim)))
	t.Cleanup(espmesh.Reset)
	return b, sim
}

type callable struct {
	mu   sync.Mutex
	args []any
}

func (c *callable) Call(arg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, arg)
}

func (c *callable) got() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.args...)
}

func TestBinding_Active(t *testing.T) {
	b, _ := newTestBinding(t)

	if active, err := b.Active(); err != nil || active {
		t.Fatalf("Active() = %v, %v; want false, nil", active, err)
	}

	_, err := b.Active(true)
	if !espmesh.IsConfigurationError(err) {
		t.Fatalf("Active(true) without config error = %v, want configuration error", err)
	}

	_, err = b.Config(nil, map[string]any{"ssid": "home", "password": "secret", "channel": 6})
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if active, err := b.Active(1); err != nil || !active {
		t.Fatalf("Active(1) = %v, %v; want true, nil", active, err)
	}
	if active, err := b.Active(); err != nil || !active {
		t.Errorf("Active() = %v, %v; want true", active, err)
	}
	if active, err := b.Active(nil); err != nil || active {
		t.Errorf("Active(nil) = %v, %v; want false", active, err)
	}
	if active, err := b.Active(false); err != nil || active {
		t.Errorf("Active(false) again = %v, %v; want false", active, err)
	}

	if _, err := b.Active(true, false); err == nil {
		t.Error("Active() with two arguments did not fail")
	}
}

func TestBinding_Config(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		kwargs  map[string]any
		want    any
		checkFn func(error) bool
	}{
		{
			name: "unset channel defaults to zero",
			args: []any{"channel"},
			want: 0,
		},
		{
			name:   "set then get channel",
			args:   []any{"channel"},
			kwargs: map[string]any{"channel": 6},
			want:   6,
		},
		{
			name:   "json number channel",
			args:   []any{"channel"},
			kwargs: map[string]any{"channel": float64(11)},
			want:   11,
		},
		{
			name:   "bytes ssid",
			args:   []any{[]byte("ssid")},
			kwargs: map[string]any{"ssid": []byte("home")},
			want:   "home",
		},
		{
			name:   "31 byte ssid",
			args:   []any{"ssid"},
			kwargs: map[string]any{"ssid": strings.Repeat("A", 31)},
			want:   strings.Repeat("A", 31),
		},
		{
			name:   "set without key returns nil",
			kwargs: map[string]any{"power_save": false},
			want:   nil,
		},
		{
			name:    "33 byte ssid",
			kwargs:  map[string]any{"ssid": strings.Repeat("A", 33)},
			checkFn: meshconfig.IsValueTooLongError,
		},
		{
			name:    "unknown keyword",
			kwargs:  map[string]any{"mesh_password": "x"},
			checkFn: meshconfig.IsUnknownParameterError,
		},
		{
			name:    "unknown key",
			args:    []any{"bssid"},
			checkFn: meshconfig.IsUnknownParameterError,
		},
		{
			name:    "non-string key",
			args:    []any{42},
			checkFn: meshconfig.IsTypeMismatchError,
		},
		{
			name:    "ssid of wrong type",
			kwargs:  map[string]any{"ssid": 12},
			checkFn: meshconfig.IsTypeMismatchError,
		},
		{
			name:    "fractional channel",
			kwargs:  map[string]any{"channel": 6.5},
			checkFn: meshconfig.IsTypeMismatchError,
		},
		{
			name:    "string channel",
			kwargs:  map[string]any{"channel": "6"},
			checkFn: meshconfig.IsTypeMismatchError,
		},
		{
			name:    "negative channel",
			kwargs:  map[string]any{"channel": -1},
			checkFn: meshconfig.IsValueOutOfRangeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBinding(t)

			got, err := b.Config(tt.args, tt.kwargs)
			if tt.checkFn != nil {
				if !tt.checkFn(err) {
					t.Fatalf("Config() error = %v, wrong type", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Config() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Config() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBinding_ConfigAllOrNothing(t *testing.T) {
	b, _ := newTestBinding(t)

	_, err := b.Config(nil, map[string]any{
		"ssid":    "home",
		"channel": "six",
	})
	if !meshconfig.IsTypeMismatchError(err) {
		t.Fatalf("Config() error = %v, want type mismatch", err)
	}
	if v, _ := b.Config([]any{"ssid"}, nil); v != "" {
		t.Errorf("ssid = %q after rejected call, want empty", v)
	}
}

func TestAsHandler(t *testing.T) {
	var nilFunc func(any)
	tests := []struct {
		name      string
		v         any
		wantNil   bool
		wantError bool
	}{
		{name: "nil", v: nil, wantNil: true},
		{name: "typed nil func", v: nilFunc, wantNil: true},
		{name: "func(any)", v: func(any) {}},
		{name: "handler", v: espmesh.Handler(func(espmesh.Event) {})},
		{name: "func(Event)", v: func(espmesh.Event) {}},
		{name: "callable", v: &callable{}},
		{name: "int", v: 42, wantError: true},
		{name: "string", v: "handler", wantError: true},
		{name: "wrong signature", v: func() {}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := AsHandler(tt.v)
			if tt.wantError {
				if !espmesh.IsInvalidHandlerError(err) {
					t.Errorf("AsHandler() error = %v, want invalid handler", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsHandler() error = %v", err)
			}
			if (h == nil) != tt.wantNil {
				t.Errorf("AsHandler() nil = %v, want %v", h == nil, tt.wantNil)
			}
		})
	}
}

func TestBinding_RegisterEventHandler(t *testing.T) {
	b, sim := newTestBinding(t)
	if _, err := b.Config(nil, map[string]any{"ssid": "home", "password": "secret", "channel": 1}); err != nil {
		t.Fatalf("Config() error = %v", err)
	}

	if err := b.RegisterEventHandler(3.14); !espmesh.IsInvalidHandlerError(err) {
		t.Fatalf("RegisterEventHandler(3.14) error = %v, want invalid handler", err)
	}

	c := &callable{}
	if err := b.RegisterEventHandler(c); err != nil {
		t.Fatalf("RegisterEventHandler() error = %v", err)
	}
	if _, err := b.Active(true); err != nil {
		t.Fatalf("Active(true) error = %v", err)
	}

	sim.Emit(engine.EventStarted, nil)
	sim.Emit(9999, nil)
	if err := b.RegisterEventHandler(nil); err != nil {
		t.Fatalf("RegisterEventHandler(nil) error = %v", err)
	}
	sim.Emit(engine.EventStopped, nil)

	// A fresh handler is queued behind the earlier deliveries
	done := make(chan struct{})
	b.Mesh().RegisterEventHandler(func(espmesh.Event) { close(done) })
	sim.Emit(engine.EventLayerChange, nil)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	got := c.got()
	if len(got) != 2 || got[0] != "MESH_EVENT_STARTED" || got[1] != int32(9999) {
		t.Errorf("callable got %v, want [MESH_EVENT_STARTED 9999]", got)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{1, true},
		{int64(-3), true},
		{0.0, false},
		{"", false},
		{"0", true},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{uint8(0), false},
		{struct{}{}, true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
