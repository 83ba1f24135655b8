package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/protocol"
	"github.com/muurk/espmesh/internal/server"
)

type testEnv struct {
	sim *engine.Sim
	srv *server.Server
	url string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	espmesh.Reset()
	sim := engine.NewSim()
	b := host.New(espmesh.Get(espmesh.WithEngine(sim)))

	srv, err := server.New(&server.Config{}, b)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		espmesh.Reset()
	})
	return &testEnv{
		sim: sim,
		srv: srv,
		url: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func connect(t *testing.T, url string) *Client {
	t.Helper()
	c := New(url)
	c.Timeout = 2 * time.Second
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func configure(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Config(context.Background(), "", map[string]any{"ssid": "home", "password": "secret", "channel": 6})
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
}

func TestClient_ActiveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)
	ctx := context.Background()

	if on, err := c.Active(ctx); err != nil || on {
		t.Fatalf("Active() = %v, %v, want false", on, err)
	}

	_, err := c.SetActive(ctx, true)
	if !IsRemoteError(err) {
		t.Fatalf("SetActive(true) unconfigured error = %v, want remote error", err)
	}
	var cErr *Error
	if !errors.As(err, &cErr) || cErr.Remote.Type != protocol.ErrorTypeConfiguration {
		t.Errorf("remote error = %+v, want %s", cErr, protocol.ErrorTypeConfiguration)
	}
	if GetTroubleshootingHint(err) == "" {
		t.Error("GetTroubleshootingHint() is empty for configuration error")
	}

	configure(t, c)
	if on, err := c.SetActive(ctx, true); err != nil || !on {
		t.Fatalf("SetActive(true) = %v, %v", on, err)
	}
	if on, err := c.SetActive(ctx, false); err != nil || on {
		t.Fatalf("SetActive(false) = %v, %v", on, err)
	}
}

func TestClient_Config(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		kwargs  map[string]any
		want    any
		wantErr string
	}{
		{name: "apply then read", key: "ssid", kwargs: map[string]any{"ssid": "lab"}, want: "lab"},
		{name: "numeric", key: "channel", kwargs: map[string]any{"channel": 11}, want: float64(11)},
		{name: "read-only", key: "topology", want: "tree"},
		{name: "no key", kwargs: map[string]any{"power_save": false}, want: nil},
		{name: "unknown key", key: "colour", wantErr: protocol.ErrorTypeUnknownParameter},
		{name: "too long", kwargs: map[string]any{"ssid": strings.Repeat("a", 40)}, wantErr: protocol.ErrorTypeValueTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Config(ctx, tt.key, tt.kwargs)
			if tt.wantErr != "" {
				var cErr *Error
				if !errors.As(err, &cErr) || cErr.Remote == nil || cErr.Remote.Type != tt.wantErr {
					t.Fatalf("Config() error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Config() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Config() = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestClient_Events(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)
	configure(t, c)
	ctx := context.Background()

	if _, err := c.SetActive(ctx, true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	if err := c.Subscribe(ctx, true); err != nil {
		t.Fatalf("Subscribe(true) error = %v", err)
	}

	tests := []struct {
		code      int32
		wantKnown bool
	}{
		{engine.EventParentConnected, true},
		{9999, false},
	}
	for _, tt := range tests {
		env.sim.Emit(tt.code, nil)
		select {
		case ev := <-c.Events():
			if ev.Raw() != tt.code || ev.Known() != tt.wantKnown {
				t.Errorf("event = %+v, want code %d known=%t", ev, tt.code, tt.wantKnown)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no event for code %d", tt.code)
		}
	}
}

func TestClient_Stats(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	for _, key := range []string{"active", "received", "delivered", "dropped", "pending"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Stats() missing %q: %v", key, stats)
		}
	}
}

func TestClient_ServerShutdown(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)

	// The server registers a connection only once its handler has run
	if _, err := c.Active(context.Background()); err != nil {
		t.Fatalf("Active() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed after server shutdown")
	}
	if _, ok := <-c.Events(); ok {
		t.Error("Events() still open after disconnect")
	}
	if _, err := c.Active(context.Background()); !IsClosedError(err) {
		t.Errorf("Active() after disconnect error = %v, want closed error", err)
	}
}

func TestClient_CallBeforeConnect(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws")
	if _, err := c.Active(context.Background()); !IsClosedError(err) {
		t.Errorf("Active() before Connect error = %v, want closed error", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() before Connect error = %v", err)
	}
}

func TestConnect_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := New("ws://" + addr + "/ws")
	c.SetRetry(1, time.Millisecond)

	err = c.Connect(context.Background())
	var cErr *Error
	if !errors.As(err, &cErr) || cErr.Type != ErrTypeConnectionRefused {
		t.Fatalf("Connect() error = %v, want connection refused", err)
	}
	if !strings.Contains(GetTroubleshootingHint(err), "espmesh serve") {
		t.Errorf("GetTroubleshootingHint() = %q", GetTroubleshootingHint(err))
	}
}

func TestConnect_BadHandshake(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c := New("ws" + strings.TrimPrefix(ts.URL, "http") + "/ws")
	c.SetRetry(3, time.Millisecond)

	err := c.Connect(context.Background())
	var cErr *Error
	if !errors.As(err, &cErr) || cErr.Type != ErrTypeHandshake {
		t.Fatalf("Connect() error = %v, want handshake error", err)
	}
	if IsRetryable(err) {
		t.Error("handshake error is retryable")
	}
}

func TestConnect_Cancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("ws://" + addr + "/ws")
	c.SetRetry(5, time.Hour)
	if err := c.Connect(ctx); err == nil {
		t.Fatal("Connect() with cancelled context error = nil")
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"bad handshake", websocket.ErrBadHandshake, ErrTypeHandshake, false},
		{"dns", &net.DNSError{Name: "mesh.local", Err: "no such host"}, ErrTypeDNS, false},
		{"timeout", &net.DNSError{Name: "mesh.local", IsTimeout: true}, ErrTypeTimeout, true},
		{"generic", errors.New("boom"), ErrTypeNetwork, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}

	if ClassifyNetworkError(nil) != nil {
		t.Error("ClassifyNetworkError(nil) != nil")
	}
}

func TestErrorType_String(t *testing.T) {
	if got := ErrTypeRemote.String(); got != "Remote Error" {
		t.Errorf("String() = %q", got)
	}
	if got := ErrorType(42).String(); got != "ErrorType(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestClient_VerifyConfig(t *testing.T) {
	env := newTestEnv(t)
	c := connect(t, env.url)
	ctx := context.Background()

	kwargs := map[string]any{"ssid": "lab", "password": "secret", "channel": 6, "power_save": false}
	if _, err := c.Config(ctx, "", kwargs); err != nil {
		t.Fatalf("Config() error = %v", err)
	}

	mismatches, err := c.VerifyConfig(ctx, kwargs)
	if err != nil {
		t.Fatalf("VerifyConfig() error = %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("VerifyConfig() = %v, want no mismatches", mismatches)
	}

	mismatches, err = c.VerifyConfig(ctx, map[string]any{"channel": 11, "password": "other"})
	if err != nil {
		t.Fatalf("VerifyConfig() error = %v", err)
	}
	want := []string{"channel: expected 11, got 6", "password: not applied"}
	if len(mismatches) != len(want) {
		t.Fatalf("VerifyConfig() = %v, want %v", mismatches, want)
	}
	for i := range want {
		if mismatches[i] != want[i] {
			t.Errorf("mismatch[%d] = %q, want %q", i, mismatches[i], want[i])
		}
	}

	values, err := c.ReadConfig(ctx)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if len(values) != len(ConfigKeys) || values["ssid"] != "lab" || values["mesh_id"] != "77:77:77:77:77:77" {
		t.Errorf("ReadConfig() = %v", values)
	}
}
