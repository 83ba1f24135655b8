package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/meshconfig"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantErr    bool
		wantMethod string
		wantArgs   int
	}{
		{
			name:       "config with kwargs",
			data:       `{"id":1,"method":"config","args":["channel"],"kwargs":{"channel":6}}`,
			wantMethod: MethodConfig,
			wantArgs:   1,
		},
		{
			name:       "active query",
			data:       `{"id":2,"method":"active"}`,
			wantMethod: MethodActive,
		},
		{
			name:    "missing method",
			data:    `{"id":3}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			data:    `{"id":4,"method":"active","params":[]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `active`,
			wantErr: true,
		},
		{
			name:    "too large",
			data:    `{"id":5,"method":"config","kwargs":{"ssid":"` + strings.Repeat("A", MaxMessageSize) + `"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Method != tt.wantMethod || len(req.Args) != tt.wantArgs {
				t.Errorf("DecodeRequest() = %+v", req)
			}
		})
	}
}

func TestDecodeServerMessage(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantEvent any
		wantID    int64
		wantErr   bool
	}{
		{name: "named event", data: `{"event":"MESH_EVENT_STARTED"}`, wantEvent: "MESH_EVENT_STARTED"},
		{name: "raw event", data: `{"event":9999}`, wantEvent: int32(9999)},
		{name: "fractional event", data: `{"event":1.5}`, wantErr: true},
		{name: "response", data: `{"id":7,"result":true}`, wantID: 7},
		{name: "garbage", data: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeServerMessage([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeServerMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantEvent != nil {
				if msg.Event == nil || msg.Event.Event != tt.wantEvent {
					t.Errorf("event = %+v, want %v", msg.Event, tt.wantEvent)
				}
				return
			}
			if msg.Response == nil || msg.Response.ID != tt.wantID {
				t.Errorf("response = %+v, want id %d", msg.Response, tt.wantID)
			}
		})
	}
}

func TestNewEventMessage_Encoding(t *testing.T) {
	tests := []struct {
		code int32
		want string
	}{
		{engine.EventStarted, `{"event":"MESH_EVENT_STARTED"}`},
		{9999, `{"event":9999}`},
	}

	for _, tt := range tests {
		data, err := Encode(NewEventMessage(espmesh.EventName(tt.code)))
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Encode() = %s, want %s", data, tt.want)
		}
	}
}

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	if b <= a {
		t.Errorf("GenerateRequestID() not increasing: %d then %d", a, b)
	}
	if req := NewRequest(MethodActive, nil, nil); req.ID <= b {
		t.Errorf("NewRequest() id = %d, want > %d", req.ID, b)
	}
}

func TestErrorFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantField  string
		wantStatus int32
	}{
		{"value too long", meshconfig.NewValueTooLongError("ssid", 33, 31), ErrorTypeValueTooLong, "ssid", 0},
		{"unknown parameter", meshconfig.NewUnknownParameterError("bssid"), ErrorTypeUnknownParameter, "bssid", 0},
		{"type mismatch", meshconfig.NewTypeMismatchError("channel", "int", "6"), ErrorTypeTypeMismatch, "channel", 0},
		{"configuration", espmesh.NewConfigurationError("password", "Password not set"), ErrorTypeConfiguration, "password", 0},
		{"invalid handler", espmesh.NewInvalidHandlerError(1), ErrorTypeInvalidHandler, "", 0},
		{
			"engine",
			espmesh.NewEngineError(engine.OpMeshStart, engine.ErrMeshNotConfig.Err(engine.OpMeshStart)),
			ErrorTypeEngine, "", int32(engine.ErrMeshNotConfig),
		},
		{"other", errors.New("unknown method"), ErrorTypeProtocol, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ErrorFromError(tt.err)
			if body.Type != tt.wantType || body.Field != tt.wantField || body.Status != tt.wantStatus {
				t.Errorf("ErrorFromError() = %+v", body)
			}
		})
	}

	if ErrorFromError(nil) != nil {
		t.Error("ErrorFromError(nil) != nil")
	}
	body := ErrorFromError(espmesh.NewEngineError(engine.OpWifiInit, engine.ErrNoMem.Err(engine.OpWifiInit)))
	if body.StatusName() != "ESP_ERR_NO_MEM" {
		t.Errorf("StatusName() = %q", body.StatusName())
	}
}

type subscription struct{ on bool }

func (s *subscription) Subscribed() bool      { return s.on }
func (s *subscription) SetSubscribed(on bool) { s.on = on }

func TestDispatch(t *testing.T) {
	espmesh.Reset()
	sim := engine.NewSim()
	b := host.New(espmesh.Get(espmesh.WithEngine(sim)))
	t.Cleanup(espmesh.Reset)
	sub := &subscription{}

	call := func(method string, args []any, kwargs map[string]any) *Response {
		t.Helper()
		// Round-trip through JSON so argument types match what the server sees
		data, err := Encode(NewRequest(method, args, kwargs))
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		req, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("DecodeRequest() error = %v", err)
		}
		resp := Dispatch(b, sub, "test", req)
		if resp.ID != req.ID {
			t.Errorf("response id = %d, want %d", resp.ID, req.ID)
		}
		return resp
	}

	if resp := call(MethodActive, []any{true}, nil); resp.Error == nil || resp.Error.Type != ErrorTypeConfiguration {
		t.Fatalf("active(true) unconfigured = %+v", resp)
	}

	resp := call(MethodConfig, []any{"channel"}, map[string]any{"ssid": "home", "password": "secret", "channel": 6})
	if resp.Error != nil || resp.Result != 6 {
		t.Fatalf("config() = %+v, want result 6", resp)
	}

	resp = call(MethodConfig, nil, map[string]any{"ssid": strings.Repeat("A", 33)})
	if resp.Error == nil || resp.Error.Type != ErrorTypeValueTooLong {
		t.Errorf("config(long ssid) = %+v", resp)
	}

	if resp := call(MethodActive, []any{true}, nil); resp.Error != nil || resp.Result != true {
		t.Fatalf("active(true) = %+v", resp)
	}

	if resp := call(MethodEvents, []any{true}, nil); resp.Error != nil || !sub.on {
		t.Errorf("events(true) = %+v, subscribed %v", resp, sub.on)
	}
	if resp := call(MethodEvents, []any{"callback"}, nil); resp.Error == nil || resp.Error.Type != ErrorTypeInvalidHandler {
		t.Errorf("events(string) = %+v", resp)
	}
	if resp := call(MethodEvents, []any{nil}, nil); resp.Error != nil || sub.on {
		t.Errorf("events(null) = %+v, subscribed %v", resp, sub.on)
	}

	sim.FailOn(engine.OpMeshStart, engine.ErrMeshNotConfig)
	call(MethodActive, []any{false}, nil)
	resp = call(MethodActive, []any{true}, nil)
	if resp.Error == nil || resp.Error.Type != ErrorTypeEngine || resp.Error.Status != int32(engine.ErrMeshNotConfig) {
		t.Errorf("active(true) with failing engine = %+v", resp)
	}

	resp = call(MethodStats, nil, nil)
	stats, ok := resp.Result.(map[string]any)
	if !ok || stats["active"] != false {
		t.Errorf("stats() = %+v", resp)
	}

	if resp := call("reboot", nil, nil); resp.Error == nil || resp.Error.Type != ErrorTypeProtocol {
		t.Errorf("unknown method = %+v", resp)
	}

	// Responses must always encode
	if _, err := json.Marshal(resp); err != nil {
		t.Errorf("Marshal(response) error = %v", err)
	}
}
