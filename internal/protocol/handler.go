package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/logging"
)

// Subscriber is the per-connection event subscription state
type Subscriber interface {
	Subscribed() bool
	SetSubscribed(on bool)
}

// Dispatch runs req against b and builds the response. It never returns
// nil.
//
// The events method is the wire form of register_event_handler: true
// subscribes the connection, null or false unsubscribes it, and with no
// argument it reports the current subscription. Anything else is an
// invalid handler.
func Dispatch(b *host.Binding, sub Subscriber, remoteAddr string, req *Request) *Response {
	logging.LogRequest(remoteAddr, req.ID, req.Method)

	result, err := dispatch(b, sub, req)
	if err != nil {
		body := ErrorFromError(err)
		logging.Debug("Control request failed",
			zap.String("remote_addr", remoteAddr),
			zap.Int64("id", req.ID),
			zap.String("method", req.Method),
			zap.String("error_type", body.Type),
			zap.Error(err),
		)
		return &Response{ID: req.ID, Error: body}
	}
	return &Response{ID: req.ID, Result: result}
}

func dispatch(b *host.Binding, sub Subscriber, req *Request) (any, error) {
	switch req.Method {
	case MethodActive:
		if len(req.Kwargs) > 0 {
			return nil, fmt.Errorf("active() takes no keyword arguments")
		}
		return b.Active(req.Args...)

	case MethodConfig:
		return b.Config(req.Args, req.Kwargs)

	case MethodEvents:
		switch len(req.Args) {
		case 0:
			return sub.Subscribed(), nil
		case 1:
			switch v := req.Args[0].(type) {
			case nil:
				sub.SetSubscribed(false)
			case bool:
				sub.SetSubscribed(v)
			default:
				return nil, espmesh.NewInvalidHandlerError(v)
			}
			return sub.Subscribed(), nil
		default:
			return nil, fmt.Errorf("events() takes at most 1 argument (%d given)", len(req.Args))
		}

	case MethodStats:
		st := b.Mesh().Stats()
		return map[string]any{
			"active":    b.Mesh().Active(),
			"received":  st.Received,
			"unhandled": st.Unhandled,
			"delivered": st.Delivered,
			"dropped":   st.Dropped,
			"pending":   st.Pending,
		}, nil

	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}
