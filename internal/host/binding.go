package host

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// Callable is implemented by host-side function objects that can receive
// mesh events.
type Callable interface {
	Call(arg any)
}

// Binding exposes a Mesh to a dynamically typed caller. Arguments arrive
// as untyped values (decoded JSON, interpreter objects) and are checked
// here before they reach the typed API.
type Binding struct {
	mesh *espmesh.Mesh
}

// New returns a binding for m
func New(m *espmesh.Mesh) *Binding {
	return &Binding{mesh: m}
}

// Mesh returns the bound mesh
func (b *Binding) Mesh() *espmesh.Mesh {
	return b.mesh
}

// Active queries the lifecycle state with no arguments, or requests a
// transition with one. The argument is interpreted by its truthiness.
func (b *Binding) Active(args ...any) (bool, error) {
	switch len(args) {
	case 0:
		return b.mesh.Active(), nil
	case 1:
		return b.mesh.SetActive(Truthy(args[0]))
	default:
		return false, fmt.Errorf("active() takes at most 1 argument (%d given)", len(args))
	}
}

// Config sets any parameters given in kwargs and then, if a positional key
// is given, returns its current value. Without a key the result is nil.
func (b *Binding) Config(args []any, kwargs map[string]any) (any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("config() takes at most 1 positional argument (%d given)", len(args))
	}

	var key string
	if len(args) == 1 {
		k, err := keyString(args[0])
		if err != nil {
			return nil, err
		}
		key = k
	}

	u, err := ParseUpdate(kwargs)
	if err != nil {
		return nil, err
	}
	return b.mesh.Config(u, key)
}

// RegisterEventHandler installs v as the event handler. v may be nil, a
// func(any), an espmesh.Handler or a Callable.
func (b *Binding) RegisterEventHandler(v any) error {
	h, err := AsHandler(v)
	if err != nil {
		return err
	}
	b.mesh.RegisterEventHandler(h)
	return nil
}

// AsHandler converts a host value into an event handler. The handler for a
// func(any) or Callable receives Event.Value(), the symbolic name or the
// raw code.
func AsHandler(v any) (espmesh.Handler, error) {
	// Typed nils from a host runtime mean "no handler" too
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func && rv.IsNil() {
		return nil, nil
	}

	switch fn := v.(type) {
	case espmesh.Handler:
		return fn, nil
	case func(espmesh.Event):
		return fn, nil
	case func(any):
		return func(ev espmesh.Event) { fn(ev.Value()) }, nil
	case Callable:
		return func(ev espmesh.Event) { fn.Call(ev.Value()) }, nil
	}
	return nil, espmesh.NewInvalidHandlerError(v)
}

// ParseUpdate builds an Update from keyword arguments. Unknown names and
// values of the wrong type are rejected before anything is applied.
func ParseUpdate(kwargs map[string]any) (meshconfig.Update, error) {
	var u meshconfig.Update

	// Sorted so the reported error does not depend on map order
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := kwargs[name]
		switch name {
		case meshconfig.KeySSID:
			s, err := bytesArg(name, v)
			if err != nil {
				return u, err
			}
			u.SSID = &s
		case meshconfig.KeyPassword:
			s, err := bytesArg(name, v)
			if err != nil {
				return u, err
			}
			u.Password = &s
		case meshconfig.KeyAPPassword:
			s, err := bytesArg(name, v)
			if err != nil {
				return u, err
			}
			u.APPassword = &s
		case meshconfig.KeyChannel:
			n, err := intArg(name, v)
			if err != nil {
				return u, err
			}
			u.Channel = &n
		case meshconfig.KeyPowerSave:
			ps := Truthy(v)
			u.PowerSave = &ps
		default:
			return u, meshconfig.NewUnknownParameterError(name)
		}
	}

	if !u.IsEmpty() {
		logging.Debug("Host config call",
			zap.Strings("fields", u.Fields()),
		)
	}
	return u, nil
}

// Truthy applies the host language's truth rules: nil, false, zero numbers
// and empty strings or containers are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []byte:
		return len(x) > 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func keyString(v any) (string, error) {
	switch k := v.(type) {
	case string:
		return k, nil
	case []byte:
		return string(k), nil
	default:
		return "", meshconfig.NewTypeMismatchError("config param", "string", v)
	}
}

func bytesArg(name string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", meshconfig.NewTypeMismatchError(name, "str or bytes", v)
	}
}

func intArg(name string, v any) (int, error) {
	switch n := v.(type) {
	case bool:
		// bool is an int subclass in the host language
		if n {
			return 1, nil
		}
		return 0, nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, meshconfig.NewTypeMismatchError(name, "int", v)
		}
		return int(n), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt32 {
			return 0, meshconfig.NewTypeMismatchError(name, "int", v)
		}
		return int(rv.Uint()), nil
	}
	return 0, meshconfig.NewTypeMismatchError(name, "int", v)
}
