package espmesh

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/meshconfig"
	"github.com/muurk/espmesh/internal/scheduler"
)

// Handler receives mesh events on the scheduler goroutine
type Handler func(ev Event)

type handlerSlot struct {
	fn Handler
}

// Mesh is the process-wide mesh object. Lifecycle and configuration calls
// are serialized; the event bridge runs on the engine's goroutine and only
// reads the handler slot.
type Mesh struct {
	mu     sync.Mutex
	eng    engine.Engine
	cfg    *meshconfig.Config
	active bool
	sta    engine.Netif
	ap     engine.Netif

	handler atomic.Pointer[handlerSlot]
	sched   *scheduler.Scheduler

	observer StepObserver

	received  atomic.Uint64
	unhandled atomic.Uint64

	// netif init state for engines that cannot key the process-wide guard
	netifDone bool
}

// Option configures a Mesh when the singleton is first created
type Option func(*options)

type options struct {
	eng       engine.Engine
	topology  engine.Topology
	maxLayer  int
	authMode  engine.AuthMode
	queueSize int
	observer  StepObserver
}

// WithEngine sets the engine the mesh drives
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.eng = e }
}

// WithTopology selects tree or chain topology
func WithTopology(t engine.Topology) Option {
	return func(o *options) { o.topology = t }
}

// WithMaxLayer sets the deepest layer the mesh may grow to. It is checked
// against the topology limit at activation.
func WithMaxLayer(layer int) Option {
	return func(o *options) { o.maxLayer = layer }
}

// WithAPAuthMode sets the authentication mode of the mesh softAP
func WithAPAuthMode(m engine.AuthMode) Option {
	return func(o *options) { o.authMode = m }
}

// WithQueueSize sets how many events may wait for the handler before new
// ones are dropped.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithStepObserver reports activation progress to fn
func WithStepObserver(fn StepObserver) Option {
	return func(o *options) { o.observer = fn }
}

// NewEngine builds the engine used when the singleton is created without
// WithEngine. Host builds have no radio, so it defaults to the simulator.
var NewEngine = func() engine.Engine {
	return engine.NewSim()
}

var (
	registryMu sync.Mutex
	instance   *Mesh
)

// Get returns the process-wide Mesh, creating it on first use. Options are
// only applied when the instance is created; later calls return the
// existing object unchanged.
func Get(opts ...Option) *Mesh {
	registryMu.Lock()
	defer registryMu.Unlock()
	if instance == nil {
		instance = newMesh(opts...)
	}
	return instance
}

// Current returns the process-wide Mesh, or nil if Get has not been called
// since the last Reset.
func Current() *Mesh {
	registryMu.Lock()
	defer registryMu.Unlock()
	return instance
}

// Reset tears down the current instance and forgets it, so the next Get
// starts from defaults. Queued events are delivered before Reset returns,
// except when Reset is called from an event handler: then the remaining
// events are delivered after that handler returns.
func Reset() {
	registryMu.Lock()
	m := instance
	instance = nil
	registryMu.Unlock()

	if m == nil {
		return
	}
	m.Deactivate()
	m.handler.Store(nil)
	m.sched.Close()
}

// Shutdown deactivates the current instance, if there is one. It is meant
// for process teardown and never fails.
func Shutdown() {
	if m := Current(); m != nil {
		m.Deactivate()
	}
}

func newMesh(opts ...Option) *Mesh {
	o := options{
		topology:  meshconfig.DefaultTopology,
		maxLayer:  meshconfig.DefaultMaxLayer,
		authMode:  meshconfig.DefaultAPAuthMode,
		queueSize: scheduler.DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.eng == nil {
		o.eng = NewEngine()
	}

	cfg := meshconfig.New()
	cfg.Topology = o.topology
	cfg.MaxLayer = o.maxLayer
	cfg.APAuthMode = o.authMode

	m := &Mesh{
		eng:      o.eng,
		cfg:      cfg,
		sched:    scheduler.New(o.queueSize),
		observer: o.observer,
	}
	m.sched.Start()

	logging.Debug("Mesh object created",
		zap.String("topology", cfg.Topology.String()),
		zap.Int("max_layer", cfg.MaxLayer),
		zap.String("ap_authmode", cfg.APAuthMode.String()),
	)
	return m
}

// Engine returns the engine the mesh drives
func (m *Mesh) Engine() engine.Engine {
	return m.eng
}

// Active reports whether the mesh is running
func (m *Mesh) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Configure applies u to the stored configuration. Nothing is changed if
// any field is rejected. A running mesh is not reconfigured; changes take
// effect at the next activation.
func (m *Mesh) Configure(u meshconfig.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cfg.Apply(u); err != nil {
		return err
	}
	if !u.IsEmpty() {
		logging.Debug("Mesh configuration updated",
			zap.Strings("fields", u.Fields()),
			zap.Bool("active", m.active),
		)
	}
	return nil
}

// ConfigValue returns the current value of a named parameter
func (m *Mesh) ConfigValue(key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Get(key)
}

// Config applies u and then, if key is not empty, returns the value of
// key. An empty key returns nil.
func (m *Mesh) Config(u meshconfig.Update, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cfg.Apply(u); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	return m.cfg.Get(key)
}

// Snapshot returns a copy of the current configuration
func (m *Mesh) Snapshot() *meshconfig.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// RegisterEventHandler replaces the event handler. A nil handler discards
// events from the next dispatch on; deliveries already queued still run.
func (m *Mesh) RegisterEventHandler(h Handler) {
	if h == nil {
		m.handler.Store(nil)
		logging.Debug("Mesh event handler cleared")
		return
	}
	m.handler.Store(&handlerSlot{fn: h})
	logging.Debug("Mesh event handler registered")
}

// HasEventHandler reports whether a handler is registered
func (m *Mesh) HasEventHandler() bool {
	return m.handler.Load() != nil
}

// Stats counts events seen by the bridge. The bridge stays registered on
// the engine after an activation that failed past mesh init, so events may
// be counted and delivered while the mesh is inactive.
type Stats struct {
	Received  uint64 // events posted by the engine
	Unhandled uint64 // discarded because no handler was registered, active or not
	Delivered uint64 // handler invocations completed
	Dropped   uint64 // discarded because the queue was full
	Pending   int    // waiting for the handler
}

// Stats returns the bridge counters
func (m *Mesh) Stats() Stats {
	return Stats{
		Received:  m.received.Load(),
		Unhandled: m.unhandled.Load(),
		Delivered: m.sched.Delivered(),
		Dropped:   m.sched.Dropped(),
		Pending:   m.sched.Pending(),
	}
}
