package engine

import (
	"fmt"
	"sync"
	"time"
)

// Sim is an in-process mesh engine. It enforces the same call ordering as
// the ESP-IDF stack (radio before mesh, config before start, stop before
// deinit), records every call, and can be told to fail any call with a
// chosen status. Events are dispatched on the goroutine that calls Emit, or
// on the Sim's own script goroutine after MeshStart.
type Sim struct {
	mu sync.Mutex

	calls    []string
	failures map[string]Status

	netifInitialized bool
	netifs           map[string]*simNetif
	netifSeq         int

	wifiInitialized bool
	wifiStarted     bool
	storage         Storage

	meshInitialized bool
	meshStarted     bool
	configured      bool
	topology        Topology
	maxLayer        int
	psEnabled       bool
	authMode        AuthMode
	config          MeshConfig

	handlers map[EventBase]map[int32]EventHandler

	script         []int32
	scriptInterval time.Duration
	scriptStop     chan struct{}
	scriptDone     chan struct{}
}

type simNetif struct {
	name string
}

func (n *simNetif) Name() string { return n.name }

// SimOption configures a Sim
type SimOption func(*Sim)

// WithScript makes the Sim emit ids, one every interval, after each
// successful MeshStart. The script stops early on MeshStop.
func WithScript(interval time.Duration, ids ...int32) SimOption {
	return func(s *Sim) {
		s.script = append([]int32(nil), ids...)
		s.scriptInterval = interval
	}
}

// DefaultScript is the event sequence a freshly started root node reports
// on a healthy network.
var DefaultScript = []int32{
	EventStarted,
	EventParentConnected,
	EventLayerChange,
	EventRootAddress,
	EventToDSState,
	EventRoutingTableAdd,
	EventChildConnected,
}

// NewSim creates a simulated engine with the process-wide netif layer
// uninitialized.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		failures: make(map[string]Status),
		netifs:   make(map[string]*simNetif),
		handlers: make(map[EventBase]map[int32]EventHandler),
		maxLayer: 6,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn makes every subsequent call to op return status. Passing OK clears
// the failure.
func (s *Sim) FailOn(op string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == OK {
		delete(s.failures, op)
		return
	}
	s.failures[op] = status
}

// Calls returns the ordered log of engine calls
func (s *Sim) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how many times op was called
func (s *Sim) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log
func (s *Sim) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// SimState is a snapshot of the resources the Sim currently holds
type SimState struct {
	NetifInitialized bool
	LiveNetifs       int
	WifiInitialized  bool
	WifiStarted      bool
	MeshInitialized  bool
	MeshStarted      bool
	PowerSave        bool
	Handlers         int
	Topology         Topology
	MaxLayer         int
	AuthMode         AuthMode
	Config           MeshConfig
}

// State returns a snapshot of the simulated resources
func (s *Sim) State() SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	handlers := 0
	for _, byID := range s.handlers {
		handlers += len(byID)
	}
	return SimState{
		NetifInitialized: s.netifInitialized,
		LiveNetifs:       len(s.netifs),
		WifiInitialized:  s.wifiInitialized,
		WifiStarted:      s.wifiStarted,
		MeshInitialized:  s.meshInitialized,
		MeshStarted:      s.meshStarted,
		PowerSave:        s.psEnabled,
		Handlers:         handlers,
		Topology:         s.topology,
		MaxLayer:         s.maxLayer,
		AuthMode:         s.authMode,
		Config:           s.config,
	}
}

// call records op and returns the injected failure, if any. Callers hold mu.
func (s *Sim) call(op string) error {
	s.calls = append(s.calls, op)
	if st, ok := s.failures[op]; ok {
		return st.Err(op)
	}
	return nil
}

func (s *Sim) NetifInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpNetifInit); err != nil {
		return err
	}
	if s.netifInitialized {
		return ErrInvalidState.Err(OpNetifInit)
	}
	s.netifInitialized = true
	return nil
}

func (s *Sim) CreateMeshNetifs() (Netif, Netif, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpCreateMeshNetifs); err != nil {
		return nil, nil, err
	}
	if !s.netifInitialized {
		return nil, nil, ErrNetifInitFailed.Err(OpCreateMeshNetifs)
	}
	s.netifSeq++
	sta := &simNetif{name: fmt.Sprintf("mesh_sta%d", s.netifSeq)}
	ap := &simNetif{name: fmt.Sprintf("mesh_ap%d", s.netifSeq)}
	s.netifs[sta.name] = sta
	s.netifs[ap.name] = ap
	return sta, ap, nil
}

func (s *Sim) DestroyNetif(n Netif) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpDestroyNetif); err != nil {
		return err
	}
	if n == nil {
		return ErrNetifInvalid.Err(OpDestroyNetif)
	}
	if _, ok := s.netifs[n.Name()]; !ok {
		return ErrNetifInvalid.Err(OpDestroyNetif)
	}
	delete(s.netifs, n.Name())
	return nil
}

func (s *Sim) WifiInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpWifiInit); err != nil {
		return err
	}
	// Repeated init is accepted, as the driver does
	s.wifiInitialized = true
	return nil
}

func (s *Sim) WifiSetStorage(st Storage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpWifiSetStorage); err != nil {
		return err
	}
	if !s.wifiInitialized {
		return ErrWifiNotInit.Err(OpWifiSetStorage)
	}
	s.storage = st
	return nil
}

func (s *Sim) WifiStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpWifiStart); err != nil {
		return err
	}
	if !s.wifiInitialized {
		return ErrWifiNotInit.Err(OpWifiStart)
	}
	s.wifiStarted = true
	return nil
}

func (s *Sim) WifiStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpWifiStop); err != nil {
		return err
	}
	if !s.wifiInitialized {
		return ErrWifiNotInit.Err(OpWifiStop)
	}
	s.wifiStarted = false
	return nil
}

func (s *Sim) WifiDeinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpWifiDeinit); err != nil {
		return err
	}
	if !s.wifiInitialized {
		return ErrWifiNotInit.Err(OpWifiDeinit)
	}
	if s.wifiStarted {
		return ErrWifiNotStopped.Err(OpWifiDeinit)
	}
	s.wifiInitialized = false
	return nil
}

func (s *Sim) MeshInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpMeshInit); err != nil {
		return err
	}
	if !s.wifiStarted {
		return ErrMeshWifiNotStart.Err(OpMeshInit)
	}
	if s.meshStarted {
		return ErrMeshNotAllowed.Err(OpMeshInit)
	}
	s.meshInitialized = true
	return nil
}

func (s *Sim) MeshDeinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpMeshDeinit); err != nil {
		return err
	}
	if !s.meshInitialized {
		return ErrMeshNotInit.Err(OpMeshDeinit)
	}
	if s.meshStarted {
		return ErrMeshNotAllowed.Err(OpMeshDeinit)
	}
	s.meshInitialized = false
	s.configured = false
	s.psEnabled = false
	return nil
}

func (s *Sim) MeshStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpMeshStart); err != nil {
		return err
	}
	if !s.meshInitialized {
		return ErrMeshNotInit.Err(OpMeshStart)
	}
	if !s.configured {
		return ErrMeshNotConfig.Err(OpMeshStart)
	}
	s.meshStarted = true
	if len(s.script) > 0 {
		s.scriptStop = make(chan struct{})
		s.scriptDone = make(chan struct{})
		go s.runScript(s.script, s.scriptInterval, s.scriptStop, s.scriptDone)
	}
	return nil
}

func (s *Sim) MeshStop() error {
	s.mu.Lock()
	if err := s.call(OpMeshStop); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.meshInitialized {
		s.mu.Unlock()
		return ErrMeshNotInit.Err(OpMeshStop)
	}
	wasStarted := s.meshStarted
	s.meshStarted = false
	stop, done := s.scriptStop, s.scriptDone
	s.scriptStop, s.scriptDone = nil, nil
	s.mu.Unlock()

	// The script goroutine emits without holding mu, so wait outside it.
	if stop != nil {
		close(stop)
		<-done
	}
	if wasStarted {
		s.Emit(EventStopped, nil)
	}
	return nil
}

// requireMesh records op and checks the mesh stack is initialized. Callers
// hold mu.
func (s *Sim) requireMesh(op string) error {
	if err := s.call(op); err != nil {
		return err
	}
	if !s.meshInitialized {
		return ErrMeshNotInit.Err(op)
	}
	return nil
}

func (s *Sim) SetTopology(t Topology) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetTopology); err != nil {
		return err
	}
	if s.meshStarted {
		return ErrMeshNotAllowed.Err(OpSetTopology)
	}
	if t != TopologyTree && t != TopologyChain {
		return ErrMeshArgument.Err(OpSetTopology)
	}
	s.topology = t
	return nil
}

func (s *Sim) SetMaxLayer(layer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetMaxLayer); err != nil {
		return err
	}
	if layer < 1 || layer > s.topology.MaxLayer() {
		return ErrMeshArgument.Err(OpSetMaxLayer)
	}
	s.maxLayer = layer
	return nil
}

func (s *Sim) SetVotePercentage(percentage float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetVotePercentage); err != nil {
		return err
	}
	if percentage <= 0 || percentage > 1 {
		return ErrMeshArgument.Err(OpSetVotePercentage)
	}
	return nil
}

func (s *Sim) SetXonQsize(size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetXonQsize); err != nil {
		return err
	}
	if size < 16 {
		return ErrMeshArgument.Err(OpSetXonQsize)
	}
	return nil
}

func (s *Sim) EnablePS() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpEnablePS); err != nil {
		return err
	}
	s.psEnabled = true
	return nil
}

func (s *Sim) DisablePS() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpDisablePS); err != nil {
		return err
	}
	s.psEnabled = false
	return nil
}

func (s *Sim) SetAPAssocExpire(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetAPAssocExpire); err != nil {
		return err
	}
	if seconds <= 0 {
		return ErrMeshArgument.Err(OpSetAPAssocExpire)
	}
	return nil
}

func (s *Sim) SetAnnounceInterval(shortMs, longMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetAnnounceInterval); err != nil {
		return err
	}
	if shortMs <= 0 || longMs < shortMs {
		return ErrMeshArgument.Err(OpSetAnnounceInterval)
	}
	return nil
}

func (s *Sim) SetActiveDutyCycle(duty int, dutyType DeviceDutyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetActiveDutyCycle); err != nil {
		return err
	}
	if !s.meshStarted {
		return ErrMeshNotStart.Err(OpSetActiveDutyCycle)
	}
	if duty < 1 || duty > 100 {
		return ErrMeshArgument.Err(OpSetActiveDutyCycle)
	}
	if dutyType != DeviceDutyRequest && dutyType != DeviceDutyDemand {
		return ErrMeshArgument.Err(OpSetActiveDutyCycle)
	}
	return nil
}

func (s *Sim) SetNetworkDutyCycle(duty int, durationMins int, applied NetworkDutyApplied) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetNetworkDutyCycle); err != nil {
		return err
	}
	if !s.meshStarted {
		return ErrMeshNotStart.Err(OpSetNetworkDutyCycle)
	}
	if duty < 1 || duty > 100 || durationMins < -1 {
		return ErrMeshArgument.Err(OpSetNetworkDutyCycle)
	}
	return nil
}

func (s *Sim) SetAPAuthMode(mode AuthMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetAPAuthMode); err != nil {
		return err
	}
	if mode < AuthOpen || mode > AuthWPA2WPA3PSK || mode == AuthWEP {
		return ErrMeshArgument.Err(OpSetAPAuthMode)
	}
	s.authMode = mode
	return nil
}

func (s *Sim) SetConfig(cfg *MeshConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireMesh(OpSetConfig); err != nil {
		return err
	}
	if cfg == nil {
		return ErrInvalidArg.Err(OpSetConfig)
	}
	if cfg.Channel < 0 || cfg.Channel > 14 {
		return ErrMeshArgument.Err(OpSetConfig)
	}
	if cfg.MeshAP.MaxConnection < 1 || cfg.MeshAP.MaxConnection > 10 {
		return ErrMeshArgument.Err(OpSetConfig)
	}
	s.config = MeshConfig{
		Channel: cfg.Channel,
		MeshID:  cfg.MeshID,
		Router: RouterConfig{
			SSID:     append([]byte(nil), cfg.Router.SSID...),
			Password: append([]byte(nil), cfg.Router.Password...),
		},
		MeshAP: APConfig{
			Password:             append([]byte(nil), cfg.MeshAP.Password...),
			MaxConnection:        cfg.MeshAP.MaxConnection,
			NonMeshMaxConnection: cfg.MeshAP.NonMeshMaxConnection,
		},
	}
	s.configured = true
	return nil
}

func (s *Sim) RegisterHandler(base EventBase, id int32, h EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpRegisterHandler); err != nil {
		return err
	}
	if h == nil {
		return ErrInvalidArg.Err(OpRegisterHandler)
	}
	if s.handlers[base] == nil {
		s.handlers[base] = make(map[int32]EventHandler)
	}
	s.handlers[base][id] = h
	return nil
}

func (s *Sim) UnregisterHandler(base EventBase, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpUnregisterHandler); err != nil {
		return err
	}
	if _, ok := s.handlers[base][id]; !ok {
		return ErrInvalidArg.Err(OpUnregisterHandler)
	}
	delete(s.handlers[base], id)
	return nil
}

// Emit posts a mesh event to every matching handler on the calling
// goroutine, which plays the role of the engine's dispatch context. It
// reports whether any handler received the event.
func (s *Sim) Emit(id int32, data any) bool {
	s.mu.Lock()
	var targets []EventHandler
	if h, ok := s.handlers[MeshEvent][id]; ok && id != AnyID {
		targets = append(targets, h)
	}
	if h, ok := s.handlers[MeshEvent][AnyID]; ok {
		targets = append(targets, h)
	}
	s.mu.Unlock()

	for _, h := range targets {
		h(MeshEvent, id, data)
	}
	return len(targets) > 0
}

func (s *Sim) runScript(ids []int32, interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	for _, id := range ids {
		if interval > 0 {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}
		s.Emit(id, nil)
	}
}
