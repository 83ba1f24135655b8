package espmesh

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// Engine tuning applied on every activation
const (
	VotePercentage = 1.0
	XonQueueSize   = 128

	PSAssocExpireSeconds   = 60
	PSAnnounceShortMs      = 600
	PSAnnounceLongMs       = 3300
	NoPSAssocExpireSeconds = 10
)

// ActivationSteps names the phases reported to a StepObserver, in order.
// Step indexes passed to the observer are 1-based positions in this list.
var ActivationSteps = []string{
	"Check configuration",
	"Initialize network interfaces",
	"Create mesh interfaces",
	"Start radio",
	"Initialize mesh",
	"Set topology",
	"Apply power save policy",
	"Start mesh",
	"Set duty cycles",
}

const (
	stepCheckConfig = iota + 1
	stepNetifInit
	stepNetifCreate
	stepRadio
	stepMeshInit
	stepTopology
	stepPowerSave
	stepMeshStart
	stepDutyCycle
)

// StepEvent describes progress through ActivationSteps
type StepEvent struct {
	Index   int
	Name    string
	Done    bool
	Skipped bool
	Err     error
}

// StepObserver is called on the activating goroutine as each step starts
// and finishes.
type StepObserver func(StepEvent)

// The network interface layer can only be initialized once per process, so
// the guard outlives any Mesh built on the same engine. Engines that are not
// comparable cannot be map keys; their state is kept on the Mesh instead.
var netifGuard struct {
	mu   sync.Mutex
	done map[engine.NetifLayer]bool
}

func (m *Mesh) netifInitialized() bool {
	if !reflect.ValueOf(m.eng).Comparable() {
		return m.netifDone
	}
	netifGuard.mu.Lock()
	defer netifGuard.mu.Unlock()
	return netifGuard.done[m.eng]
}

func (m *Mesh) markNetifInitialized() {
	if !reflect.ValueOf(m.eng).Comparable() {
		m.netifDone = true
		return
	}
	netifGuard.mu.Lock()
	defer netifGuard.mu.Unlock()
	if netifGuard.done == nil {
		netifGuard.done = make(map[engine.NetifLayer]bool)
	}
	netifGuard.done[m.eng] = true
}

type call struct {
	op string
	fn func() error
}

// SetActive activates or deactivates the mesh and returns the resulting
// state.
func (m *Mesh) SetActive(desired bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if desired {
		if err := m.activateLocked(); err != nil {
			return m.active, err
		}
	} else {
		m.deactivateLocked()
	}
	return m.active, nil
}

// Activate brings the mesh up. It does nothing if the mesh is already
// running. On failure the mesh stays inactive and whatever the engine had
// already set up is left to the engine. That includes the event bridge once
// mesh init has succeeded: events keep reaching the handler while Active
// reports false, and Deactivate does not unregister it. A later successful
// Activate followed by Deactivate does.
func (m *Mesh) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked()
}

// Deactivate tears the mesh down. Every teardown call is attempted even if
// an earlier one fails; failures are logged, never returned.
func (m *Mesh) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivateLocked()
}

func (m *Mesh) activateLocked() error {
	if m.active {
		return nil
	}
	cfg := m.cfg
	eng := m.eng

	m.notify(StepEvent{Index: stepCheckConfig})
	if err := checkActivation(cfg); err != nil {
		logging.LogLifecycleFailure("activate", "check configuration", err)
		m.notify(StepEvent{Index: stepCheckConfig, Done: true, Err: err})
		return err
	}
	m.notify(StepEvent{Index: stepCheckConfig, Done: true})

	if m.netifInitialized() {
		m.notify(StepEvent{Index: stepNetifInit, Done: true, Skipped: true})
	} else {
		if err := m.runStep(stepNetifInit, call{engine.OpNetifInit, eng.NetifInit}); err != nil {
			return err
		}
		m.markNetifInitialized()
	}

	var sta, ap engine.Netif
	if err := m.runStep(stepNetifCreate, call{engine.OpCreateMeshNetifs, func() error {
		var err error
		sta, ap, err = eng.CreateMeshNetifs()
		return err
	}}); err != nil {
		return err
	}

	err := m.runStep(stepRadio,
		call{engine.OpWifiInit, eng.WifiInit},
		call{engine.OpWifiSetStorage, func() error { return eng.WifiSetStorage(engine.StorageRAM) }},
		call{engine.OpWifiStart, eng.WifiStart},
	)
	if err != nil {
		return err
	}

	err = m.runStep(stepMeshInit,
		call{engine.OpMeshInit, eng.MeshInit},
		call{engine.OpRegisterHandler, func() error {
			return eng.RegisterHandler(engine.MeshEvent, engine.AnyID, m.onEngineEvent)
		}},
	)
	if err != nil {
		return err
	}

	err = m.runStep(stepTopology,
		call{engine.OpSetTopology, func() error { return eng.SetTopology(cfg.Topology) }},
		call{engine.OpSetMaxLayer, func() error { return eng.SetMaxLayer(cfg.MaxLayer) }},
		call{engine.OpSetVotePercentage, func() error { return eng.SetVotePercentage(VotePercentage) }},
		call{engine.OpSetXonQsize, func() error { return eng.SetXonQsize(XonQueueSize) }},
	)
	if err != nil {
		return err
	}

	if cfg.PowerSave {
		err = m.runStep(stepPowerSave,
			call{engine.OpEnablePS, eng.EnablePS},
			call{engine.OpSetAPAssocExpire, func() error { return eng.SetAPAssocExpire(PSAssocExpireSeconds) }},
			call{engine.OpSetAnnounceInterval, func() error {
				return eng.SetAnnounceInterval(PSAnnounceShortMs, PSAnnounceLongMs)
			}},
		)
	} else {
		err = m.runStep(stepPowerSave,
			call{engine.OpDisablePS, eng.DisablePS},
			call{engine.OpSetAPAssocExpire, func() error { return eng.SetAPAssocExpire(NoPSAssocExpireSeconds) }},
		)
	}
	if err != nil {
		return err
	}

	err = m.runStep(stepMeshStart,
		call{engine.OpSetAPAuthMode, func() error { return eng.SetAPAuthMode(cfg.APAuthMode) }},
		call{engine.OpSetConfig, func() error { return eng.SetConfig(cfg.EngineConfig()) }},
		call{engine.OpMeshStart, eng.MeshStart},
	)
	if err != nil {
		return err
	}

	if cfg.PowerSave {
		err = m.runStep(stepDutyCycle,
			call{engine.OpSetActiveDutyCycle, func() error {
				return eng.SetActiveDutyCycle(cfg.PS.DeviceDuty, cfg.PS.DeviceDutyType)
			}},
			call{engine.OpSetNetworkDutyCycle, func() error {
				return eng.SetNetworkDutyCycle(cfg.PS.NetworkDuty, cfg.PS.NetworkDutyDuration, cfg.PS.NetworkDutyApplied)
			}},
		)
		if err != nil {
			return err
		}
	} else {
		m.notify(StepEvent{Index: stepDutyCycle, Done: true, Skipped: true})
	}

	m.sta, m.ap = sta, ap
	m.active = true
	logging.Info("Mesh activated",
		zap.String("ssid", cfg.SSID),
		zap.Int("channel", cfg.Channel),
		zap.String("topology", cfg.Topology.String()),
		zap.Int("max_layer", cfg.MaxLayer),
		zap.Bool("power_save", cfg.PowerSave),
	)
	return nil
}

// checkActivation verifies the parameters the engine cannot start without,
// in the order they are reported.
func checkActivation(cfg *meshconfig.Config) error {
	if cfg.SSID == "" {
		return NewConfigurationError(meshconfig.KeySSID, "SSID not set")
	}
	if cfg.Password == "" {
		return NewConfigurationError(meshconfig.KeyPassword, "Password not set")
	}
	if cfg.Channel == 0 {
		return NewConfigurationError(meshconfig.KeyChannel, "Channel not set")
	}
	if limit := cfg.Topology.MaxLayer(); cfg.MaxLayer < 1 || cfg.MaxLayer > limit {
		return NewConfigurationError(meshconfig.KeyMaxLayer,
			fmt.Sprintf("max_layer %d out of range for %s topology (1-%d)", cfg.MaxLayer, cfg.Topology, limit))
	}
	return nil
}

// runStep performs calls in order, stopping at the first failure
func (m *Mesh) runStep(index int, calls ...call) error {
	m.notify(StepEvent{Index: index})
	for _, c := range calls {
		logging.LogLifecycle("activate", c.op)
		if err := c.fn(); err != nil {
			logging.LogLifecycleFailure("activate", c.op, err)
			merr := NewEngineError(c.op, err)
			m.notify(StepEvent{Index: index, Done: true, Err: merr})
			return merr
		}
	}
	m.notify(StepEvent{Index: index, Done: true})
	return nil
}

func (m *Mesh) notify(ev StepEvent) {
	if m.observer == nil {
		return
	}
	ev.Name = ActivationSteps[ev.Index-1]
	m.observer(ev)
}

func (m *Mesh) deactivateLocked() {
	if !m.active {
		return
	}
	eng := m.eng

	calls := []call{
		{engine.OpUnregisterHandler, func() error { return eng.UnregisterHandler(engine.MeshEvent, engine.AnyID) }},
		{engine.OpMeshStop, eng.MeshStop},
		{engine.OpMeshDeinit, eng.MeshDeinit},
		{engine.OpWifiStop, eng.WifiStop},
		{engine.OpWifiDeinit, eng.WifiDeinit},
	}
	if m.sta != nil {
		sta := m.sta
		calls = append(calls, call{engine.OpDestroyNetif, func() error { return eng.DestroyNetif(sta) }})
	}
	if m.ap != nil {
		ap := m.ap
		calls = append(calls, call{engine.OpDestroyNetif, func() error { return eng.DestroyNetif(ap) }})
	}

	var errs error
	for _, c := range calls {
		logging.LogLifecycle("deactivate", c.op)
		if err := c.fn(); err != nil {
			logging.LogLifecycleFailure("deactivate", c.op, err)
			errs = multierr.Append(errs, err)
		}
	}

	m.sta, m.ap = nil, nil
	m.active = false

	if errs != nil {
		logging.Warn("Mesh deactivated with errors",
			zap.Int("failed_calls", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
		return
	}
	logging.Info("Mesh deactivated")
}

// onEngineEvent is registered with the engine for every mesh event. It runs
// on the engine's goroutine, so it only looks the event up and hands it to
// the scheduler.
func (m *Mesh) onEngineEvent(base engine.EventBase, id int32, _ any) {
	if base != engine.MeshEvent {
		return
	}
	m.received.Add(1)
	ev := EventName(id)

	slot := m.handler.Load()
	if slot == nil {
		m.unhandled.Add(1)
		logging.LogMeshEvent(ev.Code, ev.Name, false)
		return
	}

	fn := slot.fn
	queued := m.sched.Schedule(func(arg any) {
		fn(arg.(Event))
	}, ev)
	logging.LogMeshEvent(ev.Code, ev.Name, queued)
}
