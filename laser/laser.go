// Package laser assembles the register/transport layers into a driver for
// the tunable-laser instrument: it owns the physical link and its
// serialization guard, builds the typed module catalog, and exposes
// instrument-level operations on top of the registers.
package laser

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/optodyne/go-laser/ascii"
	"github.com/optodyne/go-laser/compoway"
	"github.com/optodyne/go-laser/logger"
	"github.com/optodyne/go-laser/transport"
)

// Register is the capability shared by both protocol variants' registers.
// Operation registers implement it too; their ReadValue fails by
// capability.
type Register interface {
	FullName() string
	ReadValue(ctx context.Context) (string, error)
	SetValue(ctx context.Context, value string) error
	Value() (string, bool)
}

// Laser is the top-level driver component. It exclusively owns the
// Transport and the Commander; registers hold non-owning references and
// never open or close the connection themselves.
type Laser struct {
	cfg       *Config
	transport transport.Transport
	commander *transport.Commander
	logger    logger.Logger
	modules   *modules

	// index maps "Module/ID/Register" to the register for name-based
	// lookup. Read-mostly and queried from concurrent polling loops.
	index *xsync.MapOf[string, Register]
}

// Option configures a Laser.
type Option func(*Laser) error

// WithLogger sets the driver logger.
func WithLogger(l logger.Logger) Option {
	return func(lsr *Laser) error {
		if l == nil {
			return errors.New("laser: logger must not be nil")
		}
		lsr.logger = l

		return nil
	}
}

// WithTransport injects a pre-built transport, overriding the endpoint
// configuration. Used for testing against the simulated device.
func WithTransport(t transport.Transport) Option {
	return func(lsr *Laser) error {
		if t == nil {
			return errors.New("laser: transport must not be nil")
		}
		lsr.transport = t

		return nil
	}
}

// New creates a Laser from cfg, building the transport, the commander, the
// typed module catalog, and the register index.
func New(cfg *Config, opts ...Option) (*Laser, error) {
	if cfg == nil {
		return nil, errors.New("laser: config must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lsr := &Laser{
		cfg:    cfg,
		logger: logger.GetLogger(),
		index:  xsync.NewMapOf[string, Register](),
	}

	for _, opt := range opts {
		if err := opt(lsr); err != nil {
			return nil, err
		}
	}

	if lsr.transport == nil {
		t, err := buildTransport(cfg, lsr.logger)
		if err != nil {
			return nil, err
		}
		lsr.transport = t
	}

	commander, err := transport.NewCommander(lsr.transport,
		transport.WithCommanderLogger(lsr.logger))
	if err != nil {
		return nil, err
	}
	lsr.commander = commander

	factory := &registerFactory{
		commander: commander,
		ascii: []ascii.RegisterOption{
			ascii.WithSimulation(cfg.Simulate),
			ascii.WithRegisterLogger(lsr.logger),
		},
		compoway: []compoway.Option{
			compoway.WithSimulation(cfg.Simulate),
			compoway.WithLogger(lsr.logger),
		},
	}

	if cfg.FaultRetries != nil {
		factory.ascii = append(factory.ascii, ascii.WithRetryLimit(*cfg.FaultRetries))
		factory.compoway = append(factory.compoway, compoway.WithRetryLimit(*cfg.FaultRetries))
	}

	mods, err := newModules(factory, cfg)
	if err != nil {
		return nil, err
	}
	lsr.modules = mods

	for _, r := range lsr.allRegisters() {
		lsr.index.Store(r.FullName(), r)
	}

	return lsr, nil
}

// buildTransport creates the transport selected by the endpoint config.
// A simulate-only config without an endpoint gets no transport at all;
// registers in simulation mode never reach the wire.
func buildTransport(cfg *Config, l logger.Logger) (transport.Transport, error) {
	opts := []transport.Option{
		transport.WithConnectTimeout(cfg.Endpoint.ConnectTimeout()),
		transport.WithReadTimeout(cfg.Endpoint.ReadTimeout()),
		transport.WithLogger(l),
	}

	switch cfg.Endpoint.Type {
	case EndpointTCP:
		return transport.NewTCPClient(cfg.Endpoint.Host, cfg.Endpoint.Port, opts...)
	case EndpointSerial:
		return transport.NewSerialClient(cfg.Endpoint.Device,
			append(opts, transport.WithBaudRate(cfg.Endpoint.BaudRate))...)
	case "":
		if !cfg.Simulate {
			return nil, errors.New("laser: endpoint type is required unless simulating")
		}

		return nullTransport{}, nil
	default:
		return nil, fmt.Errorf("laser: unknown endpoint type %q", cfg.Endpoint.Type)
	}
}

// Module accessors.

func (l *Laser) CPU8000() *CPU8000   { return l.modules.cpu8000 }
func (l *Laser) MCPU800() *MCPU800   { return l.modules.mcpu800 }
func (l *Laser) MaxiOPG() *MaxiOPG   { return l.modules.maxiOPG }
func (l *Laser) MiniOPG() *MiniOPG   { return l.modules.miniOPG }
func (l *Laser) TK6() *TK6           { return l.modules.tk6 }
func (l *Laser) HV40W() *HV40W       { return l.modules.hv40W }
func (l *Laser) DelayLin() *DelayLin { return l.modules.delayLin }
func (l *Laser) LDCO48BP() *LDCO48BP { return l.modules.ldco48BP }
func (l *Laser) MLDCO48() *MLDCO48   { return l.modules.mldco48 }
func (l *Laser) E5DCB() *E5DCB       { return l.modules.e5dcb }

// Connect establishes the physical link. Idempotent.
func (l *Laser) Connect(ctx context.Context) error {
	return l.transport.Connect(ctx)
}

// Disconnect closes the physical link. Always safe to call.
func (l *Laser) Disconnect() error {
	return l.transport.Disconnect()
}

// Connected reports the link state.
func (l *Laser) Connected() bool {
	return l.transport.Connected()
}

// RegisterByName looks up a register by its "Module/ID/Register" address.
func (l *Laser) RegisterByName(name string) (Register, bool) {
	return l.index.Load(name)
}

// RegisterNames returns the addresses of every register in the catalog.
func (l *Laser) RegisterNames() []string {
	names := make([]string, 0, l.index.Size())
	l.index.Range(func(name string, _ Register) bool {
		names = append(names, name)
		return true
	})

	return names
}

// SetWavelength commands the MaxiOPG wavelength setpoint, in nm. The value
// is validated against the configured wavelength range before any I/O.
func (l *Laser) SetWavelength(ctx context.Context, nm float64) error {
	return l.modules.maxiOPG.Wavelength.SetValue(ctx, strconv.FormatFloat(nm, 'f', -1, 64))
}

// Wavelength reads the current wavelength, in nm.
func (l *Laser) Wavelength(ctx context.Context) (float64, error) {
	value, err := l.modules.maxiOPG.Wavelength.ReadValue(ctx)
	if err != nil {
		return 0, err
	}

	nm, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("laser: wavelength reply %q is not numeric", value)
	}

	return nm, nil
}

// SetOpticalConfiguration selects the MaxiOPG output path.
func (l *Laser) SetOpticalConfiguration(ctx context.Context, path string) error {
	return l.modules.maxiOPG.Configuration.SetValue(ctx, path)
}

// StartPropagating powers on the propagation bank of the M_CPU800.
func (l *Laser) StartPropagating(ctx context.Context) error {
	return l.modules.mcpu800.PowerB.SetValue(ctx, "ON")
}

// StopPropagating powers off the propagation bank of the M_CPU800.
func (l *Laser) StopPropagating(ctx context.Context) error {
	return l.modules.mcpu800.PowerB.SetValue(ctx, "OFF")
}

// SetBurstMode selects burst output with the given burst length.
func (l *Laser) SetBurstMode(ctx context.Context, length int) error {
	if err := l.modules.mcpu800.PropagationMode.SetValue(ctx, "Burst"); err != nil {
		return err
	}

	return l.modules.mcpu800.BurstLength.SetValue(ctx, strconv.Itoa(length))
}

// SetContinuousMode selects continuous output.
func (l *Laser) SetContinuousMode(ctx context.Context) error {
	return l.modules.mcpu800.PropagationMode.SetValue(ctx, "Continuous")
}

// SetTemperatureSetpoint commands the E5DC-B setpoint, in the controller's
// display unit.
func (l *Laser) SetTemperatureSetpoint(ctx context.Context, value int) error {
	return l.modules.e5dcb.Setpoint.SetValue(ctx, strconv.Itoa(value))
}

// RunTemperatureController starts E5DC-B control operation.
func (l *Laser) RunTemperatureController(ctx context.Context) error {
	return l.modules.e5dcb.RunStop.SetValue(ctx, E5DCRun)
}

// StopTemperatureController stops E5DC-B control operation.
func (l *Laser) StopTemperatureController(ctx context.Context) error {
	return l.modules.e5dcb.RunStop.SetValue(ctx, E5DCStop)
}

// Telemetry is one sweep of the instrument's observable state.
type Telemetry struct {
	CPU8000Power   string `json:"cpu8000_power"`
	CPU8000Current string `json:"cpu8000_current"`
	CPU8000Fault   string `json:"cpu8000_fault"`

	MCPU800Power   string `json:"mcpu800_power"`
	MCPU800Current string `json:"mcpu800_current"`
	MCPU800Fault   string `json:"mcpu800_fault"`

	OscillatorTemp string `json:"oscillator_temp"`
	AmplifierTemp  string `json:"amplifier_temp"`
	BackplaneTemp  string `json:"backplane_temp"`
	MainDiodeTemp  string `json:"main_diode_temp"`

	HVVoltage string `json:"hv_voltage"`
}

// ReadTelemetry sweeps the read-only status registers. Each read is its own
// serialized exchange; a failure aborts the sweep so stale and fresh values
// are never mixed silently.
func (l *Laser) ReadTelemetry(ctx context.Context) (*Telemetry, error) {
	t := &Telemetry{}

	for _, item := range []struct {
		dst *string
		reg *ascii.Register
	}{
		{&t.CPU8000Power, l.modules.cpu8000.Power},
		{&t.CPU8000Current, l.modules.cpu8000.DisplayCurrent},
		{&t.CPU8000Fault, l.modules.cpu8000.Fault},
		{&t.MCPU800Power, l.modules.mcpu800.Power},
		{&t.MCPU800Current, l.modules.mcpu800.DisplayCurrent},
		{&t.MCPU800Fault, l.modules.mcpu800.Fault},
		{&t.OscillatorTemp, l.modules.tk6.DisplayTemperatureA},
		{&t.AmplifierTemp, l.modules.tk6.DisplayTemperatureB},
		{&t.BackplaneTemp, l.modules.ldco48BP.DisplayTemperature},
		{&t.MainDiodeTemp, l.modules.mldco48.DisplayTemperature},
		{&t.HVVoltage, l.modules.hv40W.HVVoltage},
	} {
		value, err := item.reg.ReadValue(ctx)
		if err != nil {
			return nil, err
		}
		*item.dst = value
	}

	return t, nil
}

// allRegisters enumerates the catalog for index construction.
func (l *Laser) allRegisters() []Register {
	m := l.modules

	return []Register{
		m.cpu8000.Power, m.cpu8000.DisplayCurrent, m.cpu8000.Fault,
		m.mcpu800.Power, m.mcpu800.DisplayCurrent, m.mcpu800.Fault,
		m.mcpu800.PowerB, m.mcpu800.DisplayCurrentB, m.mcpu800.FaultB,
		m.mcpu800.PropagationMode, m.mcpu800.BurstLength,
		m.maxiOPG.Wavelength, m.maxiOPG.Configuration,
		m.miniOPG.ErrorCode,
		m.tk6.DisplayTemperatureA, m.tk6.DisplayTemperatureB,
		m.hv40W.HVVoltage,
		m.delayLin.ErrorCode,
		m.ldco48BP.DisplayTemperature, m.mldco48.DisplayTemperature,
		m.e5dcb.Setpoint, m.e5dcb.RunStop,
	}
}

// nullTransport backs simulate-only configurations that declare no
// endpoint. Any attempt to reach the wire is a bug in simulation wiring
// and surfaces as ErrNotConnected.
type nullTransport struct{}

var _ transport.Transport = nullTransport{}

func (nullTransport) Connect(_ context.Context) error { return nil }
func (nullTransport) Disconnect() error               { return nil }
func (nullTransport) Connected() bool                 { return false }

func (nullTransport) Send(_ context.Context, _ []byte) error {
	return transport.ErrNotConnected
}

func (nullTransport) ReceiveUntil(_ context.Context, _ byte) ([]byte, error) {
	return nil, transport.ErrNotConnected
}

func (nullTransport) ReceiveBytes(_ context.Context, _ int) ([]byte, error) {
	return nil, transport.ErrNotConnected
}
