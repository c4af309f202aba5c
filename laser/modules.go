package laser

import (
	"github.com/optodyne/go-laser/ascii"
	"github.com/optodyne/go-laser/compoway"
	"github.com/optodyne/go-laser/transport"
)

// Hardware module IDs on the instrument bus.
const (
	idCPU8000  = 16
	idMCPU800  = 17
	idMCPU800B = 18
	idLDCO48BP = 30
	idMaxiOPG  = 31
	idMLDCO48  = 33
	idDelayLin = 40
	idHV40W    = 41
	idTK6A     = 44
	idTK6B     = 45
	idMiniOPG  = 56

	// nodeE5DCB is the CompoWay/F node of the embedded temperature
	// controller.
	nodeE5DCB = 1
)

// E5DC-B variable-area addressing.
const (
	e5dcVariableCode    = "81"
	e5dcSetpointAddress = "0003"
	e5dcRunStopCommand  = "01"
)

// Related-info values of the E5DC-B run/stop operation command.
const (
	E5DCRun  = "00"
	E5DCStop = "01"
)

// Power state values shared by the power modules.
var powerStates = ascii.Set{"OFF", "ON", "FAULT"}

// writablePowerStates excludes FAULT, which the device reports but never
// accepts.
var writablePowerStates = ascii.Set{"OFF", "ON"}

// Propagation output modes of the second M_CPU800 bank.
var propagationModes = ascii.Set{"Continuous", "Burst", "Trigger"}

// Optical output paths selectable on the MaxiOPG.
var opticalConfigurations = ascii.Set{"No SCU", "SCU", "F1 SCU", "F2 SCU"}

// CPU8000 is the main power supply module.
type CPU8000 struct {
	Power          *ascii.Register
	DisplayCurrent *ascii.Register
	Fault          *ascii.Register
}

// MCPU800 is the dual-bank amplifier power module. Bank B (id 18) drives
// propagation and carries the burst-mode controls.
type MCPU800 struct {
	Power          *ascii.Register
	DisplayCurrent *ascii.Register
	Fault          *ascii.Register

	PowerB          *ascii.Register
	DisplayCurrentB *ascii.Register
	FaultB          *ascii.Register
	PropagationMode *ascii.Register
	BurstLength     *ascii.Register
}

// MaxiOPG is the optical parametric generator holding the wavelength
// setpoint and the output path selection.
type MaxiOPG struct {
	Wavelength    *ascii.Register
	Configuration *ascii.Register
}

// MiniOPG reports the secondary parametric generator error state.
type MiniOPG struct {
	ErrorCode *ascii.Register
}

// TK6 is a pair of temperature display modules.
type TK6 struct {
	DisplayTemperatureA *ascii.Register
	DisplayTemperatureB *ascii.Register
}

// HV40W is the high-voltage supply module.
type HV40W struct {
	HVVoltage *ascii.Register
}

// DelayLin reports the delay-line error state.
type DelayLin struct {
	ErrorCode *ascii.Register
}

// LDCO48BP is the backplane diode temperature module.
type LDCO48BP struct {
	DisplayTemperature *ascii.Register
}

// MLDCO48 is the main diode temperature module.
type MLDCO48 struct {
	DisplayTemperature *ascii.Register
}

// E5DCB is the embedded CompoWay/F temperature controller.
type E5DCB struct {
	Setpoint *compoway.DataRegister
	RunStop  *compoway.OperationRegister
}

// modules aggregates the full typed catalog.
type modules struct {
	cpu8000  *CPU8000
	mcpu800  *MCPU800
	maxiOPG  *MaxiOPG
	miniOPG  *MiniOPG
	tk6      *TK6
	hv40W    *HV40W
	delayLin *DelayLin
	ldco48BP *LDCO48BP
	mldco48  *MLDCO48
	e5dcb    *E5DCB
}

// registerFactory applies the shared per-register settings (simulation,
// retry bound, logger) while building the catalog.
type registerFactory struct {
	commander *transport.Commander
	ascii     []ascii.RegisterOption
	compoway  []compoway.Option
	err       error
}

// readOnly builds a read-only ASCII register, capturing the first error.
func (f *registerFactory) readOnly(module string, id int, name string, extra ...ascii.RegisterOption) *ascii.Register {
	opts := append([]ascii.RegisterOption{ascii.ReadOnly()}, f.ascii...)
	opts = append(opts, extra...)

	return f.build(module, id, name, opts)
}

// writable builds a writable ASCII register with the given domain.
func (f *registerFactory) writable(module string, id int, name string, d ascii.Domain, extra ...ascii.RegisterOption) *ascii.Register {
	opts := append([]ascii.RegisterOption{ascii.WithDomain(d)}, f.ascii...)
	opts = append(opts, extra...)

	return f.build(module, id, name, opts)
}

func (f *registerFactory) build(module string, id int, name string, opts []ascii.RegisterOption) *ascii.Register {
	if f.err != nil {
		return nil
	}

	r, err := ascii.NewRegister(f.commander, module, id, name, opts...)
	if err != nil {
		f.err = err
	}

	return r
}

// newModules builds the typed module catalog for cfg.
func newModules(f *registerFactory, cfg *Config) (*modules, error) {
	wavelengthDomain := ascii.NewRange(cfg.Wavelength.Min, cfg.Wavelength.Max)

	m := &modules{
		cpu8000: &CPU8000{
			Power:          f.readOnly("CPU8000", idCPU8000, "Power"),
			DisplayCurrent: f.readOnly("CPU8000", idCPU8000, "DisplayCurrent"),
			Fault:          f.readOnly("CPU8000", idCPU8000, "FaultCode"),
		},
		mcpu800: &MCPU800{
			Power:          f.readOnly("M_CPU800", idMCPU800, "Power"),
			DisplayCurrent: f.readOnly("M_CPU800", idMCPU800, "DisplayCurrent"),
			Fault:          f.readOnly("M_CPU800", idMCPU800, "FaultCode"),

			PowerB:          f.writable("M_CPU800", idMCPU800B, "Power", writablePowerStates),
			DisplayCurrentB: f.readOnly("M_CPU800", idMCPU800B, "DisplayCurrent"),
			FaultB:          f.readOnly("M_CPU800", idMCPU800B, "FaultCode"),
			PropagationMode: f.writable("M_CPU800", idMCPU800B, "BurstMode", propagationModes),
			BurstLength:     f.writable("M_CPU800", idMCPU800B, "BurstLength", ascii.NewRange(1, 50001)),
		},
		maxiOPG: &MaxiOPG{
			Wavelength: f.writable("MaxiOPG", idMaxiOPG, "WaveLength", wavelengthDomain,
				ascii.WithUnitSuffixes("mn")),
			Configuration: f.writable("MaxiOPG", idMaxiOPG, "Configuration", opticalConfigurations),
		},
		miniOPG: &MiniOPG{
			ErrorCode: f.readOnly("MiniOPG", idMiniOPG, "ErrorCode"),
		},
		tk6: &TK6{
			DisplayTemperatureA: f.readOnly("TK6", idTK6A, "DisplayTemperature",
				ascii.WithUnitSuffixes("C")),
			DisplayTemperatureB: f.readOnly("TK6", idTK6B, "DisplayTemperature",
				ascii.WithUnitSuffixes("C")),
		},
		hv40W: &HV40W{
			HVVoltage: f.readOnly("HV40W", idHV40W, "HVVoltage"),
		},
		delayLin: &DelayLin{
			ErrorCode: f.readOnly("DelayLin", idDelayLin, "ErrorCode"),
		},
		ldco48BP: &LDCO48BP{
			DisplayTemperature: f.readOnly("LDCO48BP", idLDCO48BP, "DisplayTemperature",
				ascii.WithUnitSuffixes("C")),
		},
		mldco48: &MLDCO48{
			DisplayTemperature: f.readOnly("M_LDCO48", idMLDCO48, "DisplayTemperature",
				ascii.WithUnitSuffixes("C")),
		},
	}

	if f.err != nil {
		return nil, f.err
	}

	setpointDomain := ascii.NewRange(cfg.TemperatureSetpoint.Min, cfg.TemperatureSetpoint.Max)

	setpoint, err := compoway.NewDataRegister(f.commander, "E5DC_B", nodeE5DCB, "Setpoint",
		e5dcVariableCode, e5dcSetpointAddress,
		append([]compoway.Option{compoway.WithDomain(setpointDomain)}, f.compoway...)...)
	if err != nil {
		return nil, err
	}

	runStop, err := compoway.NewOperationRegister(f.commander, "E5DC_B", nodeE5DCB, "RunStop",
		e5dcRunStopCommand,
		append([]compoway.Option{compoway.WithDomain(ascii.Set{E5DCRun, E5DCStop})}, f.compoway...)...)
	if err != nil {
		return nil, err
	}

	m.e5dcb = &E5DCB{Setpoint: setpoint, RunStop: runStop}

	return m, nil
}
