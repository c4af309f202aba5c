package laser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optodyne/go-laser/ascii"
	"github.com/optodyne/go-laser/internal/mockdev"
	"github.com/optodyne/go-laser/transport"
)

// testDevice seeds the simulated instrument with plausible idle state.
func testDevice() *mockdev.Device {
	dev := mockdev.New()

	dev.SetRegister("CPU8000", 16, "Power", "ON")
	dev.SetRegister("CPU8000", 16, "DisplayCurrent", "0.7")
	dev.SetRegister("CPU8000", 16, "FaultCode", "0")
	dev.SetRegister("M_CPU800", 17, "Power", "ON")
	dev.SetRegister("M_CPU800", 17, "DisplayCurrent", "1.2")
	dev.SetRegister("M_CPU800", 17, "FaultCode", "0")
	dev.SetRegister("M_CPU800", 18, "Power", "OFF")
	dev.SetRegister("M_CPU800", 18, "DisplayCurrent", "0.0")
	dev.SetRegister("M_CPU800", 18, "FaultCode", "0")
	dev.SetRegister("M_CPU800", 18, "BurstMode", "Continuous")
	dev.SetRegister("M_CPU800", 18, "BurstLength", "1")
	dev.SetRegister("MaxiOPG", 31, "WaveLength", "650nm")
	dev.SetRegister("MaxiOPG", 31, "Configuration", "No SCU")
	dev.SetRegister("MiniOPG", 56, "ErrorCode", "0")
	dev.SetRegister("TK6", 44, "DisplayTemperature", "45C")
	dev.SetRegister("TK6", 45, "DisplayTemperature", "19C")
	dev.SetRegister("HV40W", 41, "HVVoltage", "1.5")
	dev.SetRegister("DelayLin", 40, "ErrorCode", "0")
	dev.SetRegister("LDCO48BP", 30, "DisplayTemperature", "27C")
	dev.SetRegister("M_LDCO48", 33, "DisplayTemperature", "13C")
	dev.SetWord("1", "81", "0003", 45)

	return dev
}

func newTestLaser(t *testing.T) (*Laser, *mockdev.Device, *mockdev.Transport) {
	t.Helper()

	dev := testDevice()
	tr := mockdev.NewTransport(dev)

	lsr, err := New(&Config{}, WithTransport(tr))
	require.NoError(t, err)

	require.NoError(t, lsr.Connect(context.Background()))
	t.Cleanup(func() { lsr.Disconnect() }) //nolint:errcheck

	return lsr, dev, tr
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New(&Config{Endpoint: EndpointConfig{Type: "bogus"}})
	require.Error(t, err)

	// No endpoint, no injected transport, no simulation: unusable.
	_, err = New(&Config{})
	require.Error(t, err)

	_, err = New(&Config{}, WithTransport(nil))
	require.Error(t, err)

	_, err = New(&Config{}, WithLogger(nil))
	require.Error(t, err)
}

func TestLaser_ConnectLifecycle(t *testing.T) {
	lsr, _, _ := newTestLaser(t)

	assert.True(t, lsr.Connected())
	require.NoError(t, lsr.Connect(context.Background()), "connect is idempotent")

	require.NoError(t, lsr.Disconnect())
	assert.False(t, lsr.Connected())
}

func TestLaser_Wavelength(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)
	ctx := context.Background()

	// The device reports the unit suffix; the driver strips it.
	nm, err := lsr.Wavelength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 650.0, nm)

	require.NoError(t, lsr.SetWavelength(ctx, 800))

	value, ok := dev.Register("MaxiOPG", 31, "WaveLength")
	require.True(t, ok)
	assert.Equal(t, "800", value)

	nm, err = lsr.Wavelength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 800.0, nm)
}

func TestLaser_Wavelength_OutOfRange(t *testing.T) {
	dev := testDevice()
	tr := mockdev.NewTransport(dev)

	lsr, err := New(&Config{Wavelength: FloatRange{Min: 400, Max: 900}}, WithTransport(tr))
	require.NoError(t, err)
	require.NoError(t, lsr.Connect(context.Background()))

	before := tr.Sends.Load()

	err = lsr.SetWavelength(context.Background(), 1200)
	require.ErrorIs(t, err, ascii.ErrOutOfDomain)
	assert.Equal(t, before, tr.Sends.Load(), "rejected writes must not touch the wire")
}

func TestLaser_Propagation(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)
	ctx := context.Background()

	require.NoError(t, lsr.StartPropagating(ctx))
	value, _ := dev.Register("M_CPU800", 18, "Power")
	assert.Equal(t, "ON", value)

	require.NoError(t, lsr.StopPropagating(ctx))
	value, _ = dev.Register("M_CPU800", 18, "Power")
	assert.Equal(t, "OFF", value)
}

func TestLaser_BurstMode(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)
	ctx := context.Background()

	require.NoError(t, lsr.SetBurstMode(ctx, 5000))

	mode, _ := dev.Register("M_CPU800", 18, "BurstMode")
	assert.Equal(t, "Burst", mode)

	length, _ := dev.Register("M_CPU800", 18, "BurstLength")
	assert.Equal(t, "5000", length)

	require.NoError(t, lsr.SetContinuousMode(ctx))
	mode, _ = dev.Register("M_CPU800", 18, "BurstMode")
	assert.Equal(t, "Continuous", mode)

	err := lsr.SetBurstMode(ctx, 0)
	require.ErrorIs(t, err, ascii.ErrOutOfDomain)
}

func TestLaser_OpticalConfiguration(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)
	ctx := context.Background()

	require.NoError(t, lsr.SetOpticalConfiguration(ctx, "F1 SCU"))
	value, _ := dev.Register("MaxiOPG", 31, "Configuration")
	assert.Equal(t, "F1 SCU", value)

	err := lsr.SetOpticalConfiguration(ctx, "sideways")
	require.ErrorIs(t, err, ascii.ErrOutOfDomain)
}

func TestLaser_TemperatureController(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)
	ctx := context.Background()

	require.NoError(t, lsr.SetTemperatureSetpoint(ctx, 50))

	word, ok := dev.Word("1", "81", "0003")
	require.True(t, ok)
	assert.Equal(t, uint16(50), word)

	require.NoError(t, lsr.RunTemperatureController(ctx))
	assert.True(t, dev.Running("1"))

	require.NoError(t, lsr.StopTemperatureController(ctx))
	assert.False(t, dev.Running("1"))
}

func TestLaser_ReadTelemetry(t *testing.T) {
	lsr, _, _ := newTestLaser(t)

	telemetry, err := lsr.ReadTelemetry(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ON", telemetry.CPU8000Power)
	assert.Equal(t, "0.7", telemetry.CPU8000Current)
	assert.Equal(t, "0", telemetry.CPU8000Fault)
	assert.Equal(t, "ON", telemetry.MCPU800Power)
	assert.Equal(t, "1.2", telemetry.MCPU800Current)
	assert.Equal(t, "0", telemetry.MCPU800Fault)

	// Temperature replies carry a trailing C that must be stripped.
	assert.Equal(t, "45", telemetry.OscillatorTemp)
	assert.Equal(t, "19", telemetry.AmplifierTemp)
	assert.Equal(t, "27", telemetry.BackplaneTemp)
	assert.Equal(t, "13", telemetry.MainDiodeTemp)

	assert.Equal(t, "1.5", telemetry.HVVoltage)
}

func TestLaser_ReadTelemetry_FaultAbortsSweep(t *testing.T) {
	lsr, dev, _ := newTestLaser(t)

	// Exhaust the retry budget on one status register.
	dev.InjectFaults("CPU8000", 16, "Power", ascii.DefaultRetryLimit+1)

	_, err := lsr.ReadTelemetry(context.Background())
	require.ErrorIs(t, err, ascii.ErrDeviceFault)
}

func TestLaser_FaultRetryIntegration(t *testing.T) {
	lsr, dev, tr := newTestLaser(t)

	dev.InjectFaults("MaxiOPG", 31, "WaveLength", 2)

	before := tr.Sends.Load()

	nm, err := lsr.Wavelength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 650.0, nm)
	assert.Equal(t, before+3, tr.Sends.Load(), "two faulted attempts plus the success")
}

func TestLaser_RegisterIndex(t *testing.T) {
	lsr, _, _ := newTestLaser(t)

	reg, ok := lsr.RegisterByName("MaxiOPG/31/WaveLength")
	require.True(t, ok)
	assert.Equal(t, "MaxiOPG/31/WaveLength", reg.FullName())

	value, err := reg.ReadValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "650", value)

	_, ok = lsr.RegisterByName("NoSuch/0/Register")
	assert.False(t, ok)

	names := lsr.RegisterNames()
	assert.Len(t, names, 22)
	assert.Contains(t, names, "E5DC_B/1/Setpoint")
	assert.Contains(t, names, "CPU8000/16/Power")
}

func TestLaser_ModuleAccessors(t *testing.T) {
	lsr, _, _ := newTestLaser(t)

	assert.NotNil(t, lsr.CPU8000())
	assert.NotNil(t, lsr.MCPU800())
	assert.NotNil(t, lsr.MaxiOPG())
	assert.NotNil(t, lsr.MiniOPG())
	assert.NotNil(t, lsr.TK6())
	assert.NotNil(t, lsr.HV40W())
	assert.NotNil(t, lsr.DelayLin())
	assert.NotNil(t, lsr.LDCO48BP())
	assert.NotNil(t, lsr.MLDCO48())
	assert.NotNil(t, lsr.E5DCB())

	assert.True(t, lsr.MaxiOPG().Wavelength == lsr.modules.maxiOPG.Wavelength)
}

func TestLaser_SimulateMode(t *testing.T) {
	lsr, err := New(&Config{Simulate: true})
	require.NoError(t, err)

	ctx := context.Background()

	// Simulation never reaches the wire, so the null transport is fine.
	require.NoError(t, lsr.SetWavelength(ctx, 532))

	nm, err := lsr.Wavelength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 532.0, nm)

	require.NoError(t, lsr.SetTemperatureSetpoint(ctx, 45))
	require.NoError(t, lsr.RunTemperatureController(ctx))

	// Reading a never-written simulated register has nothing to report.
	_, err = lsr.CPU8000().Power.ReadValue(ctx)
	require.Error(t, err)
}

func TestLaser_NotConnected(t *testing.T) {
	dev := testDevice()

	lsr, err := New(&Config{}, WithTransport(mockdev.NewTransport(dev)))
	require.NoError(t, err)

	_, err = lsr.Wavelength(context.Background())
	require.ErrorIs(t, err, transport.ErrNotConnected)
}
