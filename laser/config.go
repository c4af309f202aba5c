package laser

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/optodyne/go-laser/status"
)

// Endpoint types accepted in the configuration.
const (
	EndpointTCP    = "tcp"
	EndpointSerial = "serial"
)

// Default configuration values.
const (
	DefaultBaudRate         = 19200
	DefaultConnectTimeoutMS = 3000
	DefaultReadTimeoutMS    = 2000

	DefaultWavelengthMin = 300.0
	DefaultWavelengthMax = 1100.0

	DefaultSetpointMin = -199.0
	DefaultSetpointMax = 999.0
)

// EndpointConfig selects and parameterizes the physical link.
type EndpointConfig struct {
	Type string `yaml:"type"` // "tcp" or "serial"

	// TCP endpoint.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Serial endpoint.
	Device   string `yaml:"device,omitempty"`
	BaudRate int    `yaml:"baud_rate,omitempty"`

	ConnectTimeoutMS int `yaml:"connect_timeout_ms,omitempty"`
	ReadTimeoutMS    int `yaml:"read_timeout_ms,omitempty"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (e *EndpointConfig) ConnectTimeout() time.Duration {
	return time.Duration(e.ConnectTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the read timeout as a duration.
func (e *EndpointConfig) ReadTimeout() time.Duration {
	return time.Duration(e.ReadTimeoutMS) * time.Millisecond
}

// FloatRange is an inclusive-low, exclusive-high numeric interval.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Config is the driver configuration, loadable from YAML.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`

	// Wavelength bounds the MaxiOPG wavelength setpoint domain, in nm.
	Wavelength FloatRange `yaml:"wavelength"`

	// TemperatureSetpoint bounds the E5DC-B setpoint domain, in the
	// controller's display unit.
	TemperatureSetpoint FloatRange `yaml:"temperature_setpoint"`

	// OpticalConfiguration is the output path selected at startup.
	OpticalConfiguration string `yaml:"optical_configuration,omitempty"`

	// Simulate puts every register in simulation mode: writes set stored
	// values directly, no hardware round trips.
	Simulate bool `yaml:"simulate,omitempty"`

	// FaultRetries overrides the per-register in-band fault retry bound.
	// nil keeps the protocol default.
	FaultRetries *int `yaml:"fault_retries,omitempty"`

	// MQTT, when present, configures the status sink used by monitoring.
	MQTT *status.Config `yaml:"mqtt,omitempty"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("laser: read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("laser: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	switch c.Endpoint.Type {
	case EndpointTCP:
		if c.Endpoint.Host == "" {
			return errors.New("laser: tcp endpoint requires a host")
		}
		if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
			return fmt.Errorf("laser: tcp port %d out of range", c.Endpoint.Port)
		}
	case EndpointSerial:
		if c.Endpoint.Device == "" {
			return errors.New("laser: serial endpoint requires a device path")
		}
		if c.Endpoint.BaudRate == 0 {
			c.Endpoint.BaudRate = DefaultBaudRate
		}
	case "":
		// No endpoint: valid for simulation or an injected transport;
		// checked when the transport is built.
	default:
		return fmt.Errorf("laser: unknown endpoint type %q", c.Endpoint.Type)
	}

	if c.Endpoint.ConnectTimeoutMS == 0 {
		c.Endpoint.ConnectTimeoutMS = DefaultConnectTimeoutMS
	}
	if c.Endpoint.ReadTimeoutMS == 0 {
		c.Endpoint.ReadTimeoutMS = DefaultReadTimeoutMS
	}

	if c.Wavelength.Min == 0 && c.Wavelength.Max == 0 {
		c.Wavelength = FloatRange{Min: DefaultWavelengthMin, Max: DefaultWavelengthMax}
	}
	if c.Wavelength.Min >= c.Wavelength.Max {
		return fmt.Errorf("laser: wavelength range [%g, %g) is empty", c.Wavelength.Min, c.Wavelength.Max)
	}

	if c.TemperatureSetpoint.Min == 0 && c.TemperatureSetpoint.Max == 0 {
		c.TemperatureSetpoint = FloatRange{Min: DefaultSetpointMin, Max: DefaultSetpointMax}
	}

	if c.FaultRetries != nil && *c.FaultRetries < 0 {
		return fmt.Errorf("laser: fault retries %d must not be negative", *c.FaultRetries)
	}

	return nil
}
