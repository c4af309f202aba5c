// laserctl is a command-line utility for exercising the tunable-laser
// driver: reading and writing registers, controlling propagation, and
// running a telemetry monitor loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/optodyne/go-laser/internal/mockdev"
	"github.com/optodyne/go-laser/laser"
	"github.com/optodyne/go-laser/logger"
)

var (
	flagConfig   string
	flagSimulate bool
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "laserctl",
	Short: "Control and monitor the tunable-laser instrument",
	Long: `laserctl drives the tunable-laser instrument over its ASCII register
protocol (TCP or serial). With --simulate it runs against an in-memory
device instead of hardware.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagVerbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "laser.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagSimulate, "simulate", false, "run against a simulated device")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// newLaser builds the driver from the configured endpoint, or from a
// seeded in-memory device when --simulate is set.
func newLaser() (*laser.Laser, error) {
	cfg, err := laser.LoadConfig(flagConfig)
	if err != nil {
		if !flagSimulate {
			return nil, err
		}
		// Simulation needs no endpoint; fall back to defaults.
		cfg = &laser.Config{}
	}

	if !flagSimulate {
		return laser.New(cfg)
	}

	return laser.New(cfg, laser.WithTransport(mockdev.NewTransport(seededDevice())))
}

// seededDevice populates the simulated instrument with plausible idle
// state.
func seededDevice() *mockdev.Device {
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
