package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optodyne/go-laser/laser"
)

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Control beam propagation",
}

var propagateStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Power on the propagation bank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLaser(cmd, func(lsr *laser.Laser) error {
			return lsr.StartPropagating(cmd.Context())
		})
	},
}

var propagateStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Power off the propagation bank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLaser(cmd, func(lsr *laser.Laser) error {
			return lsr.StopPropagating(cmd.Context())
		})
	},
}

var wavelengthCmd = &cobra.Command{
	Use:   "wavelength [nm]",
	Short: "Read or set the wavelength setpoint",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLaser(cmd, func(lsr *laser.Laser) error {
			ctx := cmd.Context()

			if len(args) == 1 {
				nm, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid wavelength %q", args[0])
				}

				return lsr.SetWavelength(ctx, nm)
			}

			nm, err := lsr.Wavelength(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%gnm\n", nm)

			return nil
		})
	},
}

var burstCmd = &cobra.Command{
	Use:   "burst <length>",
	Short: "Select burst mode with the given burst length",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLaser(cmd, func(lsr *laser.Laser) error {
			length, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid burst length %q", args[0])
			}

			return lsr.SetBurstMode(cmd.Context(), length)
		})
	},
}

// withLaser runs fn against a connected driver, always disconnecting.
func withLaser(cmd *cobra.Command, fn func(*laser.Laser) error) error {
	lsr, err := newLaser()
	if err != nil {
		return err
	}

	if err := lsr.Connect(cmd.Context()); err != nil {
		return err
	}
	defer lsr.Disconnect() //nolint:errcheck

	return fn(lsr)
}

func init() {
	propagateCmd.AddCommand(propagateStartCmd, propagateStopCmd)
	rootCmd.AddCommand(propagateCmd, wavelengthCmd, burstCmd)
}
