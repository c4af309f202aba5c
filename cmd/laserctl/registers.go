package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <Module/ID/Register>",
	Short: "Read one register",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lsr, err := newLaser()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if err := lsr.Connect(ctx); err != nil {
			return err
		}
		defer lsr.Disconnect() //nolint:errcheck

		reg, ok := lsr.RegisterByName(args[0])
		if !ok {
			return fmt.Errorf("unknown register %q", args[0])
		}

		value, err := reg.ReadValue(ctx)
		if err != nil {
			return err
		}

		fmt.Println(value)

		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <Module/ID/Register> <value>",
	Short: "Write one register, with a verifying read-back",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lsr, err := newLaser()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if err := lsr.Connect(ctx); err != nil {
			return err
		}
		defer lsr.Disconnect() //nolint:errcheck

		reg, ok := lsr.RegisterByName(args[0])
		if !ok {
			return fmt.Errorf("unknown register %q", args[0])
		}

		if err := reg.SetValue(ctx, args[1]); err != nil {
			return err
		}

		if value, ok := reg.Value(); ok {
			fmt.Println(value)
		}

		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every register in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		lsr, err := newLaser()
		if err != nil {
			return err
		}

		names := lsr.RegisterNames()
		sort.Strings(names)

		for _, name := range names {
			fmt.Println(name)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd, writeCmd, listCmd)
}
