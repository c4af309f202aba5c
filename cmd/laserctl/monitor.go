package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/optodyne/go-laser/laser"
	"github.com/optodyne/go-laser/logger"
	"github.com/optodyne/go-laser/status"
)

var (
	flagInterval time.Duration
	flagTopic    string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll telemetry on an interval, printing and optionally publishing it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := laser.LoadConfig(flagConfig)
		if err != nil {
			if !flagSimulate {
				return err
			}
			cfg = &laser.Config{}
		}

		var sink status.Sink = status.NopSink{}
		if cfg.MQTT != nil {
			mqttSink, err := status.NewMQTTSink(*cfg.MQTT, logger.GetLogger())
			if err != nil {
				return err
			}
			sink = mqttSink
		}
		defer sink.Close()

		return withLaser(cmd, func(lsr *laser.Laser) error {
			ctx := cmd.Context()

			ticker := time.NewTicker(flagInterval)
			defer ticker.Stop()

			for {
				telemetry, err := lsr.ReadTelemetry(ctx)
				if err != nil {
					logger.Error("telemetry sweep failed", "error", err)
				} else {
					payload, err := json.Marshal(telemetry)
					if err != nil {
						return err
					}

					fmt.Println(string(payload))

					if err := sink.Publish(ctx, flagTopic, payload); err != nil {
						logger.Warn("telemetry publish failed", "error", err)
					}
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		})
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&flagInterval, "interval", 5*time.Second, "polling interval")
	monitorCmd.Flags().StringVar(&flagTopic, "topic", "laser/telemetry", "publish topic")
	rootCmd.AddCommand(monitorCmd)
}
