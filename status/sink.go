// Package status provides the injected sink used by telemetry loops and
// peripheral monitors to report instrument status. The register core never
// touches a message bus; consumers receive a Sink by injection and remain
// testable against the mock.
package status

import "context"

// Sink publishes status payloads to an external channel.
type Sink interface {
	// Publish delivers payload on the given topic.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Close flushes and releases the sink. Safe to call more than once.
	Close()
}

// NopSink discards everything. Used when no bus is configured.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Publish(_ context.Context, _ string, _ []byte) error { return nil }

func (NopSink) Close() {}
