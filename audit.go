package authcore

import (
	"io"

	"github.com/claimpoint/authcore/internal/audit"
)

// AuditEvent is the event model delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be fast or
// internally buffered; the dispatcher's worker is shared by all event types.
type AuditSink = audit.Sink

// NoOpAuditSink drops audit events.
type NoOpAuditSink = audit.NoOpSink

// NewChannelAuditSink returns a sink backed by a buffered channel, useful in
// tests and for custom fan-out.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink that writes one JSON object per line.
func NewJSONWriterAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
