package events

import "promptledger/core/types"

// Event is the envelope native modules hand to an emitter.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC pollers, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so event emission stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects emitted events in order. The node stages one Buffer per
// mutating call and only merges it into the canonical log when the call
// succeeds, keeping emission all-or-nothing alongside the state change.
type Buffer struct {
	entries []types.Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := carrier.Event(); payload != nil {
			b.entries = append(b.entries, payload.Clone())
			return
		}
	}
	b.entries = append(b.entries, types.Event{Type: evt.EventType(), Attributes: map[string]string{}})
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []types.Event {
	if b == nil {
		return nil
	}
	out := make([]types.Event, len(b.entries))
	for i := range b.entries {
		out[i] = b.entries[i].Clone()
	}
	return out
}
