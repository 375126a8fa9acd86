package usage

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

// EventTypeRecorded is emitted for every appended usage record.
const EventTypeRecorded = "usage.recorded"

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// RecordedEvent returns the structured payload for an appended record.
func RecordedEvent(promptID string, caller string, fee string, timestamp string, sessionID string) *types.Event {
	return &types.Event{
		Type: EventTypeRecorded,
		Attributes: map[string]string{
			"promptId":  promptID,
			"caller":    caller,
			"fee":       fee,
			"timestamp": timestamp,
			"sessionId": sessionID,
		},
	}
}
