package prompt

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

const (
	// EventTypeMinted is emitted when a new prompt asset is registered.
	EventTypeMinted = "prompt.minted"
	// EventTypeUsed is emitted when a prompt invocation is counted.
	EventTypeUsed = "prompt.used"
)

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

// MintedEvent returns the structured payload for a freshly minted asset.
func MintedEvent(id string, creator string, contentHash string, modelType string, uri string) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"id":          id,
			"creator":     creator,
			"contentHash": contentHash,
			"modelType":   modelType,
			"uri":         uri,
		},
	}
}

// UsedEvent returns the structured payload for a counted invocation.
func UsedEvent(id string, caller string, timestamp string) *types.Event {
	return &types.Event{
		Type: EventTypeUsed,
		Attributes: map[string]string{
			"id":        id,
			"caller":    caller,
			"timestamp": timestamp,
		},
	}
}
