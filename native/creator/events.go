package creator

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

const (
	// EventTypeRegistered is emitted when a new creator registers.
	EventTypeRegistered = "creator.registered"
	// EventTypeProfileUpdated is emitted when a creator replaces their profile URI.
	EventTypeProfileUpdated = "creator.profile.updated"
	// EventTypeReputationUpdated is emitted when an authorized updater rescores a creator.
	EventTypeReputationUpdated = "creator.reputation.updated"
	// EventTypeVerified is emitted when the registry admin verifies a creator.
	EventTypeVerified = "creator.verified"
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

// RegisteredEvent returns the structured payload for a completed registration.
func RegisteredEvent(identity string, username string, timestamp int64) *types.Event {
	return &types.Event{
		Type: EventTypeRegistered,
		Attributes: map[string]string{
			"identity":  identity,
			"username":  username,
			"timestamp": formatInt(timestamp),
		},
	}
}

// ProfileUpdatedEvent returns the payload for a profile URI replacement.
func ProfileUpdatedEvent(identity string, profileURI string) *types.Event {
	return &types.Event{
		Type: EventTypeProfileUpdated,
		Attributes: map[string]string{
			"identity":   identity,
			"profileUri": profileURI,
		},
	}
}

// ReputationUpdatedEvent returns the payload for a reputation rescore.
func ReputationUpdatedEvent(identity string, score uint64) *types.Event {
	return &types.Event{
		Type: EventTypeReputationUpdated,
		Attributes: map[string]string{
			"identity": identity,
			"score":    formatUint(score),
		},
	}
}

// VerifiedEvent returns the payload for an admin verification.
func VerifiedEvent(identity string) *types.Event {
	return &types.Event{
		Type: EventTypeVerified,
		Attributes: map[string]string{
			"identity": identity,
		},
	}
}
