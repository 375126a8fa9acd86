package authz

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

const (
	// EventTypeGranted is emitted when an identity is added to an allowlist.
	EventTypeGranted = "authz.granted"
	// EventTypeRevoked is emitted when an identity is removed from an allowlist.
	EventTypeRevoked = "authz.revoked"
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

// GrantedEvent captures an identity joining a resource allowlist.
func GrantedEvent(resource string, identity string) *types.Event {
	return &types.Event{
		Type: EventTypeGranted,
		Attributes: map[string]string{
			"resource": resource,
			"identity": identity,
		},
	}
}

// RevokedEvent captures an identity leaving a resource allowlist.
func RevokedEvent(resource string, identity string) *types.Event {
	return &types.Event{
		Type: EventTypeRevoked,
		Attributes: map[string]string{
			"resource": resource,
			"identity": identity,
		},
	}
}
