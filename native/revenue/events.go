package revenue

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

const (
	// EventTypeDistributed is emitted when revenue is split into pending balances.
	EventTypeDistributed = "revenue.distributed"
	// EventTypeWithdrawn is emitted when a pending balance is paid out.
	EventTypeWithdrawn = "revenue.withdrawn"
	// EventTypeSharesUpdated is emitted when the admin reconfigures the split.
	EventTypeSharesUpdated = "revenue.shares.updated"
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

// DistributedEvent returns the structured payload for a completed split.
func DistributedEvent(creator string, creatorAmount, platformAmount, treasuryAmount, total string) *types.Event {
	return &types.Event{
		Type: EventTypeDistributed,
		Attributes: map[string]string{
			"creator":        creator,
			"creatorAmount":  creatorAmount,
			"platformAmount": platformAmount,
			"treasuryAmount": treasuryAmount,
			"totalAmount":    total,
		},
	}
}

// WithdrawnEvent returns the structured payload for a completed payout.
func WithdrawnEvent(identity string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"identity": identity,
			"amount":   amount,
		},
	}
}

// SharesUpdatedEvent returns the structured payload for a reconfigured split.
func SharesUpdatedEvent(creatorBps, platformBps, treasuryBps string) *types.Event {
	return &types.Event{
		Type: EventTypeSharesUpdated,
		Attributes: map[string]string{
			"creatorShare":  creatorBps,
			"platformShare": platformBps,
			"treasuryShare": treasuryBps,
		},
	}
}
