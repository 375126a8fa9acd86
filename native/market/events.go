package market

import (
	"promptledger/core/events"
	"promptledger/core/types"
)

const (
	// EventTypeListingCreated is emitted when a seller lists a prompt.
	EventTypeListingCreated = "market.listing.created"
	// EventTypeListingCancelled is emitted when a seller deactivates a listing.
	EventTypeListingCancelled = "market.listing.cancelled"
	// EventTypePurchaseMade is emitted when a buyer acquires timed access.
	EventTypePurchaseMade = "market.purchase.made"
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

// ListingCreatedEvent returns the structured payload for a new listing.
func ListingCreatedEvent(listingID, promptID, seller, price, duration string) *types.Event {
	return &types.Event{
		Type: EventTypeListingCreated,
		Attributes: map[string]string{
			"listingId": listingID,
			"promptId":  promptID,
			"seller":    seller,
			"price":     price,
			"duration":  duration,
		},
	}
}

// ListingCancelledEvent returns the structured payload for a deactivation.
func ListingCancelledEvent(listingID string) *types.Event {
	return &types.Event{
		Type: EventTypeListingCancelled,
		Attributes: map[string]string{
			"listingId": listingID,
		},
	}
}

// PurchaseMadeEvent returns the structured payload for a completed purchase.
func PurchaseMadeEvent(listingID, buyer, pricePaid string) *types.Event {
	return &types.Event{
		Type: EventTypePurchaseMade,
		Attributes: map[string]string{
			"listingId": listingID,
			"buyer":     buyer,
			"pricePaid": pricePaid,
		},
	}
}
