package ledger

import (
	"context"
	"fmt"
)

// EventType enumerates campaign notifications.
type EventType string

const (
	EventCampaignAdded    EventType = "campaign_added"
	EventDonationRecorded EventType = "donation_recorded"
	EventDonationConsumed EventType = "donation_consumed"
	EventCampaignClosed   EventType = "campaign_closed"
)

// ParseEventType validates a stored event type.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(raw) {
	case EventCampaignAdded, EventDonationRecorded, EventDonationConsumed, EventCampaignClosed:
		return EventType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, raw)
	}
}

// String returns the wire value.
func (eventType EventType) String() string {
	return string(eventType)
}

// Event is a notification emitted after a successful state transition.
// Campaign is set for campaign_added; Amount carries the paid value for
// donation_recorded and the settled value for campaign_closed.
// Sequence is assigned by the journal and orders events by append.
type Event struct {
	Sequence          int64
	EventID           string
	Type              EventType
	CampaignID        CampaignID
	Actor             Address
	Units             Units
	Amount            Amount
	Campaign          *Campaign
	TransferReference string
	OccurredUnixUTC   int64
}

// EventSink receives events synchronously, after the transaction that produced them commits.
type EventSink interface {
	Publish(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

// Publish calls the function.
func (sinkFunc EventSinkFunc) Publish(ctx context.Context, event Event) {
	sinkFunc(ctx, event)
}
