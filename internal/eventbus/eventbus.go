// Package eventbus publishes committed campaign events to NATS.
package eventbus

import (
	"context"
	"encoding/json"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is prepended to the event type to form the subject.
const DefaultSubjectPrefix = "campaigns"

var _ ledger.EventSink = (*Sink)(nil)

// Publisher is the subset of *nats.Conn used by Sink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the published payload.
type Message struct {
	Sequence          int64           `json:"sequence"`
	EventID           string          `json:"event_id"`
	Type              string          `json:"type"`
	CampaignID        int64           `json:"campaign_id"`
	Actor             string          `json:"actor"`
	Units             int64           `json:"units"`
	Amount            int64           `json:"amount"`
	TransferReference string          `json:"transfer_reference,omitempty"`
	Campaign          *CampaignFields `json:"campaign,omitempty"`
	OccurredUnixUTC   int64           `json:"occurred_unix_utc"`
}

// CampaignFields carries the creation fields of campaign_added events.
type CampaignFields struct {
	Description         string `json:"description"`
	Patron              string `json:"patron"`
	TotalUnitsAvailable int64  `json:"total_units_available"`
	UnitPrice           int64  `json:"unit_price"`
	ServiceProvider     string `json:"service_provider"`
	ClosingBlock        int64  `json:"closing_block"`
}

// Sink publishes each event on "<prefix>.<event type>". Publish failures are logged and dropped.
type Sink struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// NewSink builds a Sink. An empty prefix uses DefaultSubjectPrefix.
func NewSink(publisher Publisher, prefix string, logger *zap.Logger) *Sink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (sink *Sink) Subject(eventType ledger.EventType) string {
	return sink.prefix + "." + eventType.String()
}

// Publish implements ledger.EventSink.
func (sink *Sink) Publish(_ context.Context, event ledger.Event) {
	payload, err := json.Marshal(NewMessage(event))
	if err != nil {
		sink.logger.Error("encode event", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}
	subject := sink.Subject(event.Type)
	if err := sink.publisher.Publish(subject, payload); err != nil {
		sink.logger.Warn("publish event", zap.String("subject", subject), zap.String("event_id", event.EventID), zap.Error(err))
	}
}

// NewMessage converts a ledger event to its wire form.
func NewMessage(event ledger.Event) Message {
	message := Message{
		Sequence:          event.Sequence,
		EventID:           event.EventID,
		Type:              event.Type.String(),
		CampaignID:        event.CampaignID.Int64(),
		Actor:             event.Actor.String(),
		Units:             event.Units.Int64(),
		Amount:            event.Amount.Int64(),
		TransferReference: event.TransferReference,
		OccurredUnixUTC:   event.OccurredUnixUTC,
	}
	if event.Campaign != nil {
		message.Campaign = &CampaignFields{
			Description:         event.Campaign.Description(),
			Patron:              event.Campaign.Patron().String(),
			TotalUnitsAvailable: event.Campaign.TotalUnitsAvailable().Int64(),
			UnitPrice:           event.Campaign.UnitPrice().Int64(),
			ServiceProvider:     event.Campaign.ServiceProvider().String(),
			ClosingBlock:        event.Campaign.ClosingBlock().Int64(),
		}
	}
	return message
}
