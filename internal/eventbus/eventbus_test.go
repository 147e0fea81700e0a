package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (publisher *recordingPublisher) Publish(subject string, data []byte) error {
	publisher.subjects = append(publisher.subjects, subject)
	publisher.payloads = append(publisher.payloads, data)
	return publisher.err
}

func TestSinkPublishesOnTypedSubject(test *testing.T) {
	test.Parallel()
	publisher := &recordingPublisher{}
	sink := NewSink(publisher, "", nil)
	campaign := newCampaign(test)

	sink.Publish(context.Background(), ledger.Event{Sequence: 4, EventID: "evt-1", Type: ledger.EventCampaignAdded, CampaignID: campaign.ID(), Campaign: &campaign, OccurredUnixUTC: 5})

	require.Equal(test, []string{"campaigns.campaign_added"}, publisher.subjects)
	var message Message
	require.NoError(test, json.Unmarshal(publisher.payloads[0], &message))
	require.Equal(test, "evt-1", message.EventID)
	require.EqualValues(test, 4, message.Sequence)
	require.NotNil(test, message.Campaign)
	require.Equal(test, campaign.UnitPrice().Int64(), message.Campaign.UnitPrice)
	require.Equal(test, campaign.ServiceProvider().String(), message.Campaign.ServiceProvider)
}

func TestSinkLogsPublishFailures(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zap.WarnLevel)
	publisher := &recordingPublisher{err: errors.New("connection closed")}
	sink := NewSink(publisher, "ledger", zap.New(core))

	sink.Publish(context.Background(), ledger.Event{EventID: "evt-2", Type: ledger.EventDonationRecorded, Units: 1, Amount: 7})

	require.Equal(test, []string{"ledger.donation_recorded"}, publisher.subjects)
	entries := logs.All()
	require.Len(test, entries, 1)
	require.Equal(test, "ledger.donation_recorded", entries[0].ContextMap()["subject"])
}

func newCampaign(test *testing.T) ledger.Campaign {
	test.Helper()
	patron, err := ledger.NewAddress("0x821aEa9a577a9b44299B9c15c88cf3087F3b5544")
	require.NoError(test, err)
	provider, err := ledger.NewAddress("0xC5fdf4076b8F3A5357c5E395ab970B5B54098Fef")
	require.NoError(test, err)
	draft, err := ledger.NewCampaignDraft("charity", patron, 40, 100, provider, 10)
	require.NoError(test, err)
	campaign, err := ledger.NewCampaign(0, draft, ledger.OpenCampaignState(), 5)
	require.NoError(test, err)
	return campaign
}
