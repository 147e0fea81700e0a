package ledger

import (
	"errors"
	"testing"
)

func TestNewCampaignDraftValidation(test *testing.T) {
	test.Parallel()
	patron := mustAddress(test, patronAddressValue)
	provider := mustAddress(test, providerAddressValue)

	testCases := []struct {
		name     string
		patron   Address
		provider Address
		units    Units
		price    Amount
		closing  BlockHeight
		wantErr  error
	}{
		{name: "missing patron", provider: provider, wantErr: ErrInvalidAddress},
		{name: "missing provider", patron: patron, wantErr: ErrInvalidAddress},
		{name: "negative units", patron: patron, provider: provider, units: -1, wantErr: ErrInvalidUnits},
		{name: "negative price", patron: patron, provider: provider, price: -1, wantErr: ErrInvalidAmount},
		{name: "negative closing block", patron: patron, provider: provider, closing: -1, wantErr: ErrInvalidBlockHeight},
		{name: "zero everything accepted", patron: patron, provider: provider},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			_, err := NewCampaignDraft(campaignDescription, testCase.patron, testCase.units, testCase.price, testCase.provider, testCase.closing)
			if testCase.wantErr == nil {
				if err != nil {
					test.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
		})
	}
}

func TestNewCampaignValidation(test *testing.T) {
	test.Parallel()
	draft := mustDraft(test)
	testCases := []struct {
		name    string
		id      CampaignID
		state   CampaignState
		wantErr error
	}{
		{name: "negative id", id: -1, state: OpenCampaignState(), wantErr: ErrInvalidCampaignID},
		{name: "negative sold", state: CampaignState{UnitsSold: -1}, wantErr: ErrInvalidUnits},
		{name: "negative consumed", state: CampaignState{UnitsConsumed: -1}, wantErr: ErrInvalidUnits},
		{name: "sold above capacity allowed", state: CampaignState{UnitsSold: 100, IsOpen: true}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			campaign, err := NewCampaign(testCase.id, draft, testCase.state, 10)
			if testCase.wantErr == nil {
				if err != nil {
					test.Fatalf("unexpected error: %v", err)
				}
				if campaign.State() != testCase.state || campaign.CreatedUnixUTC() != 10 {
					test.Fatalf("unexpected campaign: %+v", campaign)
				}
				return
			}
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
		})
	}
}

func TestCampaignWithStateKeepsDraft(test *testing.T) {
	test.Parallel()
	campaign, err := NewCampaign(4, mustDraft(test), OpenCampaignState(), 1)
	if err != nil {
		test.Fatalf("campaign: %v", err)
	}
	updated, err := campaign.WithState(CampaignState{UnitsSold: 2, UnitsConsumed: 1})
	if err != nil {
		test.Fatalf("with state: %v", err)
	}
	if updated.ID() != 4 || updated.Draft() != campaign.Draft() || updated.IsOpen() {
		test.Fatalf("unexpected campaign: %+v", updated)
	}
	if _, err := campaign.WithState(CampaignState{UnitsSold: -2}); !errors.Is(err, ErrInvalidUnits) {
		test.Fatalf(errorMismatchMessage, ErrInvalidUnits, err)
	}
}
