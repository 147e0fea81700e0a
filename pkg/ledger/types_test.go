package ledger

import (
	"errors"
	"math"
	"testing"
)

func TestNewAddressNormalization(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "checksummed hex", raw: "0x627306090abaB3A6e1400e9345bC60c78a8BEf57", want: "0x627306090abab3a6e1400e9345bc60c78a8bef57"},
		{name: "upper prefix", raw: "0XABCDEF", want: "0xabcdef"},
		{name: "surrounding space", raw: "  donor-1 ", want: "donor-1"},
		{name: "opaque keeps case", raw: "Donor-1", want: "Donor-1"},
		{name: "empty", raw: "   ", wantErr: ErrInvalidAddress},
		{name: "inner whitespace", raw: "0xab cd", wantErr: ErrInvalidAddress},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			address, err := NewAddress(testCase.raw)
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				test.Fatalf("address: %v", err)
			}
			if address.String() != testCase.want {
				test.Fatalf("expected %q, got %q", testCase.want, address.String())
			}
		})
	}
}

func TestScalarConstructorsRejectNegatives(test *testing.T) {
	test.Parallel()
	if _, err := NewCampaignID(-1); !errors.Is(err, ErrInvalidCampaignID) {
		test.Fatalf(errorMismatchMessage, ErrInvalidCampaignID, err)
	}
	if _, err := NewUnits(-1); !errors.Is(err, ErrInvalidUnits) {
		test.Fatalf(errorMismatchMessage, ErrInvalidUnits, err)
	}
	if _, err := NewAmount(-1); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAmount, err)
	}
	if _, err := NewBlockHeight(-1); !errors.Is(err, ErrInvalidBlockHeight) {
		test.Fatalf(errorMismatchMessage, ErrInvalidBlockHeight, err)
	}
	if id, err := NewCampaignID(0); err != nil || id.Int64() != 0 {
		test.Fatalf("expected id 0, got %d (%v)", id, err)
	}
}

func TestAmountArithmetic(test *testing.T) {
	test.Parallel()
	price := mustAmount(test, campaignUnitPrice)
	total, err := price.MulUnits(3)
	if err != nil {
		test.Fatalf("mul: %v", err)
	}
	if total.Int64() != 3*campaignUnitPrice {
		test.Fatalf("expected %d, got %d", 3*campaignUnitPrice, total)
	}
	if zero, err := price.MulUnits(0); err != nil || !zero.IsZero() {
		test.Fatalf("expected zero product, got %d (%v)", zero, err)
	}
	if _, err := Amount(math.MaxInt64).MulUnits(2); !errors.Is(err, ErrAmountOverflow) {
		test.Fatalf(errorMismatchMessage, ErrAmountOverflow, err)
	}
	if _, err := Amount(math.MaxInt64).Add(1); !errors.Is(err, ErrAmountOverflow) {
		test.Fatalf(errorMismatchMessage, ErrAmountOverflow, err)
	}
	if _, err := Units(math.MaxInt64).Add(1); !errors.Is(err, ErrAmountOverflow) {
		test.Fatalf(errorMismatchMessage, ErrAmountOverflow, err)
	}
	remaining, err := total.Sub(price)
	if err != nil || remaining.Int64() != 2*campaignUnitPrice {
		test.Fatalf("expected %d, got %d (%v)", 2*campaignUnitPrice, remaining, err)
	}
	if _, err := price.Sub(total); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAmount, err)
	}
}

func TestParseEventType(test *testing.T) {
	test.Parallel()
	for _, eventType := range []EventType{EventCampaignAdded, EventDonationRecorded, EventDonationConsumed, EventCampaignClosed} {
		parsed, err := ParseEventType(eventType.String())
		if err != nil || parsed != eventType {
			test.Fatalf("expected %q, got %q (%v)", eventType, parsed, err)
		}
	}
	if _, err := ParseEventType("refund"); !errors.Is(err, ErrInvalidEventType) {
		test.Fatalf(errorMismatchMessage, ErrInvalidEventType, err)
	}
}
