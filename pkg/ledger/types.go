package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// CampaignID identifies a campaign. Ids are dense and start at zero.
type CampaignID int64

// Units counts donation increments.
type Units int64

// Amount is a non-negative value in the smallest currency unit.
type Amount int64

// BlockHeight is the informational closing boundary of a campaign.
type BlockHeight int64

// Address identifies an account (owner, donor, patron or service provider).
type Address struct {
	value string
}

// NewCampaignID validates a campaign id.
func NewCampaignID(raw int64) (CampaignID, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidCampaignID)
	}
	return CampaignID(raw), nil
}

// Int64 exposes the raw id.
func (id CampaignID) Int64() int64 {
	return int64(id)
}

// NewUnits validates a unit count.
func NewUnits(raw int64) (Units, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidUnits)
	}
	return Units(raw), nil
}

// Int64 exposes the raw count.
func (units Units) Int64() int64 {
	return int64(units)
}

// Add returns units+other, failing on overflow.
func (units Units) Add(other Units) (Units, error) {
	if units < 0 || other < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidUnits)
	}
	if other > math.MaxInt64-units {
		return 0, WrapError(errorOperationService, errorSubjectUnits, errorCodeOverflow, ErrAmountOverflow)
	}
	return units + other, nil
}

// NewAmount validates an amount.
func NewAmount(raw int64) (Amount, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return Amount(raw), nil
}

// Int64 exposes the raw amount.
func (amount Amount) Int64() int64 {
	return int64(amount)
}

// IsZero reports whether the amount is zero.
func (amount Amount) IsZero() bool {
	return amount == 0
}

// Add returns amount+other, failing on overflow.
func (amount Amount) Add(other Amount) (Amount, error) {
	if amount < 0 || other < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	if other > math.MaxInt64-amount {
		return 0, WrapError(errorOperationService, errorSubjectAmount, errorCodeOverflow, ErrAmountOverflow)
	}
	return amount + other, nil
}

// Sub returns amount-other, failing when the result would be negative.
func (amount Amount) Sub(other Amount) (Amount, error) {
	if other < 0 || other > amount {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidAmount, other, amount)
	}
	return amount - other, nil
}

// MulUnits returns amount*units, failing on overflow.
func (amount Amount) MulUnits(units Units) (Amount, error) {
	if amount < 0 || units < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	if amount == 0 || units == 0 {
		return 0, nil
	}
	if int64(amount) > math.MaxInt64/int64(units) {
		return 0, WrapError(errorOperationService, errorSubjectAmount, errorCodeOverflow, ErrAmountOverflow)
	}
	return Amount(int64(amount) * int64(units)), nil
}

// NewBlockHeight validates a closing block.
func NewBlockHeight(raw int64) (BlockHeight, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidBlockHeight)
	}
	return BlockHeight(raw), nil
}

// Int64 exposes the raw height.
func (height BlockHeight) Int64() int64 {
	return int64(height)
}

// NewAddress validates and normalizes an account address.
// Hex addresses ("0x...") are lower-cased so comparisons ignore checksum casing.
func NewAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Address{}, fmt.Errorf("%w: empty value", ErrInvalidAddress)
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return Address{}, fmt.Errorf("%w: contains whitespace", ErrInvalidAddress)
	}
	if isHexAddress(trimmed) {
		trimmed = strings.ToLower(trimmed)
	}
	return Address{value: trimmed}, nil
}

// String returns the normalized address.
func (address Address) String() string {
	return address.value
}

// IsZero reports whether the address is unset.
func (address Address) IsZero() bool {
	return address.value == ""
}

func isHexAddress(raw string) bool {
	if len(raw) <= len(hexAddressPrefix) || !strings.EqualFold(raw[:len(hexAddressPrefix)], hexAddressPrefix) {
		return false
	}
	for _, character := range raw[len(hexAddressPrefix):] {
		isDigit := character >= '0' && character <= '9'
		isLower := character >= 'a' && character <= 'f'
		isUpper := character >= 'A' && character <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// CampaignDraft holds the fields fixed at creation.
type CampaignDraft struct {
	Description         string
	Patron              Address
	TotalUnitsAvailable Units
	UnitPrice           Amount
	ServiceProvider     Address
	ClosingBlock        BlockHeight
}

// NewCampaignDraft assembles a draft. Zero price, zero capacity and past closing blocks are accepted.
func NewCampaignDraft(description string, patron Address, totalUnitsAvailable Units, unitPrice Amount, serviceProvider Address, closingBlock BlockHeight) (CampaignDraft, error) {
	draft := CampaignDraft{
		Description:         description,
		Patron:              patron,
		TotalUnitsAvailable: totalUnitsAvailable,
		UnitPrice:           unitPrice,
		ServiceProvider:     serviceProvider,
		ClosingBlock:        closingBlock,
	}
	if err := draft.Validate(); err != nil {
		return CampaignDraft{}, err
	}
	return draft, nil
}

// Validate checks field types only.
func (draft CampaignDraft) Validate() error {
	if draft.Patron.IsZero() {
		return fmt.Errorf("%w: patron is required", ErrInvalidAddress)
	}
	if draft.ServiceProvider.IsZero() {
		return fmt.Errorf("%w: service provider is required", ErrInvalidAddress)
	}
	if draft.TotalUnitsAvailable < 0 {
		return fmt.Errorf("%w: total units available", ErrInvalidUnits)
	}
	if draft.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price", ErrInvalidAmount)
	}
	if draft.ClosingBlock < 0 {
		return ErrInvalidBlockHeight
	}
	return nil
}

// CampaignState holds the mutable counters of a campaign.
type CampaignState struct {
	UnitsSold     Units
	UnitsConsumed Units
	IsOpen        bool
}

// OpenCampaignState is the state of a freshly created campaign.
func OpenCampaignState() CampaignState {
	return CampaignState{IsOpen: true}
}

// Validate checks counter signs. Capacity and sales bounds are advisory and not checked here.
func (state CampaignState) Validate() error {
	if state.UnitsSold < 0 {
		return fmt.Errorf("%w: units sold", ErrInvalidUnits)
	}
	if state.UnitsConsumed < 0 {
		return fmt.Errorf("%w: units consumed", ErrInvalidUnits)
	}
	return nil
}

// Campaign is a stored campaign record.
type Campaign struct {
	id             CampaignID
	draft          CampaignDraft
	state          CampaignState
	createdUnixUTC int64
}

// NewCampaign validates and assembles a stored campaign.
func NewCampaign(id CampaignID, draft CampaignDraft, state CampaignState, createdUnixUTC int64) (Campaign, error) {
	if id < 0 {
		return Campaign{}, ErrInvalidCampaignID
	}
	if err := draft.Validate(); err != nil {
		return Campaign{}, err
	}
	if err := state.Validate(); err != nil {
		return Campaign{}, err
	}
	return Campaign{id: id, draft: draft, state: state, createdUnixUTC: createdUnixUTC}, nil
}

// WithState returns a copy carrying the supplied counters.
func (campaign Campaign) WithState(state CampaignState) (Campaign, error) {
	if err := state.Validate(); err != nil {
		return Campaign{}, err
	}
	campaign.state = state
	return campaign, nil
}

// ID returns the sequential campaign identifier.
func (campaign Campaign) ID() CampaignID {
	return campaign.id
}

// Draft returns the immutable creation fields.
func (campaign Campaign) Draft() CampaignDraft {
	return campaign.draft
}

// State returns the mutable counters and open flag.
func (campaign Campaign) State() CampaignState {
	return campaign.state
}

// Description returns the free-form campaign text.
func (campaign Campaign) Description() string {
	return campaign.draft.Description
}

// Patron returns the address recorded as campaign patron.
func (campaign Campaign) Patron() Address {
	return campaign.draft.Patron
}

// TotalUnitsAvailable returns the unit capacity.
func (campaign Campaign) TotalUnitsAvailable() Units {
	return campaign.draft.TotalUnitsAvailable
}

// UnitPrice returns the price of one unit in the smallest currency unit.
func (campaign Campaign) UnitPrice() Amount {
	return campaign.draft.UnitPrice
}

// ServiceProvider returns the settlement recipient.
func (campaign Campaign) ServiceProvider() Address {
	return campaign.draft.ServiceProvider
}

// ClosingBlock returns the informational closing block height.
func (campaign Campaign) ClosingBlock() BlockHeight {
	return campaign.draft.ClosingBlock
}

// UnitsSold returns the units donated so far.
func (campaign Campaign) UnitsSold() Units {
	return campaign.state.UnitsSold
}

// UnitsConsumed returns the units delivered so far.
func (campaign Campaign) UnitsConsumed() Units {
	return campaign.state.UnitsConsumed
}

// IsOpen reports whether the campaign still accepts operations.
func (campaign Campaign) IsOpen() bool {
	return campaign.state.IsOpen
}

// CreatedUnixUTC returns the creation time in Unix seconds.
func (campaign Campaign) CreatedUnixUTC() int64 {
	return campaign.createdUnixUTC
}

// CampaignMutator derives the next counters from the locked current record.
type CampaignMutator func(current Campaign) (CampaignState, error)

// Payout records a settlement sent to a service provider.
type Payout struct {
	CampaignID     CampaignID
	Recipient      Address
	Amount         Amount
	Reference      string
	CreatedUnixUTC int64
}

// TransferRequest asks the payment collaborator to move escrowed value.
// IdempotencyKey is stable per campaign so a retried settlement can be deduplicated downstream.
type TransferRequest struct {
	CampaignID     CampaignID
	Recipient      Address
	Amount         Amount
	IdempotencyKey string
}

// TransferReceipt acknowledges a completed transfer.
type TransferReceipt struct {
	Reference string
}

// Transferer moves settled value out of the custodial escrow.
type Transferer interface {
	Transfer(ctx context.Context, request TransferRequest) (TransferReceipt, error)
}

// Settlement describes a completed close.
type Settlement struct {
	CampaignID        CampaignID
	ServiceProvider   Address
	Amount            Amount
	TransferReference string
}

// Store is the persistence contract used by Service.
// gormstore and pgstore implement it; every mutation runs inside WithTx.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	EnsureOwner(ctx context.Context, owner Address) (Address, error)
	CreateCampaign(ctx context.Context, draft CampaignDraft, createdUnixUTC int64) (Campaign, error)
	GetCampaign(ctx context.Context, id CampaignID) (Campaign, error)
	UpdateCampaign(ctx context.Context, id CampaignID, mutate CampaignMutator) (Campaign, error)
	CountCampaigns(ctx context.Context) (int64, error)
	CreditEscrow(ctx context.Context, amount Amount) (Amount, error)
	DebitEscrow(ctx context.Context, amount Amount) (Amount, error)
	EscrowBalance(ctx context.Context) (Amount, error)
	RecordPayout(ctx context.Context, payout Payout) error
	AppendEvent(ctx context.Context, event Event) (Event, error)
	ListEvents(ctx context.Context, id CampaignID) ([]Event, error)
}
