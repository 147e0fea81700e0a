package ledger

import (
	"context"
	"fmt"
)

// Service contains the settlement rules over a Store.
type Service struct {
	store      Store
	transferer Transferer
	owner      Address
	nowFn      func() int64
	logger     OperationLogger
	sinks      []EventSink
	strict     bool
}

// NewService wires a Service. The owner is fixed for the lifetime of the ledger.
func NewService(store Store, transferer Transferer, owner Address, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if transferer == nil {
		return nil, fmt.Errorf("%w: transferer dependency is nil", ErrInvalidServiceConfig)
	}
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, transferer: transferer, owner: owner, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// AddCampaign registers a campaign with zeroed counters. Only the owner may add campaigns.
func (service *Service) AddCampaign(ctx context.Context, caller Address, draft CampaignDraft) (Campaign, error) {
	var (
		created Campaign
		events  []Event
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		events = nil
		if err := service.authorize(caller); err != nil {
			return err
		}
		if err := draft.Validate(); err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		campaign, err := transactionStore.CreateCampaign(ctx, draft, nowUnixUTC)
		if err != nil {
			return err
		}
		snapshot := campaign
		event, err := transactionStore.AppendEvent(ctx, Event{
			Type:            EventCampaignAdded,
			CampaignID:      campaign.ID(),
			Actor:           caller,
			Units:           campaign.TotalUnitsAvailable(),
			Amount:          campaign.UnitPrice(),
			Campaign:        &snapshot,
			OccurredUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		created = campaign
		events = append(events, event)
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationAddCampaign,
		Caller:     caller,
		CampaignID: created.ID(),
		Units:      draft.TotalUnitsAvailable,
		Amount:     draft.UnitPrice,
		Error:      operationError,
	})
	if operationError != nil {
		return Campaign{}, operationError
	}
	service.publish(ctx, events)
	return created, nil
}

// Donate records units bought by caller and holds the paid value in escrow.
func (service *Service) Donate(ctx context.Context, caller Address, campaignID CampaignID, units Units, amountPaid Amount) (Campaign, error) {
	var (
		updated Campaign
		events  []Event
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		events = nil
		if caller.IsZero() {
			return fmt.Errorf("%w: donator is required", ErrInvalidAddress)
		}
		campaign, err := transactionStore.UpdateCampaign(ctx, campaignID, func(current Campaign) (CampaignState, error) {
			return service.applyDonation(current, units, amountPaid)
		})
		if err != nil {
			return err
		}
		if _, err := transactionStore.CreditEscrow(ctx, amountPaid); err != nil {
			return err
		}
		event, err := transactionStore.AppendEvent(ctx, Event{
			Type:            EventDonationRecorded,
			CampaignID:      campaignID,
			Actor:           caller,
			Units:           units,
			Amount:          amountPaid,
			OccurredUnixUTC: service.nowFn(),
		})
		if err != nil {
			return err
		}
		updated = campaign
		events = append(events, event)
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationDonate,
		Caller:     caller,
		CampaignID: campaignID,
		Units:      units,
		Amount:     amountPaid,
		Error:      operationError,
	})
	if operationError != nil {
		return Campaign{}, operationError
	}
	service.publish(ctx, events)
	return updated, nil
}

// Consume marks sold units as eligible for settlement. Only the owner may consume.
func (service *Service) Consume(ctx context.Context, caller Address, campaignID CampaignID, units Units) (Campaign, error) {
	var (
		updated Campaign
		events  []Event
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		events = nil
		if err := service.authorize(caller); err != nil {
			return err
		}
		campaign, err := transactionStore.UpdateCampaign(ctx, campaignID, func(current Campaign) (CampaignState, error) {
			return service.applyConsumption(current, units)
		})
		if err != nil {
			return err
		}
		event, err := transactionStore.AppendEvent(ctx, Event{
			Type:            EventDonationConsumed,
			CampaignID:      campaignID,
			Actor:           caller,
			Units:           units,
			OccurredUnixUTC: service.nowFn(),
		})
		if err != nil {
			return err
		}
		updated = campaign
		events = append(events, event)
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationConsume,
		Caller:     caller,
		CampaignID: campaignID,
		Units:      units,
		Error:      operationError,
	})
	if operationError != nil {
		return Campaign{}, operationError
	}
	service.publish(ctx, events)
	return updated, nil
}

// Close settles unitsConsumed*unitPrice to the service provider and closes the campaign.
// The transfer runs while the campaign row is locked and before the closed flag is written;
// a failed transfer aborts the whole close.
// The transaction ignores caller cancellation: once value has left escrow the local state must commit.
// Transferers bound their own calls.
func (service *Service) Close(ctx context.Context, caller Address, campaignID CampaignID) (Settlement, error) {
	var (
		settlement Settlement
		events     []Event
	)
	operationError := service.store.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, transactionStore Store) error {
		events = nil
		if err := service.authorize(caller); err != nil {
			return err
		}
		_, err := transactionStore.UpdateCampaign(ctx, campaignID, func(current Campaign) (CampaignState, error) {
			if !current.IsOpen() {
				return CampaignState{}, ErrCampaignClosed
			}
			amount, err := current.UnitPrice().MulUnits(current.UnitsConsumed())
			if err != nil {
				return CampaignState{}, err
			}
			reference, err := service.settle(ctx, transactionStore, current, amount)
			if err != nil {
				return CampaignState{}, err
			}
			settlement = Settlement{
				CampaignID:        current.ID(),
				ServiceProvider:   current.ServiceProvider(),
				Amount:            amount,
				TransferReference: reference,
			}
			state := current.State()
			state.IsOpen = false
			return state, nil
		})
		if err != nil {
			return err
		}
		event, err := transactionStore.AppendEvent(ctx, Event{
			Type:              EventCampaignClosed,
			CampaignID:        campaignID,
			Actor:             caller,
			Amount:            settlement.Amount,
			TransferReference: settlement.TransferReference,
			OccurredUnixUTC:   service.nowFn(),
		})
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationClose,
		Caller:     caller,
		CampaignID: campaignID,
		Amount:     settlement.Amount,
		Error:      operationError,
	})
	if operationError != nil {
		return Settlement{}, operationError
	}
	service.publish(ctx, events)
	return settlement, nil
}

func (service *Service) applyDonation(current Campaign, units Units, amountPaid Amount) (CampaignState, error) {
	if !current.IsOpen() {
		return CampaignState{}, ErrCampaignClosed
	}
	if amountPaid.IsZero() {
		return CampaignState{}, ErrInsufficientPayment
	}
	unitsSold, err := current.UnitsSold().Add(units)
	if err != nil {
		return CampaignState{}, err
	}
	if service.strict {
		if unitsSold > current.TotalUnitsAvailable() {
			return CampaignState{}, fmt.Errorf("%w: %d of %d units", ErrCapacityExceeded, unitsSold, current.TotalUnitsAvailable())
		}
		required, err := current.UnitPrice().MulUnits(units)
		if err != nil {
			return CampaignState{}, err
		}
		if amountPaid < required {
			return CampaignState{}, fmt.Errorf("%w: paid %d, required %d", ErrInsufficientPayment, amountPaid, required)
		}
	}
	state := current.State()
	state.UnitsSold = unitsSold
	return state, nil
}

func (service *Service) applyConsumption(current Campaign, units Units) (CampaignState, error) {
	if !current.IsOpen() {
		return CampaignState{}, ErrCampaignClosed
	}
	unitsConsumed, err := current.UnitsConsumed().Add(units)
	if err != nil {
		return CampaignState{}, err
	}
	if service.strict && unitsConsumed > current.UnitsSold() {
		return CampaignState{}, fmt.Errorf("%w: %d of %d units", ErrConsumptionExceedsSales, unitsConsumed, current.UnitsSold())
	}
	state := current.State()
	state.UnitsConsumed = unitsConsumed
	return state, nil
}

// settle debits escrow, transfers to the service provider and records the payout.
// Zero settlements skip the transfer.
func (service *Service) settle(ctx context.Context, transactionStore Store, campaign Campaign, amount Amount) (string, error) {
	if amount.IsZero() {
		return "", nil
	}
	if _, err := transactionStore.DebitEscrow(ctx, amount); err != nil {
		return "", err
	}
	receipt, err := service.transferer.Transfer(ctx, TransferRequest{
		CampaignID:     campaign.ID(),
		Recipient:      campaign.ServiceProvider(),
		Amount:         amount,
		IdempotencyKey: CloseIdempotencyKey(campaign.ID()),
	})
	if err != nil {
		return "", WrapError(errorOperationService, errorSubjectTransfer, errorCodeFailed, fmt.Errorf("%w: %w", ErrTransferFailed, err))
	}
	payout := Payout{
		CampaignID:     campaign.ID(),
		Recipient:      campaign.ServiceProvider(),
		Amount:         amount,
		Reference:      receipt.Reference,
		CreatedUnixUTC: service.nowFn(),
	}
	if err := transactionStore.RecordPayout(ctx, payout); err != nil {
		return "", err
	}
	return receipt.Reference, nil
}

// CloseIdempotencyKey identifies the single settlement of a campaign.
func CloseIdempotencyKey(campaignID CampaignID) string {
	return fmt.Sprintf("%s%d%s", closeIdempotencyKeyPrefix, campaignID, closeIdempotencyKeySuffix)
}

func (service *Service) authorize(caller Address) error {
	if caller.IsZero() || caller != service.owner {
		return ErrUnauthorized
	}
	return nil
}

func (service *Service) publish(ctx context.Context, events []Event) {
	for _, event := range events {
		for _, sink := range service.sinks {
			sink.Publish(ctx, event)
		}
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
