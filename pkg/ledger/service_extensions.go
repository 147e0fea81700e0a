package ledger

import (
	"context"
	"fmt"
)

// Owner returns the administrative identity.
func (service *Service) Owner() Address {
	return service.owner
}

// BindOwner persists the owner on first start and refuses to run against a ledger owned by someone else.
func (service *Service) BindOwner(ctx context.Context) error {
	stored, err := service.store.EnsureOwner(ctx, service.owner)
	if err == nil && stored != service.owner {
		err = fmt.Errorf("%w: ledger is owned by %s", ErrOwnerMismatch, stored.String())
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationBindOwner,
		Caller:    service.owner,
		Error:     err,
	})
	return err
}

// ReadCampaign returns the stored campaign. Reads have no side effects.
func (service *Service) ReadCampaign(ctx context.Context, campaignID CampaignID) (Campaign, error) {
	return service.store.GetCampaign(ctx, campaignID)
}

// CampaignCount returns the number of campaigns ever created, which is also the next id.
func (service *Service) CampaignCount(ctx context.Context) (int64, error) {
	return service.store.CountCampaigns(ctx)
}

// EscrowBalance returns the custodial balance held for all campaigns.
func (service *Service) EscrowBalance(ctx context.Context) (Amount, error) {
	return service.store.EscrowBalance(ctx)
}

// ListEvents returns the journal of an existing campaign in append order.
func (service *Service) ListEvents(ctx context.Context, campaignID CampaignID) ([]Event, error) {
	if _, err := service.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return service.store.ListEvents(ctx, campaignID)
}
