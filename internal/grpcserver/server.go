package grpcserver

import (
	"context"
	"errors"

	campaignv1 "github.com/MarkoPoloResearchLab/campaigns/api/campaign/v1"
	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	errorUnauthenticated         = "unauthenticated"
	errorUnauthorized            = "unauthorized"
	errorCampaignNotFound        = "campaign_not_found"
	errorCampaignClosed          = "campaign_closed"
	errorCapacityExceeded        = "capacity_exceeded"
	errorConsumptionExceedsSales = "consumption_exceeds_sales"
	errorRejected                = "rejected"
	errorInsufficientPayment     = "insufficient_payment"
	errorInsufficientEscrow      = "insufficient_escrow"
	errorTransferFailed          = "transfer_failed"
	errorInvalidCampaignID       = "invalid_campaign_id"
	errorInvalidUnits            = "invalid_units"
	errorInvalidAmount           = "invalid_amount"
	errorInvalidAddress          = "invalid_address"
	errorInvalidBlockHeight      = "invalid_block_height"
	errorAmountOverflow          = "amount_overflow"
	errorLedgerNotInitialized    = "ledger_not_initialized"
	errorInternal                = "internal"
)

// CampaignServiceServer exposes the campaign ledger over gRPC.
type CampaignServiceServer struct {
	campaignv1.UnimplementedCampaignServiceServer
	campaignService *ledger.Service
}

// NewCampaignServiceServer constructs a gRPC server for the ledger service.
func NewCampaignServiceServer(campaignService *ledger.Service) *CampaignServiceServer {
	return &CampaignServiceServer{campaignService: campaignService}
}

func (service *CampaignServiceServer) AddCampaign(ctx context.Context, request *campaignv1.AddCampaignRequest) (*campaignv1.CampaignResponse, error) {
	caller, authenticated := auth.CallerFromContext(ctx)
	patron, err := ledger.NewAddress(request.Patron)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	serviceProvider, err := ledger.NewAddress(request.ServiceProvider)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	totalUnits, err := ledger.NewUnits(request.TotalUnitsAvailable)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	unitPrice, err := ledger.NewAmount(request.UnitPrice)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	closingBlock, err := ledger.NewBlockHeight(request.ClosingBlock)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	draft, err := ledger.NewCampaignDraft(request.Description, patron, totalUnits, unitPrice, serviceProvider, closingBlock)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	campaign, operationError := service.campaignService.AddCampaign(ctx, caller, draft)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	return &campaignv1.CampaignResponse{Campaign: toProtoCampaign(campaign)}, nil
}

func (service *CampaignServiceServer) ReadCampaign(ctx context.Context, request *campaignv1.ReadCampaignRequest) (*campaignv1.CampaignResponse, error) {
	_, authenticated := auth.CallerFromContext(ctx)
	campaignID, err := ledger.NewCampaignID(request.GetCampaignId())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	campaign, operationError := service.campaignService.ReadCampaign(ctx, campaignID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	return &campaignv1.CampaignResponse{Campaign: toProtoCampaign(campaign)}, nil
}

func (service *CampaignServiceServer) Donate(ctx context.Context, request *campaignv1.DonateRequest) (*campaignv1.CampaignResponse, error) {
	caller, authenticated := auth.CallerFromContext(ctx)
	if !authenticated {
		return nil, status.Error(codes.Unauthenticated, errorUnauthenticated)
	}
	campaignID, err := ledger.NewCampaignID(request.GetCampaignId())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	units, err := ledger.NewUnits(request.GetUnits())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	amountPaid, err := ledger.NewAmount(request.GetAmountPaid())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	campaign, operationError := service.campaignService.Donate(ctx, caller, campaignID, units, amountPaid)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	return &campaignv1.CampaignResponse{Campaign: toProtoCampaign(campaign)}, nil
}

func (service *CampaignServiceServer) Consume(ctx context.Context, request *campaignv1.ConsumeRequest) (*campaignv1.CampaignResponse, error) {
	caller, authenticated := auth.CallerFromContext(ctx)
	campaignID, err := ledger.NewCampaignID(request.GetCampaignId())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	units, err := ledger.NewUnits(request.GetUnits())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	campaign, operationError := service.campaignService.Consume(ctx, caller, campaignID, units)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	return &campaignv1.CampaignResponse{Campaign: toProtoCampaign(campaign)}, nil
}

func (service *CampaignServiceServer) Close(ctx context.Context, request *campaignv1.CloseRequest) (*campaignv1.CloseResponse, error) {
	caller, authenticated := auth.CallerFromContext(ctx)
	campaignID, err := ledger.NewCampaignID(request.GetCampaignId())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	settlement, operationError := service.campaignService.Close(ctx, caller, campaignID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	return &campaignv1.CloseResponse{
		CampaignId:        settlement.CampaignID.Int64(),
		ServiceProvider:   settlement.ServiceProvider.String(),
		Amount:            settlement.Amount.Int64(),
		TransferReference: settlement.TransferReference,
	}, nil
}

func (service *CampaignServiceServer) GetEscrowBalance(ctx context.Context, _ *campaignv1.GetEscrowBalanceRequest) (*campaignv1.GetEscrowBalanceResponse, error) {
	_, authenticated := auth.CallerFromContext(ctx)
	balance, err := service.campaignService.EscrowBalance(ctx)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	count, err := service.campaignService.CampaignCount(ctx)
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	return &campaignv1.GetEscrowBalanceResponse{Balance: balance.Int64(), CampaignCount: count}, nil
}

// ListEvents returns the journal of a campaign in append order.
func (service *CampaignServiceServer) ListEvents(ctx context.Context, request *campaignv1.ListEventsRequest) (*campaignv1.ListEventsResponse, error) {
	_, authenticated := auth.CallerFromContext(ctx)
	campaignID, err := ledger.NewCampaignID(request.GetCampaignId())
	if err != nil {
		return nil, mapToGRPCError(err, authenticated)
	}
	events, operationError := service.campaignService.ListEvents(ctx, campaignID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError, authenticated)
	}
	response := &campaignv1.ListEventsResponse{Events: make([]*campaignv1.CampaignEvent, 0, len(events))}
	for _, event := range events {
		response.Events = append(response.Events, toProtoEvent(event))
	}
	return response, nil
}

func toProtoEvent(event ledger.Event) *campaignv1.CampaignEvent {
	message := &campaignv1.CampaignEvent{
		Sequence:          event.Sequence,
		EventId:           event.EventID,
		Type:              event.Type.String(),
		CampaignId:        event.CampaignID.Int64(),
		Actor:             event.Actor.String(),
		Units:             event.Units.Int64(),
		Amount:            event.Amount.Int64(),
		TransferReference: event.TransferReference,
		OccurredUnixUtc:   event.OccurredUnixUTC,
	}
	if event.Campaign != nil {
		message.Campaign = toProtoCampaign(*event.Campaign)
	}
	return message
}

func toProtoCampaign(campaign ledger.Campaign) *campaignv1.Campaign {
	return &campaignv1.Campaign{
		CampaignId:          campaign.ID().Int64(),
		Description:         campaign.Description(),
		Patron:              campaign.Patron().String(),
		TotalUnitsAvailable: campaign.TotalUnitsAvailable().Int64(),
		UnitPrice:           campaign.UnitPrice().Int64(),
		ServiceProvider:     campaign.ServiceProvider().String(),
		ClosingBlock:        campaign.ClosingBlock().Int64(),
		UnitsSold:           campaign.UnitsSold().Int64(),
		UnitsConsumed:       campaign.UnitsConsumed().Int64(),
		IsOpen:              campaign.IsOpen(),
		CreatedUnixUtc:      campaign.CreatedUnixUTC(),
	}
}

func mapToGRPCError(source error, authenticated bool) error {
	if errors.Is(source, ledger.ErrUnauthorized) {
		if !authenticated {
			return status.Error(codes.Unauthenticated, errorUnauthenticated)
		}
		return status.Error(codes.PermissionDenied, errorUnauthorized)
	}
	if errors.Is(source, ledger.ErrCampaignNotFound) {
		return status.Error(codes.NotFound, errorCampaignNotFound)
	}
	if errors.Is(source, ledger.ErrCampaignClosed) {
		return status.Error(codes.FailedPrecondition, errorCampaignClosed)
	}
	if errors.Is(source, ledger.ErrCapacityExceeded) {
		return status.Error(codes.FailedPrecondition, errorCapacityExceeded)
	}
	if errors.Is(source, ledger.ErrConsumptionExceedsSales) {
		return status.Error(codes.FailedPrecondition, errorConsumptionExceedsSales)
	}
	if errors.Is(source, ledger.ErrRejected) {
		return status.Error(codes.FailedPrecondition, errorRejected)
	}
	if errors.Is(source, ledger.ErrInsufficientPayment) {
		return status.Error(codes.InvalidArgument, errorInsufficientPayment)
	}
	if errors.Is(source, ledger.ErrInsufficientEscrow) {
		return status.Error(codes.Aborted, errorInsufficientEscrow)
	}
	if errors.Is(source, ledger.ErrTransferFailed) {
		return status.Error(codes.Aborted, errorTransferFailed)
	}
	if errors.Is(source, ledger.ErrInvalidCampaignID) {
		return status.Error(codes.InvalidArgument, errorInvalidCampaignID)
	}
	if errors.Is(source, ledger.ErrInvalidUnits) {
		return status.Error(codes.InvalidArgument, errorInvalidUnits)
	}
	if errors.Is(source, ledger.ErrInvalidAmount) {
		return status.Error(codes.InvalidArgument, errorInvalidAmount)
	}
	if errors.Is(source, ledger.ErrInvalidAddress) {
		return status.Error(codes.InvalidArgument, errorInvalidAddress)
	}
	if errors.Is(source, ledger.ErrInvalidBlockHeight) {
		return status.Error(codes.InvalidArgument, errorInvalidBlockHeight)
	}
	if errors.Is(source, ledger.ErrAmountOverflow) {
		return status.Error(codes.OutOfRange, errorAmountOverflow)
	}
	if errors.Is(source, ledger.ErrLedgerNotInitialized) {
		return status.Error(codes.Unavailable, errorLedgerNotInitialized)
	}
	if errors.Is(source, context.Canceled) || errors.Is(source, context.DeadlineExceeded) {
		return status.FromContextError(source).Err()
	}
	return status.Error(codes.Internal, errorInternal)
}
