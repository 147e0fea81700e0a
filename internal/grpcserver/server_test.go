package grpcserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	campaignv1 "github.com/MarkoPoloResearchLab/campaigns/api/campaign/v1"
	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/MarkoPoloResearchLab/campaigns/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ownerAddressValue    = "0x627306090abaB3A6e1400e9345bC60c78a8BEf57"
	patronAddressValue   = "0x821aEa9a577a9b44299B9c15c88cf3087F3b5544"
	providerAddressValue = "0xC5fdf4076b8F3A5357c5E395ab970B5B54098Fef"
	donorAddressValue    = "0xf17f52151EbEF6C7334FAD080c5704D77216b732"
	signingKeyValue      = "grpc-test-key"
	issuerValue          = "campaignd"
	unitPriceValue       = int64(100_000_000_000_000_000)
	capacityValue        = int64(40)
	bufferSize           = 1 << 20
)

type recordingTransferer struct {
	mu       sync.Mutex
	requests []ledger.TransferRequest
}

func (transferer *recordingTransferer) Transfer(_ context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
	transferer.mu.Lock()
	defer transferer.mu.Unlock()
	transferer.requests = append(transferer.requests, request)
	return ledger.TransferReceipt{Reference: fmt.Sprintf("transfer-%d", len(transferer.requests))}, nil
}

type testHarness struct {
	client     campaignv1.CampaignServiceClient
	issuer     *auth.Issuer
	transferer *recordingTransferer
}

func TestCampaignLifecycleOverGRPC(test *testing.T) {
	test.Parallel()
	harness := newHarness(test)
	ownerCtx := harness.as(test, ownerAddressValue)
	donorCtx := harness.as(test, donorAddressValue)

	created, err := harness.client.AddCampaign(ownerCtx, addRequest())
	require.NoError(test, err)
	require.Equal(test, int64(0), created.GetCampaign().GetCampaignId())
	require.True(test, created.GetCampaign().GetIsOpen())

	donated, err := harness.client.Donate(donorCtx, &campaignv1.DonateRequest{CampaignId: 0, Units: 5, AmountPaid: 5 * unitPriceValue})
	require.NoError(test, err)
	require.Equal(test, int64(5), donated.GetCampaign().UnitsSold)

	consumed, err := harness.client.Consume(ownerCtx, &campaignv1.ConsumeRequest{CampaignId: 0, Units: 3})
	require.NoError(test, err)
	require.Equal(test, int64(3), consumed.GetCampaign().UnitsConsumed)

	closed, err := harness.client.Close(ownerCtx, &campaignv1.CloseRequest{CampaignId: 0})
	require.NoError(test, err)
	require.Equal(test, 3*unitPriceValue, closed.Amount)
	require.Equal(test, "transfer-1", closed.TransferReference)
	require.Equal(test, mustAddress(test, providerAddressValue).String(), closed.ServiceProvider)

	read, err := harness.client.ReadCampaign(context.Background(), &campaignv1.ReadCampaignRequest{CampaignId: 0})
	require.NoError(test, err)
	require.False(test, read.GetCampaign().GetIsOpen())

	escrow, err := harness.client.GetEscrowBalance(context.Background(), &campaignv1.GetEscrowBalanceRequest{})
	require.NoError(test, err)
	require.Equal(test, 2*unitPriceValue, escrow.GetBalance())
	require.Equal(test, int64(1), escrow.GetCampaignCount())

	require.Len(test, harness.transferer.requests, 1)
	require.Equal(test, ledger.CloseIdempotencyKey(0), harness.transferer.requests[0].IdempotencyKey)
}

func TestListEventsOverGRPC(test *testing.T) {
	test.Parallel()
	harness := newHarness(test)
	ownerCtx := harness.as(test, ownerAddressValue)
	donorCtx := harness.as(test, donorAddressValue)

	_, err := harness.client.AddCampaign(ownerCtx, addRequest())
	require.NoError(test, err)
	_, err = harness.client.Donate(donorCtx, &campaignv1.DonateRequest{CampaignId: 0, Units: 2, AmountPaid: 2 * unitPriceValue})
	require.NoError(test, err)
	_, err = harness.client.Consume(ownerCtx, &campaignv1.ConsumeRequest{CampaignId: 0, Units: 2})
	require.NoError(test, err)
	closed, err := harness.client.Close(ownerCtx, &campaignv1.CloseRequest{CampaignId: 0})
	require.NoError(test, err)

	response, err := harness.client.ListEvents(context.Background(), &campaignv1.ListEventsRequest{CampaignId: 0})
	require.NoError(test, err)
	events := response.GetEvents()
	require.Len(test, events, 4)
	expectedTypes := []ledger.EventType{
		ledger.EventCampaignAdded,
		ledger.EventDonationRecorded,
		ledger.EventDonationConsumed,
		ledger.EventCampaignClosed,
	}
	for index, event := range events {
		require.Equal(test, expectedTypes[index].String(), event.Type)
		require.NotEmpty(test, event.EventId)
		if index > 0 {
			require.Greater(test, event.Sequence, events[index-1].Sequence)
		}
	}
	require.NotNil(test, events[0].Campaign)
	require.Equal(test, "charity 1 description", events[0].Campaign.Description)
	require.Equal(test, mustAddress(test, donorAddressValue).String(), events[1].Actor)
	require.Equal(test, int64(2), events[2].Units)
	require.Equal(test, closed.TransferReference, events[3].TransferReference)
	require.Equal(test, 2*unitPriceValue, events[3].Amount)

	_, err = harness.client.ListEvents(context.Background(), &campaignv1.ListEventsRequest{CampaignId: 5})
	require.Equal(test, codes.NotFound, status.Code(err))
	_, err = harness.client.ListEvents(context.Background(), &campaignv1.ListEventsRequest{CampaignId: -1})
	require.Equal(test, codes.InvalidArgument, status.Code(err))
}

func TestErrorMappingOverGRPC(test *testing.T) {
	test.Parallel()
	harness := newHarness(test)
	ownerCtx := harness.as(test, ownerAddressValue)
	donorCtx := harness.as(test, donorAddressValue)

	_, err := harness.client.AddCampaign(ownerCtx, addRequest())
	require.NoError(test, err)

	testCases := []struct {
		name    string
		call    func() error
		code    codes.Code
		message string
	}{
		{
			name: "anonymous add",
			call: func() error {
				_, callErr := harness.client.AddCampaign(context.Background(), addRequest())
				return callErr
			},
			code:    codes.Unauthenticated,
			message: errorUnauthenticated,
		},
		{
			name: "non-owner add",
			call: func() error {
				_, callErr := harness.client.AddCampaign(donorCtx, addRequest())
				return callErr
			},
			code:    codes.PermissionDenied,
			message: errorUnauthorized,
		},
		{
			name: "anonymous donate",
			call: func() error {
				_, callErr := harness.client.Donate(context.Background(), &campaignv1.DonateRequest{CampaignId: 0, Units: 1, AmountPaid: unitPriceValue})
				return callErr
			},
			code:    codes.Unauthenticated,
			message: errorUnauthenticated,
		},
		{
			name: "unknown campaign",
			call: func() error {
				_, callErr := harness.client.ReadCampaign(context.Background(), &campaignv1.ReadCampaignRequest{CampaignId: 9})
				return callErr
			},
			code:    codes.NotFound,
			message: errorCampaignNotFound,
		},
		{
			name: "negative id",
			call: func() error {
				_, callErr := harness.client.ReadCampaign(context.Background(), &campaignv1.ReadCampaignRequest{CampaignId: -1})
				return callErr
			},
			code:    codes.InvalidArgument,
			message: errorInvalidCampaignID,
		},
		{
			name: "unpaid donation",
			call: func() error {
				_, callErr := harness.client.Donate(donorCtx, &campaignv1.DonateRequest{CampaignId: 0, Units: 2, AmountPaid: 0})
				return callErr
			},
			code:    codes.InvalidArgument,
			message: errorInsufficientPayment,
		},
		{
			name: "invalid patron",
			call: func() error {
				request := addRequest()
				request.Patron = " "
				_, callErr := harness.client.AddCampaign(ownerCtx, request)
				return callErr
			},
			code:    codes.InvalidArgument,
			message: errorInvalidAddress,
		},
		{
			name: "non-owner close",
			call: func() error {
				_, callErr := harness.client.Close(donorCtx, &campaignv1.CloseRequest{CampaignId: 0})
				return callErr
			},
			code:    codes.PermissionDenied,
			message: errorUnauthorized,
		},
	}

	for _, testCase := range testCases {
		err := testCase.call()
		require.Error(test, err, testCase.name)
		require.Equal(test, testCase.code, status.Code(err), testCase.name)
		require.Equal(test, testCase.message, status.Convert(err).Message(), testCase.name)
	}
}

func TestClosedCampaignRejectsOverGRPC(test *testing.T) {
	test.Parallel()
	harness := newHarness(test)
	ownerCtx := harness.as(test, ownerAddressValue)
	donorCtx := harness.as(test, donorAddressValue)

	_, err := harness.client.AddCampaign(ownerCtx, addRequest())
	require.NoError(test, err)
	_, err = harness.client.Close(ownerCtx, &campaignv1.CloseRequest{CampaignId: 0})
	require.NoError(test, err)
	require.Empty(test, harness.transferer.requests)

	_, err = harness.client.Donate(donorCtx, &campaignv1.DonateRequest{CampaignId: 0, Units: 1, AmountPaid: unitPriceValue})
	require.Equal(test, codes.FailedPrecondition, status.Code(err))
	require.Equal(test, errorCampaignClosed, status.Convert(err).Message())

	_, err = harness.client.Close(ownerCtx, &campaignv1.CloseRequest{CampaignId: 0})
	require.Equal(test, codes.FailedPrecondition, status.Code(err))
}

func TestInvalidTokenIsUnauthenticated(test *testing.T) {
	test.Parallel()
	harness := newHarness(test)
	ctx := auth.OutgoingContext(context.Background(), "forged")

	_, err := harness.client.ReadCampaign(ctx, &campaignv1.ReadCampaignRequest{CampaignId: 0})
	require.Equal(test, codes.Unauthenticated, status.Code(err))
}

func TestMapToGRPCErrorFallsBackToInternal(test *testing.T) {
	test.Parallel()
	err := mapToGRPCError(fmt.Errorf("database exploded"), true)
	require.Equal(test, codes.Internal, status.Code(err))
	require.Equal(test, errorInternal, status.Convert(err).Message())

	err = mapToGRPCError(ledger.ErrInsufficientEscrow, true)
	require.Equal(test, codes.Aborted, status.Code(err))
	require.Equal(test, errorInsufficientEscrow, status.Convert(err).Message())
}

func newHarness(test *testing.T) *testHarness {
	test.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(test, err)
	sqlDB, err := db.DB()
	require.NoError(test, err)
	sqlDB.SetMaxOpenConns(1)
	test.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(test, gormstore.AutoMigrate(db))

	transferer := &recordingTransferer{}
	service, err := ledger.NewService(gormstore.New(db), transferer, mustAddress(test, ownerAddressValue), func() int64 { return time.Now().UTC().Unix() })
	require.NoError(test, err)
	require.NoError(test, service.BindOwner(context.Background()))

	verifier, err := auth.NewVerifier([]byte(signingKeyValue), issuerValue)
	require.NoError(test, err)
	issuer, err := auth.NewIssuer([]byte(signingKeyValue), issuerValue)
	require.NoError(test, err)

	listener := bufconn.Listen(bufferSize)
	server := grpc.NewServer(campaignv1.ServerCodec(), grpc.UnaryInterceptor(auth.UnaryServerInterceptor(verifier)))
	campaignv1.RegisterCampaignServiceServer(server, NewCampaignServiceServer(service))
	go func() {
		_ = server.Serve(listener)
	}()
	test.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(test, err)
	test.Cleanup(func() { _ = conn.Close() })

	return &testHarness{
		client:     campaignv1.NewCampaignServiceClient(conn),
		issuer:     issuer,
		transferer: transferer,
	}
}

func (harness *testHarness) as(test *testing.T, rawAddress string) context.Context {
	test.Helper()
	token, err := harness.issuer.Issue(mustAddress(test, rawAddress), time.Now(), time.Hour)
	require.NoError(test, err)
	return auth.OutgoingContext(context.Background(), token)
}

func addRequest() *campaignv1.AddCampaignRequest {
	return &campaignv1.AddCampaignRequest{
		Description:         "charity 1 description",
		Patron:              patronAddressValue,
		TotalUnitsAvailable: capacityValue,
		UnitPrice:           unitPriceValue,
		ServiceProvider:     providerAddressValue,
		ClosingBlock:        200000,
	}
}

func mustAddress(test *testing.T, raw string) ledger.Address {
	test.Helper()
	address, err := ledger.NewAddress(raw)
	require.NoError(test, err)
	return address
}
