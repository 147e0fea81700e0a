package campaignd

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	campaignv1 "github.com/MarkoPoloResearchLab/campaigns/api/campaign/v1"
	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	patronAddressValue   = "0x821aEa9a577a9b44299B9c15c88cf3087F3b5544"
	providerAddressValue = "0xC5fdf4076b8F3A5357c5E395ab970B5B54098Fef"
	otherOwnerValue      = "0x0d1d4e623D10F9FBA5Db95830F7d3839406C6AF2"
)

func TestServeHandlesCampaignsAndStopsOnCancel(test *testing.T) {
	test.Parallel()
	cfg := newTestConfig(test, filepath.Join(test.TempDir(), "campaigns.db"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, cfg, listener, zap.NewNop())
	}()

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(test, err)
	defer func() { _ = conn.Close() }()

	callCtx, callCancel := context.WithTimeout(ctx, 10*time.Second)
	defer callCancel()
	healthResponse, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: campaignv1.ServiceName}, grpc.WaitForReady(true))
	require.NoError(test, err)
	require.Equal(test, healthpb.HealthCheckResponse_SERVING, healthResponse.GetStatus())

	client := campaignv1.NewCampaignServiceClient(conn)
	ownerCtx := auth.OutgoingContext(callCtx, issueToken(test, cfg, ownerAddressValue))
	created, err := client.AddCampaign(ownerCtx, &campaignv1.AddCampaignRequest{
		Description:         "charity 1 description",
		Patron:              patronAddressValue,
		TotalUnitsAvailable: 40,
		UnitPrice:           100,
		ServiceProvider:     providerAddressValue,
		ClosingBlock:        200000,
	})
	require.NoError(test, err)
	require.Equal(test, int64(0), created.GetCampaign().GetCampaignId())

	escrow, err := client.GetEscrowBalance(callCtx, &campaignv1.GetEscrowBalanceRequest{})
	require.NoError(test, err)
	require.Equal(test, int64(1), escrow.GetCampaignCount())

	cancel()
	select {
	case serveErr := <-done:
		require.NoError(test, serveErr)
	case <-time.After(10 * time.Second):
		test.Fatal("server did not stop after cancel")
	}
}

func TestServeRejectsOwnerChange(test *testing.T) {
	test.Parallel()
	databasePath := filepath.Join(test.TempDir(), "campaigns.db")

	firstCfg := newTestConfig(test, databasePath)
	firstCtx, firstCancel := context.WithCancel(context.Background())
	firstListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- Serve(firstCtx, firstCfg, firstListener, zap.NewNop())
	}()
	waitForServing(test, firstListener.Addr().String())
	firstCancel()
	require.NoError(test, <-firstDone)

	secondCfg := newTestConfig(test, databasePath)
	secondCfg.OwnerAddress = otherOwnerValue
	secondListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	defer func() { _ = secondListener.Close() }()
	err = Serve(context.Background(), secondCfg, secondListener, zap.NewNop())
	require.ErrorIs(test, err, ledger.ErrOwnerMismatch)
}

func newTestConfig(test *testing.T, databasePath string) Config {
	test.Helper()
	cfg := Config{
		DatabaseURL:   "sqlite://" + databasePath,
		OwnerAddress:  ownerAddressValue,
		JWTSigningKey: signingKeyValue,
	}
	require.NoError(test, cfg.Validate())
	return cfg
}

func issueToken(test *testing.T, cfg Config, rawAddress string) string {
	test.Helper()
	issuer, err := auth.NewIssuer([]byte(cfg.JWTSigningKey), cfg.JWTIssuer)
	require.NoError(test, err)
	address, err := ledger.NewAddress(rawAddress)
	require.NoError(test, err)
	token, err := issuer.Issue(address, time.Now(), time.Hour)
	require.NoError(test, err)
	return token
}

func waitForServing(test *testing.T, address string) {
	test.Helper()
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(test, err)
	defer func() { _ = conn.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	require.NoError(test, err)
}
