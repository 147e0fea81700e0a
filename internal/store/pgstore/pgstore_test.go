package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/MarkoPoloResearchLab/campaigns/internal/store/migrations"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	postgresURLEnv       = "CAMPAIGNS_TEST_POSTGRES_URL"
	ownerAddressValue    = "0x627306090abaB3A6e1400e9345bC60c78a8BEf57"
	patronAddressValue   = "0x821aEa9a577a9b44299B9c15c88cf3087F3b5544"
	providerAddressValue = "0xC5fdf4076b8F3A5357c5E395ab970B5B54098Fef"
	unitPriceValue       = int64(100000000000000000)
)

func TestIsUniqueViolation(test *testing.T) {
	test.Parallel()
	payoutConflict := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolationCode, ConstraintName: constraintPayoutPrimary})
	otherConflict := &pgconn.PgError{Code: pgUniqueViolationCode, ConstraintName: "campaigns_pkey"}

	require.True(test, isUniqueViolation(payoutConflict, constraintPayoutPrimary))
	require.True(test, isUniqueViolation(otherConflict, ""))
	require.False(test, isUniqueViolation(otherConflict, constraintPayoutPrimary))
	require.False(test, isUniqueViolation(errors.New("plain"), ""))
	require.True(test, hasErrorCode(&pgconn.PgError{Code: pgNumericOutOfRange}, pgNumericOutOfRange))
}

func TestPostgresSettlementFlow(test *testing.T) {
	store := newPostgresStore(test)
	ctx := context.Background()
	owner := mustAddress(test, ownerAddressValue)
	transferer := ledger.Transferer(transfererFunc(func(_ context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
		return ledger.TransferReceipt{Reference: fmt.Sprintf("pg-%d", request.CampaignID)}, nil
	}))
	service, err := ledger.NewService(store, transferer, owner, func() int64 { return 1700000000 })
	require.NoError(test, err)
	require.NoError(test, service.BindOwner(ctx))

	campaign, err := service.AddCampaign(ctx, owner, newDraft(test))
	require.NoError(test, err)

	const donors = 8
	group, groupContext := errgroup.WithContext(ctx)
	for index := 0; index < donors; index++ {
		donor := mustAddress(test, fmt.Sprintf("0x%040x", index+1))
		group.Go(func() error {
			_, err := service.Donate(groupContext, donor, campaign.ID(), 1, ledger.Amount(unitPriceValue))
			return err
		})
	}
	require.NoError(test, group.Wait())

	_, err = service.Consume(ctx, owner, campaign.ID(), 5)
	require.NoError(test, err)
	settlement, err := service.Close(ctx, owner, campaign.ID())
	require.NoError(test, err)
	require.Equal(test, ledger.Amount(5*unitPriceValue), settlement.Amount)

	closed, err := service.ReadCampaign(ctx, campaign.ID())
	require.NoError(test, err)
	require.False(test, closed.IsOpen())
	require.Equal(test, ledger.Units(donors), closed.UnitsSold())

	_, err = service.Close(ctx, owner, campaign.ID())
	require.ErrorIs(test, err, ledger.ErrCampaignClosed)

	events, err := service.ListEvents(ctx, campaign.ID())
	require.NoError(test, err)
	require.Len(test, events, donors+3)
	require.Equal(test, ledger.EventCampaignAdded, events[0].Type)
	require.NotNil(test, events[0].Campaign)
	require.Equal(test, newDraft(test), events[0].Campaign.Draft())
	for index := 1; index <= donors; index++ {
		require.Equal(test, ledger.EventDonationRecorded, events[index].Type)
	}
	require.Equal(test, ledger.EventDonationConsumed, events[donors+1].Type)
	require.Equal(test, ledger.EventCampaignClosed, events[donors+2].Type)
	require.Equal(test, settlement.TransferReference, events[donors+2].TransferReference)
	for index := 1; index < len(events); index++ {
		require.Greater(test, events[index].Sequence, events[index-1].Sequence)
	}
}

type transfererFunc func(ctx context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error)

func (fn transfererFunc) Transfer(ctx context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
	return fn(ctx, request)
}

func newPostgresStore(test *testing.T) *Store {
	test.Helper()
	databaseURL := os.Getenv(postgresURLEnv)
	if databaseURL == "" {
		test.Skipf("%s not set", postgresURLEnv)
	}
	require.NoError(test, migrations.Migrate(databaseURL))
	pool, err := pgxpool.New(context.Background(), databaseURL)
	require.NoError(test, err)
	test.Cleanup(pool.Close)
	_, err = pool.Exec(context.Background(), "truncate payouts, campaign_events, campaigns, ledger_state")
	require.NoError(test, err)
	return New(pool)
}

func newDraft(test *testing.T) ledger.CampaignDraft {
	test.Helper()
	draft, err := ledger.NewCampaignDraft("charity 1 description", mustAddress(test, patronAddressValue), 40, ledger.Amount(unitPriceValue), mustAddress(test, providerAddressValue), 200000)
	require.NoError(test, err)
	return draft
}

func mustAddress(test *testing.T, raw string) ledger.Address {
	test.Helper()
	address, err := ledger.NewAddress(raw)
	require.NoError(test, err)
	return address
}
