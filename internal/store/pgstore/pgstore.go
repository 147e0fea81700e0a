package pgstore

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolationCode   = "23505"
	pgNumericOutOfRange     = "22003"
	constraintPayoutPrimary = "payouts_pkey"
	ledgerStateRowID        = 1
	errorOperationStore     = "store"
	errorSubjectCampaign    = "campaign"
	errorSubjectEscrow      = "escrow"
	errorSubjectEvent       = "event"
	errorSubjectOwner       = "owner"
	errorSubjectPayout      = "payout"
	errorSubjectTransaction = "transaction"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCount          = "count"
	errorCodeCreate         = "create"
	errorCodeCredit         = "credit"
	errorCodeDebit          = "debit"
	errorCodeDuplicate      = "duplicate"
	errorCodeEnsure         = "ensure"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeOverflow       = "overflow"
	errorCodeUpdate         = "update"

	sqlEnsureOwner = `
		insert into ledger_state(state_id, owner_address, next_campaign_id, escrow_balance, created_at, updated_at)
		values ($1, $2, 0, 0, now(), now())
		on conflict (state_id) do nothing
	`

	sqlSelectOwner = `select owner_address from ledger_state where state_id = $1`

	sqlNextCampaignID = `
		update ledger_state
		set next_campaign_id = next_campaign_id + 1, updated_at = now()
		where state_id = $1
		returning next_campaign_id - 1
	`

	sqlInsertCampaign = `
		insert into campaigns(
			campaign_id, description, patron_address, total_units_available, unit_price,
			service_provider_address, closing_block, units_sold, units_consumed, is_open, created_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, 0, 0, true, to_timestamp($8))
	`

	sqlCampaignColumns = `
		select
			campaign_id,
			description,
			patron_address,
			total_units_available,
			unit_price,
			service_provider_address,
			closing_block,
			units_sold,
			units_consumed,
			is_open,
			extract(epoch from created_at)::bigint
		from campaigns
		where campaign_id = $1
	`

	sqlSelectCampaign          = sqlCampaignColumns
	sqlSelectCampaignForUpdate = sqlCampaignColumns + ` for update`

	sqlUpdateCampaignState = `
		update campaigns
		set units_sold = $2, units_consumed = $3, is_open = $4
		where campaign_id = $1
	`

	sqlSelectCampaignCount = `select next_campaign_id from ledger_state where state_id = $1`

	sqlCreditEscrow = `
		update ledger_state
		set escrow_balance = escrow_balance + $2, updated_at = now()
		where state_id = $1
		returning escrow_balance
	`

	sqlDebitEscrow = `
		update ledger_state
		set escrow_balance = escrow_balance - $2, updated_at = now()
		where state_id = $1 and escrow_balance >= $2
		returning escrow_balance
	`

	sqlSelectEscrow = `select escrow_balance from ledger_state where state_id = $1`

	sqlInsertPayout = `
		insert into payouts(campaign_id, recipient_address, amount, reference, created_at)
		values ($1, $2, $3, $4, to_timestamp($5))
	`

	sqlInsertEvent = `
		insert into campaign_events(
			event_id, campaign_id, type, actor_address, units, amount, transfer_reference, payload, occurred_at
		)
		values (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7::jsonb, to_timestamp($8))
		returning sequence, event_id::text
	`

	sqlSelectEvents = `
		select
			sequence,
			event_id::text,
			campaign_id,
			type,
			actor_address,
			units,
			amount,
			transfer_reference,
			payload,
			extract(epoch from occurred_at)::bigint
		from campaign_events
		where campaign_id = $1
		order by sequence
	`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
}

type queries struct {
	db querier
}

// Store implements ledger.Store using a pgx connection pool.
// Mutations called outside WithTx run in their own transaction.
type Store struct {
	queries
	pool *pgxpool.Pool
}

// TxStore implements ledger.Store for an active transaction.
type TxStore struct {
	queries
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// WithTx runs fn in a pgx transaction and commits when fn succeeds.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	transactionStore := &TxStore{queries: queries{db: tx}}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

// CreateCampaign runs the id allocation and insert in their own transaction.
func (store *Store) CreateCampaign(ctx context.Context, draft ledger.CampaignDraft, createdUnixUTC int64) (ledger.Campaign, error) {
	var campaign ledger.Campaign
	err := store.WithTx(ctx, func(ctx context.Context, txStore ledger.Store) error {
		var err error
		campaign, err = txStore.CreateCampaign(ctx, draft, createdUnixUTC)
		return err
	})
	return campaign, err
}

// UpdateCampaign locks, mutates and writes the campaign in its own transaction.
func (store *Store) UpdateCampaign(ctx context.Context, id ledger.CampaignID, mutate ledger.CampaignMutator) (ledger.Campaign, error) {
	var campaign ledger.Campaign
	err := store.WithTx(ctx, func(ctx context.Context, txStore ledger.Store) error {
		var err error
		campaign, err = txStore.UpdateCampaign(ctx, id, mutate)
		return err
	})
	return campaign, err
}

// WithTx joins the active transaction.
func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return fn(ctx, store)
}

func (store *TxStore) CreateCampaign(ctx context.Context, draft ledger.CampaignDraft, createdUnixUTC int64) (ledger.Campaign, error) {
	return store.createCampaign(ctx, draft, createdUnixUTC)
}

func (store *TxStore) UpdateCampaign(ctx context.Context, id ledger.CampaignID, mutate ledger.CampaignMutator) (ledger.Campaign, error) {
	return store.updateCampaign(ctx, id, mutate)
}

// EnsureOwner seeds the ledger_state row on first use and returns the persisted owner.
func (store queries) EnsureOwner(ctx context.Context, owner ledger.Address) (ledger.Address, error) {
	if _, err := store.db.Exec(ctx, sqlEnsureOwner, ledgerStateRowID, owner.String()); err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeEnsure, err)
	}
	var ownerValue string
	if err := store.db.QueryRow(ctx, sqlSelectOwner, ledgerStateRowID).Scan(&ownerValue); err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeGet, err)
	}
	stored, err := ledger.NewAddress(ownerValue)
	if err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeInvalid, err)
	}
	return stored, nil
}

func (store queries) createCampaign(ctx context.Context, draft ledger.CampaignDraft, createdUnixUTC int64) (ledger.Campaign, error) {
	var campaignIDValue int64
	err := store.db.QueryRow(ctx, sqlNextCampaignID, ledgerStateRowID).Scan(&campaignIDValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeCreate, ledger.ErrLedgerNotInitialized)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeCreate, err)
	}
	_, err = store.db.Exec(ctx, sqlInsertCampaign,
		campaignIDValue,
		draft.Description,
		draft.Patron.String(),
		draft.TotalUnitsAvailable.Int64(),
		draft.UnitPrice.Int64(),
		draft.ServiceProvider.String(),
		draft.ClosingBlock.Int64(),
		createdUnixUTC,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeDuplicate, err)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeCreate, err)
	}
	campaign, err := ledger.NewCampaign(ledger.CampaignID(campaignIDValue), draft, ledger.OpenCampaignState(), createdUnixUTC)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	return campaign, nil
}

// GetCampaign loads a campaign by id.
func (store queries) GetCampaign(ctx context.Context, id ledger.CampaignID) (ledger.Campaign, error) {
	return store.selectCampaign(ctx, sqlSelectCampaign, id)
}

func (store queries) updateCampaign(ctx context.Context, id ledger.CampaignID, mutate ledger.CampaignMutator) (ledger.Campaign, error) {
	current, err := store.selectCampaign(ctx, sqlSelectCampaignForUpdate, id)
	if err != nil {
		return ledger.Campaign{}, err
	}
	next, err := mutate(current)
	if err != nil {
		return ledger.Campaign{}, err
	}
	updated, err := current.WithState(next)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	_, err = store.db.Exec(ctx, sqlUpdateCampaignState, id.Int64(), next.UnitsSold.Int64(), next.UnitsConsumed.Int64(), next.IsOpen)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeUpdate, err)
	}
	return updated, nil
}

func (store queries) CountCampaigns(ctx context.Context) (int64, error) {
	var count int64
	if err := store.db.QueryRow(ctx, sqlSelectCampaignCount, ledgerStateRowID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, wrapStoreError(errorSubjectCampaign, errorCodeCount, ledger.ErrLedgerNotInitialized)
		}
		return 0, wrapStoreError(errorSubjectCampaign, errorCodeCount, err)
	}
	return count, nil
}

func (store queries) CreditEscrow(ctx context.Context, amount ledger.Amount) (ledger.Amount, error) {
	var balance int64
	err := store.db.QueryRow(ctx, sqlCreditEscrow, ledgerStateRowID, amount.Int64()).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, wrapStoreError(errorSubjectEscrow, errorCodeCredit, ledger.ErrLedgerNotInitialized)
		}
		if hasErrorCode(err, pgNumericOutOfRange) {
			return 0, wrapStoreError(errorSubjectEscrow, errorCodeOverflow, ledger.ErrAmountOverflow)
		}
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeCredit, err)
	}
	return ledger.Amount(balance), nil
}

// DebitEscrow removes amount from the pooled escrow; the guarded update never lets it go negative.
func (store queries) DebitEscrow(ctx context.Context, amount ledger.Amount) (ledger.Amount, error) {
	var balance int64
	err := store.db.QueryRow(ctx, sqlDebitEscrow, ledgerStateRowID, amount.Int64()).Scan(&balance)
	if err == nil {
		return ledger.Amount(balance), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeDebit, err)
	}
	if _, balanceErr := store.EscrowBalance(ctx); balanceErr != nil {
		return 0, balanceErr
	}
	return 0, wrapStoreError(errorSubjectEscrow, errorCodeDebit, ledger.ErrInsufficientEscrow)
}

func (store queries) EscrowBalance(ctx context.Context) (ledger.Amount, error) {
	var balance int64
	if err := store.db.QueryRow(ctx, sqlSelectEscrow, ledgerStateRowID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, wrapStoreError(errorSubjectEscrow, errorCodeGet, ledger.ErrLedgerNotInitialized)
		}
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeGet, err)
	}
	amount, err := ledger.NewAmount(balance)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeInvalid, err)
	}
	return amount, nil
}

// RecordPayout inserts the settlement row. A second payout for the same campaign maps to ledger.ErrCampaignClosed.
func (store queries) RecordPayout(ctx context.Context, payout ledger.Payout) error {
	_, err := store.db.Exec(ctx, sqlInsertPayout,
		payout.CampaignID.Int64(),
		payout.Recipient.String(),
		payout.Amount.Int64(),
		payout.Reference,
		payout.CreatedUnixUTC,
	)
	if isUniqueViolation(err, constraintPayoutPrimary) {
		return wrapStoreError(errorSubjectPayout, errorCodeDuplicate, ledger.ErrCampaignClosed)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeInsert, err)
	}
	return nil
}

// AppendEvent writes a journal entry; the database assigns its sequence and event id.
func (store queries) AppendEvent(ctx context.Context, event ledger.Event) (ledger.Event, error) {
	var (
		sequence int64
		eventID  string
	)
	err := store.db.QueryRow(ctx, sqlInsertEvent,
		event.CampaignID.Int64(),
		event.Type.String(),
		event.Actor.String(),
		event.Units.Int64(),
		event.Amount.Int64(),
		event.TransferReference,
		snapshotOf(event.Campaign),
		event.OccurredUnixUTC,
	).Scan(&sequence, &eventID)
	if err != nil {
		return ledger.Event{}, wrapStoreError(errorSubjectEvent, errorCodeInsert, err)
	}
	event.Sequence = sequence
	event.EventID = eventID
	return event, nil
}

// ListEvents returns the journal of a campaign ordered by sequence.
func (store queries) ListEvents(ctx context.Context, id ledger.CampaignID) ([]ledger.Event, error) {
	rows, err := store.db.Query(ctx, sqlSelectEvents, id.Int64())
	if err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeList, err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeList, err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (ledger.Event, error) {
	var (
		event        ledger.Event
		campaignID   int64
		typeValue    string
		actorValue   string
		unitsValue   int64
		amountValue  int64
		payloadValue campaignSnapshot
	)
	err := row.Scan(
		&event.Sequence,
		&event.EventID,
		&campaignID,
		&typeValue,
		&actorValue,
		&unitsValue,
		&amountValue,
		&event.TransferReference,
		&payloadValue,
		&event.OccurredUnixUTC,
	)
	if err != nil {
		return ledger.Event{}, err
	}
	event.Type, err = ledger.ParseEventType(typeValue)
	if err != nil {
		return ledger.Event{}, err
	}
	event.Actor, err = ledger.NewAddress(actorValue)
	if err != nil {
		return ledger.Event{}, err
	}
	event.CampaignID = ledger.CampaignID(campaignID)
	event.Units = ledger.Units(unitsValue)
	event.Amount = ledger.Amount(amountValue)
	if event.Type == ledger.EventCampaignAdded {
		campaign, err := campaignFromSnapshot(event.CampaignID, payloadValue, event.OccurredUnixUTC)
		if err != nil {
			return ledger.Event{}, err
		}
		event.Campaign = &campaign
	}
	return event, nil
}

func (store queries) selectCampaign(ctx context.Context, sql string, id ledger.CampaignID) (ledger.Campaign, error) {
	var (
		campaignIDValue      int64
		descriptionValue     string
		patronValue          string
		totalUnitsValue      int64
		unitPriceValue       int64
		serviceProviderValue string
		closingBlockValue    int64
		unitsSoldValue       int64
		unitsConsumedValue   int64
		isOpenValue          bool
		createdAtUnixUTC     int64
	)
	err := store.db.QueryRow(ctx, sql, id.Int64()).Scan(
		&campaignIDValue,
		&descriptionValue,
		&patronValue,
		&totalUnitsValue,
		&unitPriceValue,
		&serviceProviderValue,
		&closingBlockValue,
		&unitsSoldValue,
		&unitsConsumedValue,
		&isOpenValue,
		&createdAtUnixUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeGet, ledger.ErrCampaignNotFound)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeGet, err)
	}
	patron, err := ledger.NewAddress(patronValue)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	serviceProvider, err := ledger.NewAddress(serviceProviderValue)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	draft, err := ledger.NewCampaignDraft(
		descriptionValue,
		patron,
		ledger.Units(totalUnitsValue),
		ledger.Amount(unitPriceValue),
		serviceProvider,
		ledger.BlockHeight(closingBlockValue),
	)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	state := ledger.CampaignState{
		UnitsSold:     ledger.Units(unitsSoldValue),
		UnitsConsumed: ledger.Units(unitsConsumedValue),
		IsOpen:        isOpenValue,
	}
	campaign, err := ledger.NewCampaign(ledger.CampaignID(campaignIDValue), draft, state, createdAtUnixUTC)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	return campaign, nil
}

// campaignSnapshot is encoded into the jsonb payload column.
type campaignSnapshot struct {
	Description         string `json:"description,omitempty"`
	Patron              string `json:"patron,omitempty"`
	TotalUnitsAvailable int64  `json:"total_units_available,omitempty"`
	UnitPrice           int64  `json:"unit_price,omitempty"`
	ServiceProvider     string `json:"service_provider,omitempty"`
	ClosingBlock        int64  `json:"closing_block,omitempty"`
}

func snapshotOf(campaign *ledger.Campaign) campaignSnapshot {
	if campaign == nil {
		return campaignSnapshot{}
	}
	return campaignSnapshot{
		Description:         campaign.Description(),
		Patron:              campaign.Patron().String(),
		TotalUnitsAvailable: campaign.TotalUnitsAvailable().Int64(),
		UnitPrice:           campaign.UnitPrice().Int64(),
		ServiceProvider:     campaign.ServiceProvider().String(),
		ClosingBlock:        campaign.ClosingBlock().Int64(),
	}
}

func campaignFromSnapshot(id ledger.CampaignID, snapshot campaignSnapshot, createdUnixUTC int64) (ledger.Campaign, error) {
	patron, err := ledger.NewAddress(snapshot.Patron)
	if err != nil {
		return ledger.Campaign{}, err
	}
	serviceProvider, err := ledger.NewAddress(snapshot.ServiceProvider)
	if err != nil {
		return ledger.Campaign{}, err
	}
	draft, err := ledger.NewCampaignDraft(
		snapshot.Description,
		patron,
		ledger.Units(snapshot.TotalUnitsAvailable),
		ledger.Amount(snapshot.UnitPrice),
		serviceProvider,
		ledger.BlockHeight(snapshot.ClosingBlock),
	)
	if err != nil {
		return ledger.Campaign{}, err
	}
	return ledger.NewCampaign(id, draft, ledger.OpenCampaignState(), createdUnixUTC)
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

// isUniqueViolation matches a unique violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func hasErrorCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
