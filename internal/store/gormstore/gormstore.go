package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectCampaign  = "campaign"
	errorSubjectEscrow    = "escrow"
	errorSubjectEvent     = "event"
	errorSubjectOwner     = "owner"
	errorSubjectPayout    = "payout"
	errorCodeCount        = "count"
	errorCodeCreate       = "create"
	errorCodeCredit       = "credit"
	errorCodeDebit        = "debit"
	errorCodeDuplicate    = "duplicate"
	errorCodeEnsure       = "ensure"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeLock         = "lock"
	errorCodeUpdate       = "update"
)

// Store implements ledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the tables for databases without versioned migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// EnsureOwner seeds the ledger_state row on first use and returns the persisted owner.
func (store *Store) EnsureOwner(ctx context.Context, owner ledger.Address) (ledger.Address, error) {
	now := time.Now().UTC()
	seed := LedgerState{StateID: ledgerStateRowID, OwnerAddress: owner.String(), CreatedAt: now, UpdatedAt: now}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "state_id"}}, DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeEnsure, err)
	}
	var state LedgerState
	if err := store.db.WithContext(ctx).Take(&state, ledgerStateRowID).Error; err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeGet, err)
	}
	stored, err := ledger.NewAddress(state.OwnerAddress)
	if err != nil {
		return ledger.Address{}, wrapStoreError(errorSubjectOwner, errorCodeInvalid, err)
	}
	return stored, nil
}

// CreateCampaign allocates the next campaign id under the ledger_state lock and inserts an open campaign.
func (store *Store) CreateCampaign(ctx context.Context, draft ledger.CampaignDraft, createdUnixUTC int64) (ledger.Campaign, error) {
	state, err := store.lockState(ctx)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeLock, err)
	}
	campaignID := state.NextCampaignID
	err = store.db.WithContext(ctx).
		Model(&LedgerState{}).
		Where("state_id = ?", ledgerStateRowID).
		Update("next_campaign_id", campaignID+1).Error
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeCreate, err)
	}
	model := Campaign{
		CampaignID:             campaignID,
		Description:            draft.Description,
		PatronAddress:          draft.Patron.String(),
		TotalUnitsAvailable:    draft.TotalUnitsAvailable.Int64(),
		UnitPrice:              draft.UnitPrice.Int64(),
		ServiceProviderAddress: draft.ServiceProvider.String(),
		ClosingBlock:           draft.ClosingBlock.Int64(),
		IsOpen:                 true,
		CreatedAt:              time.Unix(createdUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeDuplicate, err)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeCreate, err)
	}
	campaign, err := mapCampaign(model)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	return campaign, nil
}

// GetCampaign loads a campaign by id.
func (store *Store) GetCampaign(ctx context.Context, id ledger.CampaignID) (ledger.Campaign, error) {
	var model Campaign
	if err := store.db.WithContext(ctx).Where("campaign_id = ?", id.Int64()).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeGet, ledger.ErrCampaignNotFound)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeGet, err)
	}
	campaign, err := mapCampaign(model)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	return campaign, nil
}

// UpdateCampaign locks the campaign row, applies mutate and writes the counters back.
func (store *Store) UpdateCampaign(ctx context.Context, id ledger.CampaignID, mutate ledger.CampaignMutator) (ledger.Campaign, error) {
	var model Campaign
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("campaign_id = ?", id.Int64()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeGet, ledger.ErrCampaignNotFound)
		}
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeLock, err)
	}
	current, err := mapCampaign(model)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	next, err := mutate(current)
	if err != nil {
		return ledger.Campaign{}, err
	}
	updated, err := current.WithState(next)
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeInvalid, err)
	}
	err = store.db.WithContext(ctx).
		Model(&Campaign{}).
		Where("campaign_id = ?", id.Int64()).
		Updates(map[string]any{
			"units_sold":     next.UnitsSold.Int64(),
			"units_consumed": next.UnitsConsumed.Int64(),
			"is_open":        next.IsOpen,
		}).Error
	if err != nil {
		return ledger.Campaign{}, wrapStoreError(errorSubjectCampaign, errorCodeUpdate, err)
	}
	return updated, nil
}

// CountCampaigns reports how many ids have been allocated.
func (store *Store) CountCampaigns(ctx context.Context) (int64, error) {
	var state LedgerState
	if err := store.db.WithContext(ctx).Take(&state, ledgerStateRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, wrapStoreError(errorSubjectCampaign, errorCodeCount, ledger.ErrLedgerNotInitialized)
		}
		return 0, wrapStoreError(errorSubjectCampaign, errorCodeCount, err)
	}
	return state.NextCampaignID, nil
}

// CreditEscrow adds amount to the pooled escrow and returns the new balance.
func (store *Store) CreditEscrow(ctx context.Context, amount ledger.Amount) (ledger.Amount, error) {
	state, err := store.lockState(ctx)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeLock, err)
	}
	balance, err := ledger.Amount(state.EscrowBalance).Add(amount)
	if err != nil {
		return 0, err
	}
	if err := store.writeEscrow(ctx, balance); err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeCredit, err)
	}
	return balance, nil
}

// DebitEscrow removes amount from the pooled escrow. It fails with ledger.ErrInsufficientEscrow
// rather than letting the balance go negative.
func (store *Store) DebitEscrow(ctx context.Context, amount ledger.Amount) (ledger.Amount, error) {
	state, err := store.lockState(ctx)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeLock, err)
	}
	balance, err := ledger.Amount(state.EscrowBalance).Sub(amount)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeDebit, ledger.ErrInsufficientEscrow)
	}
	if err := store.writeEscrow(ctx, balance); err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeDebit, err)
	}
	return balance, nil
}

// EscrowBalance returns the pooled escrow.
func (store *Store) EscrowBalance(ctx context.Context) (ledger.Amount, error) {
	var state LedgerState
	if err := store.db.WithContext(ctx).Take(&state, ledgerStateRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, wrapStoreError(errorSubjectEscrow, errorCodeGet, ledger.ErrLedgerNotInitialized)
		}
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeGet, err)
	}
	balance, err := ledger.NewAmount(state.EscrowBalance)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEscrow, errorCodeInvalid, err)
	}
	return balance, nil
}

// RecordPayout inserts the settlement row. A second payout for the same campaign maps to ledger.ErrCampaignClosed.
func (store *Store) RecordPayout(ctx context.Context, payout ledger.Payout) error {
	model := Payout{
		CampaignID:       payout.CampaignID.Int64(),
		RecipientAddress: payout.Recipient.String(),
		Amount:           payout.Amount.Int64(),
		Reference:        payout.Reference,
		CreatedAt:        time.Unix(payout.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPayout, errorCodeDuplicate, ledger.ErrCampaignClosed)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeInsert, err)
	}
	return nil
}

// AppendEvent writes a journal entry and returns it with its sequence and event id.
func (store *Store) AppendEvent(ctx context.Context, event ledger.Event) (ledger.Event, error) {
	model := CampaignEvent{
		CampaignID:        event.CampaignID.Int64(),
		Type:              event.Type.String(),
		ActorAddress:      event.Actor.String(),
		Units:             event.Units.Int64(),
		Amount:            event.Amount.Int64(),
		TransferReference: event.TransferReference,
		Payload:           datatypes.NewJSONType(snapshotOf(event.Campaign)),
		OccurredAt:        time.Unix(event.OccurredUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return ledger.Event{}, wrapStoreError(errorSubjectEvent, errorCodeInsert, err)
	}
	event.Sequence = model.Sequence
	event.EventID = model.EventID
	return event, nil
}

// ListEvents returns the journal of a campaign in append order.
func (store *Store) ListEvents(ctx context.Context, id ledger.CampaignID) ([]ledger.Event, error) {
	var rows []CampaignEvent
	err := store.db.WithContext(ctx).
		Where("campaign_id = ?", id.Int64()).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeGet, err)
	}
	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		event, err := mapEvent(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (store *Store) lockState(ctx context.Context) (LedgerState, error) {
	var state LedgerState
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&state, ledgerStateRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LedgerState{}, ledger.ErrLedgerNotInitialized
	}
	return state, err
}

func (store *Store) writeEscrow(ctx context.Context, balance ledger.Amount) error {
	return store.db.WithContext(ctx).
		Model(&LedgerState{}).
		Where("state_id = ?", ledgerStateRowID).
		Updates(map[string]any{"escrow_balance": balance.Int64(), "updated_at": time.Now().UTC()}).Error
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

func mapCampaign(model Campaign) (ledger.Campaign, error) {
	patron, err := ledger.NewAddress(model.PatronAddress)
	if err != nil {
		return ledger.Campaign{}, err
	}
	serviceProvider, err := ledger.NewAddress(model.ServiceProviderAddress)
	if err != nil {
		return ledger.Campaign{}, err
	}
	draft, err := ledger.NewCampaignDraft(
		model.Description,
		patron,
		ledger.Units(model.TotalUnitsAvailable),
		ledger.Amount(model.UnitPrice),
		serviceProvider,
		ledger.BlockHeight(model.ClosingBlock),
	)
	if err != nil {
		return ledger.Campaign{}, err
	}
	state := ledger.CampaignState{
		UnitsSold:     ledger.Units(model.UnitsSold),
		UnitsConsumed: ledger.Units(model.UnitsConsumed),
		IsOpen:        model.IsOpen,
	}
	return ledger.NewCampaign(ledger.CampaignID(model.CampaignID), draft, state, model.CreatedAt.Unix())
}

func mapEvent(row CampaignEvent) (ledger.Event, error) {
	eventType, err := ledger.ParseEventType(row.Type)
	if err != nil {
		return ledger.Event{}, err
	}
	actor, err := ledger.NewAddress(row.ActorAddress)
	if err != nil {
		return ledger.Event{}, err
	}
	event := ledger.Event{
		Sequence:          row.Sequence,
		EventID:           row.EventID,
		Type:              eventType,
		CampaignID:        ledger.CampaignID(row.CampaignID),
		Actor:             actor,
		Units:             ledger.Units(row.Units),
		Amount:            ledger.Amount(row.Amount),
		TransferReference: row.TransferReference,
		OccurredUnixUTC:   row.OccurredAt.Unix(),
	}
	if eventType == ledger.EventCampaignAdded {
		campaign, err := campaignFromSnapshot(event.CampaignID, row.Payload.Data(), event.OccurredUnixUTC)
		if err != nil {
			return ledger.Event{}, err
		}
		event.Campaign = &campaign
	}
	return event, nil
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

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
