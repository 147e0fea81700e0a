package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ledgerStateRowID = 1

// LedgerState mirrors the single-row ledger_state table.
type LedgerState struct {
	StateID        int       `gorm:"primaryKey;autoIncrement:false"`
	OwnerAddress   string    `gorm:"not null"`
	NextCampaignID int64     `gorm:"not null;default:0"`
	EscrowBalance  int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName binds LedgerState to ledger_state.
func (LedgerState) TableName() string {
	return "ledger_state"
}

// Campaign mirrors the campaigns table.
type Campaign struct {
	CampaignID             int64     `gorm:"primaryKey;autoIncrement:false"`
	Description            string    `gorm:"not null"`
	PatronAddress          string    `gorm:"not null"`
	TotalUnitsAvailable    int64     `gorm:"not null"`
	UnitPrice              int64     `gorm:"not null"`
	ServiceProviderAddress string    `gorm:"not null"`
	ClosingBlock           int64     `gorm:"not null"`
	UnitsSold              int64     `gorm:"not null;default:0"`
	UnitsConsumed          int64     `gorm:"not null;default:0"`
	IsOpen                 bool      `gorm:"not null"`
	CreatedAt              time.Time `gorm:"not null"`
}

// TableName binds Campaign to campaigns.
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignEvent mirrors the campaign_events journal. Sequence is the append order.
type CampaignEvent struct {
	Sequence          int64                                `gorm:"primaryKey;autoIncrement;index:idx_campaign_events_campaign_sequence,priority:2"`
	EventID           string                               `gorm:"type:uuid;uniqueIndex;not null"`
	CampaignID        int64                                `gorm:"not null;index:idx_campaign_events_campaign_sequence,priority:1"`
	Type              string                               `gorm:"not null"`
	ActorAddress      string                               `gorm:"not null"`
	Units             int64                                `gorm:"not null"`
	Amount            int64                                `gorm:"not null"`
	TransferReference string                               `gorm:"not null;default:''"`
	Payload           datatypes.JSONType[campaignSnapshot] `gorm:"not null"`
	OccurredAt        time.Time                            `gorm:"not null"`
}

// TableName binds CampaignEvent to campaign_events.
func (CampaignEvent) TableName() string {
	return "campaign_events"
}

// BeforeCreate assigns the public event identifier.
func (event *CampaignEvent) BeforeCreate(tx *gorm.DB) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return nil
}

// Payout mirrors the payouts table; one row per closed campaign.
type Payout struct {
	CampaignID       int64     `gorm:"primaryKey;autoIncrement:false"`
	RecipientAddress string    `gorm:"not null"`
	Amount           int64     `gorm:"not null"`
	Reference        string    `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName binds Payout to payouts.
func (Payout) TableName() string {
	return "payouts"
}

// campaignSnapshot is the journal payload. Only campaign_added events carry fields.
type campaignSnapshot struct {
	Description         string `json:"description,omitempty"`
	Patron              string `json:"patron,omitempty"`
	TotalUnitsAvailable int64  `json:"total_units_available,omitempty"`
	UnitPrice           int64  `json:"unit_price,omitempty"`
	ServiceProvider     string `json:"service_provider,omitempty"`
	ClosingBlock        int64  `json:"closing_block,omitempty"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&LedgerState{}, &Campaign{}, &CampaignEvent{}, &Payout{}}
}
