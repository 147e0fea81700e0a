package campaignv1

// Field numbers follow campaign.proto.

// Campaign is the wire form of a stored campaign.
type Campaign struct {
	CampaignId          int64  `json:"campaign_id"`
	Description         string `json:"description"`
	Patron              string `json:"patron"`
	TotalUnitsAvailable int64  `json:"total_units_available"`
	UnitPrice           int64  `json:"unit_price"`
	ServiceProvider     string `json:"service_provider"`
	ClosingBlock        int64  `json:"closing_block"`
	UnitsSold           int64  `json:"units_sold"`
	UnitsConsumed       int64  `json:"units_consumed"`
	IsOpen              bool   `json:"is_open"`
	CreatedUnixUtc      int64  `json:"created_unix_utc"`
}

func (message *Campaign) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *Campaign) GetIsOpen() bool {
	if message == nil {
		return false
	}
	return message.IsOpen
}

func (message *Campaign) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.CampaignId)
	buf = appendString(buf, 2, message.Description)
	buf = appendString(buf, 3, message.Patron)
	buf = appendInt64(buf, 4, message.TotalUnitsAvailable)
	buf = appendInt64(buf, 5, message.UnitPrice)
	buf = appendString(buf, 6, message.ServiceProvider)
	buf = appendInt64(buf, 7, message.ClosingBlock)
	buf = appendInt64(buf, 8, message.UnitsSold)
	buf = appendInt64(buf, 9, message.UnitsConsumed)
	buf = appendBool(buf, 10, message.IsOpen)
	return appendInt64(buf, 11, message.CreatedUnixUtc)
}

func (message *Campaign) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.CampaignId = field.asInt64()
		case 2:
			message.Description = field.asString()
		case 3:
			message.Patron = field.asString()
		case 4:
			message.TotalUnitsAvailable = field.asInt64()
		case 5:
			message.UnitPrice = field.asInt64()
		case 6:
			message.ServiceProvider = field.asString()
		case 7:
			message.ClosingBlock = field.asInt64()
		case 8:
			message.UnitsSold = field.asInt64()
		case 9:
			message.UnitsConsumed = field.asInt64()
		case 10:
			message.IsOpen = field.asBool()
		case 11:
			message.CreatedUnixUtc = field.asInt64()
		}
		return nil
	})
}

type AddCampaignRequest struct {
	Description         string `json:"description"`
	Patron              string `json:"patron"`
	TotalUnitsAvailable int64  `json:"total_units_available"`
	UnitPrice           int64  `json:"unit_price"`
	ServiceProvider     string `json:"service_provider"`
	ClosingBlock        int64  `json:"closing_block"`
}

func (message *AddCampaignRequest) appendWire(buf []byte) []byte {
	buf = appendString(buf, 1, message.Description)
	buf = appendString(buf, 2, message.Patron)
	buf = appendInt64(buf, 3, message.TotalUnitsAvailable)
	buf = appendInt64(buf, 4, message.UnitPrice)
	buf = appendString(buf, 5, message.ServiceProvider)
	return appendInt64(buf, 6, message.ClosingBlock)
}

func (message *AddCampaignRequest) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.Description = field.asString()
		case 2:
			message.Patron = field.asString()
		case 3:
			message.TotalUnitsAvailable = field.asInt64()
		case 4:
			message.UnitPrice = field.asInt64()
		case 5:
			message.ServiceProvider = field.asString()
		case 6:
			message.ClosingBlock = field.asInt64()
		}
		return nil
	})
}

type CampaignResponse struct {
	Campaign *Campaign `json:"campaign"`
}

func (message *CampaignResponse) GetCampaign() *Campaign {
	if message == nil {
		return nil
	}
	return message.Campaign
}

func (message *CampaignResponse) appendWire(buf []byte) []byte {
	if message.Campaign != nil {
		buf = appendMessage(buf, 1, message.Campaign)
	}
	return buf
}

func (message *CampaignResponse) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		if field.number != 1 {
			return nil
		}
		if message.Campaign == nil {
			message.Campaign = &Campaign{}
		}
		return message.Campaign.consumeWire(field.bytes)
	})
}

type ReadCampaignRequest struct {
	CampaignId int64 `json:"campaign_id"`
}

func (message *ReadCampaignRequest) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *ReadCampaignRequest) appendWire(buf []byte) []byte {
	return appendInt64(buf, 1, message.CampaignId)
}

func (message *ReadCampaignRequest) consumeWire(data []byte) error {
	return consumeCampaignID(data, &message.CampaignId)
}

type DonateRequest struct {
	CampaignId int64 `json:"campaign_id"`
	Units      int64 `json:"units"`
	AmountPaid int64 `json:"amount_paid"`
}

func (message *DonateRequest) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *DonateRequest) GetUnits() int64 {
	if message == nil {
		return 0
	}
	return message.Units
}

func (message *DonateRequest) GetAmountPaid() int64 {
	if message == nil {
		return 0
	}
	return message.AmountPaid
}

func (message *DonateRequest) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.CampaignId)
	buf = appendInt64(buf, 2, message.Units)
	return appendInt64(buf, 3, message.AmountPaid)
}

func (message *DonateRequest) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.CampaignId = field.asInt64()
		case 2:
			message.Units = field.asInt64()
		case 3:
			message.AmountPaid = field.asInt64()
		}
		return nil
	})
}

type ConsumeRequest struct {
	CampaignId int64 `json:"campaign_id"`
	Units      int64 `json:"units"`
}

func (message *ConsumeRequest) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *ConsumeRequest) GetUnits() int64 {
	if message == nil {
		return 0
	}
	return message.Units
}

func (message *ConsumeRequest) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.CampaignId)
	return appendInt64(buf, 2, message.Units)
}

func (message *ConsumeRequest) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.CampaignId = field.asInt64()
		case 2:
			message.Units = field.asInt64()
		}
		return nil
	})
}

type CloseRequest struct {
	CampaignId int64 `json:"campaign_id"`
}

func (message *CloseRequest) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *CloseRequest) appendWire(buf []byte) []byte {
	return appendInt64(buf, 1, message.CampaignId)
}

func (message *CloseRequest) consumeWire(data []byte) error {
	return consumeCampaignID(data, &message.CampaignId)
}

type CloseResponse struct {
	CampaignId        int64  `json:"campaign_id"`
	ServiceProvider   string `json:"service_provider"`
	Amount            int64  `json:"amount"`
	TransferReference string `json:"transfer_reference"`
}

func (message *CloseResponse) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.CampaignId)
	buf = appendString(buf, 2, message.ServiceProvider)
	buf = appendInt64(buf, 3, message.Amount)
	return appendString(buf, 4, message.TransferReference)
}

func (message *CloseResponse) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.CampaignId = field.asInt64()
		case 2:
			message.ServiceProvider = field.asString()
		case 3:
			message.Amount = field.asInt64()
		case 4:
			message.TransferReference = field.asString()
		}
		return nil
	})
}

type GetEscrowBalanceRequest struct{}

func (message *GetEscrowBalanceRequest) appendWire(buf []byte) []byte {
	return buf
}

func (message *GetEscrowBalanceRequest) consumeWire(data []byte) error {
	return consumeFields(data, func(wireField) error { return nil })
}

type GetEscrowBalanceResponse struct {
	Balance       int64 `json:"balance"`
	CampaignCount int64 `json:"campaign_count"`
}

func (message *GetEscrowBalanceResponse) GetBalance() int64 {
	if message == nil {
		return 0
	}
	return message.Balance
}

func (message *GetEscrowBalanceResponse) GetCampaignCount() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignCount
}

func (message *GetEscrowBalanceResponse) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.Balance)
	return appendInt64(buf, 2, message.CampaignCount)
}

func (message *GetEscrowBalanceResponse) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.Balance = field.asInt64()
		case 2:
			message.CampaignCount = field.asInt64()
		}
		return nil
	})
}

type ListEventsRequest struct {
	CampaignId int64 `json:"campaign_id"`
}

func (message *ListEventsRequest) GetCampaignId() int64 {
	if message == nil {
		return 0
	}
	return message.CampaignId
}

func (message *ListEventsRequest) appendWire(buf []byte) []byte {
	return appendInt64(buf, 1, message.CampaignId)
}

func (message *ListEventsRequest) consumeWire(data []byte) error {
	return consumeCampaignID(data, &message.CampaignId)
}

// CampaignEvent is one journal entry. Campaign is set only for campaign_added.
type CampaignEvent struct {
	Sequence          int64     `json:"sequence"`
	EventId           string    `json:"event_id"`
	Type              string    `json:"type"`
	CampaignId        int64     `json:"campaign_id"`
	Actor             string    `json:"actor"`
	Units             int64     `json:"units"`
	Amount            int64     `json:"amount"`
	TransferReference string    `json:"transfer_reference"`
	OccurredUnixUtc   int64     `json:"occurred_unix_utc"`
	Campaign          *Campaign `json:"campaign,omitempty"`
}

func (message *CampaignEvent) appendWire(buf []byte) []byte {
	buf = appendInt64(buf, 1, message.Sequence)
	buf = appendString(buf, 2, message.EventId)
	buf = appendString(buf, 3, message.Type)
	buf = appendInt64(buf, 4, message.CampaignId)
	buf = appendString(buf, 5, message.Actor)
	buf = appendInt64(buf, 6, message.Units)
	buf = appendInt64(buf, 7, message.Amount)
	buf = appendString(buf, 8, message.TransferReference)
	buf = appendInt64(buf, 9, message.OccurredUnixUtc)
	if message.Campaign != nil {
		buf = appendMessage(buf, 10, message.Campaign)
	}
	return buf
}

func (message *CampaignEvent) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		switch field.number {
		case 1:
			message.Sequence = field.asInt64()
		case 2:
			message.EventId = field.asString()
		case 3:
			message.Type = field.asString()
		case 4:
			message.CampaignId = field.asInt64()
		case 5:
			message.Actor = field.asString()
		case 6:
			message.Units = field.asInt64()
		case 7:
			message.Amount = field.asInt64()
		case 8:
			message.TransferReference = field.asString()
		case 9:
			message.OccurredUnixUtc = field.asInt64()
		case 10:
			if message.Campaign == nil {
				message.Campaign = &Campaign{}
			}
			return message.Campaign.consumeWire(field.bytes)
		}
		return nil
	})
}

type ListEventsResponse struct {
	Events []*CampaignEvent `json:"events"`
}

func (message *ListEventsResponse) GetEvents() []*CampaignEvent {
	if message == nil {
		return nil
	}
	return message.Events
}

func (message *ListEventsResponse) appendWire(buf []byte) []byte {
	for _, event := range message.Events {
		if event == nil {
			event = &CampaignEvent{}
		}
		buf = appendMessage(buf, 1, event)
	}
	return buf
}

func (message *ListEventsResponse) consumeWire(data []byte) error {
	return consumeFields(data, func(field wireField) error {
		if field.number != 1 {
			return nil
		}
		event := &CampaignEvent{}
		if err := event.consumeWire(field.bytes); err != nil {
			return err
		}
		message.Events = append(message.Events, event)
		return nil
	})
}

func consumeCampaignID(data []byte, target *int64) error {
	return consumeFields(data, func(field wireField) error {
		if field.number == 1 {
			*target = field.asInt64()
		}
		return nil
	})
}
