package ledger

const (
	operationAddCampaign = "add_campaign"
	operationDonate      = "donate"
	operationConsume     = "consume"
	operationClose       = "close"
	operationBindOwner   = "bind_owner"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	errorOperationService = "service"
	errorSubjectAmount    = "amount"
	errorSubjectUnits     = "units"
	errorSubjectEscrow    = "escrow"
	errorSubjectTransfer  = "transfer"
	errorCodeOverflow     = "overflow"
	errorCodeFailed       = "failed"

	hexAddressPrefix = "0x"

	closeIdempotencyKeyPrefix = "campaign-"
	closeIdempotencyKeySuffix = "-close"
)
