// Package payout moves settled campaign value to service providers.
package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	manualReferencePrefix = "manual-"
	defaultRequestTimeout = 5 * time.Second
)

var (
	// ErrPayoutRejected is returned when the payment service answers with an error.
	ErrPayoutRejected = errors.New("payout rejected")
	// ErrMissingReference is returned when the payment service acknowledges without a reference.
	ErrMissingReference = errors.New("payout reply missing reference")
)

var (
	_ ledger.Transferer = (*Requester)(nil)
	_ ledger.Transferer = (*Manual)(nil)
)

// RequestConn is the subset of *nats.Conn used by Requester.
type RequestConn interface {
	RequestWithContext(ctx context.Context, subject string, data []byte) (*nats.Msg, error)
}

// Request is the payload sent to the payment service.
// The payment service must treat a repeated IdempotencyKey as the same transfer.
type Request struct {
	CampaignID     int64  `json:"campaign_id"`
	Recipient      string `json:"recipient"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Reply is the payment service acknowledgement.
type Reply struct {
	Reference string `json:"reference"`
	Error     string `json:"error,omitempty"`
}

// Requester asks a payment service over NATS request-reply and waits for its acknowledgement.
type Requester struct {
	conn    RequestConn
	subject string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRequester builds a Requester. A zero timeout uses five seconds.
func NewRequester(conn RequestConn, subject string, timeout time.Duration, logger *zap.Logger) (*Requester, error) {
	if conn == nil {
		return nil, errors.New("payout: nats connection is required")
	}
	if subject == "" {
		return nil, errors.New("payout: subject is required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requester{conn: conn, subject: subject, timeout: timeout, logger: logger}, nil
}

// Transfer implements ledger.Transferer.
func (requester *Requester) Transfer(ctx context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
	payload, err := json.Marshal(Request{
		CampaignID:     request.CampaignID.Int64(),
		Recipient:      request.Recipient.String(),
		Amount:         request.Amount.Int64(),
		IdempotencyKey: request.IdempotencyKey,
	})
	if err != nil {
		return ledger.TransferReceipt{}, fmt.Errorf("payout: encode request: %w", err)
	}
	requestContext, cancel := context.WithTimeout(ctx, requester.timeout)
	defer cancel()

	message, err := requester.conn.RequestWithContext(requestContext, requester.subject, payload)
	if err != nil {
		requester.logger.Warn("payout request failed",
			zap.Int64("campaign_id", request.CampaignID.Int64()),
			zap.String("subject", requester.subject),
			zap.Error(err))
		return ledger.TransferReceipt{}, fmt.Errorf("payout: request: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal(message.Data, &reply); err != nil {
		return ledger.TransferReceipt{}, fmt.Errorf("payout: decode reply: %w", err)
	}
	if reply.Error != "" {
		return ledger.TransferReceipt{}, fmt.Errorf("%w: %s", ErrPayoutRejected, reply.Error)
	}
	if reply.Reference == "" {
		return ledger.TransferReceipt{}, ErrMissingReference
	}
	requester.logger.Info("payout acknowledged",
		zap.Int64("campaign_id", request.CampaignID.Int64()),
		zap.String("recipient", request.Recipient.String()),
		zap.Int64("amount", request.Amount.Int64()),
		zap.String("reference", reply.Reference))
	return ledger.TransferReceipt{Reference: reply.Reference}, nil
}

// Manual records payout instructions for an operator to execute out of band.
type Manual struct {
	logger *zap.Logger
}

// NewManual builds a Manual transferer.
func NewManual(logger *zap.Logger) *Manual {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manual{logger: logger}
}

// Transfer implements ledger.Transferer. It always succeeds.
func (manual *Manual) Transfer(_ context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
	reference := manualReferencePrefix + uuid.NewString()
	manual.logger.Info("manual payout required",
		zap.Int64("campaign_id", request.CampaignID.Int64()),
		zap.String("recipient", request.Recipient.String()),
		zap.Int64("amount", request.Amount.Int64()),
		zap.String("idempotency_key", request.IdempotencyKey),
		zap.String("reference", reference))
	return ledger.TransferReceipt{Reference: reference}, nil
}
