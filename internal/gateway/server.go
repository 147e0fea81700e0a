// Package gateway exposes the campaign ledger over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	campaignv1 "github.com/MarkoPoloResearchLab/campaigns/api/campaign/v1"
	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	headerAuthorization = "Authorization"
	paramCampaignID     = "id"

	errorCodeInvalidPayload       = "invalid_payload"
	errorCodeInvalidCampaignID    = "invalid_campaign_id"
	errorCodeInvalidAuthorization = "invalid_authorization"
	errorCodeLedgerUnavailable    = "ledger_unavailable"
	errorCodeInternal             = "internal"
	errorCodeInsufficientPayment  = "insufficient_payment"
)

// Run boots the HTTP gateway using the supplied configuration.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	dialOptions := []grpc.DialOption{}
	if cfg.LedgerInsecure {
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	conn, err := grpc.NewClient(cfg.LedgerAddress, dialOptions...)
	if err != nil {
		return fmt.Errorf("connect ledger: %w", err)
	}
	conn.Connect()
	if err := waitForClientReady(ctx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect ledger: %w", err)
	}
	defer conn.Close()

	handler, err := NewHandler(campaignv1.NewCampaignServiceClient(conn), cfg, logger)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("campaignapi listening", zap.String("addr", cfg.ListenAddr), zap.String("ledger_addr", cfg.LedgerAddress))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires the HTTP routes.
func NewRouter(cfg Config, handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", headerAuthorization},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/campaigns", handler.handleAddCampaign)
	api.GET("/campaigns/:id", handler.handleReadCampaign)
	api.POST("/campaigns/:id/donations", handler.handleDonate)
	api.POST("/campaigns/:id/consumptions", handler.handleConsume)
	api.POST("/campaigns/:id/close", handler.handleClose)
	api.GET("/campaigns/:id/events", handler.handleListEvents)
	api.GET("/escrow", handler.handleEscrow)

	return router
}

// Handler translates HTTP requests into ledger RPCs.
type Handler struct {
	logger       *zap.Logger
	ledgerClient campaignv1.CampaignServiceClient
	closed       *lru.Cache[int64, campaignPayload]
	timeout      time.Duration
}

// NewHandler builds a Handler. Closed campaigns never change, so their snapshots are cached.
func NewHandler(ledgerClient campaignv1.CampaignServiceClient, cfg Config, logger *zap.Logger) (*Handler, error) {
	if ledgerClient == nil {
		return nil, errors.New("ledger client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	closed, err := lru.New[int64, campaignPayload](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("campaign cache: %w", err)
	}
	timeout := cfg.LedgerTimeout
	if timeout <= 0 {
		timeout = defaultLedgerTimeout
	}
	return &Handler{logger: logger, ledgerClient: ledgerClient, closed: closed, timeout: timeout}, nil
}

func (handler *Handler) handleAddCampaign(ctx *gin.Context) {
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	var request addCampaignRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON campaign body"))
		return
	}
	response, err := handler.ledgerClient.AddCampaign(requestCtx, &campaignv1.AddCampaignRequest{
		Description:         request.Description,
		Patron:              request.Patron,
		TotalUnitsAvailable: request.TotalUnitsAvailable,
		UnitPrice:           request.UnitPrice,
		ServiceProvider:     request.ServiceProvider,
		ClosingBlock:        request.ClosingBlock,
	})
	if err != nil {
		handler.respondLedgerError(ctx, "add campaign", err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"campaign": newCampaignPayload(response.GetCampaign())})
}

func (handler *Handler) handleReadCampaign(ctx *gin.Context) {
	campaignID, ok := parseCampaignID(ctx)
	if !ok {
		return
	}
	if cached, hit := handler.closed.Get(campaignID); hit {
		ctx.JSON(http.StatusOK, gin.H{"campaign": cached})
		return
	}
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	response, err := handler.ledgerClient.ReadCampaign(requestCtx, &campaignv1.ReadCampaignRequest{CampaignId: campaignID})
	if err != nil {
		handler.respondLedgerError(ctx, "read campaign", err)
		return
	}
	payload := newCampaignPayload(response.GetCampaign())
	if !payload.IsOpen {
		handler.closed.Add(campaignID, payload)
	}
	ctx.JSON(http.StatusOK, gin.H{"campaign": payload})
}

func (handler *Handler) handleDonate(ctx *gin.Context) {
	campaignID, ok := parseCampaignID(ctx)
	if !ok {
		return
	}
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	var request donateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body with units and amount_paid"))
		return
	}
	response, err := handler.ledgerClient.Donate(requestCtx, &campaignv1.DonateRequest{
		CampaignId: campaignID,
		Units:      request.Units,
		AmountPaid: request.AmountPaid,
	})
	if err != nil {
		handler.respondLedgerError(ctx, "donate", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"campaign": newCampaignPayload(response.GetCampaign())})
}

func (handler *Handler) handleConsume(ctx *gin.Context) {
	campaignID, ok := parseCampaignID(ctx)
	if !ok {
		return
	}
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	var request consumeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body with units"))
		return
	}
	response, err := handler.ledgerClient.Consume(requestCtx, &campaignv1.ConsumeRequest{CampaignId: campaignID, Units: request.Units})
	if err != nil {
		handler.respondLedgerError(ctx, "consume", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"campaign": newCampaignPayload(response.GetCampaign())})
}

func (handler *Handler) handleClose(ctx *gin.Context) {
	campaignID, ok := parseCampaignID(ctx)
	if !ok {
		return
	}
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	response, err := handler.ledgerClient.Close(requestCtx, &campaignv1.CloseRequest{CampaignId: campaignID})
	if err != nil {
		handler.respondLedgerError(ctx, "close", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settlement": settlementPayload{
		CampaignID:        response.CampaignId,
		ServiceProvider:   response.ServiceProvider,
		Amount:            response.Amount,
		TransferReference: response.TransferReference,
	}})
}

func (handler *Handler) handleListEvents(ctx *gin.Context) {
	campaignID, ok := parseCampaignID(ctx)
	if !ok {
		return
	}
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	response, err := handler.ledgerClient.ListEvents(requestCtx, &campaignv1.ListEventsRequest{CampaignId: campaignID})
	if err != nil {
		handler.respondLedgerError(ctx, "list events", err)
		return
	}
	events := make([]eventPayload, 0, len(response.GetEvents()))
	for _, event := range response.GetEvents() {
		events = append(events, newEventPayload(event))
	}
	ctx.JSON(http.StatusOK, gin.H{"events": events})
}

func (handler *Handler) handleEscrow(ctx *gin.Context) {
	requestCtx, cancel, ok := handler.ledgerContext(ctx)
	if !ok {
		return
	}
	defer cancel()
	response, err := handler.ledgerClient.GetEscrowBalance(requestCtx, &campaignv1.GetEscrowBalanceRequest{})
	if err != nil {
		handler.respondLedgerError(ctx, "escrow balance", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"escrow": escrowPayload{
		Balance:       response.GetBalance(),
		CampaignCount: response.GetCampaignCount(),
	}})
}

// ledgerContext bounds the RPC and forwards the caller's bearer token.
func (handler *Handler) ledgerContext(ctx *gin.Context) (context.Context, context.CancelFunc, bool) {
	requestCtx := ctx.Request.Context()
	if header := ctx.GetHeader(headerAuthorization); header != "" {
		token, ok := auth.BearerFromHeader(header)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, errorResponse(errorCodeInvalidAuthorization, "expected a Bearer token"))
			return nil, nil, false
		}
		requestCtx = auth.OutgoingContext(requestCtx, token)
	}
	requestCtx, cancel := context.WithTimeout(requestCtx, handler.timeout)
	return requestCtx, cancel, true
}

func (handler *Handler) respondLedgerError(ctx *gin.Context, operation string, err error) {
	statusInfo, ok := status.FromError(err)
	if !ok {
		handler.logger.Error("ledger call failed", zap.String("operation", operation), zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse(errorCodeLedgerUnavailable, "ledger call failed"))
		return
	}
	httpStatus, code := httpStatusFor(statusInfo)
	if httpStatus >= http.StatusInternalServerError {
		handler.logger.Error("ledger call failed", zap.String("operation", operation), zap.String("grpc_code", statusInfo.Code().String()), zap.Error(err))
	}
	ctx.JSON(httpStatus, errorResponse(code, operation+" failed"))
}

func httpStatusFor(statusInfo *status.Status) (int, string) {
	message := statusInfo.Message()
	switch statusInfo.Code() {
	case codes.PermissionDenied:
		return http.StatusForbidden, message
	case codes.Unauthenticated:
		return http.StatusUnauthorized, message
	case codes.NotFound:
		return http.StatusNotFound, message
	case codes.FailedPrecondition:
		return http.StatusConflict, message
	case codes.InvalidArgument, codes.OutOfRange:
		if message == errorCodeInsufficientPayment {
			return http.StatusPaymentRequired, message
		}
		return http.StatusBadRequest, message
	case codes.Aborted, codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusBadGateway, message
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

func parseCampaignID(ctx *gin.Context) (int64, bool) {
	campaignID, err := strconv.ParseInt(ctx.Param(paramCampaignID), 10, 64)
	if err != nil || campaignID < 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidCampaignID, "campaign id must be a non-negative integer"))
		return 0, false
	}
	return campaignID, true
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// Amounts travel as JSON strings; unit prices in the smallest currency unit exceed float precision.
type addCampaignRequest struct {
	Description         string `json:"description"`
	Patron              string `json:"patron"`
	TotalUnitsAvailable int64  `json:"total_units_available"`
	UnitPrice           int64  `json:"unit_price,string"`
	ServiceProvider     string `json:"service_provider"`
	ClosingBlock        int64  `json:"closing_block"`
}

type donateRequest struct {
	Units      int64 `json:"units"`
	AmountPaid int64 `json:"amount_paid,string"`
}

type consumeRequest struct {
	Units int64 `json:"units"`
}

type campaignPayload struct {
	CampaignID          int64  `json:"campaign_id"`
	Description         string `json:"description"`
	Patron              string `json:"patron"`
	TotalUnitsAvailable int64  `json:"total_units_available"`
	UnitPrice           int64  `json:"unit_price,string"`
	ServiceProvider     string `json:"service_provider"`
	ClosingBlock        int64  `json:"closing_block"`
	UnitsSold           int64  `json:"units_sold"`
	UnitsConsumed       int64  `json:"units_consumed"`
	IsOpen              bool   `json:"is_open"`
	CreatedUnixUTC      int64  `json:"created_unix_utc"`
}

type settlementPayload struct {
	CampaignID        int64  `json:"campaign_id"`
	ServiceProvider   string `json:"service_provider"`
	Amount            int64  `json:"amount,string"`
	TransferReference string `json:"transfer_reference"`
}

type eventPayload struct {
	Sequence          int64            `json:"sequence"`
	EventID           string           `json:"event_id"`
	Type              string           `json:"type"`
	CampaignID        int64            `json:"campaign_id"`
	Actor             string           `json:"actor"`
	Units             int64            `json:"units"`
	Amount            int64            `json:"amount,string"`
	TransferReference string           `json:"transfer_reference,omitempty"`
	OccurredUnixUTC   int64            `json:"occurred_unix_utc"`
	Campaign          *campaignPayload `json:"campaign,omitempty"`
}

type escrowPayload struct {
	Balance       int64 `json:"balance,string"`
	CampaignCount int64 `json:"campaign_count"`
}

func newEventPayload(event *campaignv1.CampaignEvent) eventPayload {
	payload := eventPayload{
		Sequence:          event.Sequence,
		EventID:           event.EventId,
		Type:              event.Type,
		CampaignID:        event.CampaignId,
		Actor:             event.Actor,
		Units:             event.Units,
		Amount:            event.Amount,
		TransferReference: event.TransferReference,
		OccurredUnixUTC:   event.OccurredUnixUtc,
	}
	if event.Campaign != nil {
		campaign := newCampaignPayload(event.Campaign)
		payload.Campaign = &campaign
	}
	return payload
}

func newCampaignPayload(campaign *campaignv1.Campaign) campaignPayload {
	if campaign == nil {
		return campaignPayload{}
	}
	return campaignPayload{
		CampaignID:          campaign.CampaignId,
		Description:         campaign.Description,
		Patron:              campaign.Patron,
		TotalUnitsAvailable: campaign.TotalUnitsAvailable,
		UnitPrice:           campaign.UnitPrice,
		ServiceProvider:     campaign.ServiceProvider,
		ClosingBlock:        campaign.ClosingBlock,
		UnitsSold:           campaign.UnitsSold,
		UnitsConsumed:       campaign.UnitsConsumed,
		IsOpen:              campaign.IsOpen,
		CreatedUnixUTC:      campaign.CreatedUnixUtc,
	}
}

func waitForClientReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if state == connectivity.Shutdown {
			return errors.New("grpc connection shutdown before ready")
		}
		if !conn.WaitForStateChange(ctx, state) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return errors.New("grpc connection failed to reach ready state")
		}
	}
}
