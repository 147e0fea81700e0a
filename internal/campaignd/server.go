// Package campaignd runs the campaign ledger gRPC daemon.
package campaignd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	campaignv1 "github.com/MarkoPoloResearchLab/campaigns/api/campaign/v1"
	"github.com/MarkoPoloResearchLab/campaigns/internal/audit"
	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/MarkoPoloResearchLab/campaigns/internal/eventbus"
	"github.com/MarkoPoloResearchLab/campaigns/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/campaigns/internal/payout"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const natsClientName = "campaignd"

// Run boots the daemon and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return Serve(ctx, cfg, listener, logger)
}

// Serve runs the daemon on an existing listener. cfg must already be validated.
func Serve(ctx context.Context, cfg Config, listener net.Listener, logger *zap.Logger) error {
	owner, err := ledger.NewAddress(cfg.OwnerAddress)
	if err != nil {
		return fmt.Errorf("owner address: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(natsClientName))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer natsConn.Close()
	}

	transferer, err := newTransferer(cfg, natsConn, logger)
	if err != nil {
		return err
	}

	sinks := []ledger.EventSink{audit.NewEventLogger(logger)}
	if natsConn != nil {
		sinks = append(sinks, eventbus.NewSink(natsConn, eventbus.DefaultSubjectPrefix, logger))
	}
	options := []ledger.ServiceOption{
		ledger.WithOperationLogger(audit.NewOperationLogger(logger)),
		ledger.WithEventSinks(sinks...),
	}
	if cfg.StrictValidation {
		options = append(options, ledger.WithStrictValidation())
	}
	clock := func() int64 { return time.Now().UTC().Unix() }
	campaignService, err := ledger.NewService(store, transferer, owner, clock, options...)
	if err != nil {
		return fmt.Errorf("campaign service init: %w", err)
	}
	if err := campaignService.BindOwner(ctx); err != nil {
		return fmt.Errorf("bind owner: %w", err)
	}

	verifier, err := auth.NewVerifier([]byte(cfg.JWTSigningKey), cfg.JWTIssuer)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(campaignv1.ServerCodec(), grpc.UnaryInterceptor(auth.UnaryServerInterceptor(verifier)))
	campaignv1.RegisterCampaignServiceServer(grpcServer, grpcserver.NewCampaignServiceServer(campaignService))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(campaignv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("gRPC server starting",
			zap.String("listen_addr", listener.Addr().String()),
			zap.String("owner", owner.String()),
			zap.String("store_backend", cfg.StoreBackend),
			zap.String("payout_mode", cfg.PayoutMode),
			zap.Bool("strict_validation", cfg.StrictValidation),
		)
		if serveErr := grpcServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown requested")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})
	return group.Wait()
}

func newTransferer(cfg Config, natsConn *nats.Conn, logger *zap.Logger) (ledger.Transferer, error) {
	if cfg.PayoutMode == PayoutModeNATS {
		if natsConn == nil {
			return nil, fmt.Errorf("payout mode %q requires a nats connection", cfg.PayoutMode)
		}
		return payout.NewRequester(natsConn, cfg.PayoutSubject, cfg.PayoutTimeout, logger)
	}
	return payout.NewManual(logger), nil
}
