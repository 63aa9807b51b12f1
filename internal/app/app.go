package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/internal/adapter/http/server"
	wshandler "github.com/fieldhail/dispatch-system/internal/adapter/http/ws"
	adapterpg "github.com/fieldhail/dispatch-system/internal/adapter/postgres"
	"github.com/fieldhail/dispatch-system/internal/adapter/rabbit"
	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/service/dispatch"
	"github.com/fieldhail/dispatch-system/internal/service/identity"
	"github.com/fieldhail/dispatch-system/internal/service/matching"
	"github.com/fieldhail/dispatch-system/internal/service/tracking"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/postgres"
	rabbitmq "github.com/fieldhail/dispatch-system/pkg/rabbit"
	"github.com/fieldhail/dispatch-system/pkg/trm"
	ws "github.com/fieldhail/dispatch-system/pkg/wsHub"
)

// App wires every collaborator of the dispatch service and owns their
// lifecycle: storage, broker, websocket hub, HTTP server.
type App struct {
	cfg config.Config
	log logger.Logger

	db      *postgres.PostgreDB
	broker  *rabbitmq.RabbitMQ
	connHub *ws.ConnectionHub
	api     *server.API

	tracker  *tracking.Service
	dispatch *rabbit.DispatchBroker
}

func New(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	ctx = wrap.WithAction(ctx, "app_init")

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info(ctx, "connected to postgres", "host", cfg.Database.Host)

	broker, err := rabbitmq.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		db.Pool.Close()
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	log.Info(ctx, "connected to rabbitmq", "host", cfg.RabbitMQ.Host)

	// Storage
	bookingRepo := adapterpg.NewBookingRepo(db.Pool, cfg.Database.QueryTimeout)
	professionalRepo := adapterpg.NewProfessionalRepo(db.Pool, cfg.Database.QueryTimeout)
	eventRepo := adapterpg.NewBookingEventRepo(db.Pool, cfg.Database.QueryTimeout)
	txManager := trm.New(db.Pool)

	// Messaging
	dispatchBroker := rabbit.NewDispatchBroker(broker, log)
	if err := dispatchBroker.Setup(ctx); err != nil {
		broker.Close(ctx)
		db.Pool.Close()
		return nil, fmt.Errorf("failed to declare rabbitmq topology: %w", err)
	}

	// Live tracking over websocket
	connHub := ws.NewConnHub(log)
	caster := tracking.NewBroadcaster(connHub, log)
	tracker := tracking.New(tracking.NewRegistry(), bookingRepo, professionalRepo, caster, log)

	// Core
	matcher := matching.New(professionalRepo, cfg.Dispatch, log)
	engine := dispatch.New(bookingRepo, professionalRepo, eventRepo, matcher, tracker, dispatchBroker, txManager, log)

	identitySvc := identity.New(cfg.Auth.JWTSecret)
	trackingHub := wshandler.NewTrackingHub(connHub, tracker, log)

	api, err := server.New(cfg, engine, engine, tracker, trackingHub, identitySvc, db.Pool, log)
	if err != nil {
		broker.Close(ctx)
		db.Pool.Close()
		return nil, fmt.Errorf("failed to init http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		broker:   broker,
		connHub:  connHub,
		api:      api,
		tracker:  tracker,
		dispatch: dispatchBroker,
	}, nil
}

// Run starts the HTTP server and the queue consumers, then blocks until a
// shutdown signal or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	a.api.Run(ctx, errCh)

	go a.connHub.RunHealthcheck(ctx, a.cfg.Tracking.PingInterval)

	if a.cfg.RabbitMQ.ConsumePositions {
		go func() {
			consumeCtx := wrap.WithAction(ctx, "consume_positions")
			if err := a.dispatch.ConsumePositions(consumeCtx, func(ctx context.Context, msg models.PositionUpdateMessage) error {
				_, err := a.tracker.UpdatePosition(ctx, msg)
				return err
			}); err != nil {
				a.log.Error(wrap.ErrorCtx(consumeCtx, err), "position consumer stopped", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.log.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		a.log.Error(wrap.ErrorCtx(ctx, err), "http server failed", err)
		return a.shutdown(context.Background(), err)
	}

	return a.shutdown(context.Background(), nil)
}

func (a *App) shutdown(ctx context.Context, cause error) error {
	ctx = wrap.WithAction(ctx, "app_shutdown")
	a.log.Info(ctx, "shutting down...")

	if err := a.api.Stop(ctx); err != nil {
		a.log.Error(wrap.ErrorCtx(ctx, err), "failed to stop http server", err)
	}

	a.connHub.Close()

	if err := a.broker.Close(ctx); err != nil {
		a.log.Error(wrap.ErrorCtx(ctx, err), "failed to close rabbitmq connection", err)
	}

	a.db.Pool.Close()

	a.log.Info(ctx, "shutdown complete")
	return cause
}
