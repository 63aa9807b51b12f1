package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/internal/adapter/http/handler"
	"github.com/fieldhail/dispatch-system/internal/adapter/http/middleware"
	wshandler "github.com/fieldhail/dispatch-system/internal/adapter/http/ws"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

const (
	serverIPAddress = "%s:%s"
	version         = "1.0.0"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	booking  *handler.Booking
	admin    *handler.Admin
	health   *handler.Health
	tracking *wshandler.TrackingHub
}

func New(
	cfg config.Config,
	dispatchService handler.DispatchService,
	adminService handler.AdminService,
	trackingReader handler.TrackingReader,
	trackingHub *wshandler.TrackingHub,
	identity middleware.IdentityService,
	db handler.Pinger,
	log logger.Logger,
) (*API, error) {
	if identity == nil {
		return nil, errors.New("identity service is required")
	}

	routes := &handlers{
		booking:  handler.NewBooking(dispatchService, trackingReader, log),
		admin:    handler.NewAdmin(adminService, log),
		health:   handler.NewHealth(db, version, log),
		tracking: trackingHub,
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(identity, log),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Server.Port),
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	api.setupRoutes()

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies the middleware chain to the mux.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
