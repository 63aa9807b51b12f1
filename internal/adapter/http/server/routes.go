package server

import (
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fieldhail/dispatch-system/docs"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
)

// setupRoutes registers every HTTP route on the mux.
func (a *API) setupRoutes() {
	// System health
	a.mux.HandleFunc("GET /health", a.routes.health.Check)

	a.setupMetricsRoute()
	a.setupSwaggerRoutes()
	if a.cfg.Server.PprofEnabled {
		a.setupPprofRoutes()
	}

	a.setupBookingRoutes()
	a.setupTrackingRoutes()
	a.setupAdminRoutes()
}

func (a *API) setupBookingRoutes() {
	b := a.routes.booking
	m := a.m

	a.mux.Handle("POST /bookings", m.RequireRoles(b.Create, types.RoleRequester))
	a.mux.Handle("GET /bookings/{booking_id}", m.RequireRoles(b.Get, types.RoleRequester, types.RoleProfessional, types.RoleAdmin))

	a.mux.Handle("POST /bookings/{booking_id}/assign", m.RequireRoles(b.Assign, types.RoleProfessional))     // Professional claims a pending booking
	a.mux.Handle("POST /bookings/{booking_id}/start", m.RequireRoles(b.Start, types.RoleProfessional))       // Begin the service phase
	a.mux.Handle("POST /bookings/{booking_id}/arrive", m.RequireRoles(b.Arrive, types.RoleProfessional))     // Report arrival at the location
	a.mux.Handle("POST /bookings/{booking_id}/complete", m.RequireRoles(b.Complete, types.RoleProfessional)) // Complete with verification code

	a.mux.Handle("POST /bookings/{booking_id}/cancel", m.RequireRoles(b.Cancel, types.RoleRequester, types.RoleProfessional, types.RoleAdmin))
	a.mux.Handle("POST /bookings/{booking_id}/reschedule", m.RequireRoles(b.Reschedule, types.RoleRequester, types.RoleAdmin))
}

func (a *API) setupTrackingRoutes() {
	a.mux.Handle("GET /bookings/{booking_id}/tracking", a.m.RequireRoles(a.routes.booking.Tracking, types.RoleRequester, types.RoleProfessional, types.RoleAdmin))
	a.mux.HandleFunc("GET /ws/tracking", a.routes.tracking.HandleWS) // Websocket: join/leave channels, position stream
}

func (a *API) setupAdminRoutes() {
	a.mux.Handle("GET /admin/bookings/active", a.m.RequireRoles(a.routes.admin.ActiveBookings, types.RoleAdmin))
}

func (a *API) setupSwaggerRoutes() {
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler())
}

func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}

func (a *API) setupPprofRoutes() {
	a.mux.HandleFunc("/debug/pprof/", pprof.Index)
	a.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	a.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	a.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	a.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	a.mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	a.mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
}
