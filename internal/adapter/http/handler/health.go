package handler

import (
	"context"
	"net/http"

	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

type Health struct {
	db      Pinger
	version string
	l       logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewHealth(db Pinger, version string, l logger.Logger) *Health {
	return &Health{
		db:      db,
		version: version,
		l:       l,
	}
}

// Check godoc
//
//	@Summary	Service health
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/health [get]
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	status := "available"
	dbStatus := "up"
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "database ping failed", err)
		status = "degraded"
		dbStatus = "down"
		code = http.StatusServiceUnavailable
	}

	response := envelope{
		"status":   status,
		"database": dbStatus,
		"version":  h.version,
	}
	if err := writeJSON(w, code, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}
