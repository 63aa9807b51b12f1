package handler

import (
	"context"
	"net/http"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

type Admin struct {
	service AdminService
	l       logger.Logger
}

type AdminService interface {
	ListActive(ctx context.Context, actor models.Actor) ([]models.BookingOverview, error)
}

func NewAdmin(service AdminService, l logger.Logger) *Admin {
	return &Admin{
		service: service,
		l:       l,
	}
}

// ActiveBookings godoc
//
//	@Summary	List active bookings with latest positions
//	@Tags		admin
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/admin/bookings/active [get]
func (h *Admin) ActiveBookings(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_active_bookings")
	actor := models.ActorFromContext(ctx)

	overview, err := h.service.ListActive(ctx, actor)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list active bookings", err)
		domainErrorResponse(w, err)
		return
	}

	response := envelope{"bookings": overview, "count": len(overview)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}
