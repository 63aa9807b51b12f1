package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fieldhail/dispatch-system/internal/adapter/http/ws/dto"
	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
	"github.com/fieldhail/dispatch-system/pkg/validator"
	ws "github.com/fieldhail/dispatch-system/pkg/wsHub"
)

// TrackingService is the part of the tracking core the websocket drives.
type TrackingService interface {
	Join(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (models.TrackingState, error)
	Leave(ctx context.Context, bookingID uuid.UUID, actorID uuid.UUID)
	UpdatePosition(ctx context.Context, msg models.PositionUpdateMessage) (models.PositionAck, error)
	Disconnected(actorID uuid.UUID)
}

// TrackingHub owns the /ws/tracking endpoint: it upgrades the connection,
// registers it in the shared hub and runs the per-connection read loop.
type TrackingHub struct {
	connections *ws.ConnectionHub
	tracking    TrackingService
	l           logger.Logger
	upgrader    websocket.Upgrader
}

func NewTrackingHub(connHub *ws.ConnectionHub, tracking TrackingService, l logger.Logger) *TrackingHub {
	return &TrackingHub{
		connections: connHub,
		tracking:    tracking,
		l:           l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleWS godoc
//
//	@Summary	Tracking websocket
//	@Tags		tracking
//	@Router		/ws/tracking [get]
func (h *TrackingHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "tracking_websocket")
	actor := models.ActorFromContext(ctx)

	if actor.IsAnonymous() {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	// The connection outlives the upgrade request.
	conn := ws.NewConn(context.Background(), actor.ID, raw)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register connection", err)
		_ = conn.Close()
		return
	}

	metrics.WebSocketConnectionsGauge.Inc()
	h.l.Info(ctx, "websocket connected", "actor_id", actor.ID, "role", actor.Role)

	defer func() {
		metrics.WebSocketConnectionsGauge.Dec()
		// A connection replaced by a reconnect no longer owns the hub entry;
		// only the owning (or last remaining) connection tears down the
		// actor's subscriptions.
		if h.connections.DeleteConn(conn) {
			h.tracking.Disconnected(actor.ID)
		} else if _, err := h.connections.GetConn(actor.ID); errors.Is(err, ws.ErrConnIsNotFound) {
			// Already removed by the healthcheck, with no replacement since.
			h.tracking.Disconnected(actor.ID)
		}
		h.l.Info(ctx, "websocket disconnected", "actor_id", actor.ID)
	}()

	listenCtx := models.WithActor(wrap.WithActorID(context.Background(), actor.ID.String()), actor)

	err = conn.Listen(func(msg []byte) error {
		if err := h.dispatch(listenCtx, conn, actor, msg); err != nil {
			// Per-message failures are reported on the socket, not fatal
			// to the connection.
			h.l.Warn(listenCtx, "websocket message failed", "error", err.Error())
		}
		return nil
	})
	if err != nil {
		h.l.Debug(ctx, "websocket listen loop ended", "actor_id", actor.ID, "reason", err.Error())
	}
}

func (h *TrackingHub) dispatch(ctx context.Context, conn *ws.Conn, actor models.Actor, msg []byte) error {
	var inbound dto.InboundMsg
	if err := json.Unmarshal(msg, &inbound); err != nil {
		_ = errorResponse(conn, "malformed JSON message")
		return fmt.Errorf("unmarshal inbound: %w", err)
	}

	switch inbound.MsgType {
	case dto.MsgJoinTracking:
		return h.handleJoin(ctx, conn, actor, msg)
	case dto.MsgLeaveTracking:
		return h.handleLeave(ctx, conn, actor, msg)
	case dto.MsgPositionUpdate:
		return h.handlePosition(ctx, conn, actor, msg)
	default:
		_ = errorResponse(conn, fmt.Sprintf("unknown message type %q", inbound.MsgType))
		return fmt.Errorf("unknown message type %q", inbound.MsgType)
	}
}

func (h *TrackingHub) handleJoin(ctx context.Context, conn *ws.Conn, actor models.Actor, msg []byte) error {
	ctx = wrap.WithAction(ctx, "ws_join_tracking")

	var req dto.JoinTrackingMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = errorResponse(conn, "malformed join_tracking message")
		return err
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(conn, v.Errors)
	}

	state, err := h.tracking.Join(wrap.WithBookingID(ctx, req.BookingID.String()), req.BookingID, actor)
	if err != nil {
		_ = domainErrorResponse(conn, err)
		return err
	}

	// The snapshot is the join reply; live events follow on the same socket.
	return conn.Send(envelope{
		"type": dto.MsgTrackingSnapshot,
		"data": state,
	})
}

func (h *TrackingHub) handleLeave(ctx context.Context, conn *ws.Conn, actor models.Actor, msg []byte) error {
	ctx = wrap.WithAction(ctx, "ws_leave_tracking")

	var req dto.LeaveTrackingMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = errorResponse(conn, "malformed leave_tracking message")
		return err
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(conn, v.Errors)
	}

	h.tracking.Leave(wrap.WithBookingID(ctx, req.BookingID.String()), req.BookingID, actor.ID)
	return nil
}

func (h *TrackingHub) handlePosition(ctx context.Context, conn *ws.Conn, actor models.Actor, msg []byte) error {
	ctx = wrap.WithAction(ctx, "ws_position_update")

	if actor.Role != types.RoleProfessional {
		_ = errorResponse(conn, "only professionals stream positions")
		return types.ErrNotAllowed
	}

	var req dto.PositionUpdateMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = errorResponse(conn, "malformed position_update message")
		return err
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(conn, v.Errors)
	}

	ack, err := h.tracking.UpdatePosition(
		wrap.WithBookingID(ctx, req.BookingID.String()),
		req.ToMessage(actor.ID),
	)
	if err != nil {
		_ = domainErrorResponse(conn, err)
		return err
	}

	return conn.Send(envelope{
		"type": dto.MsgPositionAck,
		"data": ack,
	})
}
