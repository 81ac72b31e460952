// Package wshandler serves the admin live feed over websockets.
package wshandler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	ws "github.com/navatransportes/nava-fleet/pkg/wsHub"
)

type RoleChecker interface {
	RoleCheck(ctx context.Context, token string) (*models.User, error)
}

// AdminFeed pushes every trip and payment event to the connected admins.
type AdminFeed struct {
	hub      *ws.ConnectionHub
	auth     RoleChecker
	upgrader websocket.Upgrader
	l        logger.Logger
}

// NewAdminFeed accepts browser connections from allowedOrigins, any origin when empty.
func NewAdminFeed(hub *ws.ConnectionHub, auth RoleChecker, allowedOrigins []string, l logger.Logger) *AdminFeed {
	f := &AdminFeed{
		hub:  hub,
		auth: auth,
		l:    l,
	}
	f.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return f
}

// HandleWS godoc
// @Summary      Admin live feed
// @Description  Browsers cannot set headers on websocket requests, the access token goes in the query.
// @Tags         Admin
// @Param        token  query  string  true  "access token"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /ws/admin [get]
func (f *AdminFeed) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_admin_connect")

	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, `{"error":"token is required"}`, http.StatusUnauthorized)
		return
	}

	user, err := f.auth.RoleCheck(ctx, token)
	switch {
	case errors.Is(err, types.ErrUserInactive):
		http.Error(w, `{"error":"user is inactive"}`, http.StatusForbidden)
		return
	case err != nil:
		f.l.Debug(ctx, "websocket token rejected", "error", err.Error())
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	case !user.IsAdmin():
		http.Error(w, `{"error":"forbidden: insufficient role"}`, http.StatusForbidden)
		return
	}
	ctx = wrap.WithUserID(ctx, user.ID.String())

	raw, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		f.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), user.ID, raw)
	if err := f.hub.Add(conn); err != nil {
		f.l.Error(ctx, "failed to register websocket connection", err)
		_ = conn.Close()
		return
	}
	defer func() { _ = f.hub.Delete(conn.ID()) }()

	f.l.Info(ctx, "admin connected to live feed", "conn_id", conn.ID().String(), "clients", f.hub.Len())

	if err := conn.Send(map[string]any{"type": "connected", "connectionId": conn.ID()}); err != nil {
		f.l.Warn(ctx, "failed to greet websocket client", "error", err.Error())
		return
	}

	err = conn.Listen(func(msg map[string]any) error {
		switch msg["type"] {
		case "ping":
			return conn.Send(map[string]any{"type": "pong"})
		default:
			return errorResponse(conn, "unsupported message type")
		}
	})
	if err != nil {
		f.l.Debug(ctx, "websocket connection ended", "error", err.Error())
	}
}

// HandleEvent broadcasts a consumed event. It never fails so the delivery is acked
// even when nobody is connected.
func (f *AdminFeed) HandleEvent(ctx context.Context, event models.Event) error {
	n := f.hub.Broadcast(ctx, event)
	f.l.Debug(wrap.WithAction(ctx, types.ActionEventConsumed), "event pushed to admins", "type", event.Type.String(), "delivered", n)
	return nil
}

// Close disconnects every client.
func (f *AdminFeed) Close() {
	f.hub.Close()
}
