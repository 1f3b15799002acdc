package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vendor-tracking/internal/shared/jwt"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
	"vendor-tracking/internal/tracking/hub"

	"github.com/gorilla/websocket"
)

const (
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second

	// PingPeriod is the keepalive interval of the hub's writers.
	PingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to hub.Conn and hub.Pinger. Only the
// client's writer goroutine calls it.
type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) WriteJSON(v interface{}) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c wsConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c wsConn) Close() error {
	return c.conn.Close()
}

// WSHandler serves the realtime channel for viewers and vendors.
func (h *Handler) WSHandler(w http.ResponseWriter, r *http.Request) {
	instance := "WSHandler"

	if !h.hub.Accepting() {
		util.ErrResponseInJson(w, domain.ErrChannelUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(instance, "upgrade failed", err)
		return
	}

	ident, err := h.authenticateWS(conn)
	if err != nil {
		h.logger.Warn(instance, err.Error())
		_ = conn.WriteJSON(hub.NewErrorMessage("", err))
		_ = conn.Close()
		return
	}

	client, err := h.hub.Register(wsConn{conn: conn}, ident)
	if err != nil {
		_ = conn.WriteJSON(hub.NewErrorMessage("", err))
		_ = conn.Close()
		return
	}
	defer h.hub.Disconnect(client)

	// Set read deadline and pong handler
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(instance, fmt.Sprintf("connection %s read error: %v", client.ID, err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.Send(hub.NewErrorMessage("", fmt.Errorf("invalid message: %v: %w", err, domain.ErrInvalidPayload)))
			continue
		}
		h.dispatch(client, msg)
	}
}

// authenticateWS waits for the auth message when token checks are enabled.
func (h *Handler) authenticateWS(conn *websocket.Conn) (hub.Identity, error) {
	if !h.authEnabled() {
		return hub.Identity{}, nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	var msg ClientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return hub.Identity{}, fmt.Errorf("auth timeout or unreadable auth message: %w", domain.ErrForbidden)
	}
	if msg.Type != TypeAuth {
		return hub.Identity{}, fmt.Errorf("first message must be auth: %w", domain.ErrForbidden)
	}

	ident, err := h.identify(msg.Token)
	if err != nil {
		return hub.Identity{}, fmt.Errorf("%v: %w", err, domain.ErrForbidden)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(AuthResponse{Type: TypeAuthSuccess, Subject: ident.Subject, Role: ident.Role}); err != nil {
		return hub.Identity{}, err
	}
	return ident, nil
}

func (h *Handler) dispatch(c *hub.Client, msg ClientMessage) {
	ident := c.Identity
	allow := func(roles ...string) error {
		if !h.authEnabled() {
			return nil
		}
		for _, r := range roles {
			if ident.Role == r {
				return nil
			}
		}
		return fmt.Errorf("role %q may not send %s: %w", ident.Role, msg.Type, domain.ErrForbidden)
	}

	switch msg.Type {
	case TypeJoin:
		_ = h.hub.Join(c, msg.BookingID)

	case TypeLeave:
		h.hub.Leave(c, msg.BookingID)

	case TypeLocationRpt:
		sample, err := msg.Sample()
		if err == nil {
			err = allow(jwt.RoleVendor)
		}
		if err == nil {
			sample.VendorID, err = h.reportingVendor(ident, sample.VendorID)
		}
		if err != nil {
			c.Send(hub.NewErrorMessage(msg.Ref, err))
			return
		}
		_, _ = h.hub.OnLocationReport(c, msg.Ref, sample)

	case TypeStatusChange:
		to, err := domain.ParseStatus(msg.Status)
		if err == nil {
			err = allow(jwt.RoleVendor, jwt.RoleAdmin)
		}
		if err == nil {
			err = h.authorizeVendor(ident, msg.AssignmentID)
		}
		if err != nil {
			c.Send(hub.NewErrorMessage(msg.Ref, err))
			return
		}
		_, _ = h.hub.OnStatusChangeRequest(c, msg.Ref, msg.AssignmentID, to)

	case TypeAuth:
		if h.authEnabled() {
			c.Send(hub.NewErrorMessage(msg.Ref, fmt.Errorf("already authenticated: %w", domain.ErrInvalidPayload)))
			return
		}
		c.Send(AuthResponse{Type: TypeAuthSuccess})

	default:
		c.Send(hub.NewErrorMessage(msg.Ref, fmt.Errorf("unknown message type %q: %w", msg.Type, domain.ErrInvalidPayload)))
	}
}
