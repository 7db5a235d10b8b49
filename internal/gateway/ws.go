// Package gateway turns WebSocket traffic into dispatch operations and
// dispatch broadcasts back into frames. It owns no dispatch state.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Sanjarbek17/MedAI/internal/dispatch"
	"github.com/Sanjarbek17/MedAI/internal/models"
	"github.com/Sanjarbek17/MedAI/internal/observability"
	"github.com/Sanjarbek17/MedAI/internal/session"
)

// Inbound event names.
const (
	evRegisterPatient  = "register_patient"
	evRegisterDriver   = "register_driver"
	evEmergencyRequest = "emergency_request"
	evAcceptRequest    = "accept_request"
	evDeclineRequest   = "decline_request"
	evUpdateLocation   = "update_location"
	evArrived          = "arrived"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const sendQueueSize = 64

var errQueueFull = errors.New("send queue full")

// client is one live connection. It implements session.Sender by enqueueing
// frames; a stuck remote endpoint fills its own queue and loses frames
// without ever stalling the dispatcher.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendQueueSize)}
}

func (c *client) Send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errQueueFull
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errQueueFull
	}
}

func (c *client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			observability.DroppedSendsTotal.Inc()
			return
		}
	}
}

// Gateway upgrades HTTP requests and runs the per-connection event loop.
type Gateway struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func New(d *dispatch.Dispatcher, logger *slog.Logger) *Gateway {
	return &Gateway{
		dispatcher: d,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	go c.writePump()

	_ = c.Send(dispatch.EventConnected, dispatch.MessagePayload{Message: "Connected to ambulance dispatch system"})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		g.handleFrame(c, raw)
	}

	g.dispatcher.Disconnect(c)
	c.close()
	_ = conn.Close()
}

type registerPayload struct {
	PatientID string           `json:"patient_id"`
	DriverID  string           `json:"driver_id"`
	Location  *models.Location `json:"location"`
}

type emergencyPayload struct {
	PatientID     string           `json:"patient_id"`
	Location      *models.Location `json:"location"`
	EmergencyType string           `json:"emergency_type"`
}

type decisionPayload struct {
	DriverID  string `json:"driver_id"`
	RequestID string `json:"request_id"`
}

type locationPayload struct {
	UserID   string           `json:"user_id"`
	UserType string           `json:"user_type"`
	Location *models.Location `json:"location"`
}

type arrivedPayload struct {
	DriverID string `json:"driver_id"`
}

func (g *Gateway) handleFrame(c *client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.sendError(c, "malformed event")
		return
	}
	observability.WSEventsTotal.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case evRegisterPatient:
		var p registerPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		g.dispatcher.RegisterPatient(p.PatientID, p.Location, c)

	case evRegisterDriver:
		var p registerPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		g.dispatcher.RegisterDriver(p.DriverID, p.Location, c)

	case evEmergencyRequest:
		var p emergencyPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		if _, err := g.dispatcher.CreateEmergencyRequest(p.PatientID, p.Location, p.EmergencyType); err != nil {
			g.sendError(c, err.Error())
		}

	case evAcceptRequest:
		var p decisionPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		if err := g.dispatcher.AcceptRequest(p.DriverID, p.RequestID); err != nil {
			g.sendError(c, err.Error())
		}

	case evDeclineRequest:
		var p decisionPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		// an unknown request id here is a silent no-op
		_ = g.dispatcher.DeclineRequest(p.DriverID, p.RequestID)

	case evUpdateLocation:
		var p locationPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		switch p.UserType {
		case string(session.KindPatient):
			g.dispatcher.UpdateLocation(p.UserID, session.KindPatient, p.Location)
		case string(session.KindDriver):
			g.dispatcher.UpdateLocation(p.UserID, session.KindDriver, p.Location)
		default:
			g.sendError(c, "unknown user_type")
		}

	case evArrived:
		var p arrivedPayload
		if !g.decode(c, env.Data, &p) {
			return
		}
		if err := g.dispatcher.MarkArrived(p.DriverID); err != nil {
			g.sendError(c, err.Error())
		}

	default:
		g.sendError(c, "unknown event: "+env.Event)
	}
}

func (g *Gateway) decode(c *client, raw json.RawMessage, into any) bool {
	if len(raw) == 0 {
		g.sendError(c, "missing event data")
		return false
	}
	if err := json.Unmarshal(raw, into); err != nil {
		g.sendError(c, "malformed event data")
		return false
	}
	return true
}

func (g *Gateway) sendError(c *client, msg string) {
	if err := c.Send(dispatch.EventError, dispatch.MessagePayload{Message: msg}); err != nil {
		g.logger.Debug("error event dropped", "error", err)
	}
}
