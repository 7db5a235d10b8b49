package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sanjarbek17/MedAI/internal/dispatch"
)

func testGateway() *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(dispatch.New(logger), logger)
}

// drain pulls every queued frame off the client without blocking.
func drain(c *client) []Envelope {
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func frame(t *testing.T, event string, data string) []byte {
	t.Helper()
	return []byte(`{"event":"` + event + `","data":` + data + `}`)
}

func TestHandleFrameRegisterPatient(t *testing.T) {
	g := testGateway()
	c := newClient(nil)

	g.handleFrame(c, frame(t, "register_patient", `{"patient_id":"p1","location":{"lat":1,"lng":2}}`))

	envs := drain(c)
	require.Len(t, envs, 1)
	assert.Equal(t, "patient_registered", envs[0].Event)
	assert.Contains(t, string(envs[0].Data), `"p1"`)
}

func TestHandleFrameMalformedJSON(t *testing.T) {
	g := testGateway()
	c := newClient(nil)

	g.handleFrame(c, []byte(`not json`))

	envs := drain(c)
	require.Len(t, envs, 1)
	assert.Equal(t, "error", envs[0].Event)
}

func TestHandleFrameUnknownEvent(t *testing.T) {
	g := testGateway()
	c := newClient(nil)

	g.handleFrame(c, frame(t, "warp_drive", `{}`))

	envs := drain(c)
	require.Len(t, envs, 1)
	assert.Equal(t, "error", envs[0].Event)
}

func TestHandleFrameErrorsStayLocal(t *testing.T) {
	g := testGateway()
	patient := newClient(nil)
	stranger := newClient(nil)

	// emergency request from an unregistered patient errors only to the
	// originating connection
	g.handleFrame(patient, frame(t, "emergency_request", `{"patient_id":"ghost","location":{"lat":0,"lng":0}}`))

	require.Len(t, drain(patient), 1)
	assert.Empty(t, drain(stranger))
}

func TestHandleFrameUnknownUserType(t *testing.T) {
	g := testGateway()
	c := newClient(nil)

	g.handleFrame(c, frame(t, "update_location", `{"user_id":"x","user_type":"pilot","location":{"lat":0,"lng":0}}`))

	envs := drain(c)
	require.Len(t, envs, 1)
	assert.Equal(t, "error", envs[0].Event)
}

func TestHandleFrameFullDispatchFlow(t *testing.T) {
	g := testGateway()
	patient := newClient(nil)
	driver := newClient(nil)

	g.handleFrame(patient, frame(t, "register_patient", `{"patient_id":"p1","location":{"lat":0,"lng":0}}`))
	g.handleFrame(driver, frame(t, "register_driver", `{"driver_id":"d1","location":{"lat":0,"lng":0.01}}`))
	drain(patient)
	drain(driver)

	g.handleFrame(patient, frame(t, "emergency_request", `{"patient_id":"p1","location":{"lat":0,"lng":0},"emergency_type":"general"}`))

	var alert Envelope
	alerts := drain(driver)
	require.Len(t, alerts, 1)
	alert = alerts[0]
	assert.Equal(t, "emergency_alert", alert.Event)

	var payload dispatch.EmergencyAlertPayload
	require.NoError(t, json.Unmarshal(alert.Data, &payload))
	assert.InDelta(t, 1.11, payload.DistanceKm, 0.01)

	g.handleFrame(driver, frame(t, "accept_request", `{"driver_id":"d1","request_id":"`+payload.RequestID+`"}`))
	events := drain(patient)
	var names []string
	for _, e := range events {
		names = append(names, e.Event)
	}
	assert.Contains(t, names, "request_sent")
	assert.Contains(t, names, "driver_assigned")

	g.handleFrame(driver, frame(t, "arrived", `{"driver_id":"d1"}`))
	events = drain(patient)
	require.NotEmpty(t, events)
	assert.Equal(t, "ambulance_arrived", events[len(events)-1].Event)
}

func TestSendQueueDropsWhenFull(t *testing.T) {
	c := newClient(nil)
	for i := 0; i < sendQueueSize; i++ {
		require.NoError(t, c.Send("x", nil))
	}
	assert.ErrorIs(t, c.Send("overflow", nil), errQueueFull)
}

func TestSendAfterCloseFails(t *testing.T) {
	c := newClient(nil)
	c.close()
	assert.Error(t, c.Send("late", nil))
	// close twice must not panic
	c.close()
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := httptest.NewServer(testGateway())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "connected", env.Event)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		frame(t, "register_driver", `{"driver_id":"d1","location":{"lat":0,"lng":0}}`)))
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "driver_registered", env.Event)
}
