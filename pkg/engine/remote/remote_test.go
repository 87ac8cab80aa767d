package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shared-object/simpletd/pkg/engine"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// startBridge runs an in-process bridge that allocates client id 7, echoes
// every sent payload back as a message frame, and answers execute requests
// for setLogVerbosityLevel with {"@type":"ok"} and everything else with null.
func startBridge(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				return
			}

			var reply frame
			switch f.Kind {
			case kindCreate:
				reply = frame{Kind: kindCreated, ClientID: 7}
			case kindSend:
				reply = frame{Kind: kindMessage, Payload: f.Payload}
			case kindExecute:
				m, err := tdmsg.Decode(f.Payload)
				if err != nil {
					return
				}
				if m.Type() == "setLogVerbosityLevel" {
					payload, _ := tdmsg.Encode(tdmsg.New("ok", nil))
					reply = frame{Kind: kindExecuted, Payload: payload}
				} else {
					reply = frame{Kind: kindExecuted}
				}
			default:
				continue
			}

			out, err := json.Marshal(reply)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialBridge(t *testing.T) *Engine {
	t.Helper()

	e, err := Dial(t.Context(), startBridge(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestDial_Unavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/td")
	require.ErrorIs(t, err, engine.ErrUnavailable)
}

func TestNewClient(t *testing.T) {
	e := dialBridge(t)

	id, err := e.NewClient()
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
}

func TestSendAndReceive(t *testing.T) {
	e := dialBridge(t)

	id, err := e.NewClient()
	require.NoError(t, err)

	req, err := tdmsg.Encode(tdmsg.New("getOption", map[string]any{"name": "version"}))
	require.NoError(t, err)
	require.NoError(t, e.Send(id, req))

	data, err := e.Receive(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, data)

	m, err := tdmsg.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "getOption", m.Type())
}

func TestReceive_Timeout(t *testing.T) {
	e := dialBridge(t)

	data, err := e.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestExecute(t *testing.T) {
	e := dialBridge(t)

	req, err := tdmsg.Encode(tdmsg.New("setLogVerbosityLevel", map[string]any{"new_verbosity_level": 1}))
	require.NoError(t, err)

	resp, err := e.Execute(req)
	require.NoError(t, err)

	m, err := tdmsg.Decode(resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", m.Type())
}

func TestExecute_NoReply(t *testing.T) {
	e := dialBridge(t)

	req, err := tdmsg.Encode(tdmsg.New("getTextEntities", nil))
	require.NoError(t, err)

	resp, err := e.Execute(req)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestClose(t *testing.T) {
	e := dialBridge(t)
	require.NoError(t, e.Close())

	_, err := e.Receive(50 * time.Millisecond)
	require.ErrorIs(t, err, engine.ErrClosed)

	err = e.Send(1, []byte(`{"@type":"getMe"}`))
	require.ErrorIs(t, err, engine.ErrClosed)
}
