// Package remote implements the engine boundary over a websocket connection
// to a tdjson bridge daemon, for setups where the native library runs in a
// separate process or on another host.
//
// The bridge protocol is JSON text frames. Outbound kinds: "create" (allocate
// a client id), "send" (async request, carries client_id and payload),
// "execute" (synchronous request). Inbound kinds: "created" (carries
// client_id), "message" (one payload from the shared receive stream),
// "executed" (reply to the last execute; payload absent when the engine had
// none).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/shared-object/simpletd/pkg/engine"
)

// frame is one bridge protocol unit.
type frame struct {
	Kind     string          `json:"kind"`
	ClientID int32           `json:"client_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Frame kinds.
const (
	kindCreate   = "create"
	kindCreated  = "created"
	kindSend     = "send"
	kindExecute  = "execute"
	kindExecuted = "executed"
	kindMessage  = "message"
)

// ctrlTimeout bounds one create or execute round trip on the bridge.
const ctrlTimeout = 10 * time.Second

// messageBuffer bounds inbound messages held between Receive calls. The read
// loop blocks when it fills, pushing backpressure to the bridge.
const messageBuffer = 256

// Engine is a bridge-backed engine. It is safe for concurrent use.
type Engine struct {
	conn *websocket.Conn

	writeMu sync.Mutex // serializes frame writes
	ctrlMu  sync.Mutex // one create/execute round trip at a time

	messages chan []byte
	ctrl     chan frame

	closeOnce sync.Once
	done      chan struct{}

	errMu   sync.Mutex
	readErr error
}

// Dial connects to a bridge at url (ws:// or wss://). A failed dial reports
// engine.ErrUnavailable.
func Dial(ctx context.Context, url string) (*Engine, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %v: %w", url, err, engine.ErrUnavailable)
	}

	e := &Engine{
		conn:     conn,
		messages: make(chan []byte, messageBuffer),
		ctrl:     make(chan frame, 1),
		done:     make(chan struct{}),
	}
	go e.readLoop()
	return e, nil
}

func (e *Engine) readLoop() {
	for {
		_, data, err := e.conn.Read(context.Background())
		if err != nil {
			e.errMu.Lock()
			e.readErr = err
			e.errMu.Unlock()
			e.closeOnce.Do(func() { close(e.done) })
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			// A bridge speaking garbage is unrecoverable for this
			// connection.
			e.errMu.Lock()
			e.readErr = fmt.Errorf("remote: malformed frame: %w", err)
			e.errMu.Unlock()
			e.closeOnce.Do(func() { close(e.done) })
			return
		}

		switch f.Kind {
		case kindMessage:
			select {
			case e.messages <- []byte(f.Payload):
			case <-e.done:
				return
			}
		case kindCreated, kindExecuted:
			select {
			case e.ctrl <- f:
			case <-e.done:
				return
			}
		}
	}
}

func (e *Engine) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("remote: marshal frame: %w", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ctrlTimeout)
	defer cancel()

	if err := e.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("remote: write %s frame: %w", f.Kind, err)
	}
	return nil
}

// roundTrip sends a control frame and waits for its reply kind.
func (e *Engine) roundTrip(req frame, wantKind string) (frame, error) {
	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()

	if err := e.writeFrame(req); err != nil {
		return frame{}, err
	}

	select {
	case f := <-e.ctrl:
		if f.Kind != wantKind {
			return frame{}, fmt.Errorf("remote: bridge answered %s with %s", req.Kind, f.Kind)
		}
		return f, nil
	case <-e.done:
		return frame{}, e.closedErr()
	case <-time.After(ctrlTimeout):
		return frame{}, fmt.Errorf("remote: bridge did not answer %s within %s", req.Kind, ctrlTimeout)
	}
}

// NewClient implements engine.Engine.
func (e *Engine) NewClient() (engine.ClientID, error) {
	f, err := e.roundTrip(frame{Kind: kindCreate}, kindCreated)
	if err != nil {
		return 0, err
	}
	return engine.ClientID(f.ClientID), nil
}

// Send implements engine.Engine.
func (e *Engine) Send(id engine.ClientID, req []byte) error {
	select {
	case <-e.done:
		return e.closedErr()
	default:
	}
	return e.writeFrame(frame{Kind: kindSend, ClientID: int32(id), Payload: req})
}

// Receive implements engine.Engine.
func (e *Engine) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case data := <-e.messages:
		return data, nil
	case <-e.done:
		return nil, e.closedErr()
	case <-time.After(timeout):
		return nil, nil
	}
}

// Execute implements engine.Engine.
func (e *Engine) Execute(req []byte) ([]byte, error) {
	f, err := e.roundTrip(frame{Kind: kindExecute, Payload: req}, kindExecuted)
	if err != nil {
		return nil, err
	}
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return nil, nil
	}
	return []byte(f.Payload), nil
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return e.conn.Close(websocket.StatusNormalClosure, "client closed")
}

func (e *Engine) closedErr() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()

	if e.readErr != nil {
		return fmt.Errorf("remote: connection lost: %v: %w", e.readErr, engine.ErrClosed)
	}
	return fmt.Errorf("remote: %w", engine.ErrClosed)
}
