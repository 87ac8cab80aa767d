// Package enginetest provides a scripted in-memory Engine for tests. Inbound
// messages are enqueued by the test; outbound requests are recorded and may
// trigger scripted replies through an OnSend hook.
package enginetest

import (
	"sync"
	"time"

	"github.com/shared-object/simpletd/pkg/engine"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// queueSize bounds how many scripted messages may be pending at once.
const queueSize = 256

// Fake is a scripted Engine. The zero value is not usable; call New.
type Fake struct {
	// OnSend, if set, is called for every decoded request passed to Send.
	// Tests use it to enqueue scripted replies. It runs on the sender's
	// goroutine.
	OnSend func(req tdmsg.Message)

	// ExecuteFunc, if set, answers Execute calls. When nil, Execute
	// returns (nil, nil).
	ExecuteFunc func(req []byte) ([]byte, error)

	inbound chan []byte

	mu         sync.Mutex
	nextClient engine.ClientID
	sent       []tdmsg.Message
	closed     bool
	closeCount int
}

// New creates an empty fake engine.
func New() *Fake {
	return &Fake{inbound: make(chan []byte, queueSize)}
}

// Enqueue schedules messages for delivery through Receive, in order.
func (f *Fake) Enqueue(msgs ...tdmsg.Message) {
	for _, m := range msgs {
		data, err := tdmsg.Encode(m)
		if err != nil {
			panic("enginetest: enqueue: " + err.Error())
		}
		f.inbound <- data
	}
}

// EnqueueRaw schedules raw bytes for delivery through Receive, bypassing the
// codec so tests can feed malformed payloads.
func (f *Fake) EnqueueRaw(data []byte) {
	f.inbound <- data
}

// Sent returns a copy of every request recorded by Send, in order.
func (f *Fake) Sent() []tdmsg.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]tdmsg.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

// CloseCount returns how many times Close has been called.
func (f *Fake) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// NewClient implements engine.Engine.
func (f *Fake) NewClient() (engine.ClientID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, engine.ErrClosed
	}
	f.nextClient++
	return f.nextClient, nil
}

// Send implements engine.Engine. The request is decoded and recorded before
// the OnSend hook runs.
func (f *Fake) Send(_ engine.ClientID, req []byte) error {
	m, err := tdmsg.Decode(req)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return engine.ErrClosed
	}
	f.sent = append(f.sent, m)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(m)
	}
	return nil
}

// Receive implements engine.Engine.
func (f *Fake) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case data := <-f.inbound:
		return data, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

// Execute implements engine.Engine.
func (f *Fake) Execute(req []byte) ([]byte, error) {
	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(req)
	}
	return nil, nil
}

// Close implements engine.Engine.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeCount++
	f.closed = true
	return nil
}
