//go:build tdjson

package tdjson

/*
#cgo LDFLAGS: -ltdjson
#include <stdlib.h>
#include <td/telegram/td_json_client.h>

extern void simpletdLogMessageCallback(int verbosity_level, const char *message);

static void simpletd_set_log_message_callback(int max_verbosity_level) {
	td_set_log_message_callback(max_verbosity_level, simpletdLogMessageCallback);
}
*/
import "C"

import (
	"sync"
	"time"
	"unsafe"

	"github.com/shared-object/simpletd/pkg/engine"
)

// Engine talks to libtdjson. The library's receive stream and log callback
// are process-global, so at most one Engine should exist per process.
type Engine struct {
	mu     sync.Mutex
	closed bool
}

// New returns an engine over the linked libtdjson.
func New() *Engine { return &Engine{} }

// NewClient implements engine.Engine.
func (e *Engine) NewClient() (engine.ClientID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, engine.ErrClosed
	}
	return engine.ClientID(C.td_create_client_id()), nil
}

// Send implements engine.Engine.
func (e *Engine) Send(id engine.ClientID, req []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return engine.ErrClosed
	}

	creq := C.CString(string(req))
	defer C.free(unsafe.Pointer(creq))
	C.td_send(C.int(id), creq)
	return nil
}

// Receive implements engine.Engine. The returned string is owned by TDLib
// until the next receive call, so it is copied before returning.
func (e *Engine) Receive(timeout time.Duration) ([]byte, error) {
	res := C.td_receive(C.double(timeout.Seconds()))
	if res == nil {
		return nil, nil
	}
	return []byte(C.GoString(res)), nil
}

// Execute implements engine.Engine.
func (e *Engine) Execute(req []byte) ([]byte, error) {
	creq := C.CString(string(req))
	defer C.free(unsafe.Pointer(creq))

	res := C.td_execute(creq)
	if res == nil {
		return nil, nil
	}
	return []byte(C.GoString(res)), nil
}

// Close implements engine.Engine. libtdjson has no teardown entry point;
// clients wind down when TDLib processes their "close" request, so Close
// only marks the engine unusable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var (
	logMu      sync.RWMutex
	logHandler engine.LogHandler
)

// SetLogHandler implements engine.LogReporter. The callback registration is
// process-global, matching the library.
func (e *Engine) SetLogHandler(maxSeverity int, h engine.LogHandler) {
	logMu.Lock()
	logHandler = h
	logMu.Unlock()

	C.simpletd_set_log_message_callback(C.int(maxSeverity))
}
