// Package engine defines the boundary to the native TDLib engine: a duplex
// byte channel with one shared inbound stream, a synchronous bypass for the
// handful of requests TDLib answers inline, and a log callback contract.
//
// Adapters live in subpackages: tdjson binds the native shared library,
// remote speaks to a bridge daemon over a websocket, and enginetest provides
// a scripted fake for tests.
package engine

import (
	"errors"
	"time"
)

// ClientID identifies one logical client connection inside the engine. It is
// created once per client and never reused after teardown.
type ClientID int32

// Engine is the sole conduit to the native protocol engine.
//
// Send is fire-and-forget: the engine may answer any time later on the shared
// Receive stream, or never. Receive blocks for at most the given timeout and
// returns (nil, nil) when nothing arrived. Messages are returned in the order
// the engine produced them; reply order carries no relation to send order.
type Engine interface {
	// NewClient creates a client connection and returns its handle. It
	// fails with ErrUnavailable when the engine cannot be reached.
	NewClient() (ClientID, error)

	// Send submits an encoded request on behalf of the given client. It
	// never blocks waiting for a reply.
	Send(id ClientID, req []byte) error

	// Receive returns the next inbound message from the shared stream, or
	// (nil, nil) if none arrived within timeout.
	Receive(timeout time.Duration) ([]byte, error)

	// Execute runs a request the protocol marks synchronous, bypassing the
	// async stream. It returns (nil, nil) when the engine has no reply for
	// this request kind.
	Execute(req []byte) ([]byte, error)

	// Close releases the engine. Further calls on the engine fail with
	// ErrClosed.
	Close() error
}

var (
	// ErrUnavailable reports that the native engine cannot be located or
	// reached. It is unrecoverable; callers are expected to surface it and
	// exit.
	ErrUnavailable = errors.New("engine: engine unavailable")

	// ErrClosed reports use of an engine after Close.
	ErrClosed = errors.New("engine: engine closed")
)

// SeverityFatal is the log severity at which the engine is unrecoverable.
// The engine must not be used after reporting it.
const SeverityFatal = 0

// LogHandler receives engine log messages. Severity 0 is fatal; higher
// severities are advisory.
type LogHandler func(severity int, text string)

// LogReporter is implemented by engines that can route their internal log
// messages to a caller-supplied handler. maxSeverity is the highest severity
// value (i.e. least severe level) the handler wants to see.
type LogReporter interface {
	SetLogHandler(maxSeverity int, h LogHandler)
}
