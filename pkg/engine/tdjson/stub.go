//go:build !tdjson

package tdjson

import (
	"fmt"
	"time"

	"github.com/shared-object/simpletd/pkg/engine"
)

// Engine is the stub used when the module is built without the "tdjson" tag.
type Engine struct{}

// New returns a stub engine whose operations report engine.ErrUnavailable.
func New() *Engine { return &Engine{} }

func errNotLinked() error {
	return fmt.Errorf("tdjson: built without the tdjson tag: %w", engine.ErrUnavailable)
}

// NewClient implements engine.Engine.
func (e *Engine) NewClient() (engine.ClientID, error) { return 0, errNotLinked() }

// Send implements engine.Engine.
func (e *Engine) Send(engine.ClientID, []byte) error { return errNotLinked() }

// Receive implements engine.Engine.
func (e *Engine) Receive(time.Duration) ([]byte, error) { return nil, errNotLinked() }

// Execute implements engine.Engine.
func (e *Engine) Execute([]byte) ([]byte, error) { return nil, errNotLinked() }

// Close implements engine.Engine.
func (e *Engine) Close() error { return nil }

// SetLogHandler implements engine.LogReporter as a no-op.
func (e *Engine) SetLogHandler(int, engine.LogHandler) {}
