// Package client implements the request/response correlation layer on top of
// an engine. It multiplexes the engine's single inbound stream into
// per-request replies and a stream of unsolicited updates.
//
// The router is cooperative: nothing is read from the engine except on
// behalf of a blocked caller. Whoever is waiting (an Invoke or a PollEvent)
// pumps the stream one message at a time, delivering correlated responses to
// their waiters and queueing everything else as updates. With several waits
// outstanding the pump is serialized by a mutex, so a caller blocked on id A
// forwards id B's response to B's slot without ever resolving B itself.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shared-object/simpletd/pkg/engine"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// DefaultPollTimeout bounds one engine Receive call when the caller does not
// choose a timeout.
const DefaultPollTimeout = time.Second

// Options configures a Client.
type Options struct {
	// PollTimeout bounds a single engine Receive. Zero means
	// DefaultPollTimeout.
	PollTimeout time.Duration

	// Logger receives router diagnostics. The zero value logs nothing.
	Logger zerolog.Logger
}

// Client owns one engine client connection for its lifetime and correlates
// its traffic. It is safe for concurrent use.
type Client struct {
	eng         engine.Engine
	id          engine.ClientID
	pollTimeout time.Duration
	log         zerolog.Logger

	// pumpMu serializes draining the engine's shared inbound stream.
	pumpMu sync.Mutex

	mu      sync.Mutex
	waiters map[string]chan tdmsg.Message
	updates []tdmsg.Message

	closeOnce sync.Once
	closeErr  error
}

// New acquires a client connection from the engine and returns a router for
// it. The connection is held until Close.
func New(eng engine.Engine, opts Options) (*Client, error) {
	id, err := eng.NewClient()
	if err != nil {
		return nil, fmt.Errorf("client: create engine client: %w", err)
	}

	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	return &Client{
		eng:         eng,
		id:          id,
		pollTimeout: opts.PollTimeout,
		log:         opts.Logger,
		waiters:     make(map[string]chan tdmsg.Message),
	}, nil
}

// ClientID returns the engine connection handle this router owns.
func (c *Client) ClientID() engine.ClientID { return c.id }

// SendAsync tags the request with a fresh correlation id and submits it
// without registering a waiter. Any eventual response surfaces on the event
// stream.
func (c *Client) SendAsync(req tdmsg.Message) error {
	tagged := withExtraID(req, tdmsg.NewExtraID())

	data, err := tdmsg.Encode(tagged)
	if err != nil {
		return err
	}
	if err := c.eng.Send(c.id, data); err != nil {
		return fmt.Errorf("client: send %s: %w", tagged.Type(), err)
	}

	c.log.Trace().Str("type", tagged.Type()).Str("extra_id", tagged.ExtraID()).Msg("sent async request")
	return nil
}

// Invoke tags the request with a fresh correlation id, submits it, and blocks
// until the matching response arrives or ctx is done. Messages for other
// callers observed while waiting are delivered to their waiters or forwarded
// to the event stream; none are dropped.
func (c *Client) Invoke(ctx context.Context, req tdmsg.Message) (tdmsg.Message, error) {
	id := tdmsg.NewExtraID()
	tagged := withExtraID(req, id)

	data, err := tdmsg.Encode(tagged)
	if err != nil {
		return nil, err
	}

	slot := make(chan tdmsg.Message, 1)
	c.register(id, slot)
	defer c.unregister(id)

	if err := c.eng.Send(c.id, data); err != nil {
		return nil, fmt.Errorf("client: send %s: %w", tagged.Type(), err)
	}

	for {
		select {
		case resp := <-slot:
			return resp, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := c.pump(c.pollTimeout); err != nil {
			// A malformed inbound message surfaces here, on the
			// caller that drained it. Waiters for other ids are
			// untouched.
			return nil, err
		}
	}
}

// PollEvent returns the next uncorrelated message within timeout, or
// (nil, nil) if none arrived. Decode failures on the stream are returned to
// the polling caller.
func (c *Client) PollEvent(ctx context.Context, timeout time.Duration) (tdmsg.Message, error) {
	deadline := time.Now().Add(timeout)

	for {
		if m, ok := c.popUpdate(); ok {
			return m, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if remaining > c.pollTimeout {
			remaining = c.pollTimeout
		}

		if err := c.pump(remaining); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Execute runs a request the protocol answers synchronously, bypassing the
// correlation machinery. It returns (nil, nil) when the engine has no reply
// for this request kind.
func (c *Client) Execute(req tdmsg.Message) (tdmsg.Message, error) {
	data, err := tdmsg.Encode(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.eng.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("client: execute %s: %w", req.Type(), err)
	}
	if resp == nil {
		return nil, nil
	}
	return tdmsg.Decode(resp)
}

// Close releases the engine connection. It is safe to call more than once;
// the engine is closed exactly once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.eng.Close()
	})
	return c.closeErr
}

// pump drains at most one message from the engine and routes it. A nil
// return with no delivery means the engine produced nothing within timeout.
func (c *Client) pump(timeout time.Duration) error {
	c.pumpMu.Lock()
	defer c.pumpMu.Unlock()

	data, err := c.eng.Receive(timeout)
	if err != nil {
		return fmt.Errorf("client: receive: %w", err)
	}
	if data == nil {
		return nil
	}

	m, err := tdmsg.Decode(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("discarding malformed engine message")
		return err
	}

	c.route(m)
	return nil
}

// route delivers a decoded message. A correlation id matching a live waiter
// always wins, regardless of the message's type tag; everything else joins
// the event stream.
func (c *Client) route(m tdmsg.Message) {
	if id := m.ExtraID(); id != "" {
		c.mu.Lock()
		slot, ok := c.waiters[id]
		if ok {
			// Retire the id before delivery so at most one message
			// ever fulfills a waiter.
			delete(c.waiters, id)
		}
		c.mu.Unlock()

		if ok {
			slot <- m
			c.log.Trace().Str("type", m.Type()).Str("extra_id", id).Msg("delivered response")
			return
		}
	}

	c.mu.Lock()
	c.updates = append(c.updates, m)
	c.mu.Unlock()
	c.log.Trace().Str("type", m.Type()).Msg("queued event")
}

func (c *Client) register(id string, slot chan tdmsg.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters[id] = slot
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, id)
}

func (c *Client) popUpdate() (tdmsg.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.updates) == 0 {
		return nil, false
	}
	m := c.updates[0]
	c.updates = c.updates[1:]
	return m, true
}

// withExtraID returns a shallow copy of req carrying the given correlation
// id, leaving the caller's message untouched.
func withExtraID(req tdmsg.Message, id string) tdmsg.Message {
	out := make(tdmsg.Message, len(req)+1)
	for k, v := range req {
		out[k] = v
	}
	out.SetExtraID(id)
	return out
}
