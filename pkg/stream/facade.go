// Copyright 2025 The Agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stream is the Streaming Facade (spec.md §4.6): it serializes a
// Runner's Event sequence onto the wire as SSE-framed JSON, fans the same
// sequence out to the Persistence Gateway without letting persistence
// backpressure the wire, and enforces the ≤15s keep-alive and ≤1s
// cancellation bounds. Grounded on the teacher's pkg/agui SSE wrapper
// (event: <type>\ndata: <json>\n\n framing, Flush-per-frame discipline).
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/agentcore/runtime/pkg/runner"
)

// droppableType is the only frame type the persistence side-channel may
// discard under backpressure (spec.md §4.6).
const droppableType = string(runner.EventTraceUpdate)

// KeepAliveInterval is the maximum idle time before a comment frame is
// written to keep intermediaries from closing the connection.
const KeepAliveInterval = 15 * time.Second

// CancelGrace bounds how long Serve waits for the Runner to notice ctx
// cancellation and close its event channel (spec.md §4.6: "≤1s").
const CancelGrace = 1 * time.Second

// FlushWriter is an http.ResponseWriter-shaped sink: SSE framing requires
// an explicit Flush after every frame, not just a buffered io.Writer.
type FlushWriter interface {
	io.Writer
	Flush()
}

// Persister receives every event concurrently with the wire write. It must
// not block Serve's hot path: Options.PersistQueueSize bounds the backlog,
// and once full, trace_update events are dropped rather than blocking.
type Persister interface {
	Persist(ctx context.Context, ev runner.Event) error
}

// PersisterFunc adapts a plain function to Persister.
type PersisterFunc func(ctx context.Context, ev runner.Event) error

func (f PersisterFunc) Persist(ctx context.Context, ev runner.Event) error { return f(ctx, ev) }

// Options configures one Serve call.
type Options struct {
	Persist          Persister
	PersistQueueSize int // default 64
	Logger           *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.PersistQueueSize <= 0 {
		o.PersistQueueSize = 64
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Serve drains events onto w as SSE frames (`event: <type>\ndata: <json>\n\n`) until the
// channel closes or ctx is cancelled, fanning every event out to
// opts.Persist on a bounded, non-blocking side channel. It returns once the
// terminal `done`/`error` frame has been written, or ctx.Err() if the
// caller disconnected first.
func Serve(ctx context.Context, w FlushWriter, events <-chan runner.Event, opts Options) error {
	opts.applyDefaults()
	log := opts.Logger

	var persistQueue chan runner.Event
	var persistDone chan struct{}
	if opts.Persist != nil {
		persistQueue = make(chan runner.Event, opts.PersistQueueSize)
		persistDone = make(chan struct{})
		go runPersister(ctx, opts.Persist, persistQueue, persistDone, log)
	}

	keepAlive := time.NewTimer(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Warn("stream cancelled by caller disconnect")
			if persistQueue != nil {
				closePersister(persistQueue, persistDone, CancelGrace)
			}
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				if persistQueue != nil {
					closePersister(persistQueue, persistDone, CancelGrace)
				}
				return nil
			}

			if err := writeFrame(w, FrameOf(ev)); err != nil {
				if persistQueue != nil {
					closePersister(persistQueue, persistDone, CancelGrace)
				}
				return fmt.Errorf("write frame: %w", err)
			}
			if !keepAlive.Stop() {
				<-keepAlive.C
			}
			keepAlive.Reset(KeepAliveInterval)

			if persistQueue != nil {
				enqueuePersist(persistQueue, ev, log)
			}

			if ev.Type == runner.EventDone || ev.Type == runner.EventError {
				if persistQueue != nil {
					closePersister(persistQueue, persistDone, CancelGrace)
				}
				return nil
			}

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				if persistQueue != nil {
					closePersister(persistQueue, persistDone, CancelGrace)
				}
				return fmt.Errorf("write keep-alive: %w", err)
			}
			w.Flush()
			keepAlive.Reset(KeepAliveInterval)
		}
	}
}

func writeFrame(w FlushWriter, f Frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Type, body); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// enqueuePersist drops trace_update frames (only) when the side channel is
// full rather than blocking the wire (spec.md §4.6).
func enqueuePersist(q chan<- runner.Event, ev runner.Event, log *slog.Logger) {
	select {
	case q <- ev:
	default:
		if string(ev.Type) == droppableType {
			log.Warn("dropped trace_update under persistence backpressure", "traceId", ev.TraceID)
			return
		}
		// Non-droppable frame: block briefly rather than lose it, capped
		// so a stalled persister still can't hang the wire indefinitely.
		select {
		case q <- ev:
		case <-time.After(CancelGrace):
			log.Error("persistence queue stalled, dropping non-droppable frame", "type", ev.Type)
		}
	}
}

func runPersister(ctx context.Context, p Persister, q <-chan runner.Event, done chan<- struct{}, log *slog.Logger) {
	defer close(done)
	for ev := range q {
		if err := p.Persist(ctx, ev); err != nil {
			log.Error("persist event failed", "type", ev.Type, "err", err)
		}
	}
}

func closePersister(q chan runner.Event, done chan struct{}, grace time.Duration) {
	close(q)
	select {
	case <-done:
	case <-time.After(grace):
	}
}

// Frame is the wire representation of one runner.Event. Field names match
// spec.md §4.6's vocabulary; zero-value fields are omitted.
type Frame struct {
	Type string    `json:"type"`
	TS   time.Time `json:"ts"`

	Token string `json:"token,omitempty"`

	TraceID       string `json:"traceId,omitempty"`
	ParentTraceID string `json:"parentTraceId,omitempty"`
	Tool          string `json:"tool,omitempty"`
	ToolType      string `json:"toolType,omitempty"`
	Target        string `json:"target,omitempty"`
	InputPreview  string `json:"inputPreview,omitempty"`

	Message     string         `json:"message,omitempty"`
	GateToken   string         `json:"gateToken,omitempty"`
	GatePayload map[string]any `json:"gatePayload,omitempty"`

	Status        string `json:"status,omitempty"`
	LatencyMs     int64  `json:"latencyMs,omitempty"`
	TokensIn      int64  `json:"tokensIn,omitempty"`
	TokensOut     int64  `json:"tokensOut,omitempty"`
	OutputPreview string `json:"outputPreview,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`

	MessageID string `json:"messageId,omitempty"`
	Role      string `json:"role,omitempty"`

	RunID     string  `json:"runId,omitempty"`
	RunStatus string  `json:"runStatus,omitempty"`
	CostUSD   float64 `json:"costUsd,omitempty"`

	Error string `json:"error,omitempty"`
}

// FrameOf projects a runner.Event onto its wire Frame.
func FrameOf(ev runner.Event) Frame {
	f := Frame{
		Type:          string(ev.Type),
		TS:            ev.TS,
		Token:         ev.Token,
		TraceID:       ev.TraceID,
		ParentTraceID: ev.ParentTraceID,
		Tool:          ev.Tool,
		ToolType:      string(ev.ToolType),
		Target:        ev.Target,
		InputPreview:  ev.InputPreview,
		Message:       ev.Message,
		GateToken:     ev.GateToken,
		GatePayload:   ev.GatePayload,
		Status:        ev.TraceStatus,
		LatencyMs:     ev.LatencyMs,
		TokensIn:      ev.Tokens.In,
		TokensOut:     ev.Tokens.Out,
		OutputPreview: ev.OutputPreview,
		ErrorKind:     string(ev.ErrorKind),
		MessageID:     ev.MessageID,
		Role:          string(ev.Role),
		RunID:         ev.RunID,
		RunStatus:     string(ev.RunStatus),
		CostUSD:       ev.CostUSD,
	}
	if ev.Err != nil {
		f.Error = ev.Err.Error()
	}
	return f
}
