package stream

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/runner"
)

type bufFlusher struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufFlusher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
func (b *bufFlusher) Flush() {}
func (b *bufFlusher) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordingPersister struct {
	mu   sync.Mutex
	seen []runner.Event
}

func (r *recordingPersister) Persist(ctx context.Context, ev runner.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ev)
	return nil
}

func (r *recordingPersister) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestServeWritesFramesAndPersists(t *testing.T) {
	events := make(chan runner.Event, 4)
	events <- runner.Event{Type: runner.EventToken, Token: "hi"}
	events <- runner.Event{Type: runner.EventRunEnd, RunID: "run_1", RunStatus: "succeeded"}
	events <- runner.Event{Type: runner.EventDone}
	close(events)

	w := &bufFlusher{}
	p := &recordingPersister{}
	err := Serve(context.Background(), w, events, Options{Persist: p})
	require.NoError(t, err)

	out := w.String()
	assert.Contains(t, out, `"type":"token"`)
	assert.Contains(t, out, `"token":"hi"`)
	assert.Contains(t, out, `"type":"run_end"`)
	assert.Contains(t, out, `"type":"done"`)
	assert.True(t, strings.HasSuffix(out, "\n\n"))

	assert.Eventually(t, func() bool { return p.count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	events := make(chan runner.Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &bufFlusher{}
	err := Serve(ctx, w, events, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeTerminatesOnErrorFrame(t *testing.T) {
	events := make(chan runner.Event, 1)
	events <- runner.Event{Type: runner.EventError, ErrorKind: "ProtocolError"}

	w := &bufFlusher{}
	err := Serve(context.Background(), w, events, Options{})
	require.NoError(t, err)
	assert.Contains(t, w.String(), `"errorKind":"ProtocolError"`)
}
