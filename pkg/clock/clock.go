// Package clock provides the runtime's notion of time and identity.
//
// Every entity in the data model (pkg/model) carries an opaque ID and at
// least one timestamp. Centralizing both behind a single interface keeps
// the rest of the core testable: a fake Clock lets tests assert on exact
// ordinals and durations without racing a wall clock.
package clock

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Clock is the sole source of time and identity for the runtime.
// Production code uses System; tests use a Fixed clock.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// NewID returns a fresh opaque identifier, prefixed for readability
	// in logs and traces (e.g. "run_", "step_", "tc_").
	NewID(prefix string) string
}

// System is the production Clock backed by time.Now and uuid.NewString.
type System struct{}

// New returns the production Clock.
func New() Clock { return System{} }

func (System) Now() time.Time { return time.Now().UTC() }

func (System) NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// Fixed is a Clock that always returns the same time, with deterministic
// generated IDs: each call hashes an increasing per-Clock counter, so IDs
// are distinct but not lexically ordered. Useful for golden-output tests where
// timestamps would otherwise make assertions flaky.
type Fixed struct {
	At      time.Time
	counter uint64
}

func (f *Fixed) Now() time.Time { return f.At }

func (f *Fixed) NewID(prefix string) string {
	f.counter++
	return prefix + "fixed-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(prefixCounter(prefix, f.counter))).String()
}

func prefixCounter(prefix string, n uint64) string {
	return prefix + strconv.FormatUint(n, 10)
}
