package httptool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

func TestHTTPToolInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tl := New(Operation{Name: "ping", Method: http.MethodPost, URL: srv.URL}, nil)
	result, err := tl.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, result.Output["ok"])
}

func TestHTTPToolInvoke4xxDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	tl := New(Operation{Name: "bad", Method: http.MethodPost, URL: srv.URL}, nil)
	_, err := tl.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, model.ErrToolInvocation, tool.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPToolInvoke5xxRetriesIdempotent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tl := New(Operation{Name: "flaky", Method: http.MethodGet, URL: srv.URL}, nil)
	result, err := tl.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, result.Output["ok"])
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestHTTPToolDescribe(t *testing.T) {
	tl := New(Operation{Name: "ping", Description: "pings"}, nil)
	d := tl.Describe()
	assert.Equal(t, "ping", d.Name)
	assert.Equal(t, "pings", d.Description)
}

func TestIsIdempotent(t *testing.T) {
	assert.True(t, isIdempotent(http.MethodGet))
	assert.True(t, isIdempotent(http.MethodPut))
	assert.False(t, isIdempotent(http.MethodPost))
}
