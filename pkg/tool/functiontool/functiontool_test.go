package functiontool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

type addRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

func TestFunctionToolInvokeSuccess(t *testing.T) {
	t1 := New(Def{
		Name:    "add",
		Request: addRequest{},
		Fn: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			a, _ := input["a"].(float64)
			b, _ := input["b"].(float64)
			return map[string]any{"sum": a + b}, nil
		},
	})

	result, err := t1.Invoke(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Output["sum"])
}

func TestFunctionToolInvokePropagatesError(t *testing.T) {
	t1 := New(Def{
		Name: "boom",
		Fn: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return nil, errors.New("kaboom")
		},
	})

	_, err := t1.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, model.ErrToolInvocation, tool.KindOf(err))
}

func TestFunctionToolInvokeRespectsCancellation(t *testing.T) {
	t1 := New(Def{Name: "noop", Fn: func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := t1.Invoke(ctx, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, model.ErrCancelled, tool.KindOf(err))
}

func TestFunctionToolDescribeIncludesSchema(t *testing.T) {
	t1 := New(Def{Name: "add", Description: "adds two numbers", Request: addRequest{}})
	d := t1.Describe()
	assert.Equal(t, "add", d.Name)
	assert.NotNil(t, d.InputSchema)
}
