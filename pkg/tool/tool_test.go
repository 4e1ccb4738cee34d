package tool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentcore/runtime/pkg/model"
)

func TestKindOfUnwrapsWrappedErr(t *testing.T) {
	base := &Err{Kind: model.ErrTimeout, Message: "deadline"}
	wrapped := fmt.Errorf("wrapping: %w", base)
	assert.Equal(t, model.ErrTimeout, KindOf(wrapped))
}

func TestKindOfDefaultsToToolInvocation(t *testing.T) {
	assert.Equal(t, model.ErrToolInvocation, KindOf(errors.New("plain")))
}
