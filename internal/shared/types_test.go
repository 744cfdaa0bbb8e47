package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	errRoom := NotFound("room not found")

	assert.Equal(t, KindNotFound, KindOf(errRoom))
	assert.Equal(t, KindCapacity, KindOf(fmt.Errorf("join: %w", Capacity("room is full"))))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", errRoom), errRoom))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "auth_failure", KindAuthFailure.String())
	assert.Equal(t, "invalid_move", KindInvalidMove.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
