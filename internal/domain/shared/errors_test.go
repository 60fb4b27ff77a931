package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"activegraph/internal/errors"
)

func TestSentinels(t *testing.T) {
	assert.True(t, errors.IsNotFound(ErrNodeNotFound))
	assert.True(t, errors.IsNotFound(ErrConnectionNotFound))
	assert.True(t, errors.IsInvalidReference(ErrInvalidReference))

	derived := errors.From(ErrNodeNotFound).WithOperation("UpdateNode").Build()
	assert.ErrorIs(t, derived, ErrNodeNotFound)
	assert.NotErrorIs(t, derived, ErrConnectionNotFound)
}
