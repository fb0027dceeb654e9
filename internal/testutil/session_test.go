package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionIDs(t *testing.T) {
	g := NewFixedSessionIDs("session-1")
	assert.Equal(t, "session-1", g.Generate())
	assert.Equal(t, "session-1", g.Generate())
}

func TestFixedSessionIDs_Default(t *testing.T) {
	assert.Equal(t, "test-session-default", NewFixedSessionIDs("").Generate())
}
