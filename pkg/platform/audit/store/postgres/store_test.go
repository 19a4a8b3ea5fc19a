package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitArg(t *testing.T) {
	assert.Equal(t, int64(25), limitArg(25).V)
	assert.True(t, limitArg(25).Valid)
	assert.False(t, limitArg(0).Valid, "zero lists everything")
	assert.False(t, limitArg(-3).Valid)
}
