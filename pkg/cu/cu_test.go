package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMeter_Consume(t *testing.T) {
	cm := NewComputeMeter(100)
	assert.NoError(t, cm.Consume(60))
	assert.Equal(t, uint64(40), cm.Remaining())
	assert.Equal(t, uint64(60), cm.Used())

	assert.ErrorIs(t, cm.Consume(41), ErrComputeExceeded)
	assert.True(t, cm.Exceeded())
	assert.Equal(t, uint64(0), cm.Remaining())
}

func TestComputeMeter_Disabled(t *testing.T) {
	cm := NewComputeMeter(10)
	cm.Disable()
	assert.NoError(t, cm.Consume(11))
	assert.True(t, cm.Exceeded())
}
