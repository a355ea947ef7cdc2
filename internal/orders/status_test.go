package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusNext(t *testing.T) {
	next, ok := StatusPreparing.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, next)

	next, ok = StatusShipped.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusDelivered, next)
}

func TestStatusDeliveredIsTerminal(t *testing.T) {
	_, ok := StatusDelivered.Next()
	assert.False(t, ok)
}

func TestStatusNextUnknown(t *testing.T) {
	_, ok := Status("Cancelled").Next()
	assert.False(t, ok)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPreparing.Valid())
	assert.True(t, StatusShipped.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("Pending").Valid())
}
