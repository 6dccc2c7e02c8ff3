package chainpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(time.Minute, 3)
	now := time.Now()

	assert.False(t, cb.RecordError(now, false))
	assert.False(t, cb.RecordError(now.Add(time.Second), false))
	assert.True(t, cb.RecordError(now.Add(2*time.Second), false))
	assert.True(t, cb.Tripped(now.Add(3*time.Second)))
}

func TestCircuitBreaker_CriticalTripsImmediately(t *testing.T) {
	cb := NewCircuitBreaker(time.Minute, 10)
	now := time.Now()
	assert.True(t, cb.RecordError(now, true))
}

func TestCircuitBreaker_WindowExpiryUntrips(t *testing.T) {
	cb := NewCircuitBreaker(10*time.Second, 2)
	now := time.Now()
	cb.RecordError(now, false)
	cb.RecordError(now.Add(time.Second), false)
	assert.True(t, cb.Tripped(now.Add(2*time.Second)))
	assert.False(t, cb.Tripped(now.Add(20*time.Second)))
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(time.Minute, 1)
	now := time.Now()
	cb.RecordError(now, false)
	assert.True(t, cb.Tripped(now))
	cb.Reset()
	assert.False(t, cb.Tripped(now))
}

func TestCircuitBreaker_ErrorRate(t *testing.T) {
	cb := NewCircuitBreaker(time.Hour, 100)
	now := time.Now()
	cb.RecordError(now, false)
	cb.RecordError(now, false)
	assert.Equal(t, 2.0, cb.ErrorRate())
}
