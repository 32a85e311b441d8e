package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(seconds int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seconds) * time.Second)
}

func TestRestartWindow_OldestRollsOver(t *testing.T) {
	w := NewRestartWindow(3)
	assert.True(t, w.Oldest().IsZero())

	w.Record(at(0))
	w.Record(at(5))
	assert.False(t, w.Full())
	assert.Equal(t, at(0), w.Oldest())

	w.Record(at(10))
	assert.True(t, w.Full())
	assert.Equal(t, at(0), w.Oldest())

	w.Record(at(20))
	assert.Equal(t, at(5), w.Oldest())
	assert.Equal(t, 3, w.Len())
}

func TestRestartWindow_Flapping(t *testing.T) {
	w := NewRestartWindow(3)
	w.Record(at(0))
	w.Record(at(5))
	assert.False(t, w.Flapping(at(5), 30*time.Second))

	w.Record(at(10))
	assert.True(t, w.Flapping(at(10), 30*time.Second))

	other := NewRestartWindow(3)
	other.Record(at(0))
	other.Record(at(5))
	other.Record(at(40))
	assert.False(t, other.Flapping(at(40), 30*time.Second))
}

func TestRestartWindow_MinimumSize(t *testing.T) {
	w := NewRestartWindow(0)
	w.Record(at(1))
	assert.True(t, w.Full())
	assert.True(t, w.Flapping(at(2), 30*time.Second))
}
