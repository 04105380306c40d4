package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_RunsTasksInDueOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, m.Pending())

	m.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, start.Add(300*time.Millisecond), m.Now())
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(time.Time{})
	ran := false
	task := m.AfterFunc(time.Second, func() { ran = true })

	assert.True(t, task.Stop())
	assert.False(t, task.Stop())

	m.Advance(2 * time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_NestedScheduling(t *testing.T) {
	m := NewManual(time.Time{})
	var fired []time.Duration
	base := m.Now()

	m.AfterFunc(time.Second, func() {
		fired = append(fired, m.Now().Sub(base))
		m.AfterFunc(time.Second, func() {
			fired = append(fired, m.Now().Sub(base))
		})
	})

	m.Advance(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fired)
}

func TestManual_StoppedAfterFire(t *testing.T) {
	m := NewManual(time.Time{})
	task := m.AfterFunc(0, func() {})
	m.Advance(0)
	assert.False(t, task.Stop())
}
