package fetch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type firings struct {
	mu     sync.Mutex
	values []string
}

func (f *firings) record(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, v)
}

func (f *firings) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.values...)
}

// Requirement: a burst of inputs within the quiet period yields one request
// with the final value.
func TestDebouncer_Burst(t *testing.T) {
	// Arrange
	var got firings
	d := NewDebouncer(20*time.Millisecond, got.record)

	// Act
	for _, v := range []string{"r", "ri", "riv", "river"} {
		d.Push(v)
	}

	// Assert
	assert.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"river"}, got.get())
}

// Requirement: inputs separated by more than the quiet period each fire.
func TestDebouncer_Separated(t *testing.T) {
	var got firings
	d := NewDebouncer(10*time.Millisecond, got.record)

	d.Push("a")
	assert.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 2*time.Millisecond)
	d.Push("b")
	assert.Eventually(t, func() bool { return len(got.get()) == 2 }, time.Second, 2*time.Millisecond)

	assert.Equal(t, []string{"a", "b"}, got.get())
}

// Requirement: a stopped debouncer drops the pending value.
func TestDebouncer_Stop(t *testing.T) {
	var got firings
	d := NewDebouncer(10*time.Millisecond, got.record)

	d.Push("a")
	d.Stop()
	d.Push("b")
	time.Sleep(40 * time.Millisecond)

	assert.Empty(t, got.get())
}

func TestNewDebouncer_DefaultInterval(t *testing.T) {
	d := NewDebouncer(0, func(string) {})
	assert.Equal(t, DefaultDebounce, d.interval)
}

// Requirement: a cancelled push never fires but later pushes do.
func TestDebouncer_Cancel(t *testing.T) {
	var got firings
	d := NewDebouncer(10*time.Millisecond, got.record)

	d.Push("a")
	d.Cancel()
	d.Push("b")

	assert.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 2*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"b"}, got.get())
}
