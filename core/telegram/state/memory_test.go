package state

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerStates(t *testing.T) {
	m := NewMemoryManager()
	assert.Equal(t, StateIdle, m.GetState(1))
	assert.False(t, m.InProgress(1))

	m.SetState(1, "task.name")
	m.SetTemp(1, "name", "Breathing")
	assert.True(t, m.InProgress(1))
	assert.False(t, m.InProgress(2))

	name, ok := Temp[string](m, 1, "name")
	assert.True(t, ok)
	assert.Equal(t, "Breathing", name)
	_, ok = Temp[int](m, 1, "name")
	assert.False(t, ok)

	m.Clear(1)
	assert.Equal(t, StateIdle, m.GetState(1))
	_, ok = m.GetTemp(1, "name")
	assert.False(t, ok)
}

func TestTempWithoutState(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(5, "times", map[string]bool{"09:00": true})
	assert.False(t, m.InProgress(5))
	got, ok := Temp[map[string]bool](m, 5, "times")
	assert.True(t, ok)
	assert.True(t, got["09:00"])
}

func TestUpdateTempIsAtomic(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(7, "schedule.times")
	m.SetTemp(7, "times", map[string]bool{})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = Temp[map[string]bool](m, 7, "times")
			assert.True(t, m.UpdateTemp(7, "times", func(old any) any {
				prev := old.(map[string]bool)
				next := make(map[string]bool, len(prev)+1)
				for k, v := range prev {
					next[k] = v
				}
				next[strconv.Itoa(i)] = true
				return next
			}))
		}(i)
	}
	wg.Wait()

	got, ok := Temp[map[string]bool](m, 7, "times")
	require.True(t, ok)
	assert.Len(t, got, workers, "no update is lost")
}

func TestUpdateTempMissing(t *testing.T) {
	m := NewMemoryManager()
	called := false
	fn := func(old any) any { called = true; return old }

	assert.False(t, m.UpdateTemp(1, "times", fn))
	m.SetState(1, "schedule.times")
	assert.False(t, m.UpdateTemp(1, "times", fn))
	assert.False(t, called)
	_, ok := m.GetTemp(1, "times")
	assert.False(t, ok)
}
