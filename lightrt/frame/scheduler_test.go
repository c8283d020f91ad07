package frame

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debugf(format string, args ...any) {}
func (l *recordingLogger) Warnf(format string, args ...any)  {}
func (l *recordingLogger) Errorf(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func TestScheduler_CadenceCounts(t *testing.T) {
	tests := []struct {
		cadence Cadence
		ticks   int
		calls   int
	}{
		{Every1, 100, 100},
		{Every2, 100, 50},
		{Every3, 100, 33},
		{Every5, 100, 20},
		{Every10, 100, 10},
		{Every15, 100, 6},
		{Every30, 100, 3},
		{Every60, 60, 1},
		{Every60, 180, 3},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s x%d", tc.cadence, tc.ticks), func(t *testing.T) {
			s := NewScheduler(nil)
			calls := 0
			_, err := s.Subscribe(tc.cadence, func(int) { calls++ })
			require.NoError(t, err)

			for i := 0; i < tc.ticks; i++ {
				s.Tick()
			}
			assert.Equal(t, tc.calls, calls)
		})
	}
}

func TestScheduler_CounterWrapsAtSlowestCadence(t *testing.T) {
	s := NewScheduler(nil)
	var seen []int
	_, err := s.Subscribe(Every60, func(tick int) { seen = append(seen, tick) })
	require.NoError(t, err)

	for i := 0; i < 59; i++ {
		s.Tick()
	}
	assert.Equal(t, 59, s.Counter())
	assert.Empty(t, seen)

	assert.Equal(t, 60, s.Tick())
	assert.Equal(t, []int{60}, seen)
	assert.Equal(t, 0, s.Counter())

	assert.Equal(t, 1, s.Tick())
}

func TestScheduler_PassesCounterInRegistrationOrder(t *testing.T) {
	s := NewScheduler(nil)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		_, err := s.Subscribe(Every2, func(tick int) { order = append(order, fmt.Sprintf("%s@%d", name, tick)) })
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		s.Tick()
	}
	assert.Equal(t, []string{"a@2", "b@2", "c@2", "a@4", "b@4", "c@4"}, order)
}

func TestScheduler_FasterCadencesDispatchFirst(t *testing.T) {
	s := NewScheduler(nil)
	var order []Cadence
	for i := len(Cadences) - 1; i >= 0; i-- {
		c := Cadences[i]
		_, err := s.Subscribe(c, func(int) { order = append(order, c) })
		require.NoError(t, err)
	}

	for i := 0; i < 30; i++ {
		s.Tick()
	}
	order = order[:0]
	for i := 0; i < 30; i++ {
		s.Tick()
	}
	// Tick 60 fires every cadence, fastest first.
	assert.Equal(t, Cadences[:], order[len(order)-len(Cadences):])
}

func TestScheduler_SubscribeUnknownCadence(t *testing.T) {
	s := NewScheduler(nil)
	_, err := s.Subscribe(Cadence(4), func(int) {})
	assert.ErrorIs(t, err, ErrUnknownCadence)

	_, err = s.Subscribe(Every1, nil)
	assert.Error(t, err)
}

func TestScheduler_Unsubscribe(t *testing.T) {
	s := NewScheduler(nil)
	calls := 0
	sub, err := s.Subscribe(Every1, func(int) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len(Every1))

	s.Tick()
	assert.True(t, s.Unsubscribe(sub))
	assert.False(t, s.Unsubscribe(sub))
	assert.False(t, s.Unsubscribe(Subscription{}))
	assert.Equal(t, 0, s.Len(Every1))

	s.Tick()
	assert.Equal(t, 1, calls)
}

func TestScheduler_UnsubscribeSelfDuringDispatch(t *testing.T) {
	s := NewScheduler(nil)
	var order []string

	var self Subscription
	_, err := s.Subscribe(Every1, func(int) { order = append(order, "first") })
	require.NoError(t, err)
	self, err = s.Subscribe(Every1, func(int) {
		order = append(order, "self")
		s.Unsubscribe(self)
	})
	require.NoError(t, err)
	_, err = s.Subscribe(Every1, func(int) { order = append(order, "last") })
	require.NoError(t, err)

	s.Tick()
	s.Tick()
	assert.Equal(t, []string{"first", "self", "last", "first", "last"}, order)
	assert.Equal(t, 2, s.Len(Every1))
}

func TestScheduler_UnsubscribeLaterSubscriberDuringDispatch(t *testing.T) {
	s := NewScheduler(nil)
	calls := map[string]int{}

	var victim Subscription
	_, err := s.Subscribe(Every1, func(int) {
		calls["killer"]++
		s.Unsubscribe(victim)
	})
	require.NoError(t, err)
	victim, err = s.Subscribe(Every1, func(int) { calls["victim"]++ })
	require.NoError(t, err)

	s.Tick()
	assert.Equal(t, 1, calls["killer"])
	assert.Equal(t, 0, calls["victim"])
}

func TestScheduler_SubscribeDuringDispatchRunsNextTick(t *testing.T) {
	s := NewScheduler(nil)
	added := 0
	_, err := s.Subscribe(Every1, func(int) {
		if added == 0 {
			_, err := s.Subscribe(Every1, func(int) { added++ })
			require.NoError(t, err)
			added = -1
		}
	})
	require.NoError(t, err)

	s.Tick()
	assert.Equal(t, -1, added)
	s.Tick()
	assert.Equal(t, 0, added)
}

func TestScheduler_PanickingSubscriberIsIsolated(t *testing.T) {
	logger := &recordingLogger{}
	s := NewScheduler(logger)

	calls := 0
	_, err := s.Subscribe(Every1, func(int) { panic("boom") })
	require.NoError(t, err)
	_, err = s.Subscribe(Every1, func(int) { calls++ })
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		s.Tick()
		s.Tick()
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(2), s.Faults())
	require.Len(t, logger.errors, 2)
	assert.Contains(t, logger.errors[0], "boom")
}

func TestScheduler_CompactionKeepsOrder(t *testing.T) {
	s := NewScheduler(nil)
	var subs []Subscription
	var order []int
	for i := 0; i < 8; i++ {
		i := i
		sub, err := s.Subscribe(Every1, func(int) { order = append(order, i) })
		require.NoError(t, err)
		subs = append(subs, sub)
	}
	for _, i := range []int{0, 2, 4, 6, 7} {
		require.True(t, s.Unsubscribe(subs[i]))
	}

	s.Tick()
	assert.Equal(t, []int{1, 3, 5}, order)

	// Positions were remapped by compaction; removal must still find them.
	assert.True(t, s.Unsubscribe(subs[3]))
	order = order[:0]
	s.Tick()
	assert.Equal(t, []int{1, 5}, order)
}

func TestParseCadence(t *testing.T) {
	c, err := ParseCadence(15)
	require.NoError(t, err)
	assert.Equal(t, Every15, c)

	_, err = ParseCadence(7)
	assert.ErrorIs(t, err, ErrUnknownCadence)
	assert.False(t, Cadence(0).Valid())
}
