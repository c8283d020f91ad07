package frame

import (
	"fmt"

	"github.com/gekko3d/gekko-lights/lightrt/core"
)

// Subscriber is invoked with the current tick counter.
type Subscriber func(tick int)

// Subscription identifies a registered subscriber. The zero value is never
// returned by Subscribe.
type Subscription struct {
	id      uint64
	cadence Cadence
}

type subscriber struct {
	id uint64
	fn Subscriber // nil once unsubscribed
}

type subscriberList struct {
	entries []subscriber
	dead    int
}

// Scheduler dispatches subscribers at fixed frame cadences. It is not safe
// for concurrent use; Tick, Subscribe and Unsubscribe must all run on the
// frame thread.
type Scheduler struct {
	counter int
	lists   [len(Cadences)]subscriberList
	index   map[uint64]int // subscription id -> position in its cadence list
	nextID  uint64

	dispatching bool
	faults      uint64
	logger      core.Logger
}

func NewScheduler(logger core.Logger) *Scheduler {
	return &Scheduler{
		index:  make(map[uint64]int),
		logger: core.OrNop(logger),
	}
}

// Subscribe registers fn at cadence c. Subscribers registered during a
// dispatch first run on the next due tick.
func (s *Scheduler) Subscribe(c Cadence, fn Subscriber) (Subscription, error) {
	idx := c.index()
	if idx < 0 {
		return Subscription{}, fmt.Errorf("subscribe: %w: %d", ErrUnknownCadence, int(c))
	}
	if fn == nil {
		return Subscription{}, fmt.Errorf("subscribe: nil subscriber")
	}

	s.nextID++
	id := s.nextID
	list := &s.lists[idx]
	s.index[id] = len(list.entries)
	list.entries = append(list.entries, subscriber{id: id, fn: fn})
	return Subscription{id: id, cadence: c}, nil
}

// Unsubscribe removes a subscriber. It reports false when the subscription
// is unknown or was already removed. Safe to call from inside a dispatch.
func (s *Scheduler) Unsubscribe(sub Subscription) bool {
	pos, ok := s.index[sub.id]
	if !ok {
		return false
	}
	delete(s.index, sub.id)

	list := &s.lists[sub.cadence.index()]
	list.entries[pos].fn = nil
	list.dead++

	if !s.dispatching {
		s.compact(list)
	}
	return true
}

// Tick advances the counter and runs every subscriber that is due. It
// returns the counter value passed to subscribers.
func (s *Scheduler) Tick() int {
	s.counter++
	tick := s.counter

	s.dispatching = true
	for i, c := range Cadences {
		if tick%int(c) != 0 {
			continue
		}
		s.dispatch(&s.lists[i], c, tick)
	}
	s.dispatching = false

	for i := range s.lists {
		s.compact(&s.lists[i])
	}

	if tick%int(slowest) == 0 {
		s.counter = 0
	}
	return tick
}

func (s *Scheduler) dispatch(list *subscriberList, c Cadence, tick int) {
	// Entries appended during dispatch are not part of this tick.
	n := len(list.entries)
	for i := 0; i < n; i++ {
		entry := list.entries[i]
		if entry.fn == nil {
			continue
		}
		s.invoke(entry, c, tick)
	}
}

func (s *Scheduler) invoke(entry subscriber, c Cadence, tick int) {
	defer func() {
		if r := recover(); r != nil {
			s.faults++
			s.logger.Errorf("frame: subscriber %d (%s) panicked at tick %d: %v", entry.id, c, tick, r)
		}
	}()
	entry.fn(tick)
}

// compact drops tombstones once they make up half of a list.
func (s *Scheduler) compact(list *subscriberList) {
	if list.dead == 0 || list.dead*2 < len(list.entries) {
		return
	}
	live := list.entries[:0]
	for _, e := range list.entries {
		if e.fn == nil {
			continue
		}
		s.index[e.id] = len(live)
		live = append(live, e)
	}
	clear(list.entries[len(live):])
	list.entries = live
	list.dead = 0
}

// Counter returns the tick counter, which is 0 right after the slowest
// cadence fired.
func (s *Scheduler) Counter() int {
	return s.counter
}

// Len returns the number of live subscribers at cadence c.
func (s *Scheduler) Len(c Cadence) int {
	idx := c.index()
	if idx < 0 {
		return 0
	}
	return len(s.lists[idx].entries) - s.lists[idx].dead
}

// Faults returns how many subscriber panics were recovered.
func (s *Scheduler) Faults() uint64 {
	return s.faults
}
