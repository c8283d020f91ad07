package frame

import (
	"errors"
	"fmt"
)

// ErrUnknownCadence is returned for intervals that are not one of Cadences.
var ErrUnknownCadence = errors.New("unknown cadence")

// Cadence is the number of ticks between two invocations of a subscriber.
type Cadence int

const (
	Every1  Cadence = 1
	Every2  Cadence = 2
	Every3  Cadence = 3
	Every5  Cadence = 5
	Every10 Cadence = 10
	Every15 Cadence = 15
	Every30 Cadence = 30
	Every60 Cadence = 60
)

// Cadences lists the supported cadences, fastest first. The slowest one
// bounds the tick counter.
var Cadences = [...]Cadence{Every1, Every2, Every3, Every5, Every10, Every15, Every30, Every60}

const slowest = Every60

func (c Cadence) Valid() bool {
	return c.index() >= 0
}

func (c Cadence) index() int {
	for i, known := range Cadences {
		if known == c {
			return i
		}
	}
	return -1
}

func (c Cadence) String() string {
	return fmt.Sprintf("every %d", int(c))
}

// ParseCadence converts a frame interval into a Cadence.
func ParseCadence(n int) (Cadence, error) {
	c := Cadence(n)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d (want one of %v)", ErrUnknownCadence, n, Cadences)
	}
	return c, nil
}
