package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so timeouts can be driven from tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
