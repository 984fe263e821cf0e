package dispatcher

import (
	"context"

	"github.com/garyjia/expense-claims/internal/domain/event"
)

// Handler observes a committed domain event
type Handler func(ctx context.Context, evt *event.Event) error

// ObserverInfo describes a registered observer
type ObserverInfo struct {
	Name      string
	EventType event.Type
	Async     bool
}

// AsyncFailureHook receives failures of asynchronous observers, which have
// no caller to return an error to
type AsyncFailureHook func(evt *event.Event, observer string, err error)

type observer struct {
	ObserverInfo
	handler Handler
}
