package statistics

import (
	"fmt"
	"time"

	"github.com/Melaeke/omim/internal/core/events"
)

// EventBuilder assembles a named event with string params.
type EventBuilder struct {
	event events.Event
}

// NewEventBuilder returns an empty builder.
func NewEventBuilder() *EventBuilder {
	return (&EventBuilder{}).Reset()
}

// Reset clears the builder so it can be reused.
func (b *EventBuilder) Reset() *EventBuilder {
	b.event = events.Event{Params: make(map[string]string)}
	return b
}

func (b *EventBuilder) SetName(name string) *EventBuilder {
	b.event.Name = name
	return b
}

func (b *EventBuilder) SetKey(key string) *EventBuilder {
	b.event.Key = key
	return b
}

// AddParam sets a param; empty keys are ignored.
func (b *EventBuilder) AddParam(key string, value any) *EventBuilder {
	if key == "" {
		return b
	}
	b.event.Params[key] = fmt.Sprint(value)
	return b
}

// Event returns a copy of the built event stamped with the current time.
func (b *EventBuilder) Event() events.Event {
	params := make(map[string]string, len(b.event.Params))
	for k, v := range b.event.Params {
		params[k] = v
	}

	e := b.event
	e.Params = params
	e.Timestamp = time.Now().UTC()
	return e
}
