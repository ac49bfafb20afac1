package repo

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func quietBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBusDispatchesInRegistrationOrder(t *testing.T) {
	bus := quietBus()

	var order []string
	bus.Subscribe(EventEntitySaved, func(Event) { order = append(order, "first") })
	bus.Subscribe(EventEntitySaved, func(Event) { order = append(order, "second") })
	bus.Subscribe(EventEntityDeleted, func(Event) { order = append(order, "other") })

	bus.Publish(EntitySaved{Brain: "demo"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	bus := quietBus()

	var reached bool
	bus.Subscribe(EventEntitySaved, func(Event) { panic("listener bug") })
	bus.Subscribe(EventEntitySaved, func(Event) { reached = true })

	assert.NotPanics(t, func() {
		bus.Publish(EntitySaved{Brain: "demo"})
	})
	assert.True(t, reached)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := quietBus()

	calls := 0
	sub := bus.Subscribe(EventEntitySaved, func(Event) { calls++ })

	bus.Publish(EntitySaved{})
	bus.Unsubscribe(sub)
	bus.Publish(EntitySaved{})

	assert.Equal(t, 1, calls)
}

func TestEventNames(t *testing.T) {
	cases := map[string]Event{
		"brain.write.retry":            WriteRetry{},
		"brain.write.integrity_failed": WriteIntegrityFailed{},
		"brain.write.completed":        WriteCompleted{},
		"brain.entity.saved":           EntitySaved{},
		"brain.entity.deleted":         EntityDeleted{},
		"brain.entity.restored":        EntityRestored{},
		"brain.project.updated":        ProjectUpdated{},
		"brain.project.deleted":        ProjectDeleted{},
		"brain.cleanup.completed":      CleanupCompleted{},
	}
	for name, e := range cases {
		assert.Equal(t, name, e.EventName())
	}
}
