package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversInOrder(t *testing.T) {
	bus := NewEventBus()
	var got []EventType

	bus.Subscribe(func(e Event) { got = append(got, e.Type) }, FileCreated, FileWritten)
	bus.Emit(FileCreated, FilePayload{Path: "a"})
	bus.Emit(BusyChanged, true)
	bus.Emit(FileWritten, FilePayload{Path: "a"})

	assert.Equal(t, []EventType{FileCreated, FileWritten}, got)
}

func TestWildcardAndUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Emit(StateChanged, "idle")
	bus.Emit(BusyChanged, false)
	unsubscribe()
	bus.Emit(BusyChanged, true)

	assert.Equal(t, 2, count)
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus()
	delivered := false
	bus.Subscribe(func(Event) { panic("boom") }, GenerationChunk)
	bus.Subscribe(func(Event) { delivered = true }, GenerationChunk)

	assert.NotPanics(t, func() { bus.Emit(GenerationChunk, ChunkPayload{Delta: "x"}) })
	assert.True(t, delivered)
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Emit(BusyChanged, true) })
}
