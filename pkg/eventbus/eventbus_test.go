package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribersInOrder(t *testing.T) {
	bus := New()
	var order []int

	bus.Subscribe(func(Event) error {
		order = append(order, 1)
		return nil
	})
	bus.Subscribe(func(Event) error {
		order = append(order, 2)
		return nil
	})

	require.NoError(t, bus.Publish(Event{Kind: KindRunStarted}))
	assert.Equal(t, []int{1, 2}, order)
}

func TestPublishStopsAtFirstError(t *testing.T) {
	bus := New()
	var called []int
	boom := errors.New("boom")

	bus.Subscribe(func(Event) error {
		called = append(called, 1)
		return boom
	})
	bus.Subscribe(func(Event) error {
		called = append(called, 2)
		return nil
	})

	err := bus.Publish(Event{Kind: KindRunStarted})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, called)
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	bus := New()
	h := bus.Subscribe(func(Event) error { return nil })
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(h)
	assert.Equal(t, 0, bus.SubscriberCount())

	require.NoError(t, bus.Publish(Event{Kind: KindRunFinished}))
}
