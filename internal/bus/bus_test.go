package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := New[int](4)
	_, ch := b.Subscribe()

	b.Publish(7)

	select {
	case v := <-ch:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("expected a value")
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := New[int](1)
	_, ch := b.Subscribe()

	done := make(chan struct{})
	go func() {
		b.Publish(1)
		b.Publish(2) // second publish must not block even though ch's buffer is full
		b.Publish(3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, 1, <-ch)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int](1)
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}
