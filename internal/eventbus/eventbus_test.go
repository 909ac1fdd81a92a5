package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	var got FileIndexedEvent
	Subscribe(b, func(e FileIndexedEvent) { got = e })

	b.Publish(FileIndexedEvent{Path: "A.groovy", Success: true, Symbols: 3})

	assert.Equal(t, "A.groovy", got.Path)
	assert.True(t, got.Success)
	assert.Equal(t, 3, got.Symbols)
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	b := New()
	var count int32
	Subscribe(b, func(e FileIndexedEvent) { atomic.AddInt32(&count, 1) })
	Subscribe(b, func(e FileIndexedEvent) { atomic.AddInt32(&count, 1) })
	Subscribe(b, func(e FileIndexedEvent) { atomic.AddInt32(&count, 1) })

	b.Publish(FileIndexedEvent{Path: "A.groovy"})

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestSubscribersOnlyReceiveMatchingType(t *testing.T) {
	b := New()
	var fileCount, wsCount int
	Subscribe(b, func(e FileIndexedEvent) { fileCount++ })
	Subscribe(b, func(e WorkspaceIndexedEvent) { wsCount++ })

	b.Publish(FileIndexedEvent{Path: "A.groovy"})
	b.Publish(WorkspaceIndexedEvent{TotalFiles: 10})

	assert.Equal(t, 1, fileCount)
	assert.Equal(t, 1, wsCount)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	sub := Subscribe(b, func(e FileIndexedEvent) { count++ })

	b.Publish(FileIndexedEvent{Path: "A.groovy"})
	b.Unsubscribe(sub)
	b.Publish(FileIndexedEvent{Path: "B.groovy"})

	assert.Equal(t, 1, count)
}

func TestPanickingSubscriberDoesNotStopOthersOrPublisher(t *testing.T) {
	b := New()
	var secondCalled bool
	Subscribe(b, func(e FileIndexedEvent) { panic("boom") })
	Subscribe(b, func(e FileIndexedEvent) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Publish(FileIndexedEvent{Path: "A.groovy"})
	})
	assert.True(t, secondCalled)
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Subscribe(b, func(e FileIndexedEvent) {})
		}()
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(FileIndexedEvent{Path: "A.groovy"})
		}()
	}
	wg.Wait()
}
