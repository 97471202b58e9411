// ABOUTME: Tests for the per-sender FIFO queues.
// ABOUTME: Covers arrival-order processing, worker reuse, and cross-sender concurrency.

package orchestrator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
)

func TestSenderQueues_FIFOPerSender(t *testing.T) {
	var mu sync.Mutex
	var order []string

	q := newSenderQueues(func(event messenger.Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, event.Text)
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		q.enqueue(messenger.Event{SenderID: "user-1", Text: fmt.Sprintf("event-%02d", i)})
	}
	q.wait()

	require.Len(t, order, 20)
	for i, text := range order {
		assert.Equal(t, fmt.Sprintf("event-%02d", i), text)
	}
}

func TestSenderQueues_SendersDoNotBlockEachOther(t *testing.T) {
	slowDone := make(chan struct{})
	fastDone := make(chan struct{})

	q := newSenderQueues(func(event messenger.Event) {
		switch event.SenderID {
		case "slow":
			select {
			case <-fastDone:
			case <-time.After(2 * time.Second):
				t.Error("fast sender was blocked behind slow sender")
			}
			close(slowDone)
		case "fast":
			close(fastDone)
		}
	})

	q.enqueue(messenger.Event{SenderID: "slow", Text: "a"})
	q.enqueue(messenger.Event{SenderID: "fast", Text: "b"})
	q.wait()

	select {
	case <-slowDone:
	default:
		t.Fatal("slow sender never completed")
	}
}

func TestSenderQueues_WorkerRestartsAfterDrain(t *testing.T) {
	var mu sync.Mutex
	var processed int

	q := newSenderQueues(func(messenger.Event) {
		mu.Lock()
		processed++
		mu.Unlock()
	})

	q.enqueue(messenger.Event{SenderID: "user-1", Text: "first"})
	q.wait()
	q.enqueue(messenger.Event{SenderID: "user-1", Text: "second"})
	q.wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, processed)
}
