// ABOUTME: Per-sender FIFO queues so one sender's turns never interleave.
// ABOUTME: Distinct senders run concurrently; a sender's worker drains in arrival order.

package orchestrator

import (
	"sync"

	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
)

// senderQueues serializes event processing per sender. Events for the same
// sender run to completion, remote calls included, in arrival order; events
// for different senders proceed fully concurrently. Workers start lazily
// and exit once their sender's queue drains.
type senderQueues struct {
	mu      sync.Mutex
	pending map[string][]messenger.Event
	wg      sync.WaitGroup
	process func(messenger.Event)
}

func newSenderQueues(process func(messenger.Event)) *senderQueues {
	return &senderQueues{
		pending: make(map[string][]messenger.Event),
		process: process,
	}
}

// enqueue appends the event to its sender's queue, starting a worker if
// none is draining that sender. Never blocks on processing.
func (q *senderQueues) enqueue(event messenger.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, running := q.pending[event.SenderID]
	q.pending[event.SenderID] = append(queue, event)
	if running {
		// A worker is already draining this sender.
		return
	}

	q.wg.Add(1)
	go q.drain(event.SenderID)
}

// drain processes the sender's queue in order until it is empty, then
// removes the queue so the next event starts a fresh worker.
func (q *senderQueues) drain(senderID string) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		queue := q.pending[senderID]
		if len(queue) == 0 {
			delete(q.pending, senderID)
			q.mu.Unlock()
			return
		}
		event := queue[0]
		q.pending[senderID] = queue[1:]
		q.mu.Unlock()

		q.process(event)
	}
}

// wait blocks until every in-flight worker has drained. Used on shutdown
// and in tests.
func (q *senderQueues) wait() {
	q.wg.Wait()
}
