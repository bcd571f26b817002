package history

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type retryQueue struct {
	clock clockwork.Clock
	out   chan<- deliveryJob
	done  <-chan struct{}
}

func newRetryQueue(clock clockwork.Clock, out chan<- deliveryJob, done <-chan struct{}) *retryQueue {
	return &retryQueue{clock: clock, out: out, done: done}
}

func (q *retryQueue) Enqueue(job deliveryJob, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	q.clock.AfterFunc(delay, func() {
		select {
		case <-q.done:
			return
		case q.out <- job:
			metricOutputQueueLen.Set(int64(len(q.out)))
		}
	})
}
