package history

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"tri-league/internal/config"
)

type DispatchConfig struct {
	Workers   int
	Buffer    int
	RetryMax  int
	RetryBase time.Duration
	// Timeout bounds one delivery attempt.
	Timeout time.Duration
}

func DispatchConfigFrom(cfg config.HistoryConfig) DispatchConfig {
	return DispatchConfig{
		Workers:   cfg.OutputWorkers,
		Buffer:    cfg.OutputBuffer,
		RetryMax:  cfg.OutputRetryMax,
		RetryBase: time.Duration(cfg.OutputRetryBaseMS) * time.Millisecond,
		Timeout:   time.Duration(cfg.WebhookTimeoutMS) * time.Millisecond,
	}
}

type deliveryJob struct {
	Output  NamedSink
	Record  MatchRecord
	Attempt int
}

// Dispatcher delivers records to best-effort outputs (webhook, NATS) on its
// own workers. A failed delivery is re-enqueued with exponential backoff
// until RetryMax attempts are spent.
type Dispatcher struct {
	cfg     DispatchConfig
	clock   clockwork.Clock
	outputs []NamedSink

	jobs   chan deliveryJob
	retryQ *retryQueue
	done   chan struct{}

	mu      sync.Mutex
	started bool
}

func NewDispatcher(cfg DispatchConfig, clock clockwork.Clock, outputs ...NamedSink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	d := &Dispatcher{
		cfg:     cfg,
		clock:   clock,
		outputs: outputs,
		jobs:    make(chan deliveryJob, cfg.Buffer),
		done:    make(chan struct{}),
	}
	d.retryQ = newRetryQueue(clock, d.jobs, d.done)
	return d
}

func (d *Dispatcher) Outputs() int { return len(d.outputs) }

// Start launches the workers. They stop, and pending retries are abandoned,
// when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		go d.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(d.done)
	}()
}

// Enqueue schedules rec for every output without waiting for delivery.
func (d *Dispatcher) Enqueue(rec MatchRecord) {
	for _, out := range d.outputs {
		select {
		case d.jobs <- deliveryJob{Output: out, Record: rec}:
			metricOutputQueueLen.Set(int64(len(d.jobs)))
		default:
			metricOutputDropped.Add(1)
			log.Error().
				Str("output", out.Name).
				Str("match_id", rec.ID).
				Str("session_id", rec.SessionID).
				Msg("history_output_queue_full")
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case job := <-d.jobs:
			metricOutputQueueLen.Set(int64(len(d.jobs)))
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job deliveryJob) {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	err := job.Output.Sink.RecordMatch(sendCtx, job.Record)
	cancel()
	if err == nil {
		metricOutputDelivered.Add(1)
		if job.Attempt > 0 {
			log.Info().
				Str("output", job.Output.Name).
				Str("match_id", job.Record.ID).
				Int("attempt", job.Attempt).
				Msg("history_output_delivered_after_retry")
		}
		return
	}
	metricSecondaryFailures.Add(1)
	d.retryOrDrop(job, err)
}

func (d *Dispatcher) retryOrDrop(job deliveryJob, err error) bool {
	if job.Attempt >= d.cfg.RetryMax {
		metricOutputDropped.Add(1)
		log.Error().
			Err(err).
			Str("output", job.Output.Name).
			Str("match_id", job.Record.ID).
			Str("session_id", job.Record.SessionID).
			Int("attempts", job.Attempt+1).
			Msg("history_output_dropped")
		return false
	}
	job.Attempt++
	metricOutputRetries.Add(1)
	delay := d.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	log.Warn().
		Err(err).
		Str("output", job.Output.Name).
		Str("match_id", job.Record.ID).
		Int("attempt", job.Attempt).
		Dur("delay", delay).
		Msg("history_output_retry_scheduled")
	d.retryQ.Enqueue(job, delay)
	return true
}
