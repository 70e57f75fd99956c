package worker

import (
	"context"
	"encoding/json"
	"time"

	"parkcore/internal/dto"
	"parkcore/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueShiftReport = "jobs:shift_report"

	JobShiftReport = "shift_report"

	// MaxAttempts is the number of times a job runs before it is dead-lettered.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueShiftReport pushes a closed shift's summary for rendering and mailing.
func (d *Dispatcher) EnqueueShiftReport(ctx context.Context, summary dto.ShiftSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return d.push(ctx, QueueShiftReport, Job{Type: JobShiftReport, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
}

func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers}
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle
// workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueShiftReport).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			p.dispatch(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	outcome, reason := runJob(ctx, p.handlers, &job)
	metrics.JobsProcessed.WithLabelValues(job.Type, string(outcome)).Inc()
	switch outcome {
	case outcomeRetry:
		d := Dispatcher{rdb: p.rdb}
		if err := d.push(ctx, queue, job); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("could not requeue job")
		}
	case outcomeDead:
		SendToDLQ(ctx, p.rdb, queue, job, reason)
	}
}

type outcome string

const (
	outcomeOK    outcome = "ok"
	outcomeRetry outcome = "retry"
	outcomeDead  outcome = "dead"
)

// runJob executes job once and bumps its attempt counter. Unknown job types
// go straight to the dead-letter list.
func runJob(ctx context.Context, handlers map[string]Handler, job *Job) (outcome, string) {
	h, ok := handlers[job.Type]
	if !ok {
		return outcomeDead, "no handler for job type " + job.Type
	}
	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job processed")
		return outcomeOK, ""
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed")
	if job.Attempts >= MaxAttempts {
		return outcomeDead, err.Error()
	}
	return outcomeRetry, err.Error()
}
