package worker

// Jobs that exhaust MaxAttempts land in a Redis list per source queue
// (dlq:{queue}). Supervisors inspect them through /health and push them back
// with ReplayDLQ once the cause (SMTP outage, full disk) is fixed.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DeadJob is a failed job plus why and when it was given up on.
type DeadJob struct {
	Queue    string    `json:"queue"`
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// SendToDLQ parks job in the queue's dead-letter list. Failures are logged;
// there is nowhere further to send the job.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	data, err := json.Marshal(DeadJob{Queue: queue, Job: job, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal")
		return
	}
	if err := rdb.LPush(ctx, dlqKey(queue), data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_type", job.Type).Msg("dlq: push failed, job lost")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job dead-lettered")
}

// DLQLength returns the number of dead jobs for queue.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}

// ReplayDLQ moves up to limit dead jobs (oldest first) back onto queue with a
// fresh attempt budget and returns how many were moved.
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int) (int, error) {
	d := Dispatcher{rdb: rdb}
	moved := 0
	for moved < limit {
		raw, err := rdb.RPop(ctx, dlqKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}
		var dead DeadJob
		if err := json.Unmarshal([]byte(raw), &dead); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq: dropping unreadable entry")
			continue
		}
		dead.Job.Attempts = 0
		if err := d.push(ctx, queue, dead.Job); err != nil {
			// put it back so nothing is lost
			_ = rdb.RPush(ctx, dlqKey(queue), raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("replayed", moved).Msg("dlq: jobs replayed")
	}
	return moved, nil
}
