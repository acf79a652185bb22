package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DLQPurger removes dead-lettered messages that have been in the DLQ longer
// than the retention window.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

var _ DLQPurger = (*RabbitMQQueue)(nil)

// PurgeOlderThan drains the dead letter queue, dropping messages whose job
// was created before the retention cutoff. The DLQ is roughly FIFO, so the
// scan stops and requeues as soon as it reaches a message young enough to
// keep.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to get DLQ message: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if dlqMessageExpired(msg.Body, msg.Timestamp, cutoff) {
			if ackErr := q.channel.Ack(msg.DeliveryTag, false); ackErr != nil {
				return purged, fmt.Errorf("failed to ack purged DLQ message: %w", ackErr)
			}
			purged++
			continue
		}

		// Young message: put it back and stop scanning.
		if nackErr := q.channel.Nack(msg.DeliveryTag, false, true); nackErr != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", nackErr)
		}
		return purged, nil
	}
}

// dlqMessageExpired reports whether a dead-lettered message is past the
// cutoff. The job's CreatedAt is authoritative; the broker timestamp is the
// fallback, and a message carrying neither is treated as expired so
// malformed payloads cannot pin the DLQ forever.
func dlqMessageExpired(body []byte, brokerStamp time.Time, cutoff time.Time) bool {
	var job Job
	if err := json.Unmarshal(body, &job); err == nil && !job.CreatedAt.IsZero() {
		return job.CreatedAt.Before(cutoff)
	}
	if !brokerStamp.IsZero() {
		return brokerStamp.Before(cutoff)
	}
	return true
}
