package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func dlqBody(t *testing.T, createdAt time.Time) []byte {
	t.Helper()
	job := NewJob(JobTypeProcessObservation, uuid.New(), nil)
	job.CreatedAt = createdAt
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	return body
}

func TestDLQMessageExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		body        []byte
		brokerStamp time.Time
		want        bool
	}{
		{
			name: "old job expired",
			body: dlqBody(t, now.Add(-48*time.Hour)),
			want: true,
		},
		{
			name: "recent job kept",
			body: dlqBody(t, now.Add(-time.Hour)),
			want: false,
		},
		{
			name:        "job time wins over broker stamp",
			body:        dlqBody(t, now.Add(-time.Hour)),
			brokerStamp: now.Add(-72 * time.Hour),
			want:        false,
		},
		{
			name:        "malformed body falls back to broker stamp",
			body:        []byte("not json"),
			brokerStamp: now.Add(-48 * time.Hour),
			want:        true,
		},
		{
			name:        "malformed body with recent broker stamp kept",
			body:        []byte("not json"),
			brokerStamp: now.Add(-time.Minute),
			want:        false,
		},
		{
			name: "no timestamps at all is purged",
			body: []byte("not json"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dlqMessageExpired(tt.body, tt.brokerStamp, cutoff); got != tt.want {
				t.Errorf("dlqMessageExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRabbitMQQueue_ImplementsDLQPurger(t *testing.T) {
	t.Parallel()

	var purger DLQPurger = (*RabbitMQQueue)(nil)
	if purger == nil {
		t.Fatal("Expected RabbitMQQueue to satisfy DLQPurger")
	}
}
