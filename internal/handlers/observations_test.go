package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/queue"
)

type fakeJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (f *fakeJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeJobQueue) Dequeue(context.Context) (*queue.Message, error) { return nil, nil }

func (f *fakeJobQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (f *fakeJobQueue) Close() error { return nil }

func (f *fakeJobQueue) HealthCheck(context.Context) error { return nil }

func newProcessingRouter(jobQueue queue.JobQueue) *mux.Router {
	router := mux.NewRouter()
	NewProcessingHandler(jobQueue).RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func TestProcessObservation_Enqueues(t *testing.T) {
	t.Parallel()

	jobQueue := &fakeJobQueue{}
	router := newProcessingRouter(jobQueue)
	user := adminUser()
	observationID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("POST", "/api/v1/observations/"+observationID.String()+"/process", nil, user))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued job, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeProcessObservation {
		t.Errorf("Expected job type %s, got %s", queue.JobTypeProcessObservation, job.Type)
	}
	if job.SourceID == nil || *job.SourceID != observationID {
		t.Errorf("Expected source ID %s, got %v", observationID, job.SourceID)
	}
	if job.UserID != user.ID {
		t.Errorf("Expected user ID %s, got %s", user.ID, job.UserID)
	}

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if queued, _ := data["queued"].(bool); !queued {
		t.Error("Expected queued true in response")
	}
	if data["job_id"] != job.ID.String() {
		t.Errorf("Expected job_id %s, got %v", job.ID, data["job_id"])
	}
}

func TestProcessAttachment_Enqueues(t *testing.T) {
	t.Parallel()

	jobQueue := &fakeJobQueue{}
	router := newProcessingRouter(jobQueue)
	attachmentID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("POST", "/api/v1/attachments/"+attachmentID.String()+"/process", nil, adminUser()))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(jobQueue.enqueued) != 1 || jobQueue.enqueued[0].Type != queue.JobTypeProcessAttachment {
		t.Fatalf("Expected 1 attachment job, got %v", jobQueue.enqueued)
	}
}

func TestProcessSource_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		user       bool
		enqueueErr error
		wantStatus int
	}{
		{name: "no authenticated user", target: "/api/v1/observations/" + uuid.NewString() + "/process", user: false, wantStatus: http.StatusUnauthorized},
		{name: "invalid source id", target: "/api/v1/observations/not-a-uuid/process", user: true, wantStatus: http.StatusBadRequest},
		{name: "queue failure", target: "/api/v1/observations/" + uuid.NewString() + "/process", user: true, enqueueErr: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobQueue := &fakeJobQueue{enqueueErr: tt.enqueueErr}
			router := newProcessingRouter(jobQueue)
			var user = adminUser()
			if !tt.user {
				user = nil
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authenticatedRequest("POST", tt.target, nil, user))
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if len(jobQueue.enqueued) != 0 {
				t.Errorf("Expected no enqueued jobs, got %d", len(jobQueue.enqueued))
			}
		})
	}
}

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLimit  int
	}{
		{name: "empty body uses worker default", body: "", wantStatus: http.StatusAccepted, wantLimit: 0},
		{name: "explicit limit", body: `{"limit": 25}`, wantStatus: http.StatusAccepted, wantLimit: 25},
		{name: "limit too large", body: `{"limit": 500}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"limit"`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobQueue := &fakeJobQueue{}
			router := newProcessingRouter(jobQueue)
			var payload []byte
			if tt.body != "" {
				payload = []byte(tt.body)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authenticatedRequest("POST", "/api/v1/observations/process-batch", payload, adminUser()))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				if len(jobQueue.enqueued) != 0 {
					t.Errorf("Expected no enqueued jobs, got %d", len(jobQueue.enqueued))
				}
				return
			}
			if len(jobQueue.enqueued) != 1 {
				t.Fatalf("Expected 1 enqueued job, got %d", len(jobQueue.enqueued))
			}
			job := jobQueue.enqueued[0]
			if job.Type != queue.JobTypeProcessBatch {
				t.Errorf("Expected batch job type, got %s", job.Type)
			}
			if job.BatchLimit != tt.wantLimit {
				t.Errorf("Expected batch limit %d, got %d", tt.wantLimit, job.BatchLimit)
			}
			if job.SourceID != nil {
				t.Errorf("Expected nil source ID for batch job, got %v", job.SourceID)
			}
		})
	}
}
