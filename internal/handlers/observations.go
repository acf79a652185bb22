package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/middleware"
	"github.com/littlesteps/insights/internal/queue"
)

// ProcessingHandler enqueues pipeline jobs. Processing itself happens in the
// worker; these endpoints only hand work to the queue.
type ProcessingHandler struct {
	jobQueue queue.JobQueue
}

// NewProcessingHandler creates a new processing handler
func NewProcessingHandler(jobQueue queue.JobQueue) *ProcessingHandler {
	return &ProcessingHandler{jobQueue: jobQueue}
}

// RegisterRoutes registers processing routes on the given router
func (h *ProcessingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/observations/{id}/process", h.ProcessObservation).Methods("POST")
	r.HandleFunc("/attachments/{id}/process", h.ProcessAttachment).Methods("POST")
	r.HandleFunc("/observations/process-batch", h.ProcessBatch).Methods("POST")
}

// EnqueueResponse reports the job accepted for background processing
type EnqueueResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Queued bool      `json:"queued"`
}

// ProcessObservation enqueues a single-observation pipeline job
func (h *ProcessingHandler) ProcessObservation(w http.ResponseWriter, r *http.Request) {
	h.enqueueSource(w, r, queue.JobTypeProcessObservation)
}

// ProcessAttachment enqueues an attachment pipeline job
func (h *ProcessingHandler) ProcessAttachment(w http.ResponseWriter, r *http.Request) {
	h.enqueueSource(w, r, queue.JobTypeProcessAttachment)
}

func (h *ProcessingHandler) enqueueSource(w http.ResponseWriter, r *http.Request, jobType queue.JobType) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid source ID")
		return
	}

	job := queue.NewJob(jobType, user.ID, &id)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: job.ID, Queued: true})
}

// ProcessBatchRequest represents a batch processing request
type ProcessBatchRequest struct {
	Limit int `json:"limit,omitempty" validate:"min=0,max=100"`
}

// ProcessBatch enqueues a batch pipeline job over unprocessed observations
func (h *ProcessingHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ProcessBatchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
	}
	if req.Limit < 0 || req.Limit > 100 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Limit must be between 0 and 100")
		return
	}

	job := queue.NewJob(queue.JobTypeProcessBatch, user.ID, nil)
	job.BatchLimit = req.Limit
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: job.ID, Queued: true})
}
