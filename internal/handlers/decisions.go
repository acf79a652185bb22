package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/middleware"
	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/services/ai"
	"github.com/littlesteps/insights/internal/validation"
)

// DecisionHandler previews resolved execution plans. The caller's role comes
// from the authenticated user, never from the request body.
type DecisionHandler struct {
	decisions *ai.DecisionManager
}

// NewDecisionHandler creates a new decision handler
func NewDecisionHandler(decisions *ai.DecisionManager) *DecisionHandler {
	return &DecisionHandler{decisions: decisions}
}

// RegisterRoutes registers decision routes on the given router
// The router should already have the /decisions prefix
func (h *DecisionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/resolve", h.ResolveDecision).Methods("POST")
}

// ResolveDecisionRequest represents a decision resolution request
type ResolveDecisionRequest struct {
	RequestType string   `json:"request_type" validate:"required,request_type"`
	ChildID     string   `json:"child_id,omitempty"`
	DateRange   string   `json:"date_range,omitempty"`
	FocusAreas  []string `json:"focus_areas,omitempty"`
}

// ResolveDecision resolves a request type into its execution plan
func (h *DecisionHandler) ResolveDecision(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ResolveDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	decision, err := h.decisions.Resolve(models.RequestType(req.RequestType), models.DecisionContext{
		ChildID:    req.ChildID,
		Role:       user.Role,
		DateRange:  req.DateRange,
		FocusAreas: req.FocusAreas,
	})
	if err != nil {
		if errors.Is(err, ai.ErrUnknownRequestType) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve decision")
		return
	}

	respondJSON(w, http.StatusOK, decision)
}
