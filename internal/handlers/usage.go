package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/middleware"
	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/validation"
)

// UsageHandler exposes per-user usage, budget status, and admin-wide stats
// from the shared usage ledger the workers write to.
type UsageHandler struct {
	usage         database.UsageRepositoryInterface
	monthlyBudget float64
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage database.UsageRepositoryInterface, monthlyBudget float64) *UsageHandler {
	return &UsageHandler{usage: usage, monthlyBudget: monthlyBudget}
}

// RegisterRoutes registers usage routes on the given router
// The router should already have the /usage prefix
func (h *UsageHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetUsage).Methods("GET")
	r.HandleFunc("/budget", h.GetBudget).Methods("GET")
}

// GetUsage returns the caller's usage for a query period (default: day)
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	period := models.UsagePeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		if err := validation.ValidateUsagePeriod(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		period = models.UsagePeriod(p)
	}

	usage, err := h.usage.UserUsage(r.Context(), user.ID, period)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve usage")
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// GetBudget returns the caller's monthly spend against the configured budget
func (h *UsageHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	budget, err := h.usage.CheckBudget(r.Context(), user.ID, h.monthlyBudget)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve budget")
		return
	}

	respondJSON(w, http.StatusOK, budget)
}

// GetStats returns service-wide usage aggregates. Mount behind
// middleware.RequireAdmin.
func (h *UsageHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usage.Stats(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
