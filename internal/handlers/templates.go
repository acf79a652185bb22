package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/middleware"
	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/validation"
)

const (
	// MaxTemplateBodyLength is the maximum length for a template body
	MaxTemplateBodyLength = 20000
	// MaxTemplateNameLength is the maximum length for a template name
	MaxTemplateNameLength = 200
)

// TemplateHandler handles prompt template management. All routes require the
// admin role; mount behind middleware.RequireAdmin.
type TemplateHandler struct {
	templates database.TemplateRepositoryInterface
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates database.TemplateRepositoryInterface) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// RegisterRoutes registers template routes on the given router
// The router should already have the /templates prefix
func (h *TemplateHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTemplates).Methods("GET")
	r.HandleFunc("", h.CreateTemplate).Methods("POST")
	r.HandleFunc("/{id}", h.GetTemplate).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTemplate).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteTemplate).Methods("DELETE")
}

// CreateTemplateRequest represents a create template request
type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	Body        string `json:"body" validate:"required,min=1,max=20000"`
}

// UpdateTemplateRequest represents an update template request
type UpdateTemplateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Body        *string `json:"body,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ListTemplates lists templates, optionally filtered to active ones
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	templates, err := h.templates.List(r.Context(), activeOnly)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve templates")
		return
	}
	if templates == nil {
		templates = []*models.PromptTemplate{}
	}

	respondJSON(w, http.StatusOK, templates)
}

// GetTemplate retrieves a template by ID
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid template ID")
		return
	}

	tpl, err := h.templates.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve template")
		return
	}
	if tpl == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Template not found")
		return
	}

	respondJSON(w, http.StatusOK, tpl)
}

// CreateTemplate creates a new template. Variables are derived from
// {{placeholder}} tokens in the body.
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
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

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Body is required")
		return
	}

	tpl := &models.PromptTemplate{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Body:        req.Body,
		Active:      true,
		CreatedBy:   user.ID,
	}

	if err := h.templates.Create(r.Context(), tpl); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create template")
		return
	}

	respondJSON(w, http.StatusCreated, tpl)
}

// UpdateTemplate updates a template's fields and re-derives its variables
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid template ID")
		return
	}

	var req UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	ctx := r.Context()
	tpl, err := h.templates.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve template")
		return
	}
	if tpl == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Template not found")
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" || len(name) > MaxTemplateNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid template name")
			return
		}
		tpl.Name = name
	}
	if req.Description != nil {
		tpl.Description = validation.SanitizeText(*req.Description)
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" || len(*req.Body) > MaxTemplateBodyLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid template body")
			return
		}
		tpl.Body = *req.Body
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}

	if err := h.templates.Update(ctx, tpl); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update template")
		return
	}

	respondJSON(w, http.StatusOK, tpl)
}

// DeleteTemplate soft-deactivates a template; the row is never removed
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid template ID")
		return
	}

	if err := h.templates.Deactivate(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Template not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to deactivate template")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deactivated": true})
}
