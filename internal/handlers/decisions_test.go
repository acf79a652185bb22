package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/services/ai"
)

func newDecisionRouter() *mux.Router {
	router := mux.NewRouter()
	handler := NewDecisionHandler(ai.NewDecisionManager(nil, nil))
	handler.RegisterRoutes(router.PathPrefix("/decisions").Subrouter())
	return router
}

func TestResolveDecision(t *testing.T) {
	t.Parallel()

	router := newDecisionRouter()
	payload, _ := json.Marshal(ResolveDecisionRequest{RequestType: "quick_insight"})

	user := &models.User{ID: uuid.New(), Role: models.RoleTeacher}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("POST", "/decisions/resolve", payload, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected decision object, got %T", body["data"])
	}
	cfg, ok := data["configuration"].(map[string]any)
	if !ok {
		t.Fatalf("Expected configuration object, got %T", data["configuration"])
	}
	if cfg["tier"] != string(models.TierQuick) {
		t.Errorf("Expected tier %q, got %v", models.TierQuick, cfg["tier"])
	}
	if cfg["model"] != "gpt-3.5-turbo" {
		t.Errorf("Expected model gpt-3.5-turbo, got %v", cfg["model"])
	}
}

func TestResolveDecision_RoleComesFromUser(t *testing.T) {
	t.Parallel()

	router := newDecisionRouter()
	payload, _ := json.Marshal(ResolveDecisionRequest{RequestType: "full_analysis"})

	user := &models.User{ID: uuid.New(), Role: models.RoleParent}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("POST", "/decisions/resolve", payload, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	format, ok := data["output_format"].(map[string]any)
	if !ok {
		t.Fatalf("Expected output_format object, got %T", data["output_format"])
	}
	transformations, _ := format["transformations"].([]any)
	found := false
	for _, tr := range transformations {
		if tr == "simplify_language" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected simplify_language transformation for parent role, got %v", transformations)
	}
}

func TestResolveDecision_Rejections(t *testing.T) {
	t.Parallel()

	router := newDecisionRouter()
	user := &models.User{ID: uuid.New(), Role: models.RoleTeacher}

	tests := []struct {
		name       string
		body       string
		user       *models.User
		wantStatus int
	}{
		{name: "no authenticated user", body: `{"request_type":"quick_insight"}`, user: nil, wantStatus: http.StatusUnauthorized},
		{name: "malformed json", body: `{"request_type"`, user: user, wantStatus: http.StatusBadRequest},
		{name: "missing request type", body: `{}`, user: user, wantStatus: http.StatusBadRequest},
		{name: "unknown request type", body: `{"request_type":"tarot_reading"}`, user: user, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authenticatedRequest("POST", "/decisions/resolve", []byte(tt.body), tt.user))
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
