package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/littlesteps/insights/internal/models"
)

type fakeUsageRepo struct {
	records []models.UsageRecord
	err     error

	usageCalls  []models.UsagePeriod
	budgetCalls []float64
}

func (f *fakeUsageRepo) RecordUsage(_ context.Context, rec models.UsageRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeUsageRepo) UserUsage(_ context.Context, userID uuid.UUID, period models.UsagePeriod) (models.UserUsage, error) {
	if f.err != nil {
		return models.UserUsage{}, f.err
	}
	f.usageCalls = append(f.usageCalls, period)
	usage := models.UserUsage{Period: period, ByModel: make(map[string]float64)}
	for _, r := range f.records {
		if r.UserID != userID {
			continue
		}
		usage.TotalCost += r.Cost
		usage.TotalTokens += r.Tokens
		usage.CallCount++
		usage.ByModel[r.Model] += r.Cost
	}
	return usage, nil
}

func (f *fakeUsageRepo) CheckBudget(_ context.Context, userID uuid.UUID, monthlyBudget float64) (models.BudgetStatus, error) {
	if f.err != nil {
		return models.BudgetStatus{}, f.err
	}
	f.budgetCalls = append(f.budgetCalls, monthlyBudget)
	var spent float64
	for _, r := range f.records {
		if r.UserID == userID {
			spent += r.Cost
		}
	}
	return models.BudgetStatus{
		Spent:        spent,
		Budget:       monthlyBudget,
		WithinBudget: spent < monthlyBudget,
	}, nil
}

func (f *fakeUsageRepo) Stats(context.Context) (models.GlobalStats, error) {
	if f.err != nil {
		return models.GlobalStats{}, f.err
	}
	stats := models.GlobalStats{CostByModel: make(map[string]float64)}
	for _, r := range f.records {
		stats.TotalCost += r.Cost
		stats.TotalTokens += r.Tokens
		stats.TotalRequests++
		stats.CostByModel[r.Model] += r.Cost
	}
	return stats, nil
}

func newUsageRouter(repo *fakeUsageRepo, budget float64) *mux.Router {
	router := mux.NewRouter()
	handler := NewUsageHandler(repo, budget)
	handler.RegisterRoutes(router.PathPrefix("/usage").Subrouter())
	router.HandleFunc("/stats", handler.GetStats).Methods("GET")
	return router
}

func TestGetUsage(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Role: models.RoleTeacher}
	repo := &fakeUsageRepo{records: []models.UsageRecord{
		{UserID: user.ID, Model: "gpt-4", Tokens: 2000, Cost: 0.06},
		{UserID: user.ID, Model: "gpt-3.5-turbo", Tokens: 1000, Cost: 0.0015},
		{UserID: uuid.New(), Model: "gpt-4", Tokens: 5000, Cost: 0.15},
	}}
	router := newUsageRouter(repo, 50)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("GET", "/usage?period=week", nil, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.usageCalls) != 1 || repo.usageCalls[0] != models.UsagePeriodWeek {
		t.Errorf("Expected one week-period ledger query, got %v", repo.usageCalls)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if calls, _ := data["call_count"].(float64); calls != 2 {
		t.Errorf("Expected 2 calls for the requesting user, got %v", data["call_count"])
	}
	if tokens, _ := data["total_tokens"].(float64); tokens != 3000 {
		t.Errorf("Expected 3000 tokens, got %v", data["total_tokens"])
	}
}

func TestGetUsage_Rejections(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Role: models.RoleTeacher}

	tests := []struct {
		name       string
		target     string
		user       *models.User
		repoErr    error
		wantStatus int
	}{
		{name: "no authenticated user", target: "/usage", user: nil, wantStatus: http.StatusUnauthorized},
		{name: "bogus period", target: "/usage?period=fortnight", user: user, wantStatus: http.StatusBadRequest},
		{name: "ledger failure", target: "/usage", user: user, repoErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newUsageRouter(&fakeUsageRepo{err: tt.repoErr}, 50)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authenticatedRequest("GET", tt.target, nil, tt.user))
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestGetBudget(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Role: models.RoleTeacher}
	repo := &fakeUsageRepo{records: []models.UsageRecord{
		{UserID: user.ID, Model: "gpt-4", Tokens: 1000, Cost: 0.03},
	}}
	router := newUsageRouter(repo, 50)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("GET", "/usage/budget", nil, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.budgetCalls) != 1 || repo.budgetCalls[0] != 50 {
		t.Errorf("Expected the configured budget passed to the ledger, got %v", repo.budgetCalls)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if within, _ := data["within_budget"].(bool); !within {
		t.Error("Expected $0.03 of spend to be within a $50 budget")
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	repo := &fakeUsageRepo{records: []models.UsageRecord{
		{UserID: uuid.New(), Model: "gpt-4", Tokens: 1000, Cost: 0.03},
		{UserID: uuid.New(), Model: "gpt-3.5-turbo", Tokens: 1000, Cost: 0.0015},
	}}
	router := newUsageRouter(repo, 50)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest("GET", "/stats", nil, adminUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if requests, _ := data["total_requests"].(float64); requests != 2 {
		t.Errorf("Expected 2 total requests, got %v", data["total_requests"])
	}
}
