package ai

import (
	"fmt"

	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
)

const progressTrackingSource = "progress_tracking"

// DecisionManager maps a request type to a fully resolved execution plan:
// which data to read, which model configuration to run, and the output
// contract a renderer can check without re-deriving business rules.
// Decisions are computed fresh per request and never persisted.
type DecisionManager struct {
	load   LoadSignal
	logger *zap.Logger
}

// NewDecisionManager creates a decision manager. The load signal is
// optional; without it decisions are never load-optimized.
func NewDecisionManager(load LoadSignal, logger *zap.Logger) *DecisionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionManager{load: load, logger: logger}
}

// Resolve applies the full resolution pipeline: lookup, customization,
// role filtering, then load optimization. Unknown request types are a hard
// error.
func (m *DecisionManager) Resolve(requestType models.RequestType, dctx models.DecisionContext) (*models.AIDecision, error) {
	decision := baseDecision(requestType)
	if decision == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, requestType)
	}

	m.customize(decision, dctx)
	m.applyRole(decision, dctx.Role)

	if m.load != nil && m.load.HighLoad() {
		m.optimizeForLoad(decision)
		m.logger.Info("decision_load_optimized",
			zap.String("request_type", string(requestType)),
			zap.String("model", decision.Configuration.Model),
		)
	}

	return decision, nil
}

// customize merges the caller-supplied date range and focus areas and scopes
// every progress_tracking read to the child in context.
func (m *DecisionManager) customize(d *models.AIDecision, dctx models.DecisionContext) {
	for i := range d.DataRequirements {
		req := &d.DataRequirements[i]
		if req.Conditions == nil {
			req.Conditions = make(map[string]any)
		}
		if dctx.DateRange != "" {
			req.Conditions["date_range"] = dctx.DateRange
		}
		if dctx.ChildID != "" && req.Source == progressTrackingSource {
			req.Conditions["child_id"] = dctx.ChildID
		}
	}
	if len(dctx.FocusAreas) > 0 {
		d.DataRequirements = append(d.DataRequirements, models.DataRequirement{
			Source: "focus_areas",
			Fields: dctx.FocusAreas,
		})
	}
}

// applyRole filters the decision for the caller's role. Parents only see
// parent-visible tracking rows with simplified language; teachers also get
// detailed observation text.
func (m *DecisionManager) applyRole(d *models.AIDecision, role models.Role) {
	switch role {
	case models.RoleParent:
		for i := range d.DataRequirements {
			req := &d.DataRequirements[i]
			if req.Source != progressTrackingSource {
				continue
			}
			if req.Conditions == nil {
				req.Conditions = make(map[string]any)
			}
			req.Conditions["parent_visible"] = true
		}
		d.OutputFormat.Transformations = append(d.OutputFormat.Transformations, "simplify_language")
	case models.RoleTeacher:
		for i := range d.DataRequirements {
			req := &d.DataRequirements[i]
			if req.Source == "observations" {
				req.Fields = append(req.Fields, "detailed_observations")
			}
		}
	}
}

// optimizeForLoad degrades the decision under high system load: cheaper
// model, 30% smaller token budget, halved row limits, doubled cache TTL
// with caching forced on.
func (m *DecisionManager) optimizeForLoad(d *models.AIDecision) {
	if d.Configuration.Model == "gpt-4" {
		d.Configuration.Model = "gpt-3.5-turbo"
	}
	d.Configuration.MaxTokens = d.Configuration.MaxTokens * 7 / 10
	for i := range d.DataRequirements {
		if d.DataRequirements[i].Limit > 0 {
			d.DataRequirements[i].Limit /= 2
		}
	}
	d.Configuration.CacheTTLSecs *= 2
	d.Configuration.CacheEnabled = true
}

// baseDecision returns a freshly constructed decision for the request type,
// or nil when the type is not in the tree. Fresh construction keeps the
// static tree immutable across requests.
func baseDecision(requestType models.RequestType) *models.AIDecision {
	switch requestType {
	case models.RequestQuickInsight:
		return &models.AIDecision{
			Pipeline: "reader_summary",
			DataRequirements: []models.DataRequirement{
				{
					Source: progressTrackingSource,
					Fields: []string{"skill", "level", "noted_at"},
					Limit:  20,
				},
				{
					Source: "observations",
					Fields: []string{"type", "content", "observed_at"},
					Limit:  10,
				},
			},
			Configuration: models.AIConfiguration{
				Model:        "gpt-3.5-turbo",
				Temperature:  0.4,
				MaxTokens:    500,
				Tier:         models.TierQuick,
				CacheEnabled: true,
				CacheTTLSecs: 300,
			},
			OutputFormat: models.OutputFormat{
				Fields: []models.OutputField{
					{Name: "insight", Type: "string", Validation: "len > 0"},
					{Name: "confidence", Type: "number", Validation: ">= 0 && <= 0.95"},
				},
			},
		}
	case models.RequestFullAnalysis:
		return &models.AIDecision{
			Pipeline: "reader_observer",
			DataRequirements: []models.DataRequirement{
				{
					Source: progressTrackingSource,
					Fields: []string{"skill", "level", "noted_at", "notes"},
					Limit:  100,
				},
				{
					Source: "observations",
					Fields: []string{"type", "content", "context", "observed_at"},
					Limit:  50,
				},
				{
					Source: "milestones",
					Fields: []string{"name", "expected_age_months", "achieved_at"},
					Limit:  30,
				},
			},
			Configuration: models.AIConfiguration{
				Model:        "gpt-4",
				Temperature:  0.3,
				MaxTokens:    2000,
				Tier:         models.TierAnalysis,
				CacheEnabled: false,
				CacheTTLSecs: 600,
			},
			OutputFormat: models.OutputFormat{
				Fields: []models.OutputField{
					{Name: "summary", Type: "string", Validation: "len > 0"},
					{Name: "patterns", Type: "array"},
					{Name: "confidence_scores", Type: "object"},
				},
			},
		}
	case models.RequestRecommendations:
		return &models.AIDecision{
			Pipeline: "recommendation",
			DataRequirements: []models.DataRequirement{
				{
					Source: progressTrackingSource,
					Fields: []string{"skill", "level", "noted_at"},
					Limit:  50,
				},
				{
					Source: "activity_library",
					Fields: []string{"name", "description", "age_range_months"},
					Limit:  30,
				},
			},
			Configuration: models.AIConfiguration{
				Model:        "gpt-4",
				Temperature:  0.7,
				MaxTokens:    1500,
				Tier:         models.TierAnalysis,
				CacheEnabled: true,
				CacheTTLSecs: 600,
			},
			OutputFormat: models.OutputFormat{
				Fields: []models.OutputField{
					{Name: "recommendations", Type: "array", Validation: "len >= 1"},
					{Name: "rationale", Type: "string"},
				},
			},
		}
	case models.RequestParentReport:
		return &models.AIDecision{
			Pipeline: "report",
			DataRequirements: []models.DataRequirement{
				{
					Source: progressTrackingSource,
					Fields: []string{"skill", "level", "noted_at", "notes"},
					Limit:  100,
				},
				{
					Source: "observations",
					Fields: []string{"type", "content", "observed_at"},
					Limit:  40,
				},
				{
					Source: "milestones",
					Fields: []string{"name", "expected_age_months", "achieved_at"},
					Limit:  20,
				},
			},
			Configuration: models.AIConfiguration{
				Model:        "gpt-4",
				Temperature:  0.5,
				MaxTokens:    3000,
				Tier:         models.TierReport,
				CacheEnabled: true,
				CacheTTLSecs: 900,
			},
			OutputFormat: models.OutputFormat{
				Fields: []models.OutputField{
					{Name: "report", Type: "string", Validation: "len > 0"},
					{Name: "highlights", Type: "array"},
					{Name: "next_steps", Type: "array"},
				},
				Transformations: []string{"format_for_print"},
			},
		}
	default:
		return nil
	}
}
