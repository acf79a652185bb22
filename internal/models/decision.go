package models

// RequestType names a supported insight request in the decision tree.
type RequestType string

const (
	// RequestQuickInsight is a low-latency single-child summary
	RequestQuickInsight RequestType = "quick_insight"
	// RequestFullAnalysis is a deep multi-source analysis
	RequestFullAnalysis RequestType = "full_analysis"
	// RequestRecommendations produces activity recommendations
	RequestRecommendations RequestType = "recommendations"
	// RequestParentReport produces a parent-facing progress report
	RequestParentReport RequestType = "parent_report"
)

// Tier is the coarse cost/latency class bounding model choice and token budget.
type Tier string

const (
	// TierQuick targets sub-second responses with small token budgets
	TierQuick Tier = "quick"
	// TierAnalysis allows larger budgets for multi-record analysis
	TierAnalysis Tier = "analysis"
	// TierReport allows the largest budgets for long-form reports
	TierReport Tier = "report"
)

// Role is the caller's role as exposed by the auth collaborator.
type Role string

const (
	// RoleParent sees only parent-visible data, simplified language
	RoleParent Role = "parent"
	// RoleTeacher sees detailed observations
	RoleTeacher Role = "teacher"
	// RoleAdmin manages templates and global stats
	RoleAdmin Role = "admin"
)

// DataRequirement declares one table read a decision needs.
type DataRequirement struct {
	Source     string         `json:"source"`
	Fields     []string       `json:"fields"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// AIConfiguration is the resolved model configuration for one request.
type AIConfiguration struct {
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	Tier         Tier    `json:"tier"`
	CacheEnabled bool    `json:"cache_enabled"`
	CacheTTLSecs int     `json:"cache_ttl_secs"`
}

// OutputField declares one field of the output contract with an optional
// validation expression a renderer can check without re-deriving rules.
type OutputField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Validation string `json:"validation,omitempty"`
}

// OutputFormat is the declarative output contract of a decision.
type OutputFormat struct {
	Fields          []OutputField `json:"fields"`
	Transformations []string      `json:"transformations,omitempty"`
}

// AIDecision is the fully resolved execution plan for one request type.
// It is computed fresh per request and never persisted.
type AIDecision struct {
	Pipeline         string            `json:"pipeline"`
	DataRequirements []DataRequirement `json:"data_requirements"`
	Configuration    AIConfiguration   `json:"configuration"`
	OutputFormat     OutputFormat      `json:"output_format"`
}

// DecisionContext carries the caller-supplied customization inputs.
type DecisionContext struct {
	ChildID    string   `json:"child_id,omitempty"`
	Role       Role     `json:"role,omitempty"`
	DateRange  string   `json:"date_range,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}
