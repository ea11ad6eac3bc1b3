// Package registry implements the Topic Registry and the Response Model
// Registry: the static catalogue of AI capabilities, their declared
// parameter contracts, and the schemas their outputs must validate against.
package registry

import "time"

// TopicType distinguishes stateless single-shot topics from multi-turn
// conversation coaching topics.
type TopicType string

const (
	TopicTypeSingleShot           TopicType = "SINGLE_SHOT"
	TopicTypeConversationCoaching TopicType = "CONVERSATION_COACHING"
)

// Category groups topics for discovery and reporting.
type Category string

const (
	CategoryOnboarding        Category = "ONBOARDING"
	CategoryStrategicPlanning Category = "STRATEGIC_PLANNING"
	CategoryOperations        Category = "OPERATIONS"
	CategoryAnalysis          Category = "ANALYSIS"
	CategoryInsights          Category = "INSIGHTS"
	CategoryCoaching          Category = "COACHING"
)

// ParameterSource identifies the upstream category a parameter value is
// extracted from.
type ParameterSource string

const (
	SourceRequest      ParameterSource = "REQUEST"
	SourceOnboarding   ParameterSource = "ONBOARDING"
	SourceGoal         ParameterSource = "GOAL"
	SourceGoals        ParameterSource = "GOALS"
	SourceMeasure      ParameterSource = "MEASURE"
	SourceMeasures     ParameterSource = "MEASURES"
	SourceAction       ParameterSource = "ACTION"
	SourceIssue        ParameterSource = "ISSUE"
	SourceStrategies   ParameterSource = "STRATEGIES"
	SourceConversation ParameterSource = "CONVERSATION"
	SourceWebsite      ParameterSource = "WEBSITE"
	SourceComputed     ParameterSource = "COMPUTED"
)

// IsValid reports whether s is a known parameter source.
func (s ParameterSource) IsValid() bool {
	switch s {
	case SourceRequest, SourceOnboarding, SourceGoal, SourceGoals, SourceMeasure, SourceMeasures,
		SourceAction, SourceIssue, SourceStrategies, SourceConversation, SourceWebsite, SourceComputed:
		return true
	default:
		return false
	}
}

// ParameterDef declares one parameter a topic's templates may reference.
type ParameterDef struct {
	Name           string
	Source         ParameterSource
	ExtractionPath string
	Required       bool
	Default        any
	Transform      string // optional named transform, e.g. "summarize_measures"
}

// RuntimeConfig carries the mutable, overridable half of a topic's
// definition: model selection and generation parameters.
type RuntimeConfig struct {
	ModelCode   string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	IdleTimeout time.Duration // conversation topics only
	MaxTurns    int           // conversation topics only
}

// Topic is the fundamental unit of capability.
type Topic struct {
	TopicID          string
	Type             TopicType
	Category         Category
	Description      string
	ResponseModelRef string
	ParameterRefs    []ParameterDef
	IsActive         bool
	RuntimeConfig    RuntimeConfig
}
