package registry

import "time"

// builtinTopics returns the built-in topic catalogue, defined at build time
// as Go literals. Runtime overrides to RuntimeConfig are layered on top by
// Registry.MergeRuntimeConfig; everything else here is immutable.
func builtinTopics() map[string]*Topic {
	topics := []*Topic{
		{
			TopicID:          "niche_review",
			Type:             TopicTypeSingleShot,
			Category:         CategoryAnalysis,
			Description:      "Reviews a business's stated niche and suggests sharper alternatives.",
			ResponseModelRef: "NicheReviewResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "current_value", Source: SourceRequest, Required: true},
				{Name: "industry", Source: SourceOnboarding, ExtractionPath: "industry", Required: false},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.7, MaxTokens: 1024, Timeout: 60 * time.Second,
			},
		},
		{
			TopicID:          "alignment_check",
			Type:             TopicTypeSingleShot,
			Category:         CategoryStrategicPlanning,
			Description:      "Checks whether a goal aligns with the business's stated vision and strategies.",
			ResponseModelRef: "AlignmentCheckResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "goal_id", Source: SourceRequest, Required: true},
				{Name: "goal", Source: SourceGoal, ExtractionPath: "goal", Required: true},
				{Name: "vision", Source: SourceOnboarding, ExtractionPath: "vision", Required: false},
				{Name: "strategies", Source: SourceStrategies, ExtractionPath: "strategies", Required: false,
					Transform: "join_values"},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.5, MaxTokens: 1024, Timeout: 60 * time.Second,
			},
		},
		{
			TopicID:          "website_scan",
			Type:             TopicTypeSingleShot,
			Category:         CategoryInsights,
			Description:      "Scans a business's website and extracts positioning signals.",
			ResponseModelRef: "WebsiteScanResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "url", Source: SourceRequest, Required: true},
				{Name: "content", Source: SourceWebsite, ExtractionPath: "content", Required: true},
				{Name: "title", Source: SourceWebsite, ExtractionPath: "title", Required: false},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.3, MaxTokens: 1536, Timeout: 60 * time.Second,
			},
		},
		{
			TopicID:          "measure_insight",
			Type:             TopicTypeSingleShot,
			Category:         CategoryOperations,
			Description:      "Summarizes trends across a tenant's tracked measures.",
			ResponseModelRef: "MeasureInsightResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "measures_summary", Source: SourceMeasures, ExtractionPath: "measures_summary", Required: true,
					Transform: "summarize_measures"},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.4, MaxTokens: 1024, Timeout: 60 * time.Second,
			},
		},
		{
			TopicID:          "core_values",
			Type:             TopicTypeConversationCoaching,
			Category:         CategoryOnboarding,
			Description:      "Coaches the founder through articulating the business's core values.",
			ResponseModelRef: "CoreValuesResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "conversation", Source: SourceConversation, Required: false},
				{Name: "business_type", Source: SourceOnboarding, ExtractionPath: "business_type", Required: false},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.7, MaxTokens: 1024, Timeout: 60 * time.Second,
				IdleTimeout: 30 * time.Minute, MaxTurns: 8,
			},
		},
		{
			TopicID:          "purpose",
			Type:             TopicTypeConversationCoaching,
			Category:         CategoryOnboarding,
			Description:      "Coaches the founder through articulating the business's purpose statement.",
			ResponseModelRef: "PurposeResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "conversation", Source: SourceConversation, Required: false},
				{Name: "industry", Source: SourceOnboarding, ExtractionPath: "industry", Required: false},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.7, MaxTokens: 1024, Timeout: 60 * time.Second,
				IdleTimeout: 30 * time.Minute, MaxTurns: 8,
			},
		},
		{
			TopicID:          "vision",
			Type:             TopicTypeConversationCoaching,
			Category:         CategoryOnboarding,
			Description:      "Coaches the founder through articulating a long-range vision statement.",
			ResponseModelRef: "VisionResult",
			IsActive:         true,
			ParameterRefs: []ParameterDef{
				{Name: "conversation", Source: SourceConversation, Required: false},
				{Name: "purpose", Source: SourceOnboarding, ExtractionPath: "purpose", Required: false},
			},
			RuntimeConfig: RuntimeConfig{
				ModelCode: "anthropic-default", Temperature: 0.7, MaxTokens: 1024, Timeout: 60 * time.Second,
				IdleTimeout: 30 * time.Minute, MaxTurns: 10,
			},
		},
	}

	byID := make(map[string]*Topic, len(topics))
	for _, t := range topics {
		byID[t.TopicID] = t
	}
	return byID
}
