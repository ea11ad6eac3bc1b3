package registry

// responseModelSchemas holds the JSON Schema document for every topic's
// ResponseModelRef, keyed by that name. These are compiled once by
// NewSchemaRegistry at startup.
var responseModelSchemas = map[string]string{
	"NicheReviewResult": `{
		"type": "object",
		"required": ["assessment", "suggested_niches", "reasoning"],
		"additionalProperties": false,
		"properties": {
			"assessment": {"type": "string", "enum": ["clear", "vague", "too_broad", "too_narrow"]},
			"suggested_niches": {
				"type": "array", "minItems": 1, "maxItems": 5,
				"items": {"type": "string", "minLength": 1}
			},
			"reasoning": {"type": "string", "minLength": 1}
		}
	}`,
	"AlignmentCheckResult": `{
		"type": "object",
		"required": ["is_aligned", "confidence", "reasoning"],
		"additionalProperties": false,
		"properties": {
			"is_aligned": {"type": "boolean"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"reasoning": {"type": "string", "minLength": 1},
			"suggested_adjustment": {"type": "string"}
		}
	}`,
	"WebsiteScanResult": `{
		"type": "object",
		"required": ["summary", "positioning_signals", "tone"],
		"additionalProperties": false,
		"properties": {
			"summary": {"type": "string", "minLength": 1},
			"positioning_signals": {
				"type": "array", "items": {"type": "string"}
			},
			"tone": {"type": "string", "enum": ["professional", "casual", "technical", "playful", "mixed"]}
		}
	}`,
	"MeasureInsightResult": `{
		"type": "object",
		"required": ["trend", "headline", "detail"],
		"additionalProperties": false,
		"properties": {
			"trend": {"type": "string", "enum": ["improving", "declining", "flat", "insufficient_data"]},
			"headline": {"type": "string", "minLength": 1, "maxLength": 140},
			"detail": {"type": "string", "minLength": 1},
			"recommended_actions": {
				"type": "array", "items": {"type": "string"}
			}
		}
	}`,
	"CoreValuesResult": `{
		"type": "object",
		"required": ["status"],
		"additionalProperties": false,
		"properties": {
			"status": {"type": "string", "enum": ["in_progress", "complete"]},
			"next_question": {"type": "string"},
			"core_values": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["value", "description"],
					"properties": {
						"value": {"type": "string", "minLength": 1},
						"description": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}`,
	"PurposeResult": `{
		"type": "object",
		"required": ["status"],
		"additionalProperties": false,
		"properties": {
			"status": {"type": "string", "enum": ["in_progress", "complete"]},
			"next_question": {"type": "string"},
			"purpose_statement": {"type": "string", "minLength": 1}
		}
	}`,
	"VisionResult": `{
		"type": "object",
		"required": ["status"],
		"additionalProperties": false,
		"properties": {
			"status": {"type": "string", "enum": ["in_progress", "complete"]},
			"next_question": {"type": "string"},
			"vision_statement": {"type": "string", "minLength": 1},
			"horizon_years": {"type": "integer", "minimum": 1, "maximum": 30}
		}
	}`,
}
