package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/gateway/pkg/collaborators"
	"github.com/codeready-toolchain/gateway/pkg/registry"
)

// fetch issues the single collaborator call for source, per spec §4.3 step
// 4: exactly one fetch per distinct source regardless of how many
// parameters draw from it.
func (p *Pipeline) fetch(ctx context.Context, source registry.ParameterSource, requestParams map[string]any, scope Scope) (any, error) {
	switch source {
	case registry.SourceOnboarding:
		return p.business.GetFoundation(ctx, scope.TenantID)
	case registry.SourceGoal:
		goalID := firstNonEmpty(scope.GoalID, stringParam(requestParams, "goal_id"))
		return p.goals.Get(ctx, scope.TenantID, goalID)
	case registry.SourceGoals:
		return p.goals.List(ctx, scope.TenantID)
	case registry.SourceStrategies:
		goalID := firstNonEmpty(scope.GoalID, stringParam(requestParams, "goal_id"))
		return p.strategies.List(ctx, scope.TenantID, goalID)
	case registry.SourceMeasure:
		measureID := firstNonEmpty(scope.MeasureID, stringParam(requestParams, "measure_id"))
		return p.measures.Get(ctx, scope.TenantID, measureID)
	case registry.SourceMeasures:
		return p.measures.List(ctx, scope.TenantID)
	case registry.SourceAction:
		actionID := firstNonEmpty(scope.ActionID, stringParam(requestParams, "action_id"))
		return p.actions.Get(ctx, scope.TenantID, actionID)
	case registry.SourceIssue:
		issueID := firstNonEmpty(scope.IssueID, stringParam(requestParams, "issue_id"))
		return p.issues.Get(ctx, scope.TenantID, issueID)
	case registry.SourceWebsite:
		url := stringParam(requestParams, "url")
		return p.website.Fetch(ctx, url)
	case registry.SourceConversation:
		return scope.Conversation, nil
	default:
		return nil, errUnsupportedSource
	}
}

var errUnsupportedSource = errors.New("enrich: unsupported parameter source")

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, collaborators.ErrNotFound)
}

// isTimeoutErr reports whether err is the per-source fetch context expiring,
// as opposed to the collaborator being unreachable or erroring outright.
func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// extractPath navigates a dot-separated path through payload, which is
// first normalized to map[string]any / []any via a JSON round-trip so the
// same traversal works whether payload came from a typed collaborator
// struct or straight off the wire. A missing intermediate key or an
// out-of-range index yields nil, per spec §4.3's tie-break rules. An empty
// path returns the whole normalized payload.
func extractPath(payload any, path string) any {
	if payload == nil {
		return nil
	}

	normalized, err := normalize(payload)
	if err != nil {
		return nil
	}
	if path == "" {
		return normalized
	}

	current := normalized
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

func normalize(payload any) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
