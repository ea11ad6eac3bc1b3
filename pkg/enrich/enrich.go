// Package enrich implements the Parameter Enrichment Pipeline: it turns a
// topic's declared parameter references plus the caller's request body into
// the rendered_context map the prompt renderer consumes, per spec §4.3.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/collaborators"
	"github.com/codeready-toolchain/gateway/pkg/redact"
	"github.com/codeready-toolchain/gateway/pkg/registry"
)

// Message is one turn of a conversation-coaching session, the CONVERSATION
// source's payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Scope is the caller and request context enrichment needs beyond the
// topic's own declarations.
type Scope struct {
	TenantID     string
	UserID       string
	GoalID       string // optional selector, e.g. for GOAL/STRATEGIES sources
	MeasureID    string // optional selector for MEASURE source
	ActionID     string
	IssueID      string
	Conversation []Message // populated for CONVERSATION-sourced parameters
}

// SourceTimeouts overrides the default 10s per-source fetch timeout, keyed
// by registry.ParameterSource.
type SourceTimeouts map[registry.ParameterSource]time.Duration

const defaultSourceTimeout = 10 * time.Second

// Pipeline resolves a topic's declared parameters into a rendered_context
// map, fanning out one fetch per distinct non-REQUEST source.
type Pipeline struct {
	business   collaborators.BusinessClient
	goals      collaborators.GoalsClient
	strategies collaborators.StrategiesClient
	measures   collaborators.MeasuresClient
	actions    collaborators.ActionsClient
	issues     collaborators.IssuesClient
	website    collaborators.WebsiteClient
	timeouts   SourceTimeouts
	transforms *TransformRegistry
}

// Clients bundles the collaborator clients a Pipeline fans out to.
type Clients struct {
	Business   collaborators.BusinessClient
	Goals      collaborators.GoalsClient
	Strategies collaborators.StrategiesClient
	Measures   collaborators.MeasuresClient
	Actions    collaborators.ActionsClient
	Issues     collaborators.IssuesClient
	Website    collaborators.WebsiteClient
}

// New constructs a Pipeline. timeouts may be nil to use the 10s default for
// every source.
func New(clients Clients, timeouts SourceTimeouts) *Pipeline {
	return &Pipeline{
		business:   clients.Business,
		goals:      clients.Goals,
		strategies: clients.Strategies,
		measures:   clients.Measures,
		actions:    clients.Actions,
		issues:     clients.Issues,
		website:    clients.Website,
		timeouts:   timeouts,
		transforms: NewTransformRegistry(),
	}
}

func (p *Pipeline) timeoutFor(source registry.ParameterSource) time.Duration {
	if d, ok := p.timeouts[source]; ok {
		return d
	}
	return defaultSourceTimeout
}

// Enrich resolves topic's ParameterRefs against requestParams and scope,
// returning the merged rendered_context. Ordering follows spec §4.3 exactly:
// REQUEST validation, concurrent non-REQUEST fetches, extraction/defaulting,
// transforms, then COMPUTED parameters last.
func (p *Pipeline) Enrich(ctx context.Context, topic *registry.Topic, requestParams map[string]any, scope Scope) (map[string]any, error) {
	groups := groupBySource(topic.ParameterRefs)

	// Step 3: REQUEST parameters come straight from the caller; fail early
	// on any missing required one.
	out := make(map[string]any, len(topic.ParameterRefs))
	for _, def := range groups[registry.SourceRequest] {
		val, present := requestParams[def.Name]
		if !present || val == nil {
			if def.Required {
				return nil, apperr.MissingParameter(def.Name, string(registry.SourceRequest))
			}
			val = def.Default
		}
		out[def.Name] = val
	}

	// Steps 4-5: one fetch per distinct non-REQUEST, non-COMPUTED source,
	// concurrently.
	sourcesToFetch := make([]registry.ParameterSource, 0, len(groups))
	for source := range groups {
		if source == registry.SourceRequest || source == registry.SourceComputed {
			continue
		}
		sourcesToFetch = append(sourcesToFetch, source)
	}

	payloads := make(map[registry.ParameterSource]any, len(sourcesToFetch))
	fetchErrs := make(map[registry.ParameterSource]error, len(sourcesToFetch))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, source := range sourcesToFetch {
		source := source
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, p.timeoutFor(source))
			defer cancel()

			payload, err := p.fetch(fetchCtx, source, requestParams, scope)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fetchErrs[source] = err
			} else {
				payloads[source] = payload
			}
			return nil // errors are carried per-source, not via errgroup cancellation
		})
	}
	_ = g.Wait() // never returns non-nil: per-source goroutines always return nil

	// Step 6: extraction and defaulting, short-circuiting on the first
	// unrecoverable failure in source or parameter terms.
	for source, defs := range groups {
		if source == registry.SourceRequest || source == registry.SourceComputed {
			continue
		}

		if fetchErr, failed := fetchErrs[source]; failed {
			if isNotFoundErr(fetchErr) {
				if err := applyEmptySource(out, defs); err != nil {
					return nil, err
				}
				continue
			}
			if isTimeoutErr(fetchErr) {
				return nil, apperr.Wrap(apperr.CodeSourceTimeout,
					fmt.Sprintf("source %s timed out", source), fetchErr)
			}
			return nil, apperr.Wrap(apperr.CodeSourceUnavailable,
				fmt.Sprintf("source %s unavailable", source), fetchErr)
		}

		payload := payloads[source]
		for _, def := range defs {
			value := extractPath(payload, def.ExtractionPath)
			if def.Transform != "" {
				value = p.transforms.Apply(def.Transform, value, payload)
			}
			if value == nil {
				if def.Required {
					return nil, apperr.MissingParameter(def.Name, string(source))
				}
				value = def.Default
			}
			out[def.Name] = value
		}
	}

	// Step 8: COMPUTED parameters last, in declaration order, may reference
	// earlier parameters via out.
	for _, def := range groups[registry.SourceComputed] {
		value := p.transforms.Apply(def.Transform, out, nil)
		if value == nil {
			value = def.Default
		}
		out[def.Name] = value
	}

	slog.Debug("parameters enriched", "topic_id", topic.TopicID, "params", redact.Params(out))
	return out, nil
}

func applyEmptySource(out map[string]any, defs []registry.ParameterDef) error {
	for _, def := range defs {
		if def.Required {
			return apperr.New(apperr.CodeSourceEmpty, fmt.Sprintf("source empty for required parameter %q", def.Name)).
				WithField("name", def.Name).WithField("source", string(def.Source))
		}
		out[def.Name] = def.Default
	}
	return nil
}

func groupBySource(defs []registry.ParameterDef) map[registry.ParameterSource][]registry.ParameterDef {
	groups := make(map[registry.ParameterSource][]registry.ParameterDef)
	for _, def := range defs {
		groups[def.Source] = append(groups[def.Source], def)
	}
	return groups
}
