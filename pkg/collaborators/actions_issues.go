package collaborators

import (
	"context"
	"fmt"
	"time"
)

// Action is a single tracked action item, per spec §6.3.
type Action struct {
	ActionID    string `json:"action_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// ActionsClient fetches a single action for a tenant.
type ActionsClient interface {
	Get(ctx context.Context, tenantID, actionID string) (*Action, error)
}

type actionsClient struct {
	httpClient
}

// NewActionsClient creates an ActionsClient against baseURL.
func NewActionsClient(baseURL string, timeout time.Duration) ActionsClient {
	return &actionsClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *actionsClient) Get(ctx context.Context, tenantID, actionID string) (*Action, error) {
	var out Action
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/actions/%s", tenantID, actionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue is a single tracked issue, per spec §6.3.
type Issue struct {
	IssueID     string `json:"issue_id"`
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// IssuesClient fetches a single issue for a tenant.
type IssuesClient interface {
	Get(ctx context.Context, tenantID, issueID string) (*Issue, error)
}

type issuesClient struct {
	httpClient
}

// NewIssuesClient creates an IssuesClient against baseURL.
func NewIssuesClient(baseURL string, timeout time.Duration) IssuesClient {
	return &issuesClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *issuesClient) Get(ctx context.Context, tenantID, issueID string) (*Issue, error) {
	var out Issue
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/issues/%s", tenantID, issueID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
