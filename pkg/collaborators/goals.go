package collaborators

import (
	"context"
	"fmt"
	"time"
)

// Goal is a single tenant goal, per spec §6.3.
type Goal struct {
	GoalID      string `json:"goal_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// GoalsClient fetches a single goal or the full goal list for a tenant.
type GoalsClient interface {
	Get(ctx context.Context, tenantID, goalID string) (*Goal, error)
	List(ctx context.Context, tenantID string) ([]Goal, error)
}

type goalsClient struct {
	httpClient
}

// NewGoalsClient creates a GoalsClient against baseURL.
func NewGoalsClient(baseURL string, timeout time.Duration) GoalsClient {
	return &goalsClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *goalsClient) Get(ctx context.Context, tenantID, goalID string) (*Goal, error) {
	var out Goal
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/goals/%s", tenantID, goalID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *goalsClient) List(ctx context.Context, tenantID string) ([]Goal, error) {
	var out []Goal
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/goals", tenantID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
