package collaborators

import (
	"context"
	"fmt"
	"time"
)

// Strategy is a single strategy tied to a goal, per spec §6.3.
type Strategy struct {
	StrategyID string `json:"strategy_id"`
	GoalID     string `json:"goal_id"`
	Title      string `json:"title"`
}

// StrategiesClient fetches strategies for a goal or a whole tenant.
type StrategiesClient interface {
	List(ctx context.Context, tenantID, goalID string) ([]Strategy, error)
}

type strategiesClient struct {
	httpClient
}

// NewStrategiesClient creates a StrategiesClient against baseURL.
func NewStrategiesClient(baseURL string, timeout time.Duration) StrategiesClient {
	return &strategiesClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *strategiesClient) List(ctx context.Context, tenantID, goalID string) ([]Strategy, error) {
	path := fmt.Sprintf("/tenants/%s/strategies", tenantID)
	if goalID != "" {
		path = fmt.Sprintf("/tenants/%s/goals/%s/strategies", tenantID, goalID)
	}

	var out []Strategy
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
