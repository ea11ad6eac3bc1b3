package collaborators

import (
	"context"
	"fmt"
	"time"
)

// BusinessFoundation is a tenant's onboarding-derived profile, per spec §6.3.
type BusinessFoundation struct {
	Vision        string   `json:"vision"`
	Purpose       string   `json:"purpose"`
	CoreValues    []string `json:"core_values"`
	ICAs          []string `json:"icas"`
	Pillars       []string `json:"pillars"`
	Industry      string   `json:"industry"`
	BusinessType  string   `json:"business_type"`
	BusinessStage string   `json:"business_stage"`
}

// BusinessClient fetches a tenant's business foundation.
type BusinessClient interface {
	GetFoundation(ctx context.Context, tenantID string) (*BusinessFoundation, error)
}

type businessClient struct {
	httpClient
}

// NewBusinessClient creates a BusinessClient against baseURL.
func NewBusinessClient(baseURL string, timeout time.Duration) BusinessClient {
	return &businessClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *businessClient) GetFoundation(ctx context.Context, tenantID string) (*BusinessFoundation, error) {
	var out BusinessFoundation
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/foundation", tenantID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
