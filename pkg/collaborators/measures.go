package collaborators

import (
	"context"
	"fmt"
	"time"
)

// Measure is a single tracked KPI, per spec §6.3.
type Measure struct {
	MeasureID string    `json:"measure_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Target    float64   `json:"target"`
	History   []float64 `json:"history"`
}

// MeasuresSummary is a pre-aggregated view across a tenant's measures,
// returned when the caller asks for a summary rather than raw series.
type MeasuresSummary struct {
	MeasuresSummary string `json:"measures_summary"`
}

// MeasuresClient fetches a single measure, the full measure list, or a
// server-computed summary for a tenant.
type MeasuresClient interface {
	Get(ctx context.Context, tenantID, measureID string) (*Measure, error)
	List(ctx context.Context, tenantID string) ([]Measure, error)
	Summary(ctx context.Context, tenantID string) (*MeasuresSummary, error)
}

type measuresClient struct {
	httpClient
}

// NewMeasuresClient creates a MeasuresClient against baseURL.
func NewMeasuresClient(baseURL string, timeout time.Duration) MeasuresClient {
	return &measuresClient{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c *measuresClient) Get(ctx context.Context, tenantID, measureID string) (*Measure, error) {
	var out Measure
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/measures/%s", tenantID, measureID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *measuresClient) List(ctx context.Context, tenantID string) ([]Measure, error) {
	var out []Measure
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/measures", tenantID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *measuresClient) Summary(ctx context.Context, tenantID string) (*MeasuresSummary, error) {
	var out MeasuresSummary
	if err := c.getJSON(ctx, fmt.Sprintf("/tenants/%s/measures/summary", tenantID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
