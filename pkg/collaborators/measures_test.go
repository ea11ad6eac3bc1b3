package collaborators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasuresClientSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants/t1/measures/summary", r.URL.Path)
		_, _ = w.Write([]byte(`{"measures_summary":"revenue up 12% month over month"}`))
	}))
	defer server.Close()

	client := NewMeasuresClient(server.URL, time.Second)
	got, err := client.Summary(context.Background(), "t1")
	require.NoError(t, err)
	assert.Contains(t, got.MeasuresSummary, "revenue up 12%")
}

func TestMeasuresClientList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"measure_id":"m1","name":"MRR","unit":"usd","target":10000,"history":[8000,8500,9000]}]`))
	}))
	defer server.Close()

	client := NewMeasuresClient(server.URL, time.Second)
	got, err := client.List(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MRR", got[0].Name)
	assert.Len(t, got[0].History, 3)
}
