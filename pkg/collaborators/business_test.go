package collaborators

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessClientGetFoundation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants/t1/foundation", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vision":"grow sustainably","industry":"pet care"}`))
	}))
	defer server.Close()

	client := NewBusinessClient(server.URL, time.Second)
	got, err := client.GetFoundation(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "grow sustainably", got.Vision)
	assert.Equal(t, "pet care", got.Industry)
}

func TestBusinessClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBusinessClient(server.URL, time.Second)
	_, err := client.GetFoundation(context.Background(), "missing-tenant")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBusinessClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewBusinessClient(server.URL, time.Second)
	_, err := client.GetFoundation(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
