package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

type scriptedProvider struct {
	responses []Response
	errs      []error
	calls     int
}

func (s *scriptedProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return Response{}, nil
}

func TestRetryingProviderRetriesRateLimitThenSucceeds(t *testing.T) {
	inner := &scriptedProvider{
		errs:      []error{apperr.New(apperr.CodeProviderRateLimited, "rate limited"), nil},
		responses: []Response{{}, {Content: "ok"}},
	}
	p := NewRetryingProvider("test-rate-limit", inner)

	resp, err := p.Invoke(context.Background(), Request{ModelCode: "x", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingProviderGivesUpAfterThreeRateLimitRetries(t *testing.T) {
	rateLimited := apperr.New(apperr.CodeProviderRateLimited, "rate limited")
	inner := &scriptedProvider{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	p := NewRetryingProvider("test-exhausted", inner)

	_, err := p.Invoke(context.Background(), Request{ModelCode: "x", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeProviderRateLimited, appErr.Code)
	assert.Equal(t, 4, inner.calls)
}

func TestRetryingProviderRetriesTimeoutOnceOnly(t *testing.T) {
	timeout := apperr.New(apperr.CodeProviderTimeout, "timed out")
	inner := &scriptedProvider{errs: []error{timeout, timeout}}
	p := NewRetryingProvider("test-timeout", inner)

	_, err := p.Invoke(context.Background(), Request{ModelCode: "x", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeProviderTimeout, appErr.Code)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingProviderDoesNotRetryRefused(t *testing.T) {
	refused := apperr.New(apperr.CodeProviderRefused, "refused")
	inner := &scriptedProvider{errs: []error{refused}}
	p := NewRetryingProvider("test-refused", inner)

	_, err := p.Invoke(context.Background(), Request{ModelCode: "x", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
