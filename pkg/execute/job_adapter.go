package execute

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/jobqueue"
)

// JobAdapter satisfies jobqueue.Executor by running a claimed job through
// the same Execute pipeline the synchronous /ai/execute endpoint uses, per
// spec §4.7 ("the worker executes using the same component pipeline as the
// synchronous executor").
type JobAdapter struct {
	executor *Executor
}

// NewJobAdapter wraps executor for use as a jobqueue.Executor.
func NewJobAdapter(executor *Executor) *JobAdapter {
	return &JobAdapter{executor: executor}
}

// Execute implements jobqueue.Executor.
func (a *JobAdapter) Execute(ctx context.Context, job *jobqueue.Job) *jobqueue.ExecutionResult {
	var params map[string]any
	if len(job.Parameters) > 0 {
		if err := json.Unmarshal(job.Parameters, &params); err != nil {
			return &jobqueue.ExecutionResult{
				Status:    jobqueue.StatusFailed,
				Error:     err,
				ErrorCode: jobqueue.ErrorCodeInternal,
			}
		}
	}

	result, err := a.executor.Execute(ctx, Request{TopicID: job.TopicID, Parameters: params}, Caller{
		TenantID: job.TenantID,
		UserID:   job.UserID,
	})
	if err != nil {
		return &jobqueue.ExecutionResult{
			Status:    jobqueue.StatusFailed,
			Error:     err,
			ErrorCode: mapErrorCode(err),
		}
	}

	resultJSON, err := json.Marshal(result.Data)
	if err != nil {
		return &jobqueue.ExecutionResult{
			Status:    jobqueue.StatusFailed,
			Error:     err,
			ErrorCode: jobqueue.ErrorCodeInternal,
		}
	}

	return &jobqueue.ExecutionResult{
		Status: jobqueue.StatusCompleted,
		Result: resultJSON,
	}
}

// mapErrorCode translates the apperr taxonomy onto the narrower set of
// error codes recorded on a terminal job record, per spec §7.
func mapErrorCode(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return jobqueue.ErrorCodeInternal
	}

	switch appErr.Code {
	case apperr.CodeProviderUnavailable, apperr.CodeProviderTimeout, apperr.CodeProviderRateLimited, apperr.CodeProviderRefused:
		return jobqueue.ErrorCodeProviderUnavailable
	case apperr.CodeProviderMalformedOutput:
		return jobqueue.ErrorCodeMalformedOutput
	case apperr.CodeLLMOutputInvalid, apperr.CodeMissingParameter, apperr.CodeParameterMalformed:
		return jobqueue.ErrorCodeValidationFailed
	case apperr.CodeSourceUnavailable, apperr.CodeSourceEmpty, apperr.CodeSourceTimeout:
		return jobqueue.ErrorCodeEnrichmentFailed
	case apperr.CodeProcessingTimeout, apperr.CodeRequestTimeout:
		return jobqueue.ErrorCodeProcessingTimeout
	default:
		return jobqueue.ErrorCodeInternal
	}
}
