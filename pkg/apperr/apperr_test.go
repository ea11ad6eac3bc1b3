package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	e := New(CodeTopicNotFound, "topic \"x\" does not exist")
	assert.Equal(t, "TopicNotFound: topic \"x\" does not exist", e.Error())

	bare := &Error{Code: CodeInternalError}
	assert.Equal(t, "InternalError", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(CodeSourceUnavailable, "goals fetch failed", cause)
	assert.ErrorIs(t, e, cause)
}

func TestMissingParameterFields(t *testing.T) {
	e := MissingParameter("goal_id", "GOAL")
	assert.Equal(t, CodeMissingParameter, e.Code)
	assert.Equal(t, "goal_id", e.Fields["name"])
	assert.Equal(t, "GOAL", e.Fields["source"])
}

func TestSessionConflictFields(t *testing.T) {
	e := SessionConflict("user-1")
	assert.Equal(t, CodeSessionConflict, e.Code)
	assert.Equal(t, "user-1", e.Fields["conflict_user_id"])
}

func TestWithFieldChaining(t *testing.T) {
	e := New(CodeParameterMalformed, "bad value").WithField("name", "x").WithField("reason", "not a number")
	assert.Equal(t, "x", e.Fields["name"])
	assert.Equal(t, "not a number", e.Fields["reason"])
}
