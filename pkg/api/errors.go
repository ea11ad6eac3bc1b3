package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// errorDetail is the {detail: {code, message, ...fields}} body every
// non-2xx response carries, per spec §7.
type errorDetail struct {
	Code    apperr.Code    `json:"code"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// writeError maps err to a status code per the taxonomy in spec §4/§6/§7
// and writes the {detail: ...} envelope. Errors outside the apperr
// taxonomy are logged and surfaced as a bare 500, the same fallback the
// teacher's mapServiceError used for unexpected service errors.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.Error("unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errorDetail{
			Code:    apperr.CodeInternalError,
			Message: "internal server error",
		}})
		return
	}

	status := statusForCode(appErr.Code)
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "code", appErr.Code, "error", appErr)
	}
	c.JSON(status, gin.H{"detail": errorDetail{
		Code:    appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}})
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeTopicNotFound, apperr.CodeSessionNotFound, apperr.CodeTemplateNotFound:
		return http.StatusNotFound
	case apperr.CodeTopicInactive, apperr.CodeWrongTopicType, apperr.CodeParameterMalformed:
		return http.StatusBadRequest
	case apperr.CodeMissingParameter:
		return http.StatusUnprocessableEntity
	case apperr.CodeSessionAccessDenied:
		return http.StatusForbidden
	case apperr.CodeSessionConflict, apperr.CodeSessionNotActive:
		return http.StatusConflict
	case apperr.CodeSessionExpired:
		return http.StatusGone
	case apperr.CodeRequestTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
