package services

import (
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	goa "goa.design/goa/v3/pkg"

	"visadesk/internal/logger"
	apperrors "visadesk/pkg/errors"
)

// ErrorResult is the error body: goa's ServiceError fields plus the
// details a caller needs to retry correctly
type ErrorResult struct {
	Name      string         `json:"name"`
	ID        string         `json:"id"`
	Message   string         `json:"message"`
	Temporary bool           `json:"temporary"`
	Timeout   bool           `json:"timeout"`
	Fault     bool           `json:"fault"`
	Details   map[string]any `json:"details,omitempty"`
}

// StatusOf maps an error code onto its HTTP status
func StatusOf(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeIllegalTransition, apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err and reports unexpected failures to Sentry
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(apperrors.ErrCodeInternalError, "internal server error", err)
	}
	status := StatusOf(appErr.Code)
	unavailable := status == http.StatusServiceUnavailable

	se := goa.NewServiceError(err, string(appErr.Code), false, unavailable, status >= 500)
	body := ErrorResult{
		Name:      se.Name,
		ID:        se.ID,
		Message:   appErr.Message,
		Temporary: se.Temporary,
		Timeout:   se.Timeout,
		Fault:     se.Fault,
		Details:   appErr.Details,
	}

	log := logger.FromContext(r.Context())
	switch {
	case status == http.StatusInternalServerError:
		body.Message = "internal server error"
		body.Details = nil
		log.Error("request failed", zap.String("error_id", se.ID), zap.Error(err))
		reportError(r, err, se.ID)
	case unavailable:
		log.Error("store unavailable", zap.String("error_id", se.ID), zap.Error(err))
	default:
		log.Debug("request rejected", zap.String("code", string(appErr.Code)), zap.Error(err))
	}

	s.respond(w, r, status, body)
}

func reportError(r *http.Request, err error, id string) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTag("error_id", id)
		hub.CaptureException(err)
	})
}

// decodeError turns a body decoding failure into a caller error
func decodeError(err error) error {
	if errors.Is(err, io.EOF) {
		return apperrors.Validation("request body is required", nil)
	}
	return apperrors.Wrap(apperrors.ErrCodeBadRequest, "malformed request body", err)
}
