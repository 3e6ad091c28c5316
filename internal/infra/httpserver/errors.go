package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	appsamples "github.com/bryanwahyu/neuroscan/internal/application/samples"
	"github.com/bryanwahyu/neuroscan/internal/application/session"
	domai "github.com/bryanwahyu/neuroscan/internal/domain/ai"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

type retryable interface{ Retryable() bool }

// statusFor maps domain errors to an HTTP status.
func statusFor(err error) (int, bool) {
	var (
		acqErr *acquisition.Error
		vErrs  validator.ValidationErrors
		retry  retryable
	)
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, scans.ErrNotFound),
		errors.Is(err, samples.ErrNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrSaveInProgress),
		errors.Is(err, session.ErrStale),
		errors.Is(err, scans.ErrNotSavable):
		return http.StatusConflict, false
	case errors.Is(err, session.ErrNoOwner):
		return http.StatusUnauthorized, false
	case errors.As(err, &acqErr):
		switch acqErr.Reason {
		case acquisition.ReasonInvalidType:
			return http.StatusUnsupportedMediaType, false
		case acquisition.ReasonSampleNotFound:
			return http.StatusNotFound, false
		case acquisition.ReasonFetchFailed:
			return http.StatusBadGateway, true
		default:
			return http.StatusUnprocessableEntity, false
		}
	case errors.Is(err, appsamples.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, false
	case errors.Is(err, errBadRequest),
		errors.Is(err, appsamples.ErrEmpty),
		errors.As(err, &vErrs):
		return http.StatusBadRequest, false
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, true
	case errors.Is(err, domai.ErrDisabled):
		return http.StatusNotImplemented, false
	case errors.As(err, &retry) && retry.Retryable():
		return http.StatusServiceUnavailable, true
	}
	return http.StatusInternalServerError, false
}
