package api

import (
	"errors"
	"net/http"

	"forecastd/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var unknownQuery *domain.UnknownQueryError
	var missingParam *domain.MissingParameterError
	var unexpectedParam *domain.UnexpectedParameterError
	var invalidValue *domain.InvalidParameterValueError
	var dangerous *domain.DangerousInputError
	var unavailable *domain.DataSourceUnavailableError
	var sourceErr *domain.DataSourceError
	var noRun *domain.NoRunAvailableError
	var notFound *domain.NotFoundError
	var conflict *domain.ConflictError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &unknownQuery):
		return http.StatusNotFound
	case errors.As(err, &missingParam),
		errors.As(err, &unexpectedParam),
		errors.As(err, &invalidValue),
		errors.As(err, &dangerous),
		errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &sourceErr):
		return http.StatusBadGateway
	case errors.As(err, &noRun), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
