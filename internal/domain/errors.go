package domain

import "fmt"

// === Validation errors (query filter layer) ===
// These are always surfaced to the caller immediately and never reach the
// data source.

// UnknownQueryError indicates a query_id that is not in the registry.
type UnknownQueryError struct {
	Message string
}

func (e *UnknownQueryError) Error() string { return e.Message }

// MissingParameterError indicates a required parameter was not supplied.
type MissingParameterError struct {
	Message string
}

func (e *MissingParameterError) Error() string { return e.Message }

// UnexpectedParameterError indicates a parameter not declared in the schema.
type UnexpectedParameterError struct {
	Message string
}

func (e *UnexpectedParameterError) Error() string { return e.Message }

// InvalidParameterValueError indicates a value failed its declared
// type/pattern/range check.
type InvalidParameterValueError struct {
	Message string
}

func (e *InvalidParameterValueError) Error() string { return e.Message }

// DangerousInputError indicates a parameter value contained a deny-listed
// token after normalization.
type DangerousInputError struct {
	Message string
}

func (e *DangerousInputError) Error() string { return e.Message }

// === Execution errors (data source layer) ===
// Possibly transient; eligible for retry at the next scheduled trigger.

// DataSourceUnavailableError indicates a connection or timeout failure.
type DataSourceUnavailableError struct {
	Message string
}

func (e *DataSourceUnavailableError) Error() string { return e.Message }

// DataSourceError indicates the driver rejected or failed an otherwise
// well-formed query (e.g. schema mismatch).
type DataSourceError struct {
	Message string
}

func (e *DataSourceError) Error() string { return e.Message }

// === Computation errors (forecast engine) ===

// InsufficientHistoryError indicates the historical series was empty after
// filtering; the engine never fabricates quantiles from zero data.
type InsufficientHistoryError struct {
	Message string
}

func (e *InsufficientHistoryError) Error() string { return e.Message }

// === Read-side and store errors ===

// NoRunAvailableError indicates no run has ever succeeded for a slot.
type NoRunAvailableError struct {
	Message string
}

func (e *NoRunAvailableError) Error() string { return e.Message }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g. duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ValidationError indicates invalid input outside the query filter taxonomy
// (e.g. a malformed read request).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// === Constructors ===

// ErrUnknownQuery creates an UnknownQueryError with a formatted message.
func ErrUnknownQuery(format string, args ...interface{}) *UnknownQueryError {
	return &UnknownQueryError{Message: fmt.Sprintf(format, args...)}
}

// ErrMissingParameter creates a MissingParameterError with a formatted message.
func ErrMissingParameter(format string, args ...interface{}) *MissingParameterError {
	return &MissingParameterError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnexpectedParameter creates an UnexpectedParameterError with a formatted message.
func ErrUnexpectedParameter(format string, args ...interface{}) *UnexpectedParameterError {
	return &UnexpectedParameterError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidParameterValue creates an InvalidParameterValueError with a formatted message.
func ErrInvalidParameterValue(format string, args ...interface{}) *InvalidParameterValueError {
	return &InvalidParameterValueError{Message: fmt.Sprintf(format, args...)}
}

// ErrDangerousInput creates a DangerousInputError with a formatted message.
func ErrDangerousInput(format string, args ...interface{}) *DangerousInputError {
	return &DangerousInputError{Message: fmt.Sprintf(format, args...)}
}

// ErrDataSourceUnavailable creates a DataSourceUnavailableError with a formatted message.
func ErrDataSourceUnavailable(format string, args ...interface{}) *DataSourceUnavailableError {
	return &DataSourceUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrDataSource creates a DataSourceError with a formatted message.
func ErrDataSource(format string, args ...interface{}) *DataSourceError {
	return &DataSourceError{Message: fmt.Sprintf(format, args...)}
}

// ErrInsufficientHistory creates an InsufficientHistoryError with a formatted message.
func ErrInsufficientHistory(format string, args ...interface{}) *InsufficientHistoryError {
	return &InsufficientHistoryError{Message: fmt.Sprintf(format, args...)}
}

// ErrNoRunAvailable creates a NoRunAvailableError with a formatted message.
func ErrNoRunAvailable(format string, args ...interface{}) *NoRunAvailableError {
	return &NoRunAvailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
