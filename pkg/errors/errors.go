package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is returned when a required configuration value is missing or invalid.
type ConfigurationError struct {
	Key    string
	EnvVar string
	Reason string
}

func NewMissingConfigurationError(key, envVar string) *ConfigurationError {
	return &ConfigurationError{Key: key, EnvVar: envVar, Reason: "is required"}
}

func NewInvalidConfigurationError(key, reason string) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.EnvVar != "" {
		return fmt.Sprintf("configuration %q %s: set it in the %s environment variable or the configuration file", e.Key, e.Reason, e.EnvVar)
	}
	return fmt.Sprintf("configuration %q %s", e.Key, e.Reason)
}

// ValidationError is returned by the begin phase when the project, suites or
// configurations in TestRail do not match what the reporter expects.
type ValidationError struct {
	reason string
	err    error
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{reason: reason}
}

func NewValidationErrorWithCause(reason string, err error) *ValidationError {
	return &ValidationError{reason: reason, err: err}
}

func (e *ValidationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.reason, e.err)
	}
	return fmt.Sprintf("validation failed: %s", e.reason)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// ResolutionError is returned when no run of the plan matches a configuration label.
type ResolutionError struct {
	Label  string
	PlanID int64
}

func NewResolutionError(label string, planID int64) *ResolutionError {
	return &ResolutionError{Label: label, PlanID: planID}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no run found for configuration %q in plan %d", e.Label, e.PlanID)
}

// SubmissionError wraps a failed create, submit or close call to TestRail.
type SubmissionError struct {
	Op    string
	RunID int64
	err   error
}

func NewSubmissionError(op string, runID int64, err error) *SubmissionError {
	return &SubmissionError{Op: op, RunID: runID, err: err}
}

func (e *SubmissionError) Error() string {
	if e.RunID > 0 {
		return fmt.Sprintf("failed to %s for run %d: %v", e.Op, e.RunID, e.err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.err)
}

func (e *SubmissionError) Unwrap() error {
	return e.err
}

// MappingError is returned when a test outcome has no TestRail status.
type MappingError struct {
	Outcome string
}

func NewMappingError(outcome string) *MappingError {
	return &MappingError{Outcome: outcome}
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("unknown test outcome %q: no TestRail status mapping", e.Outcome)
}

// APIError is a non successful response from the TestRail API.
type APIError struct {
	StatusCode int
	Method     string
	Message    string
}

func NewAPIError(statusCode int, method, message string) *APIError {
	return &APIError{StatusCode: statusCode, Method: method, Message: message}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("testrail %s: %d %s: %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("testrail %s: %d %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode))
}

type ResourceNotFoundError struct {
	*APIError
}

func NewResourceNotFoundError(method, message string) *ResourceNotFoundError {
	return &ResourceNotFoundError{APIError: NewAPIError(http.StatusNotFound, method, message)}
}

type UnauthorizedError struct {
	*APIError
}

func NewUnauthorizedError(statusCode int, method, message string) *UnauthorizedError {
	return &UnauthorizedError{APIError: NewAPIError(statusCode, method, message)}
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsResolutionError(err error) bool {
	var e *ResolutionError
	return errors.As(err, &e)
}

func IsSubmissionError(err error) bool {
	var e *SubmissionError
	return errors.As(err, &e)
}

func IsMappingError(err error) bool {
	var e *MappingError
	return errors.As(err, &e)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

func IsUnauthorizedError(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}
