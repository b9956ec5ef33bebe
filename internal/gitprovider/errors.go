package gitprovider

import (
	"errors"
	"fmt"
	"strings"
)

const (
	notFoundMessageConstant                = "not found"
	rateLimitedMessageConstant             = "rate limited"
	configurationMessageConstant           = "configuration error"
	missingAccessTokenMessageConstant      = "no access token available"
	pullRequestNotMergeableMessageConstant = "pull request is not mergeable"
	operationNotSupportedMessageConstant   = "operation not supported by this repository"
	configurationErrorTemplateConstant     = "invalid configuration for %s: %s"
	malformedInputErrorTemplateConstant    = "malformed input %q: %s"
	operationErrorTemplateConstant         = "%s failed: %s"
	fileNotFoundErrorTemplateConstant      = "file %s not found in %s at %s"
	errorCauseTemplateConstant             = "%s: %v"
)

var (
	// ErrNotFound reports that a repository, ref, file or pull request does not exist.
	ErrNotFound = errors.New(notFoundMessageConstant)
	// ErrRateLimited reports that the hosted provider throttled the request.
	ErrRateLimited = errors.New(rateLimitedMessageConstant)
	// ErrConfiguration marks every ConfigurationError.
	ErrConfiguration = errors.New(configurationMessageConstant)
	// ErrMissingAccessToken reports that no token could be resolved for a hosted repository.
	ErrMissingAccessToken = errors.New(missingAccessTokenMessageConstant)
	// ErrPullRequestNotMergeable is the canonical form of provider merge conflicts.
	ErrPullRequestNotMergeable = errors.New(pullRequestNotMergeableMessageConstant)
	// ErrOperationNotSupported reports a hosted-only operation requested from a local repository.
	ErrOperationNotSupported = errors.New(operationNotSupportedMessageConstant)
)

// ConfigurationError reports missing or invalid settings, including missing credentials.
type ConfigurationError struct {
	Setting string
	Message string
	Cause   error
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Setting, configurationError.Message)
}

// Is matches ErrConfiguration.
func (configurationError ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Unwrap exposes the cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// MalformedInputError reports a URI or identifier that cannot be parsed.
type MalformedInputError struct {
	Input   string
	Message string
	Cause   error
}

// Error describes the malformed input.
func (malformedInputError MalformedInputError) Error() string {
	message := fmt.Sprintf(malformedInputErrorTemplateConstant, malformedInputError.Input, malformedInputError.Message)
	if malformedInputError.Cause == nil {
		return message
	}
	return fmt.Sprintf(errorCauseTemplateConstant, message, malformedInputError.Cause)
}

// Unwrap exposes the cause.
func (malformedInputError MalformedInputError) Unwrap() error {
	return malformedInputError.Cause
}

// OperationError reports a failed provider operation with context for the caller.
type OperationError struct {
	Operation string
	Message   string
	Cause     error
}

// Error describes the failed operation.
func (operationError OperationError) Error() string {
	message := fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Message)
	if operationError.Cause == nil {
		return message
	}
	return fmt.Sprintf(errorCauseTemplateConstant, message, operationError.Cause)
}

// Unwrap exposes the cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// FileNotFoundError reports a file missing at a ref. It matches ErrNotFound.
type FileNotFoundError struct {
	FilePath string
	RepoURI  string
	Ref      string
	Cause    error
}

// Error describes the missing file.
func (fileNotFoundError FileNotFoundError) Error() string {
	return fmt.Sprintf(fileNotFoundErrorTemplateConstant, fileNotFoundError.FilePath, fileNotFoundError.RepoURI, strings.TrimSpace(fileNotFoundError.Ref))
}

// Is matches ErrNotFound.
func (fileNotFoundError FileNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Unwrap exposes the cause.
func (fileNotFoundError FileNotFoundError) Unwrap() error {
	return fileNotFoundError.Cause
}
