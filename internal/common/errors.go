package common

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrAuthentication marks a failure of the top-level credentials. It aborts the run.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInternalConsistency marks a data-table bug, e.g. a pricing key missing
	// for an engine profile the applicability rules accepted.
	ErrInternalConsistency = errors.New("internal consistency fault")
)

// ValidationError is returned for invalid user input before any enumeration starts
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Msg
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ScopeError records a failure limited to one account, or one account and region.
// Region is empty when the whole account could not be accessed.
type ScopeError struct {
	AccountID string
	Region    string
	Err       error
}

func (e *ScopeError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("account %s: %v", e.AccountID, e.Err)
	}
	return fmt.Sprintf("account %s region %s: %v", e.AccountID, e.Region, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// throttlingCodes are AWS error codes worth retrying with backoff
var throttlingCodes = map[string]bool{
	"Throttling":                             true,
	"ThrottlingException":                    true,
	"ThrottledException":                     true,
	"RequestThrottled":                       true,
	"RequestThrottledException":              true,
	"RequestLimitExceeded":                   true,
	"TooManyRequestsException":               true,
	"ProvisionedThroughputExceededException": true,
	"SlowDown":                               true,
}

// accessCodes indicate the scope cannot be read at all (role missing, region not enabled)
var accessCodes = map[string]bool{
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"InvalidClientTokenId":        true,
	"UnrecognizedClientException": true,
	"AuthFailure":                 true,
	"OptInRequired":               true,
	"UnauthorizedOperation":       true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
}

// ErrorCode returns the AWS API error code, or "" for non-API errors
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsThrottlingError reports whether err is an AWS throttling error
func IsThrottlingError(err error) bool {
	return throttlingCodes[ErrorCode(err)]
}

// IsAccessError reports whether err means the caller cannot access the scope
func IsAccessError(err error) bool {
	return accessCodes[ErrorCode(err)]
}
