package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for cmsindex.
// It carries enough context to decide whether a reindex run can continue.
type Error struct {
	// Code is the unique error code (e.g., "ERR_103_PARSER_UNRESOLVED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Session, Remote, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against the sentinel values below.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrParserUnresolved  = &Error{Code: ErrCodeParserUnresolved}
	ErrTransform         = &Error{Code: ErrCodeTransform}
	ErrSessionState      = &Error{Code: ErrCodeSessionState}
	ErrSchemaBuild       = &Error{Code: ErrCodeSchemaBuild}
	ErrSubmissionPartial = &Error{Code: ErrCodeSubmissionPartial}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ParserError reports a computed-field parser type that cannot be resolved.
func ParserError(parserType string, cause error) *Error {
	return New(ErrCodeParserUnresolved,
		fmt.Sprintf("computed field parser %q cannot be resolved", parserType), cause).
		WithDetail("parser_type", parserType).
		WithSuggestion("check search_fields[].parser_type against the registered parsers")
}

// TransformError reports an unexpected failure building one entity's document.
func TransformError(entityID int, field string, cause error) *Error {
	e := New(ErrCodeTransform, fmt.Sprintf("transform entity %d: %v", entityID, cause), cause).
		WithDetail("entity_id", fmt.Sprint(entityID))
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// SessionStateError reports a missing or corrupt persisted id list.
func SessionStateError(message string, cause error) *Error {
	return New(ErrCodeSessionState, message, cause)
}

// SchemaBuildError reports a failed CMS metadata query.
func SchemaBuildError(message string, cause error) *Error {
	return New(ErrCodeSchemaBuild, message, cause)
}

// SubmissionPartialError reports documents rejected by the search engine.
func SubmissionPartialError(message string, failedKeys []string) *Error {
	e := New(ErrCodeSubmissionPartial, message, nil)
	e.WithDetail("failed_count", fmt.Sprint(len(failedKeys)))
	return e
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" when err is not an *Error.
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not an *Error.
func GetCategory(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}
