// Package errors provides structured error handling for cmsindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Session storage errors
//   - 3XX: Remote collaborator errors (CMS, search engine)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategorySession indicates reindex session storage errors.
	CategorySession Category = "SESSION"
	// CategoryRemote indicates CMS or search engine failures.
	CategoryRemote Category = "REMOTE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeParserUnresolved = "ERR_103_PARSER_UNRESOLVED"

	// Session errors (200-299)
	ErrCodeSessionState = "ERR_201_SESSION_STATE"
	ErrCodeSessionIO    = "ERR_202_SESSION_IO"

	// Remote errors (300-399)
	ErrCodeCMSUnavailable    = "ERR_301_CMS_UNAVAILABLE"
	ErrCodeSchemaBuild       = "ERR_302_SCHEMA_BUILD"
	ErrCodeSubmissionPartial = "ERR_303_SUBMISSION_PARTIAL"
	ErrCodeSubmissionFailed  = "ERR_304_SUBMISSION_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal  = "ERR_501_INTERNAL"
	ErrCodeTransform = "ERR_502_TRANSFORM"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategorySession
	case '3':
		return CategoryRemote
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeParserUnresolved:
		return SeverityFatal
	case ErrCodeSessionState, ErrCodeSubmissionPartial:
		// Session ids are recomputed and partial batches do not stop the run.
		return SeverityWarning
	}
	return SeverityError
}
