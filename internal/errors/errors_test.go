package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping it
	err := New(ErrCodeCMSUnavailable, "cms query failed", originalErr)

	// Then: unwrapping returns the original error
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "index name is required", nil)
	assert.Equal(t, "[ERR_102_CONFIG_INVALID] index name is required", err.Error())
}

func TestError_Is_MatchesSentinelThroughWrapping(t *testing.T) {
	// Given: a transform error wrapped by plain fmt wrapping
	inner := TransformError(42, "Name", errors.New("boom"))
	wrapped := fmt.Errorf("page 3: %w", inner)

	// Then: the sentinel matches by code
	assert.True(t, errors.Is(wrapped, ErrTransform))
	assert.False(t, errors.Is(wrapped, ErrSessionState))
	assert.Equal(t, ErrCodeTransform, GetCode(wrapped))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeParserUnresolved, CategoryConfig, SeverityFatal},
		{ErrCodeSessionState, CategorySession, SeverityWarning},
		{ErrCodeSchemaBuild, CategoryRemote, SeverityError},
		{ErrCodeSubmissionPartial, CategoryRemote, SeverityWarning},
		{ErrCodeInvalidInput, CategoryValidation, SeverityError},
		{ErrCodeTransform, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "x", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestParserError_IsFatalWithDetails(t *testing.T) {
	err := ParserError("acme.Parser", nil)

	assert.True(t, IsFatal(err))
	assert.Equal(t, "acme.Parser", err.Details["parser_type"])
	assert.NotEmpty(t, err.Suggestion)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI_PlainErrorIsWrapped(t *testing.T) {
	out := FormatForCLI(errors.New("disk on fire"))

	assert.Contains(t, out, "Error: disk on fire")
	assert.Contains(t, out, ErrCodeInternal)
}

func TestFormatJSON_IncludesCause(t *testing.T) {
	err := SchemaBuildError("list property names", errors.New("timeout"))

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeSchemaBuild, decoded["code"])
	assert.Equal(t, "timeout", decoded["cause"])
}

func TestLogAttrs_FlattensDetails(t *testing.T) {
	err := TransformError(7, "CreatorName", errors.New("user missing"))

	attrs := LogAttrs(err)

	assert.Contains(t, attrs, "detail_field")
	assert.Contains(t, attrs, "CreatorName")
}
