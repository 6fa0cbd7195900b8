package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractGridText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "tags stripped and joined",
			raw:  `{"value":"<p>Hello</p><p>World</p>"}`,
			want: "Hello World",
		},
		{
			name: "nested values in document order",
			raw:  `{"sections":[{"rows":[{"areas":[{"controls":[{"value":"First"},{"value":"<h2>Second</h2>"}]}]}]}],"value":"Last"}`,
			want: "First Second Last",
		},
		{
			name: "numbers and booleans",
			raw:  `{"a":{"value":42},"b":{"value":true},"c":{"value":null}}`,
			want: "42 true",
		},
		{
			name: "object values are walked not collected",
			raw:  `{"value":{"caption":"x","value":"inner"}}`,
			want: "inner",
		},
		{
			name: "newlines collapse",
			raw:  `{"value":"line one\nline two\\nline three\r\n  end"}`,
			want: "line one line two line three end",
		},
		{
			name: "no values",
			raw:  `{"name":"1 column layout","sections":[]}`,
			want: "",
		},
		{
			name: "malformed",
			raw:  `{"sections":[`,
			want: "",
		},
		{
			name: "top level array",
			raw:  `[{"value":"x"}]`,
			want: "",
		},
		{
			name: "trailing data",
			raw:  `{"value":"x"} {}`,
			want: "",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractGridText(tt.raw))
		})
	}
}
