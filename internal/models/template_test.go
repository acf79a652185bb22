package models

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "single variable",
			body: "Summarize progress for {{child_name}}.",
			want: []string{"child_name"},
		},
		{
			name: "multiple variables in order of appearance",
			body: "{{child_name}} aged {{age_months}} months, observed on {{date}}.",
			want: []string{"child_name", "age_months", "date"},
		},
		{
			name: "duplicates collapse to first appearance",
			body: "{{child_name}} did well. {{date}}: {{child_name}} again.",
			want: []string{"child_name", "date"},
		},
		{
			name: "whitespace inside braces",
			body: "Hello {{ child_name }} on {{  date  }}",
			want: []string{"child_name", "date"},
		},
		{
			name: "no variables",
			body: "A static prompt with no placeholders.",
			want: []string{},
		},
		{
			name: "single braces are not placeholders",
			body: "JSON like {\"key\": \"value\"} is left alone",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractVariables(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVariables(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
