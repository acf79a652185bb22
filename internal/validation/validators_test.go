package validation

import (
	"testing"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "strips control characters", input: "he\x00llo\x07", want: "hello"},
		{name: "keeps newlines and tabs", input: "line one\n\tline two", want: "line one\n\tline two"},
		{name: "empty string", input: "", want: ""},
		{name: "whitespace only", input: "   \t\n  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateRequestType(t *testing.T) {
	t.Parallel()

	valid := []string{"quick_insight", "full_analysis", "recommendations", "parent_report"}
	for _, v := range valid {
		if err := ValidateRequestType(v); err != nil {
			t.Errorf("ValidateRequestType(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "insight", "QUICK_INSIGHT", "quick-insight"}
	for _, v := range invalid {
		if err := ValidateRequestType(v); err == nil {
			t.Errorf("ValidateRequestType(%q) = nil, want error", v)
		}
	}
}

func TestValidateUsagePeriod(t *testing.T) {
	t.Parallel()

	valid := []string{"hour", "day", "week", "month"}
	for _, v := range valid {
		if err := ValidateUsagePeriod(v); err != nil {
			t.Errorf("ValidateUsagePeriod(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "year", "Day", "fortnight"}
	for _, v := range invalid {
		if err := ValidateUsagePeriod(v); err == nil {
			t.Errorf("ValidateUsagePeriod(%q) = nil, want error", v)
		}
	}
}

func TestStructValidators(t *testing.T) {
	t.Parallel()

	type observationForm struct {
		Type string `validate:"required,observation_type"`
	}
	type requestForm struct {
		RequestType string `validate:"required,request_type"`
	}
	type periodForm struct {
		Period string `validate:"required,usage_period"`
	}

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "valid observation type", value: observationForm{Type: "photo"}, wantErr: false},
		{name: "invalid observation type", value: observationForm{Type: "hologram"}, wantErr: true},
		{name: "valid request type", value: requestForm{RequestType: "full_analysis"}, wantErr: false},
		{name: "invalid request type", value: requestForm{RequestType: "tarot_reading"}, wantErr: true},
		{name: "valid usage period", value: periodForm{Period: "week"}, wantErr: false},
		{name: "invalid usage period", value: periodForm{Period: "decade"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate.Struct(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate.Struct(%+v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}
