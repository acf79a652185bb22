package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil error", nil, ErrorClassGeneric},
		{"rate limit message", errors.New("rate limit exceeded"), ErrorClassRateLimit},
		{"429 in message", errors.New("upstream returned 429"), ErrorClassRateLimit},
		{"quota message", errors.New("you exceeded your current quota"), ErrorClassRateLimit},
		{"timeout message", errors.New("request timed out"), ErrorClassTimeout},
		{"deadline exceeded", errors.New("context deadline exceeded"), ErrorClassTimeout},
		{"model error", errors.New("the model is overloaded"), ErrorClassModelError},
		{"no choices", errors.New("no choices returned"), ErrorClassModelError},
		{"network error", errors.New("connection refused"), ErrorClassNetwork},
		{"dns failure", errors.New("dial tcp: no such host"), ErrorClassNetwork},
		{"validation error", errors.New("invalid request: missing field"), ErrorClassValidation},
		{"anything else", errors.New("something odd happened"), ErrorClassGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_ProviderErrorTakesItsOwnClass(t *testing.T) {
	t.Parallel()

	pe := NewProviderError("too many requests", 429)
	if pe.Class != ErrorClassRateLimit {
		t.Fatalf("expected 429 status to classify as rate limit, got %q", pe.Class)
	}

	wrapped := fmt.Errorf("calling provider: %w", pe)
	if got := Classify(wrapped); got != ErrorClassRateLimit {
		t.Errorf("Classify(wrapped) = %q, want %q", got, ErrorClassRateLimit)
	}
}

func TestClassify_StatusCode400IsValidation(t *testing.T) {
	t.Parallel()

	pe := NewProviderError("bad payload shape", 400)
	if pe.Class != ErrorClassValidation {
		t.Errorf("expected 400 status to classify as validation, got %q", pe.Class)
	}
}

func TestIsNonRetryable(t *testing.T) {
	t.Parallel()

	if IsNonRetryable(errors.New("plain error")) {
		t.Error("plain errors are retryable by default")
	}

	pe := &ProviderError{Message: "account disabled", Class: ErrorClassGeneric, NonRetryable: true}
	if !IsNonRetryable(fmt.Errorf("wrapped: %w", pe)) {
		t.Error("expected marked provider error to be non-retryable through wrapping")
	}
}
