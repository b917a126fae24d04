package errs

import (
	"errors"
	"testing"
)

func TestValidationFormatsMessage(t *testing.T) {
	err := Validation("field %q is required", "prompt")
	if err.Kind != KindValidation {
		t.Fatalf("unexpected kind: %v", err.Kind)
	}
	if err.Error() != `VALIDATION: field "prompt" is required` {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestLlmProviderIncludesProviderInMessage(t *testing.T) {
	err := LlmProvider("openai", "api error (status %d)", 500)
	want := "LLM_PROVIDER: openai: api error (status 500)"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestNetworkWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Network(cause, "failed to reach provider")
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}

func TestRateLimitCarriesProviderAndRetryAfter(t *testing.T) {
	err := RateLimit("anthropic", "30s", "rate limited")
	if err.Provider != "anthropic" || err.RetryAfter != "30s" {
		t.Fatalf("unexpected fields: %+v", err)
	}
	if err.Kind != KindRateLimit {
		t.Fatalf("unexpected kind: %v", err.Kind)
	}
}

func TestConfigAndWorkflowExecutionKinds(t *testing.T) {
	if Config("bad config").Kind != KindConfig {
		t.Fatal("expected KindConfig")
	}
	if WorkflowExecution("node failed").Kind != KindWorkflowExecution {
		t.Fatal("expected KindWorkflowExecution")
	}
}

func TestIsComparesKindOnly(t *testing.T) {
	a := Validation("one thing")
	b := Validation("a different thing")
	if !errors.Is(a, b) {
		t.Fatal("expected two Validation errors to satisfy errors.Is regardless of message")
	}
	c := Config("not validation")
	if errors.Is(a, c) {
		t.Fatal("expected different kinds not to satisfy errors.Is")
	}
}

func TestIsRejectsNonErrsTarget(t *testing.T) {
	a := Validation("x")
	if errors.Is(a, errors.New("plain error")) {
		t.Fatal("expected Is to reject a non *Error target")
	}
}
