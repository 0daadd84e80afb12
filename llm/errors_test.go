package llm

import (
	"errors"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		retryable bool
	}{
		{400, "*llm.InvalidRequestError", false},
		{401, "*llm.AuthenticationError", false},
		{403, "*llm.AccessDeniedError", false},
		{404, "*llm.NotFoundError", false},
		{408, "*llm.TimeoutError", true},
		{413, "*llm.ContextLengthError", false},
		{422, "*llm.InvalidRequestError", false},
		{429, "*llm.RateLimitError", true},
		{500, "*llm.ServerError", true},
		{503, "*llm.ServerError", true},
		{418, "*llm.ProviderError", true},
	}

	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "boom", "openai", nil)
		if err == nil {
			t.Fatalf("status %d: nil error", tt.status)
		}
		if got := typeName(err); got != tt.wantType {
			t.Errorf("status %d: type = %s, want %s", tt.status, got, tt.wantType)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func typeName(err error) string {
	switch err.(type) {
	case *InvalidRequestError:
		return "*llm.InvalidRequestError"
	case *AuthenticationError:
		return "*llm.AuthenticationError"
	case *AccessDeniedError:
		return "*llm.AccessDeniedError"
	case *NotFoundError:
		return "*llm.NotFoundError"
	case *TimeoutError:
		return "*llm.TimeoutError"
	case *ContextLengthError:
		return "*llm.ContextLengthError"
	case *RateLimitError:
		return "*llm.RateLimitError"
	case *ServerError:
		return "*llm.ServerError"
	case *ProviderError:
		return "*llm.ProviderError"
	default:
		return "unknown"
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := ErrorFromStatusCode(429, "rate limited", "groq", nil)
	want := "[groq] rate limited (status=429, retryable=true)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &NetworkError{ClientError: ClientError{Message: "request failed", Cause: cause}}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
	if err.Error() != "request failed: dial tcp: refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsRetryableNonProviderErrors(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil retryable")
	}
	if IsRetryable(&AbortError{}) {
		t.Error("abort retryable")
	}
	if !IsRetryable(&NetworkError{}) {
		t.Error("network not retryable")
	}
	if !IsRetryable(&StreamError{}) {
		t.Error("stream not retryable")
	}
	if !IsRetryable(errors.New("mystery")) {
		t.Error("unknown errors default to retryable")
	}
}

func TestRetryAfterCarried(t *testing.T) {
	after := 2.5
	err := ErrorFromStatusCode(429, "slow down", "openai", &after)
	rl, ok := err.(*RateLimitError)
	if !ok {
		t.Fatalf("type = %T", err)
	}
	if rl.RetryAfter == nil || *rl.RetryAfter != 2.5 {
		t.Errorf("RetryAfter = %v", rl.RetryAfter)
	}
}
