package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"nil", nil, "", false},
		{"401 status", errors.New("status code 401"), ErrorTypeAuth, false},
		{"unauthorized text", errors.New("Unauthorized request"), ErrorTypeAuth, false},
		{"invalid key", errors.New("invalid api key provided"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-99 does not exist"), ErrorTypeModel, false},
		{"timeout", errors.New("request timeout after 30s"), ErrorTypeTimeout, true},
		{"deadline", errors.New("context deadline exceeded"), ErrorTypeTimeout, true},
		{"404", errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"rate limit", errors.New("429 rate limit exceeded"), ErrorTypeUnknown, true},
		{"server error", errors.New("502 bad gateway"), ErrorTypeEndpoint, true},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err, "cause must unwrap")
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeModel, "model not found", false, nil)
	wrapped := fmt.Errorf("chat: %w", orig)
	assert.Same(t, orig, ClassifyError(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrorTypeTimeout, "t", true, nil)))
	assert.False(t, IsRetryable(NewError(ErrorTypeAuth, "a", false, nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeAuth, GetErrorType(NewError(ErrorTypeAuth, "a", false, nil)))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	e := &Error{Type: ErrorTypeEndpoint, Message: "server error", StatusCode: 503, Cause: errors.New("boom")}
	assert.Equal(t, "endpoint HTTP 503 server error: boom", e.Error())
}
