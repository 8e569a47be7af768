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
		{
			name:      "unauthorized",
			err:       errors.New("401 Unauthorized"),
			wantType:  ErrorTypeAuth,
			retryable: false,
		},
		{
			name:      "invalid api key",
			err:       errors.New("error: invalid API key provided"),
			wantType:  ErrorTypeAuth,
			retryable: false,
		},
		{
			name:      "model not found",
			err:       errors.New("the model gpt-9 does not exist"),
			wantType:  ErrorTypeModel,
			retryable: false,
		},
		{
			name:      "rate limit",
			err:       errors.New("429 Too Many Requests: rate limit reached"),
			wantType:  ErrorTypeBudget,
			retryable: true,
		},
		{
			name:      "timeout",
			err:       errors.New("context deadline exceeded"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp: connection refused"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:      "overloaded",
			err:       errors.New("529 overloaded_error"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:      "unknown",
			err:       errors.New("something odd happened"),
			wantType:  ErrorTypeUnknown,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(ProviderOpenAI, tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.retryable, classified.Retryable)
			assert.Equal(t, ProviderOpenAI, classified.Provider)
		})
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	original := NewError(ErrorTypeFormat, ProviderGemini, "bad payload", false, nil)
	classified := ClassifyError(ProviderOpenAI, fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, classified)
}

func TestClassifyErrorNil(t *testing.T) {
	assert.Nil(t, ClassifyError(ProviderOpenAI, nil))
}

func TestErrorHelpers(t *testing.T) {
	err := NewError(ErrorTypeBudget, ProviderAnthropic, "rate limited", true, errors.New("429"))

	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrorTypeBudget, GetErrorType(err))
	assert.Equal(t, ProviderAnthropic, GetProvider(err))

	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(plain))
	assert.Equal(t, "", GetProvider(plain))
}
