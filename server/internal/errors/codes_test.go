package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorFormat(t *testing.T) {
	err := Transient("search failed", stderrors.New("connection reset"))
	assert.Equal(t, "[TRANSIENT] search failed: connection reset", err.Error())
	assert.Equal(t, "[INVALID_ARGUMENT] empty id", InvalidArgument("empty id").Error())

	err.WithContext("mention_id", "42")
	assert.Equal(t, "42", err.Context["mention_id"])
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "direct", err: ExtractionFailed("no address"), want: ErrCodeExtractionFailed},
		{name: "wrapped", err: fmt.Errorf("rule: %w", UnauthorizedAuthor("bob", "alice")), want: ErrCodeUnauthorizedAuthor},
		{name: "canceled", err: fmt.Errorf("post: %w", context.Canceled), want: ErrCodeContextCanceled},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrCodeTimeout},
		{name: "plain", err: stderrors.New("boom"), want: ErrCodeTransient},
		{name: "explicit wrap", err: Wrap(context.Canceled, ErrCodeDuplicate, "seen"), want: ErrCodeDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
	assert.True(t, IsCode(Transient("x", nil), ErrCodeTransient))
	assert.True(t, stderrors.Is(Transient("x", context.Canceled), context.Canceled))
}
