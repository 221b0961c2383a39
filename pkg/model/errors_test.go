package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapRemote(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"nil", nil, nil},
		{"deadline", context.DeadlineExceeded, ErrConnectionTimeout},
		{"wrapped deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), ErrConnectionTimeout},
		{"canceled", context.Canceled, ErrCanceled},
		{"other", errors.New("boom"), ErrRemoteResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapRemote(tt.err)
			if tt.target == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.target)
		})
	}
}

func TestIsCanceled(t *testing.T) {
	assert.False(t, IsCanceled(nil))
	assert.False(t, IsCanceled(errors.New("boom")))
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(context.DeadlineExceeded))
	assert.True(t, IsCanceled(fmt.Errorf("op: %w", ErrCanceled)))
}
