package message

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChainOrder(t *testing.T) {
	var calls []string

	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg *Message) error {
				calls = append(calls, name)
				return next(ctx, msg)
			}
		}
	}

	handler := Chain(mw("first"), mw("second"), mw("third"))(func(ctx context.Context, msg *Message) error {
		calls = append(calls, "handler")
		return nil
	})

	require.NoError(t, handler(context.Background(), validRunMessage()))
	assert.Equal(t, []string{"first", "second", "third", "handler"}, calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware()(func(ctx context.Context, msg *Message) error {
		panic("handler exploded")
	})

	err := handler(context.Background(), validRunMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	wantErr := errors.New("downstream failure")
	handler := LoggingMiddleware(zap.NewNop())(func(ctx context.Context, msg *Message) error {
		return wantErr
	})

	err := handler(context.Background(), validRunMessage())
	assert.Equal(t, wantErr, err)

	ok := LoggingMiddleware(zap.NewNop())(func(ctx context.Context, msg *Message) error {
		return nil
	})
	assert.NoError(t, ok(context.Background(), validRunMessage()))
}

func TestLoggingMiddlewareNilMessage(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop())(func(ctx context.Context, msg *Message) error {
		if msg == nil {
			return errors.New("reached handler")
		}
		return nil
	})

	err := handler(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reached handler")
}

func TestValidationMiddleware(t *testing.T) {
	var called bool
	handler := ValidationMiddleware()(func(ctx context.Context, msg *Message) error {
		called = true
		return nil
	})

	t.Run("nil message", func(t *testing.T) {
		err := handler(context.Background(), nil)
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("invalid message", func(t *testing.T) {
		msg := validRunMessage()
		msg.Run = nil
		err := handler(context.Background(), msg)
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("valid message", func(t *testing.T) {
		require.NoError(t, handler(context.Background(), validRunMessage()))
		assert.True(t, called)
	})
}
