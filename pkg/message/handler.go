package message

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Handler is a function that processes incoming JetStream run requests.
//
// Handlers MUST acknowledge messages using msg.Ack() or msg.Nak() to
// indicate successful or failed processing. Failing to acknowledge causes
// redelivery according to the consumer's configuration.
type Handler func(ctx context.Context, msg *Message) error

// Middleware wraps a handler to add additional functionality.
type Middleware func(Handler) Handler

// Chain chains multiple middlewares together.
func Chain(middlewares ...Middleware) Middleware {
	return func(h Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// RecoveryMiddleware recovers from panics in message handlers.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs message processing using structured logging.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			if msg == nil {
				return next(ctx, msg)
			}
			fields := []zap.Field{zap.String("message_id", messageIdentifier(msg))}
			if msg.Node != nil {
				fields = append(fields,
					zap.String("node_id", msg.Node.NodeID),
					zap.String("node_type", msg.Node.NodeType))
			}
			if msg.Run != nil {
				fields = append(fields,
					zap.String("resource", msg.Run.Resource),
					zap.String("operation", msg.Run.Operation))
			}

			logger.Info("Processing message", fields...)
			err := next(ctx, msg)
			if err != nil {
				logger.Error("Error processing message", append(fields, zap.Error(err))...)
			} else {
				logger.Info("Successfully processed message", fields...)
			}
			return err
		}
	}
}

// ValidationMiddleware validates run requests before processing.
func ValidationMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			if msg == nil {
				return fmt.Errorf("message is nil")
			}
			if err := msg.Validate(); err != nil {
				return err
			}
			return next(ctx, msg)
		}
	}
}
