// Package runner provides concurrent processing of node run requests from
// NATS JetStream. It pulls requests in batches, dispatches each to the
// registered integration through the execution engine, and reports results
// to the result stream.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	internaltracing "github.com/wehubfusion/Talos/internal/tracing"
	"github.com/wehubfusion/Talos/pkg/client"
	"github.com/wehubfusion/Talos/pkg/engine"
	"github.com/wehubfusion/Talos/pkg/message"
	"github.com/wehubfusion/Talos/pkg/normalize"
	"github.com/wehubfusion/Talos/pkg/registry"
)

// Runner manages concurrent run request processing from a NATS JetStream
// consumer. It pulls messages in batches and distributes them to worker
// goroutines; each run is dispatched to its registered integration and the
// outcome is reported to the result stream.
type Runner struct {
	client          *client.Client
	registry        *registry.Registry
	engine          *engine.Engine
	stream          string
	consumer        string
	batchSize       int
	numWorkers      int
	logger          *zap.Logger
	processTimeout  time.Duration
	handler         message.Handler
	tracer          trace.Tracer
	tracingShutdown func(context.Context) error
}

// NewRunner creates a Runner with a connected client, a node type registry,
// and stream/consumer configuration. batchSize is how many messages to pull
// at once; numWorkers is the number of worker goroutines; processTimeout
// bounds a single run. tracingConfig is optional; if provided, tracing is
// configured and cleaned up by the runner.
func NewRunner(c *client.Client, reg *registry.Registry, stream, consumer string, batchSize, numWorkers int, processTimeout time.Duration, logger *zap.Logger, tracingConfig *TracingConfig) (*Runner, error) {
	if c == nil {
		return nil, errors.New("client cannot be nil")
	}
	if reg == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream name cannot be empty")
	}
	if consumer == "" {
		return nil, errors.New("consumer name cannot be empty")
	}
	if batchSize <= 0 {
		return nil, errors.New("batchSize must be greater than 0")
	}
	if numWorkers <= 0 {
		return nil, errors.New("numWorkers must be greater than 0")
	}
	if processTimeout <= 0 {
		return nil, errors.New("processTimeout must be greater than 0")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	js := c.JetStream()
	if js == nil {
		return nil, errors.New("JetStream context is not available")
	}

	if err := ensureStream(js, stream, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure stream '%s' exists: %w", stream, err)
	}

	runner := &Runner{
		client:         c,
		registry:       reg,
		engine:         engine.New(logger),
		stream:         stream,
		consumer:       consumer,
		batchSize:      batchSize,
		numWorkers:     numWorkers,
		processTimeout: processTimeout,
		logger:         logger,
		tracer:         otel.Tracer("talos/runner"),
	}
	runner.handler = runner.buildHandler()

	if tracingConfig != nil {
		shutdown, err := internaltracing.Setup(context.Background(), tracingConfig.toInternalConfig(), logger)
		if err != nil {
			logger.Warn("Failed to setup tracing, continuing without tracing", zap.Error(err))
		} else {
			runner.tracingShutdown = shutdown
			logger.Info("Tracing setup complete",
				zap.String("service", tracingConfig.ServiceName),
				zap.String("endpoint", tracingConfig.OTLPEndpoint))
		}
	}

	return runner, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func ensureStream(js nats.JetStreamContext, streamName string, logger *zap.Logger) error {
	streamInfo, err := js.StreamInfo(streamName)
	if err != nil {
		if err == nats.ErrStreamNotFound {
			logger.Info("Creating JetStream stream", zap.String("stream", streamName))

			streamConfig := &nats.StreamConfig{
				Name:     streamName,
				Subjects: []string{fmt.Sprintf("%s.*", streamName)},
				Storage:  nats.FileStorage,
				MaxAge:   24 * time.Hour,
				MaxMsgs:  100000,
				Replicas: 1,
			}

			if _, err = js.AddStream(streamConfig); err != nil {
				return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
			}

			logger.Info("Successfully created JetStream stream",
				zap.String("stream", streamName),
				zap.Strings("subjects", streamConfig.Subjects))
		} else {
			return fmt.Errorf("failed to get stream info for '%s': %w", streamName, err)
		}
	} else {
		logger.Info("JetStream stream already exists",
			zap.String("stream", streamName),
			zap.Uint64("messages", streamInfo.State.Msgs),
			zap.Int("consumers", streamInfo.State.Consumers))
	}

	return nil
}

// Close gracefully shuts down the runner and cleans up tracing resources.
func (r *Runner) Close() error {
	if r.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.tracingShutdown(ctx); err != nil {
			r.logger.Error("Error shutting down tracing", zap.Error(err))
			return err
		}
		r.logger.Info("Tracing shutdown complete")
	}
	return nil
}

// Run starts the message processing pipeline. It spawns worker goroutines
// and begins pulling run requests from the configured stream. The method
// blocks until the context is cancelled and all workers have finished.
func (r *Runner) Run(ctx context.Context) error {
	messageChan := make(chan *message.Message, r.batchSize)

	var wg sync.WaitGroup

	for i := 0; i < r.numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, messageChan)
		}(i)
	}

	go func() {
		defer close(messageChan)

		backoffDelay := 100 * time.Millisecond
		maxBackoff := 5 * time.Second

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Shutting down run request puller...")
				return
			default:
				messages, err := r.client.Messages.PullMessages(ctx, r.stream, r.consumer, r.batchSize)
				if err != nil {
					if ctx.Err() != nil {
						r.logger.Debug("Message pulling stopped due to context cancellation")
						return
					}
					r.logger.Error("Error pulling messages", zap.Error(err))
					time.Sleep(backoffDelay)
					if backoffDelay < maxBackoff {
						backoffDelay *= 2
					}
					continue
				}

				if len(messages) == 0 {
					// Idle wait between empty pulls
					select {
					case <-time.After(500 * time.Millisecond):
					case <-ctx.Done():
						return
					}
					continue
				}

				backoffDelay = 100 * time.Millisecond

				for _, msg := range messages {
					select {
					case messageChan <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		r.logger.Info("Runner completed successfully")
		return nil
	case <-ctx.Done():
		r.logger.Info("Runner stopped due to context cancellation")
		return ctx.Err()
	}
}

// worker processes run requests from the channel.
func (r *Runner) worker(ctx context.Context, workerID int, messageChan <-chan *message.Message) {
	r.logger.Info("Worker started", zap.Int("workerID", workerID))
	defer r.logger.Info("Worker stopped", zap.Int("workerID", workerID))

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			r.processMessage(ctx, workerID, msg)
		case <-ctx.Done():
			return
		}
	}
}

// processMessage dispatches one run request to its integration and reports
// the outcome.
func (r *Runner) processMessage(ctx context.Context, workerID int, msg *message.Message) {
	var workflowID, runID string
	if msg.Workflow != nil {
		workflowID = msg.Workflow.WorkflowID
		runID = msg.Workflow.RunID
	}
	var nodeType string
	if msg.Node != nil {
		nodeType = msg.Node.NodeType
	}

	ctx, span := r.tracer.Start(ctx, "runner.processMessage",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("workflow.id", workflowID),
			attribute.String("workflow.run_id", runID),
			attribute.String("node.type", nodeType),
			attribute.String("stream", r.stream),
			attribute.String("consumer", r.consumer),
		))
	defer span.End()

	select {
	case <-ctx.Done():
		r.logger.Info("Skipping run due to context cancellation",
			zap.Int("workerID", workerID),
			zap.String("executionID", msg.ExecutionID))
		span.SetStatus(codes.Error, "Context cancelled before processing")
		return
	default:
	}

	start := time.Now()
	r.logger.Info("Worker processing run request",
		zap.Int("workerID", workerID),
		zap.String("executionID", msg.ExecutionID),
		zap.String("workflowID", workflowID),
		zap.String("runID", runID),
		zap.String("nodeType", nodeType))

	processCtx, cancel := context.WithTimeout(ctx, r.processTimeout)
	runErr := r.handler(processCtx, msg)
	cancel()

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("processing.duration_ms", elapsed.Milliseconds()))

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())

		r.logger.Error("Error processing run request",
			zap.Int("workerID", workerID),
			zap.Duration("processingTime", elapsed),
			zap.String("executionID", msg.ExecutionID),
			zap.String("workflowID", workflowID),
			zap.Error(runErr))

		// Report with a fresh bounded context so reporting still works when
		// the parent context is cancelled
		reportCtx, reportCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if reportErr := r.client.Messages.ReportError(reportCtx, msg.ExecutionID, workflowID, runID, msg.CorrelationID, runErr, msg.GetNATSMsg()); reportErr != nil {
			r.logger.Error("Error reporting failure",
				zap.Int("workerID", workerID),
				zap.String("executionID", msg.ExecutionID),
				zap.Error(reportErr))
		}
		reportCancel()
		return
	}

	span.SetStatus(codes.Ok, "Run processed successfully")

	r.logger.Info("Successfully processed run request",
		zap.Int("workerID", workerID),
		zap.String("executionID", msg.ExecutionID),
		zap.String("workflowID", workflowID),
		zap.String("runID", runID),
		zap.Duration("processingTime", elapsed))
}

// buildHandler assembles the worker handler chain: panic recovery outermost,
// then structured request logging, then message validation, around the run
// dispatch itself.
func (r *Runner) buildHandler() message.Handler {
	return message.Chain(
		message.RecoveryMiddleware(),
		message.LoggingMiddleware(r.logger),
		message.ValidationMiddleware(),
	)(r.handleRun)
}

// handleRun dispatches a validated run request through the engine and
// reports the successful result. Failures are returned to the chain and
// reported by processMessage.
func (r *Runner) handleRun(ctx context.Context, msg *message.Message) error {
	start := time.Now()
	items, err := r.execute(ctx, msg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("result.items", len(items)))

	reportCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if reportErr := r.client.Messages.ReportSuccess(reportCtx, msg, items, elapsed); reportErr != nil {
		r.logger.Error("Error reporting success",
			zap.String("executionID", msg.ExecutionID),
			zap.Int("items", len(items)),
			zap.Error(reportErr))
	}
	return nil
}

// execute resolves the integration for the request's node type and runs it
// through the engine.
func (r *Runner) execute(ctx context.Context, msg *message.Message) ([]normalize.Item, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	integration, err := r.registry.Get(msg.Node.NodeType)
	if err != nil {
		return nil, err
	}

	return r.engine.Run(ctx, engine.RunInput{
		Integration:    integration,
		Resource:       msg.Run.Resource,
		Operation:      msg.Run.Operation,
		Parameters:     msg.Run.Parameters,
		Items:          msg.Run.Items,
		Credentials:    msg.Run.Credentials,
		ContinueOnFail: msg.Run.ContinueOnFail,
	})
}
