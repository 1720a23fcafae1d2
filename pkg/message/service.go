package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

// JSContext defines the minimal subset of JetStream operations the service
// depends on. This allows tests to provide a mock without requiring a
// running NATS server.
type JSContext interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	PullSubscribe(subj, durable string, opts ...nats.SubOpt) (JSSubscription, error)
	StreamInfo(stream string) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig) (*nats.StreamInfo, error)
	ConsumerInfo(stream, consumer string) (*nats.ConsumerInfo, error)
	AddConsumer(stream string, cfg *nats.ConsumerConfig) (*nats.ConsumerInfo, error)
}

// JSSubscription abstracts the subscription operations the service uses.
// Implemented by the real nats.Subscription via adapter and by test doubles.
type JSSubscription interface {
	Unsubscribe() error
	Drain() error
	IsValid() bool
	Pending() (int, int, error)
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// WrapNATSJetStream adapts a nats.JetStreamContext to the JSContext interface.
func WrapNATSJetStream(js nats.JetStreamContext) JSContext {
	return &natsJSAdapter{js: js}
}

type natsJSAdapter struct {
	js nats.JetStreamContext
}

func (a *natsJSAdapter) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	return a.js.Publish(subj, data, opts...)
}

func (a *natsJSAdapter) PullSubscribe(subj, durable string, opts ...nats.SubOpt) (JSSubscription, error) {
	sub, err := a.js.PullSubscribe(subj, durable, opts...)
	if err != nil {
		return nil, err
	}
	return &natsSubAdapter{sub: sub}, nil
}

func (a *natsJSAdapter) StreamInfo(stream string) (*nats.StreamInfo, error) {
	return a.js.StreamInfo(stream)
}

func (a *natsJSAdapter) AddStream(cfg *nats.StreamConfig) (*nats.StreamInfo, error) {
	return a.js.AddStream(cfg)
}

func (a *natsJSAdapter) ConsumerInfo(stream, consumer string) (*nats.ConsumerInfo, error) {
	return a.js.ConsumerInfo(stream, consumer)
}

func (a *natsJSAdapter) AddConsumer(stream string, cfg *nats.ConsumerConfig) (*nats.ConsumerInfo, error) {
	return a.js.AddConsumer(stream, cfg)
}

type natsSubAdapter struct {
	sub *nats.Subscription
}

func (s *natsSubAdapter) Unsubscribe() error         { return s.sub.Unsubscribe() }
func (s *natsSubAdapter) Drain() error               { return s.sub.Drain() }
func (s *natsSubAdapter) IsValid() bool              { return s.sub.IsValid() }
func (s *natsSubAdapter) Pending() (int, int, error) { return s.sub.Pending() }
func (s *natsSubAdapter) Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error) {
	return s.sub.Fetch(batch, opts...)
}

// Service publishes run requests and results over JetStream and pulls run
// requests for the runner. All operations use JetStream exclusively with
// explicit acknowledgment handling.
type Service struct {
	js                JSContext
	logger            *zap.Logger
	maxDeliver        int    // maximum delivery attempts before giving up (default: 5)
	publishMaxRetries int    // maximum retry attempts for publish operations (default: 3)
	resultStream      string // JetStream stream name for publishing results
	resultSubject     string // subject for publishing results
	blobStorage       BlobStorageClient
}

// BlobStorageClient stores results too large to send inline.
type BlobStorageClient interface {
	UploadResult(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error)
	DownloadResult(ctx context.Context, blobURL string) ([]byte, error)
}

const (
	maxInlineResultSize = 1.5 * 1024 * 1024 // threshold for inline vs blob storage
)

// NewService creates a message service with the given JetStream context.
// Any implementation that satisfies JSContext (including nats.JetStreamContext
// via WrapNATSJetStream) can be used.
func NewService(js JSContext, maxDeliver int, publishMaxRetries int, resultStream string, resultSubject string) (*Service, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context cannot be nil")
	}

	if maxDeliver == 0 {
		maxDeliver = 5
	}
	if publishMaxRetries == 0 {
		publishMaxRetries = 3
	}
	if resultStream == "" {
		resultStream = "RESULTS"
	}
	if resultSubject == "" {
		resultSubject = "result"
	}

	logger, _ := zap.NewProduction()
	return &Service{
		js:                js,
		logger:            logger,
		maxDeliver:        maxDeliver,
		publishMaxRetries: publishMaxRetries,
		resultStream:      resultStream,
		resultSubject:     resultSubject,
	}, nil
}

// SetLogger sets a custom zap logger for the service.
func (s *Service) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetBlobStorage sets the blob storage client for large results.
func (s *Service) SetBlobStorage(bs BlobStorageClient) {
	s.blobStorage = bs
}

// EnsureStream creates the JetStream stream if it doesn't exist, or
// validates it exists.
func (s *Service) EnsureStream(streamName string) error {
	streamInfo, err := s.js.StreamInfo(streamName)
	if err != nil {
		if err == nats.ErrStreamNotFound {
			s.logger.Info("Creating JetStream stream",
				zap.String("stream", streamName))

			streamConfig := &nats.StreamConfig{
				Name:     streamName,
				Subjects: []string{fmt.Sprintf("%s.*", streamName)},
				Storage:  nats.FileStorage,
				MaxAge:   24 * time.Hour,
				MaxMsgs:  100000,
				Replicas: 1,
			}

			if _, err = s.js.AddStream(streamConfig); err != nil {
				return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
			}

			s.logger.Info("Successfully created JetStream stream",
				zap.String("stream", streamName),
				zap.Strings("subjects", streamConfig.Subjects))
		} else {
			return fmt.Errorf("failed to get stream info for '%s': %w", streamName, err)
		}
	} else {
		s.logger.Info("JetStream stream already exists",
			zap.String("stream", streamName),
			zap.Uint64("messages", streamInfo.State.Msgs))
	}

	return nil
}

// EnsureConsumer creates the JetStream consumer if it doesn't exist, or
// validates it exists.
func (s *Service) EnsureConsumer(streamName, consumerName string) error {
	consumerInfo, err := s.js.ConsumerInfo(streamName, consumerName)
	if err != nil {
		if err == nats.ErrConsumerNotFound {
			s.logger.Info("Creating JetStream consumer",
				zap.String("stream", streamName),
				zap.String("consumer", consumerName))

			consumerConfig := &nats.ConsumerConfig{
				Durable:       consumerName,
				AckPolicy:     nats.AckExplicitPolicy,
				DeliverPolicy: nats.DeliverAllPolicy,
				MaxAckPending: 1000,
				MaxDeliver:    s.maxDeliver,
			}

			if _, err = s.js.AddConsumer(streamName, consumerConfig); err != nil {
				return fmt.Errorf("failed to create consumer '%s' in stream '%s': %w", consumerName, streamName, err)
			}

			s.logger.Info("Successfully created JetStream consumer",
				zap.String("stream", streamName),
				zap.String("consumer", consumerName),
				zap.Int("max_deliver", s.maxDeliver))
		} else {
			return fmt.Errorf("failed to get consumer info for '%s' in stream '%s': %w", consumerName, streamName, err)
		}
	} else {
		s.logger.Info("JetStream consumer already exists",
			zap.String("stream", streamName),
			zap.String("consumer", consumerName),
			zap.Uint64("pending", consumerInfo.NumPending))
	}

	return nil
}

// ensureStreamForSubject ensures a stream exists that can handle the given
// subject. Result subjects use the configured resultStream; other subjects
// derive the stream name from the first segment before the dot.
func (s *Service) ensureStreamForSubject(subject string) error {
	var streamName string
	var isResultSubject bool

	if s.resultSubject != "" && subject == s.resultSubject {
		streamName = s.resultStream
		isResultSubject = true
	} else {
		streamName = subject
		for i, c := range subject {
			if c == '.' {
				streamName = subject[:i]
				break
			}
		}
	}

	_, err := s.js.StreamInfo(streamName)
	if err != nil {
		if err == nats.ErrStreamNotFound {
			var subjectPattern string
			if isResultSubject {
				subjectPattern = fmt.Sprintf("%s.>", subject)
			} else {
				subjectPattern = fmt.Sprintf("%s.>", streamName)
			}

			s.logger.Info("Creating JetStream stream for subject",
				zap.String("stream", streamName),
				zap.String("subject_pattern", subjectPattern))

			streamConfig := &nats.StreamConfig{
				Name:     streamName,
				Subjects: []string{subjectPattern},
				Storage:  nats.FileStorage,
				MaxAge:   24 * time.Hour,
				MaxMsgs:  100000,
				Replicas: 1,
			}

			if _, err = s.js.AddStream(streamConfig); err != nil {
				return fmt.Errorf("failed to create stream '%s' for subject '%s': %w", streamName, subject, err)
			}
		} else {
			return fmt.Errorf("failed to get stream info for '%s': %w", streamName, err)
		}
	}

	return nil
}

// messageIdentifier creates a unique identifier for logging purposes.
func messageIdentifier(msg *Message) string {
	if msg.CorrelationID != "" {
		return fmt.Sprintf("correlation:%s", msg.CorrelationID)
	}
	if msg.ExecutionID != "" {
		return fmt.Sprintf("execution:%s", msg.ExecutionID)
	}
	if msg.Workflow != nil {
		return fmt.Sprintf("workflow:%s/run:%s", msg.Workflow.WorkflowID, msg.Workflow.RunID)
	}
	if msg.Node != nil {
		return fmt.Sprintf("node:%s", msg.Node.NodeID)
	}
	return fmt.Sprintf("timestamp:%s", msg.CreatedAt)
}

// Publish publishes a run request to the specified subject using JetStream.
// If no stream exists for the subject, one is created automatically.
func (s *Service) Publish(ctx context.Context, subject string, msg *Message) error {
	if subject == "" {
		s.logger.Error("Publish failed: subject cannot be empty")
		return sdkerrors.NewValidationError("", "subject cannot be empty", "INVALID_SUBJECT", nil)
	}

	if msg == nil {
		s.logger.Error("Publish failed: message cannot be nil")
		return sdkerrors.NewValidationError("", "message cannot be nil", "INVALID_MESSAGE", nil)
	}

	if err := s.ensureStreamForSubject(subject); err != nil {
		s.logger.Error("Failed to ensure stream exists",
			zap.String("subject", subject),
			zap.Error(err))
		return sdkerrors.NewInternalError("", "failed to ensure stream exists", "STREAM_ENSURE_FAILED", err)
	}

	s.logger.Debug("Publishing message",
		zap.String("subject", subject),
		zap.String("message_identifier", messageIdentifier(msg)))

	data, err := msg.ToBytes()
	if err != nil {
		s.logger.Error("Failed to marshal message",
			zap.String("subject", subject),
			zap.Error(err))
		return sdkerrors.NewInternalError("", "failed to marshal message", "MARSHAL_FAILED", err)
	}

	resultCh := make(chan error, 1)
	go func() {
		_, err := s.js.Publish(subject, data)
		resultCh <- err
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("Publish cancelled",
			zap.String("subject", subject),
			zap.String("message_identifier", messageIdentifier(msg)),
			zap.Error(ctx.Err()))
		return fmt.Errorf("publish cancelled: %w", ctx.Err())
	case err := <-resultCh:
		if err != nil {
			s.logger.Error("Failed to publish message to JetStream",
				zap.String("subject", subject),
				zap.String("message_identifier", messageIdentifier(msg)),
				zap.Error(err))
			return sdkerrors.NewInternalError("", "failed to publish message to JetStream", "PUBLISH_FAILED", err)
		}
		s.logger.Info("Message published successfully",
			zap.String("subject", subject),
			zap.String("message_identifier", messageIdentifier(msg)))
		return nil
	}
}

// PullMessages pulls run requests from a JetStream pull-based consumer.
// Messages are NOT automatically acknowledged: the caller must call Ack(),
// Nak(), or Term() on the returned messages as appropriate. Returns an
// empty slice (not an error) when no messages are available within the
// timeout.
func (s *Service) PullMessages(ctx context.Context, stream, consumer string, batchSize int) ([]*Message, error) {
	if stream == "" || consumer == "" {
		s.logger.Error("PullMessages failed: stream and consumer names are required")
		return nil, fmt.Errorf("stream and consumer names are required")
	}

	if batchSize <= 0 {
		batchSize = 10
	}

	s.logger.Debug("Pulling messages",
		zap.String("stream", stream),
		zap.String("consumer", consumer),
		zap.Int("batch_size", batchSize))

	type result struct {
		msgs []*Message
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		sub, err := s.js.PullSubscribe("", consumer, nats.Bind(stream, consumer))
		if err != nil {
			resultCh <- result{err: err}
			return
		}
		defer sub.Unsubscribe()

		timeout := 3 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}

		natsMessages, err := sub.Fetch(batchSize, nats.MaxWait(timeout))
		if err != nil {
			if err == nats.ErrTimeout {
				// No messages within the wait window is normal
				resultCh <- result{msgs: []*Message{}}
				return
			}
			resultCh <- result{err: err}
			return
		}

		messages := make([]*Message, 0, len(natsMessages))
		for _, natsMsg := range natsMessages {
			msg, err := FromNATSMsg(natsMsg)
			if err != nil {
				// Nak malformed messages
				_ = natsMsg.Nak()
				continue
			}
			msg.natsMsg = natsMsg
			messages = append(messages, msg)
		}

		resultCh <- result{msgs: messages}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			s.logger.Debug("Pull messages cancelled during shutdown",
				zap.String("stream", stream),
				zap.String("consumer", consumer))
		} else {
			s.logger.Warn("Pull messages cancelled",
				zap.String("stream", stream),
				zap.String("consumer", consumer),
				zap.Error(ctx.Err()))
		}
		return nil, fmt.Errorf("pull cancelled: %w", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			s.logger.Error("Failed to pull messages from JetStream",
				zap.String("stream", stream),
				zap.String("consumer", consumer),
				zap.Error(res.err))
			return nil, sdkerrors.NewInternalError("", "failed to pull messages from JetStream", "PULL_FAILED", res.err)
		}
		return res.msgs, nil
	}
}

// PublishResult publishes a ResultMessage to the result stream.
func (s *Service) PublishResult(ctx context.Context, resultMsg *ResultMessage) error {
	if s.resultSubject == "" {
		s.logger.Error("PublishResult failed: result subject not configured")
		return sdkerrors.NewValidationError("", "result subject not configured", "INVALID_CONFIG", nil)
	}

	if resultMsg == nil {
		s.logger.Error("PublishResult failed: result message cannot be nil")
		return sdkerrors.NewValidationError("", "result message cannot be nil", "INVALID_MESSAGE", nil)
	}

	if err := s.ensureStreamForSubject(s.resultSubject); err != nil {
		s.logger.Error("Failed to ensure result stream exists",
			zap.String("stream", s.resultStream),
			zap.String("subject", s.resultSubject),
			zap.Error(err))
		return sdkerrors.NewInternalError("", "failed to ensure result stream exists", "STREAM_ENSURE_FAILED", err)
	}

	s.logger.Debug("Publishing result message",
		zap.String("execution_id", resultMsg.ExecutionID),
		zap.String("workflow_id", resultMsg.WorkflowID),
		zap.String("node_id", resultMsg.NodeID),
		zap.String("status", resultMsg.Status),
		zap.String("subject", s.resultSubject))

	data, err := resultMsg.ToBytes()
	if err != nil {
		s.logger.Error("Failed to marshal result message",
			zap.String("execution_id", resultMsg.ExecutionID),
			zap.Error(err))
		return sdkerrors.NewInternalError("", "failed to marshal result message", "MARSHAL_FAILED", err)
	}

	// Result publishing is critical, retry with backoff
	var publishErr error
	for attempt := 1; attempt <= s.publishMaxRetries; attempt++ {
		_, publishErr = s.js.Publish(s.resultSubject, data)
		if publishErr == nil {
			break
		}

		if attempt < s.publishMaxRetries {
			s.logger.Warn("Failed to publish result, retrying",
				zap.String("execution_id", resultMsg.ExecutionID),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.publishMaxRetries),
				zap.Error(publishErr))
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	if publishErr != nil {
		s.logger.Error("Failed to publish result after all retries",
			zap.String("execution_id", resultMsg.ExecutionID),
			zap.String("workflow_id", resultMsg.WorkflowID),
			zap.Int("attempts", s.publishMaxRetries),
			zap.Error(publishErr))
		return sdkerrors.NewInternalError("", "failed to publish result after retries", "PUBLISH_FAILED", publishErr)
	}

	s.logger.Info("Successfully published result message",
		zap.String("execution_id", resultMsg.ExecutionID),
		zap.String("workflow_id", resultMsg.WorkflowID),
		zap.String("node_id", resultMsg.NodeID),
		zap.String("status", resultMsg.Status))

	return nil
}

// ReportSuccess publishes a successful run's output items to the result
// stream and acknowledges the source message. Results under 1.5MB are sent
// inline; larger results are stored in blob storage and referenced.
func (s *Service) ReportSuccess(ctx context.Context, request *Message, items []normalize.Item, elapsed time.Duration) error {
	startTime := time.Now()

	if request == nil || request.ExecutionID == "" {
		s.logger.Error("Missing execution metadata for success report")
		if request != nil {
			_ = request.Nak()
		}
		return fmt.Errorf("missing execution_id")
	}

	executionID := request.ExecutionID
	var workflowID, runID string
	if request.Workflow != nil {
		workflowID = request.Workflow.WorkflowID
		runID = request.Workflow.RunID
	}
	if workflowID == "" || runID == "" {
		s.logger.Error("Missing workflow metadata for success report",
			zap.String("execution_id", executionID))
		_ = request.Nak()
		return fmt.Errorf("missing workflow metadata")
	}

	var nodeID, nodeType string
	if request.Node != nil {
		nodeID = request.Node.NodeID
		nodeType = request.Node.NodeType
	}
	if nodeID == "" {
		nodeID = executionID
	}

	resultBytes, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("Failed to marshal output items",
			zap.String("execution_id", executionID),
			zap.Error(err))
		_ = request.Nak()
		return fmt.Errorf("failed to marshal output items: %w", err)
	}
	resultSize := len(resultBytes)

	resultMsg := NewResultMessage(executionID, workflowID, runID, nodeID, "success")
	resultMsg.ItemCount = len(items)
	if request.CorrelationID != "" {
		resultMsg.WithCorrelationID(request.CorrelationID)
	}
	if nodeType != "" {
		resultMsg.WithNodeType(nodeType)
	}
	if elapsed > 0 {
		resultMsg.WithExecutionTime(elapsed.Milliseconds())
	}

	if resultSize <= maxInlineResultSize {
		s.logger.Info("Sending result with inline data",
			zap.String("execution_id", executionID),
			zap.Int("size_bytes", resultSize))
		resultMsg.WithInlineResult(resultBytes)
	} else {
		s.logger.Info("Result too large, storing in blob storage",
			zap.String("execution_id", executionID),
			zap.Int("size_bytes", resultSize),
			zap.Int("threshold", maxInlineResultSize))

		if s.blobStorage == nil {
			s.logger.Error("Blob storage not initialized for large result",
				zap.Int("size_bytes", resultSize))
			_ = request.Nak()
			return fmt.Errorf("blob storage not initialized but result size %d exceeds limit", resultSize)
		}

		blobPath := fmt.Sprintf("results/%s/%s/%s.json", workflowID, runID, executionID)
		blobURL, err := s.blobStorage.UploadResult(ctx, blobPath, resultBytes, map[string]string{
			"workflow_id":  workflowID,
			"run_id":       runID,
			"execution_id": executionID,
			"node_id":      nodeID,
			"status":       "success",
		})
		if err != nil {
			s.logger.Error("Failed to upload result to blob storage",
				zap.String("execution_id", executionID),
				zap.Error(err))

			blobErr := fmt.Errorf("blob upload failed: %w", err)
			if reportErr := s.ReportError(ctx, executionID, workflowID, runID, request.CorrelationID, blobErr, nil); reportErr != nil {
				s.logger.Error("Failed to report blob upload error",
					zap.String("execution_id", executionID),
					zap.Error(reportErr))
			}
			_ = request.Nak()
			return blobErr
		}

		s.logger.Info("Result uploaded to blob storage",
			zap.String("execution_id", executionID),
			zap.String("blob_url", blobURL),
			zap.Int("size_bytes", resultSize))

		resultMsg.WithBlobReference(&BlobReference{URL: blobURL, SizeBytes: resultSize})
		resultMsg.ResultSize = resultSize
	}

	if err := s.PublishResult(ctx, resultMsg); err != nil {
		s.logger.Error("Failed to publish result to JetStream",
			zap.String("execution_id", executionID),
			zap.Error(err))

		publishErr := fmt.Errorf("failed to publish result: %w", err)
		if reportErr := s.ReportError(ctx, executionID, workflowID, runID, request.CorrelationID, publishErr, nil); reportErr != nil {
			s.logger.Error("Failed to report publish error",
				zap.String("execution_id", executionID),
				zap.Error(reportErr))
		}
		_ = request.Nak()
		return publishErr
	}

	s.logger.Info("Successfully published result to JetStream",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", runID),
		zap.String("execution_id", executionID),
		zap.Int("item_count", len(items)),
		zap.Duration("publish_duration", time.Since(startTime)),
		zap.Int("payload_size", resultSize),
		zap.Bool("used_blob_reference", resultMsg.HasBlobReference()))

	if err := request.Ack(); err != nil {
		s.logger.Error("Failed to acknowledge source message",
			zap.String("execution_id", executionID),
			zap.Error(err))
		return fmt.Errorf("failed to acknowledge: %w", err)
	}

	return nil
}

// ReportError publishes a failed run's error to the result stream.
//
// Retryable errors (transient failures like timeouts and network errors)
// Nak the source message for redelivery; permanent failures (validation,
// not found, unauthorized) Ack it to prevent redelivery.
func (s *Service) ReportError(ctx context.Context, executionID, workflowID, runID, correlationID string, runErr error, msg *nats.Msg) error {
	startTime := time.Now()

	if executionID == "" {
		s.logger.Warn("Missing executionID for error report")
		if msg != nil {
			_ = msg.Nak()
		}
		return fmt.Errorf("missing executionID")
	}

	errorCode := sdkerrors.CategorizeError(runErr)
	retryable := sdkerrors.IsRetryable(runErr)
	errorType := "internal"

	var appErr *sdkerrors.AppError
	if errors.As(runErr, &appErr) {
		if appErr.Code != "" {
			errorCode = appErr.Code
		}
		errorType = string(appErr.Type)
	}

	s.logger.Info("Publishing error result",
		zap.String("execution_id", executionID),
		zap.String("workflow_id", workflowID),
		zap.String("run_id", runID),
		zap.Bool("retryable", retryable),
		zap.String("error_code", errorCode))

	resultMsg := NewResultMessage(executionID, workflowID, runID, executionID, "failed")
	if correlationID != "" {
		resultMsg.WithCorrelationID(correlationID)
	}

	resultMsg.WithError(&ResultError{
		Code:      errorCode,
		Message:   runErr.Error(),
		Retryable: retryable,
		Type:      errorType,
	})

	if err := s.PublishResult(ctx, resultMsg); err != nil {
		s.logger.Error("Failed to publish error result after retries",
			zap.String("execution_id", executionID),
			zap.Error(err))
		if msg != nil {
			_ = msg.Nak()
		}
		return fmt.Errorf("failed to publish error result: %w", err)
	}

	s.logger.Info("Successfully published error result to JetStream",
		zap.String("execution_id", executionID),
		zap.String("workflow_id", workflowID),
		zap.Duration("duration", time.Since(startTime)))

	if msg != nil {
		if retryable {
			_ = msg.Nak()
		} else {
			_ = msg.Ack()
		}
	}

	return nil
}
