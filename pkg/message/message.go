// Package message defines the JetStream wire format for node run requests
// and run results, plus the service that publishes and pulls them.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

// Workflow identifies the workflow execution a run belongs to.
type Workflow struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// Node identifies the workflow node to execute and its registered type.
type Node struct {
	NodeID   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
}

// Run carries everything the runner needs to execute one node: the
// resource and operation to dispatch, the resolved parameter values, the
// incoming items, and the credential payload for the node's adapter.
type Run struct {
	Resource       string             `json:"resource"`
	Operation      string             `json:"operation"`
	Parameters     catalog.Parameters `json:"parameters,omitempty"`
	Items          []normalize.Item   `json:"items,omitempty"`
	Credentials    json.RawMessage    `json:"credentials,omitempty"`
	ContinueOnFail bool               `json:"continueOnFail,omitempty"`
}

// BlobReference points at result data offloaded to blob storage when a
// payload is too large to send inline.
type BlobReference struct {
	URL       string `json:"url"`
	SizeBytes int    `json:"sizeBytes"`
}

// Message is a node run request sent over JetStream. All messages are
// serialized to JSON and carry timestamps; messages published to JetStream
// are persisted according to the stream's configuration.
type Message struct {
	// CorrelationID is a unique identifier for tracking related messages
	CorrelationID string `json:"correlationId,omitempty"`

	// ExecutionID uniquely identifies this node execution
	ExecutionID string `json:"executionId,omitempty"`

	// Workflow contains workflow execution information
	Workflow *Workflow `json:"workflow,omitempty"`

	// Node identifies the node to execute
	Node *Node `json:"node,omitempty"`

	// Run contains the dispatch details and input items
	Run *Run `json:"run,omitempty"`

	// Metadata holds additional key-value pairs for the message
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is the timestamp when the message was created
	CreatedAt string `json:"createdAt"`

	// UpdatedAt is the timestamp when the message was last updated
	UpdatedAt string `json:"updatedAt"`

	// natsMsg holds the original NATS message for acknowledgment (not serialized)
	natsMsg *nats.Msg `json:"-"`
}

// NewMessage creates a new message with timestamps.
func NewMessage() *Message {
	now := time.Now().Format(time.RFC3339)
	return &Message{
		Metadata:  make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewRunMessage creates a run request for one node execution.
func NewRunMessage(executionID, workflowID, runID string) *Message {
	msg := NewMessage()
	msg.ExecutionID = executionID
	msg.Workflow = &Workflow{WorkflowID: workflowID, RunID: runID}
	return msg
}

// WithCorrelationID sets the correlation ID for the message.
func (m *Message) WithCorrelationID(correlationID string) *Message {
	m.CorrelationID = correlationID
	m.UpdatedAt = time.Now().Format(time.RFC3339)
	return m
}

// WithMetadata adds metadata to the message.
func (m *Message) WithMetadata(key, value string) *Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
	m.UpdatedAt = time.Now().Format(time.RFC3339)
	return m
}

// WithNode identifies the node to execute.
func (m *Message) WithNode(nodeID, nodeType string) *Message {
	m.Node = &Node{NodeID: nodeID, NodeType: nodeType}
	m.UpdatedAt = time.Now().Format(time.RFC3339)
	return m
}

// WithRun sets the dispatch details for the execution.
func (m *Message) WithRun(run *Run) *Message {
	m.Run = run
	m.UpdatedAt = time.Now().Format(time.RFC3339)
	return m
}

// Validate checks that the message carries enough to dispatch a run.
func (m *Message) Validate() error {
	if m.ExecutionID == "" {
		return fmt.Errorf("message missing executionId")
	}
	if m.Node == nil || m.Node.NodeType == "" {
		return fmt.Errorf("message missing node type")
	}
	if m.Run == nil {
		return fmt.Errorf("message missing run details")
	}
	if m.Run.Resource == "" || m.Run.Operation == "" {
		return fmt.Errorf("run missing resource or operation")
	}
	return nil
}

// ToBytes serializes the message to JSON bytes.
func (m *Message) ToBytes() ([]byte, error) {
	return json.Marshal(m)
}

// FromBytes deserializes a message from JSON bytes.
func FromBytes(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// FromNATSMsg converts a NATS message to a run request message.
func FromNATSMsg(natsMsg *nats.Msg) (*Message, error) {
	return FromBytes(natsMsg.Data)
}

// Ack acknowledges the message, indicating successful processing.
func (m *Message) Ack() error {
	if m.natsMsg == nil {
		return nil
	}
	return m.natsMsg.Ack()
}

// Nak negatively acknowledges the message, indicating processing failure.
// The message may be redelivered according to the consumer's configuration.
func (m *Message) Nak() error {
	if m.natsMsg == nil {
		return nil
	}
	return m.natsMsg.Nak()
}

// InProgress extends the acknowledgment deadline for long-running work.
func (m *Message) InProgress() error {
	if m.natsMsg == nil {
		return nil
	}
	return m.natsMsg.InProgress()
}

// Term terminates delivery of the message, removing it from the stream.
// Use this when a message cannot be processed and should not be retried.
func (m *Message) Term() error {
	if m.natsMsg == nil {
		return nil
	}
	return m.natsMsg.Term()
}

// GetNATSMsg returns the underlying NATS message for acknowledgment purposes.
// Returns nil if this message was not created from a NATS message.
func (m *Message) GetNATSMsg() *nats.Msg {
	return m.natsMsg
}

// ResultMessage is a node execution result published to JetStream. It is a
// dedicated structure, separate from run request messages.
type ResultMessage struct {
	// Correlation ID for tracking related messages across the system
	CorrelationID string `json:"correlation_id,omitempty"`

	// Execution metadata
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	RunID       string `json:"run_id"`
	NodeID      string `json:"node_id"`

	// Execution status: "success" or "failed"
	Status string `json:"status"`

	// Result data, one of these is populated based on result size
	InlineResult  json.RawMessage `json:"inline_result,omitempty"`
	BlobReference *BlobReference  `json:"blob_reference,omitempty"`

	// Error information, only present when status is "failed"
	Error *ResultError `json:"error,omitempty"`

	// Metadata
	NodeType        string `json:"node_type,omitempty"`
	ItemCount       int    `json:"item_count,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms,omitempty"`
	ResultSize      int    `json:"result_size,omitempty"`

	// Timestamps
	Timestamp time.Time `json:"timestamp"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// ResultError contains error information for failed executions.
type ResultError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Type      string `json:"type,omitempty"`
}

// NewResultMessage creates a new result message with timestamps.
func NewResultMessage(executionID, workflowID, runID, nodeID, status string) *ResultMessage {
	now := time.Now()
	return &ResultMessage{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		RunID:       runID,
		NodeID:      nodeID,
		Status:      status,
		Timestamp:   now,
		CreatedAt:   now.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	}
}

// WithCorrelationID sets the correlation ID for the result message.
func (r *ResultMessage) WithCorrelationID(correlationID string) *ResultMessage {
	r.CorrelationID = correlationID
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// WithInlineResult sets the inline result data.
func (r *ResultMessage) WithInlineResult(result json.RawMessage) *ResultMessage {
	r.InlineResult = result
	r.ResultSize = len(result)
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// WithBlobReference sets the blob reference for large results.
func (r *ResultMessage) WithBlobReference(blobRef *BlobReference) *ResultMessage {
	r.BlobReference = blobRef
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// WithError sets the error information and marks the result failed.
func (r *ResultMessage) WithError(err *ResultError) *ResultMessage {
	r.Error = err
	r.Status = "failed"
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// WithNodeType sets the node type that processed the run.
func (r *ResultMessage) WithNodeType(nodeType string) *ResultMessage {
	r.NodeType = nodeType
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// WithExecutionTime sets the execution time in milliseconds.
func (r *ResultMessage) WithExecutionTime(ms int64) *ResultMessage {
	r.ExecutionTimeMs = ms
	r.UpdatedAt = time.Now().Format(time.RFC3339)
	return r
}

// ToBytes serializes the result message to JSON bytes.
func (r *ResultMessage) ToBytes() ([]byte, error) {
	return json.Marshal(r)
}

// ResultMessageFromBytes deserializes a result message from JSON bytes.
func ResultMessageFromBytes(data []byte) (*ResultMessage, error) {
	var msg ResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ResultMessageFromNATSMsg converts a NATS message to a ResultMessage.
func ResultMessageFromNATSMsg(natsMsg *nats.Msg) (*ResultMessage, error) {
	return ResultMessageFromBytes(natsMsg.Data)
}

// HasInlineResult returns true if the result is available inline.
func (r *ResultMessage) HasInlineResult() bool {
	return len(r.InlineResult) > 0
}

// HasBlobReference returns true if the result is stored in blob storage.
func (r *ResultMessage) HasBlobReference() bool {
	return r.BlobReference != nil && r.BlobReference.URL != ""
}

// IsSuccess returns true if the execution was successful.
func (r *ResultMessage) IsSuccess() bool {
	return r.Status == "success"
}

// IsFailed returns true if the execution failed.
func (r *ResultMessage) IsFailed() bool {
	return r.Status == "failed"
}

// IsRetryable returns true if the error is retryable. Only meaningful for
// failed executions.
func (r *ResultMessage) IsRetryable() bool {
	return r.Error != nil && r.Error.Retryable
}
