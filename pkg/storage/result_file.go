package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wehubfusion/Talos/pkg/normalize"
)

// NodeResultMeta contains metadata about one node execution.
type NodeResultMeta struct {
	Status          string `json:"status"` // "success" or "failed"
	NodeID          string `json:"node_id"`
	NodeType        string `json:"node_type"`
	ItemCount       int    `json:"item_count"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

// NodeResultError contains error information when a node fails.
type NodeResultError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NodeResult is the stored result of one node execution: the output items
// plus execution metadata.
type NodeResult struct {
	Meta  NodeResultMeta   `json:"_meta"`
	Error *NodeResultError `json:"_error,omitempty"`
	Items []normalize.Item `json:"items"`
}

// ResultFile is the shared per-run result file holding every node's output.
// Format: { "<node_id>": NodeResult, ... }
type ResultFile map[string]*NodeResult

// ResultFileClient manages the shared per-run result file in blob storage.
type ResultFileClient struct {
	blobClient BlobStorageClient
	logger     *zap.Logger
	mu         sync.Mutex // serializes read-modify-write on the result file
}

// NewResultFileClient creates a result file client.
func NewResultFileClient(blobClient BlobStorageClient, logger *zap.Logger) *ResultFileClient {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &ResultFileClient{
		blobClient: blobClient,
		logger:     logger,
	}
}

// ResultFilePath returns the standard blob path for a run's result file.
func ResultFilePath(workflowID, runID string) string {
	return fmt.Sprintf("results/%s/%s/results.json", workflowID, runID)
}

// AppendNodeResult adds or updates a node's result in the shared result
// file. The current file is read, the result merged in, and the file
// written back under the lock.
func (c *ResultFileClient) AppendNodeResult(ctx context.Context, workflowID, runID, nodeID string, result *NodeResult) (string, error) {
	if c.blobClient == nil {
		return "", fmt.Errorf("blob client not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blobPath := ResultFilePath(workflowID, runID)

	c.logger.Debug("Appending node result to result file",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", runID),
		zap.String("node_id", nodeID),
		zap.String("blob_path", blobPath))

	var resultFile ResultFile
	existingData, err := c.blobClient.DownloadResult(ctx, blobPath)
	if err != nil {
		// File doesn't exist yet
		c.logger.Debug("Result file doesn't exist yet, creating new",
			zap.String("blob_path", blobPath))
		resultFile = make(ResultFile)
	} else if err := json.Unmarshal(existingData, &resultFile); err != nil {
		c.logger.Error("Failed to parse existing result file, starting fresh",
			zap.String("blob_path", blobPath),
			zap.Error(err))
		resultFile = make(ResultFile)
	}

	resultFile[nodeID] = result

	updatedData, err := json.Marshal(resultFile)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result file: %w", err)
	}

	blobURL, err := c.blobClient.UploadResult(ctx, blobPath, updatedData, map[string]string{
		"workflow_id":   workflowID,
		"run_id":        runID,
		"last_node_id":  nodeID,
		"node_count":    fmt.Sprintf("%d", len(resultFile)),
		"last_modified": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result file: %w", err)
	}

	c.logger.Info("Successfully appended node result to result file",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", runID),
		zap.String("node_id", nodeID),
		zap.Int("total_nodes", len(resultFile)),
		zap.Int("result_size_bytes", len(updatedData)))

	return blobURL, nil
}

// GetResultFile downloads and parses the entire result file.
func (c *ResultFileClient) GetResultFile(ctx context.Context, workflowID, runID string) (ResultFile, error) {
	if c.blobClient == nil {
		return nil, fmt.Errorf("blob client not initialized")
	}

	data, err := c.blobClient.DownloadResult(ctx, ResultFilePath(workflowID, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to download result file: %w", err)
	}

	var resultFile ResultFile
	if err := json.Unmarshal(data, &resultFile); err != nil {
		return nil, fmt.Errorf("failed to parse result file: %w", err)
	}

	return resultFile, nil
}

// GetNodeResult retrieves a specific node's result from the result file.
func (c *ResultFileClient) GetNodeResult(ctx context.Context, workflowID, runID, nodeID string) (*NodeResult, error) {
	resultFile, err := c.GetResultFile(ctx, workflowID, runID)
	if err != nil {
		return nil, err
	}

	result, exists := resultFile[nodeID]
	if !exists {
		return nil, fmt.Errorf("node result not found: %s", nodeID)
	}

	return result, nil
}

// NewNodeResult builds a NodeResult with standard fields. On failure, pass
// the output items produced before the abort so partial output is preserved.
func NewNodeResult(nodeID, nodeType, status string, executionTimeMs int64, items []normalize.Item, errorInfo *NodeResultError) *NodeResult {
	result := &NodeResult{
		Meta: NodeResultMeta{
			Status:          status,
			NodeID:          nodeID,
			NodeType:        nodeType,
			ItemCount:       len(items),
			ExecutionTimeMs: executionTimeMs,
		},
		Items: items,
	}
	if status == "failed" {
		result.Error = errorInfo
	}
	return result
}
