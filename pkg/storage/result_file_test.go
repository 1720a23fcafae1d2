package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Talos/pkg/message"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

// The Azure client must remain pluggable into the message service's
// large-result offload path.
var _ message.BlobStorageClient = (*AzureBlobClient)(nil)

// memoryBlobClient is an in-memory BlobStorageClient for tests.
type memoryBlobClient struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobClient() *memoryBlobClient {
	return &memoryBlobClient{blobs: make(map[string][]byte)}
}

func (m *memoryBlobClient) UploadResult(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[blobPath] = data
	return "https://storage/" + blobPath, nil
}

func (m *memoryBlobClient) DownloadResult(ctx context.Context, blobURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[blobURL]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", blobURL)
	}
	return data, nil
}

func TestResultFilePath(t *testing.T) {
	assert.Equal(t, "results/wf-1/run-1/results.json", ResultFilePath("wf-1", "run-1"))
}

func TestAppendNodeResult(t *testing.T) {
	blob := newMemoryBlobClient()
	client := NewResultFileClient(blob, zap.NewNop())
	ctx := context.Background()

	first := NewNodeResult("node-1", "jenkins", "success", 120, []normalize.Item{{"build": "42"}}, nil)
	url, err := client.AppendNodeResult(ctx, "wf-1", "run-1", "node-1", first)
	require.NoError(t, err)
	assert.Equal(t, "https://storage/results/wf-1/run-1/results.json", url)

	second := NewNodeResult("node-2", "bambooHr", "success", 80, []normalize.Item{{"id": "7"}, {"id": "8"}}, nil)
	_, err = client.AppendNodeResult(ctx, "wf-1", "run-1", "node-2", second)
	require.NoError(t, err)

	file, err := client.GetResultFile(ctx, "wf-1", "run-1")
	require.NoError(t, err)
	require.Len(t, file, 2)
	assert.Equal(t, "jenkins", file["node-1"].Meta.NodeType)
	assert.Equal(t, 2, file["node-2"].Meta.ItemCount)
}

func TestAppendNodeResultOverwritesSameNode(t *testing.T) {
	blob := newMemoryBlobClient()
	client := NewResultFileClient(blob, zap.NewNop())
	ctx := context.Background()

	_, err := client.AppendNodeResult(ctx, "wf-1", "run-1", "node-1",
		NewNodeResult("node-1", "jenkins", "failed", 50, nil, &NodeResultError{Code: "TIMEOUT_ERROR", Message: "timed out", Retryable: true}))
	require.NoError(t, err)

	_, err = client.AppendNodeResult(ctx, "wf-1", "run-1", "node-1",
		NewNodeResult("node-1", "jenkins", "success", 75, []normalize.Item{{"ok": true}}, nil))
	require.NoError(t, err)

	result, err := client.GetNodeResult(ctx, "wf-1", "run-1", "node-1")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Meta.Status)
	assert.Nil(t, result.Error)
	require.Len(t, result.Items, 1)
}

func TestGetNodeResultNotFound(t *testing.T) {
	blob := newMemoryBlobClient()
	client := NewResultFileClient(blob, zap.NewNop())
	ctx := context.Background()

	_, err := client.AppendNodeResult(ctx, "wf-1", "run-1", "node-1",
		NewNodeResult("node-1", "jenkins", "success", 10, nil, nil))
	require.NoError(t, err)

	_, err = client.GetNodeResult(ctx, "wf-1", "run-1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node result not found")
}

func TestNewNodeResult(t *testing.T) {
	items := []normalize.Item{{"a": 1}, {"b": 2}}

	success := NewNodeResult("node-1", "jenkins", "success", 200, items, nil)
	assert.Equal(t, 2, success.Meta.ItemCount)
	assert.Nil(t, success.Error)

	// Failed results keep the items produced before the abort.
	failed := NewNodeResult("node-1", "jenkins", "failed", 200, items[:1],
		&NodeResultError{Code: "NETWORK_ERROR", Message: "connection refused", Retryable: true})
	assert.Equal(t, 1, failed.Meta.ItemCount)
	require.NotNil(t, failed.Error)
	assert.True(t, failed.Error.Retryable)
}

func TestResultFileClientRequiresBlobClient(t *testing.T) {
	client := NewResultFileClient(nil, zap.NewNop())

	_, err := client.AppendNodeResult(context.Background(), "wf-1", "run-1", "node-1", nil)
	require.Error(t, err)

	_, err = client.GetResultFile(context.Background(), "wf-1", "run-1")
	require.Error(t, err)
}
