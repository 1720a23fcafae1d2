package runner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/client"
	"github.com/wehubfusion/Talos/pkg/engine"
	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/message"
	"github.com/wehubfusion/Talos/pkg/normalize"
	"github.com/wehubfusion/Talos/pkg/registry"
)

// fakeNode is a minimal integration for exercising runner dispatch.
type fakeNode struct {
	name    string
	handler engine.Handler
}

func (f *fakeNode) Description() *catalog.Description {
	return &catalog.Description{
		Name:        f.name,
		DisplayName: f.name,
		Version:     1,
	}
}

func (f *fakeNode) Handlers() map[engine.OperationKey]engine.Handler {
	return map[engine.OperationKey]engine.Handler{
		{Resource: "record", Operation: "list"}: f.handler,
	}
}

func (f *fakeNode) TestCredential(ctx context.Context, credentials json.RawMessage) error {
	return nil
}

// stubJSContext records published messages so result reporting can be
// asserted without a NATS server.
type stubJSContext struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newStubJSContext() *stubJSContext {
	return &stubJSContext{published: make(map[string][][]byte)}
}

func (s *stubJSContext) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[subj] = append(s.published[subj], data)
	return &nats.PubAck{Stream: "RESULTS"}, nil
}

func (s *stubJSContext) PullSubscribe(subj, durable string, opts ...nats.SubOpt) (message.JSSubscription, error) {
	return nil, errors.New("not implemented")
}

func (s *stubJSContext) StreamInfo(stream string) (*nats.StreamInfo, error) {
	return &nats.StreamInfo{Config: nats.StreamConfig{Name: stream}}, nil
}

func (s *stubJSContext) AddStream(cfg *nats.StreamConfig) (*nats.StreamInfo, error) {
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (s *stubJSContext) ConsumerInfo(stream, consumer string) (*nats.ConsumerInfo, error) {
	return &nats.ConsumerInfo{Stream: stream, Name: consumer}, nil
}

func (s *stubJSContext) AddConsumer(stream string, cfg *nats.ConsumerConfig) (*nats.ConsumerInfo, error) {
	return &nats.ConsumerInfo{Stream: stream, Name: cfg.Durable}, nil
}

func (s *stubJSContext) results(subj string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[subj]
}

func newTestRunner(t *testing.T, reg *registry.Registry) *Runner {
	t.Helper()
	r, _ := newTestRunnerWithJS(t, reg)
	return r
}

func newTestRunnerWithJS(t *testing.T, reg *registry.Registry) (*Runner, *stubJSContext) {
	t.Helper()
	js := newStubJSContext()
	r := &Runner{
		client:         client.NewClientWithJSContext(js),
		registry:       reg,
		engine:         engine.New(zap.NewNop()),
		stream:         "NODES",
		consumer:       "node-runner",
		batchSize:      10,
		numWorkers:     1,
		processTimeout: time.Second,
		logger:         zap.NewNop(),
	}
	r.client.SetLogger(zap.NewNop())
	r.handler = r.buildHandler()
	return r, js
}

func runMessage(nodeType string, run *message.Run) *message.Message {
	return message.NewRunMessage("exec-1", "wf-1", "run-1").
		WithNode("node-1", nodeType).
		WithRun(run)
}

func TestNewRunnerValidation(t *testing.T) {
	c := client.NewClient("nats://127.0.0.1:4222")
	reg := registry.New()
	logger := zap.NewNop()

	tests := []struct {
		name    string
		fn      func() (*Runner, error)
		wantErr string
	}{
		{
			name: "nil client",
			fn: func() (*Runner, error) {
				return NewRunner(nil, reg, "S", "C", 1, 1, time.Second, logger, nil)
			},
			wantErr: "client cannot be nil",
		},
		{
			name: "nil registry",
			fn: func() (*Runner, error) {
				return NewRunner(c, nil, "S", "C", 1, 1, time.Second, logger, nil)
			},
			wantErr: "registry cannot be nil",
		},
		{
			name: "empty stream",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "", "C", 1, 1, time.Second, logger, nil)
			},
			wantErr: "stream name cannot be empty",
		},
		{
			name: "empty consumer",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "", 1, 1, time.Second, logger, nil)
			},
			wantErr: "consumer name cannot be empty",
		},
		{
			name: "zero batch size",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "C", 0, 1, time.Second, logger, nil)
			},
			wantErr: "batchSize must be greater than 0",
		},
		{
			name: "zero workers",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "C", 1, 0, time.Second, logger, nil)
			},
			wantErr: "numWorkers must be greater than 0",
		},
		{
			name: "zero timeout",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "C", 1, 1, 0, logger, nil)
			},
			wantErr: "processTimeout must be greater than 0",
		},
		{
			name: "nil logger",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "C", 1, 1, time.Second, nil, nil)
			},
			wantErr: "logger cannot be nil",
		},
		{
			name: "no jetstream context",
			fn: func() (*Runner, error) {
				return NewRunner(c, reg, "S", "C", 1, 1, time.Second, logger, nil)
			},
			wantErr: "JetStream context is not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.fn()
			require.Error(t, err)
			assert.Nil(t, r)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecuteDispatchesToRegisteredNode(t *testing.T) {
	var gotCreds json.RawMessage
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			gotCreds = rc.Credentials
			return map[string]any{"index": rc.Index}, nil
		},
	}

	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r := newTestRunner(t, reg)
	msg := runMessage("fake", &message.Run{
		Resource:    "record",
		Operation:   "list",
		Items:       []normalize.Item{{"a": 1}, {"b": 2}},
		Credentials: json.RawMessage(`{"apiKey":"k"}`),
	})

	items, err := r.execute(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0]["index"])
	assert.Equal(t, 1, items[1]["index"])
	assert.JSONEq(t, `{"apiKey":"k"}`, string(gotCreds))
}

func TestExecuteUnknownNodeType(t *testing.T) {
	r := newTestRunner(t, registry.New())
	msg := runMessage("missing", &message.Run{Resource: "record", Operation: "list"})

	items, err := r.execute(context.Background(), msg)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, sdkerrors.ErrNodeTypeNotRegistered))
}

func TestExecuteUnknownOperation(t *testing.T) {
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			return nil, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r := newTestRunner(t, reg)
	msg := runMessage("fake", &message.Run{Resource: "record", Operation: "purge"})

	_, err := r.execute(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrUnknownOperation))
}

func TestExecuteInvalidMessage(t *testing.T) {
	r := newTestRunner(t, registry.New())

	t.Run("missing run", func(t *testing.T) {
		msg := message.NewRunMessage("exec-1", "wf-1", "run-1").WithNode("node-1", "fake")
		_, err := r.execute(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing run details")
	})

	t.Run("missing node type", func(t *testing.T) {
		msg := message.NewRunMessage("exec-1", "wf-1", "run-1").
			WithRun(&message.Run{Resource: "record", Operation: "list"})
		_, err := r.execute(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing node type")
	})

	t.Run("missing execution id", func(t *testing.T) {
		msg := message.NewMessage().
			WithNode("node-1", "fake").
			WithRun(&message.Run{Resource: "record", Operation: "list"})
		_, err := r.execute(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "executionId")
	})
}

func TestExecuteContinueOnFail(t *testing.T) {
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			if rc.Index == 1 {
				return nil, errors.New("boom")
			}
			return map[string]any{"ok": true}, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r := newTestRunner(t, reg)
	msg := runMessage("fake", &message.Run{
		Resource:       "record",
		Operation:      "list",
		Items:          []normalize.Item{{}, {}, {}},
		ContinueOnFail: true,
	})

	items, err := r.execute(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, true, items[0]["ok"])
	assert.Contains(t, items[1]["error"], "boom")
	assert.Equal(t, true, items[2]["ok"])
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			if rc.Index == 1 {
				return nil, errors.New("boom")
			}
			return map[string]any{"ok": true}, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r := newTestRunner(t, reg)
	msg := runMessage("fake", &message.Run{
		Resource:  "record",
		Operation: "list",
		Items:     []normalize.Item{{}, {}, {}},
	})

	items, err := r.execute(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
	assert.Len(t, items, 1)
}

func TestHandlerReportsSuccessResult(t *testing.T) {
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			return map[string]any{"ok": true}, nil
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r, js := newTestRunnerWithJS(t, reg)
	msg := runMessage("fake", &message.Run{
		Resource:  "record",
		Operation: "list",
		Items:     []normalize.Item{{}, {}},
	})

	require.NoError(t, r.handler(context.Background(), msg))

	published := js.results("result")
	require.Len(t, published, 1)

	var result message.ResultMessage
	require.NoError(t, json.Unmarshal(published[0], &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "exec-1", result.ExecutionID)
	assert.Equal(t, 2, result.ItemCount)
}

func TestHandlerRecoversFromPanic(t *testing.T) {
	node := &fakeNode{
		name: "fake",
		handler: func(ctx context.Context, rc *engine.RunContext) (any, error) {
			panic("handler exploded")
		},
	}
	reg := registry.New()
	require.NoError(t, reg.Register(node))

	r, js := newTestRunnerWithJS(t, reg)
	msg := runMessage("fake", &message.Run{
		Resource:  "record",
		Operation: "list",
		Items:     []normalize.Item{{}},
	})

	err := r.handler(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.Empty(t, js.results("result"))
}

func TestHandlerRejectsInvalidMessage(t *testing.T) {
	r, js := newTestRunnerWithJS(t, registry.New())

	err := r.handler(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is nil")

	msg := message.NewRunMessage("exec-1", "wf-1", "run-1").WithNode("node-1", "fake")
	err = r.handler(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing run details")
	assert.Empty(t, js.results("result"))
}
