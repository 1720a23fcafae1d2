package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

type fakeIntegration struct {
	handlers map[OperationKey]Handler
}

func (f *fakeIntegration) Description() *catalog.Description {
	return &catalog.Description{Name: "fake", DisplayName: "Fake", Version: 1}
}

func (f *fakeIntegration) Handlers() map[OperationKey]Handler {
	return f.handlers
}

func (f *fakeIntegration) TestCredential(context.Context, json.RawMessage) error {
	return nil
}

func TestRunDispatchesPerItem(t *testing.T) {
	var indexes []int
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "job", Operation: "trigger"}: func(_ context.Context, rc *RunContext) (any, error) {
			indexes = append(indexes, rc.Index)
			return map[string]any{"job": rc.Params.GetString("job", "")}, nil
		},
	}}

	out, err := New(nil).Run(context.Background(), RunInput{
		Integration: integration,
		Resource:    "job",
		Operation:   "trigger",
		Parameters:  catalog.Parameters{"job": "deploy"},
		Items:       []normalize.Item{{"n": 1.0}, {"n": 2.0}, {"n": 3.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexes)
	require.Len(t, out, 3)
	assert.Equal(t, "deploy", out[0]["job"])
}

func TestRunFlattensArrayResponses(t *testing.T) {
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "build", Operation: "getAll"}: func(context.Context, *RunContext) (any, error) {
			return []any{
				map[string]any{"number": 1.0},
				map[string]any{"number": 2.0},
			}, nil
		},
	}}

	out, err := New(nil).Run(context.Background(), RunInput{
		Integration: integration,
		Resource:    "build",
		Operation:   "getAll",
		Items:       []normalize.Item{{}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0]["number"])
	assert.Equal(t, 2.0, out[1]["number"])
}

func TestRunFailureAbortsKeepingPartialOutput(t *testing.T) {
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "job", Operation: "trigger"}: func(_ context.Context, rc *RunContext) (any, error) {
			if rc.Index == 1 {
				return nil, errors.New("connection refused")
			}
			return map[string]any{"index": rc.Index}, nil
		},
	}}

	out, err := New(nil).Run(context.Background(), RunInput{
		Integration: integration,
		Resource:    "job",
		Operation:   "trigger",
		Items:       []normalize.Item{{}, {}, {}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	// the first item's output is retained, the run stops before the third
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0]["index"])
}

func TestRunContinueOnFail(t *testing.T) {
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "job", Operation: "trigger"}: func(_ context.Context, rc *RunContext) (any, error) {
			if rc.Index == 1 {
				return nil, errors.New("connection refused")
			}
			return map[string]any{"index": rc.Index}, nil
		},
	}}

	out, err := New(nil).Run(context.Background(), RunInput{
		Integration:    integration,
		Resource:       "job",
		Operation:      "trigger",
		Items:          []normalize.Item{{}, {}, {}},
		ContinueOnFail: true,
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0]["index"])
	assert.Equal(t, "connection refused", out[1]["error"])
	assert.Equal(t, 2, out[2]["index"])
}

func TestRunResolvesExpressionsPerItem(t *testing.T) {
	var jobs []string
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "job", Operation: "trigger"}: func(_ context.Context, rc *RunContext) (any, error) {
			jobs = append(jobs, rc.Params.GetString("job", ""))
			return map[string]any{}, nil
		},
	}}

	_, err := New(nil).Run(context.Background(), RunInput{
		Integration: integration,
		Resource:    "job",
		Operation:   "trigger",
		Parameters:  catalog.Parameters{"job": "={{ 'deploy-' + $json.env }}"},
		Items: []normalize.Item{
			{"env": "staging"},
			{"env": "production"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy-staging", "deploy-production"}, jobs)
}

func TestRunNoItemsDispatchesNothing(t *testing.T) {
	calls := 0
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{
		{Resource: "instance", Operation: "restart"}: func(context.Context, *RunContext) (any, error) {
			calls++
			return map[string]any{"status": "ok"}, nil
		},
	}}

	for _, items := range [][]normalize.Item{nil, {}} {
		out, err := New(nil).Run(context.Background(), RunInput{
			Integration: integration,
			Resource:    "instance",
			Operation:   "restart",
			Items:       items,
		})
		require.NoError(t, err)
		assert.Empty(t, out)
	}
	assert.Equal(t, 0, calls)
}

func TestRunUnknownOperation(t *testing.T) {
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{}}

	_, err := New(nil).Run(context.Background(), RunInput{
		Integration: integration,
		Resource:    "job",
		Operation:   "nope",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not implement")
}

func TestRunMissingResourceOrOperation(t *testing.T) {
	integration := &fakeIntegration{handlers: map[OperationKey]Handler{}}

	_, err := New(nil).Run(context.Background(), RunInput{Integration: integration})
	require.Error(t, err)

	_, err = New(nil).Run(context.Background(), RunInput{})
	require.Error(t, err)
}
