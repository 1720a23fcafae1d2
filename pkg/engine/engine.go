// Package engine implements the per-item execution loop shared by all
// integration nodes: it resolves parameters for each input item, dispatches
// to the matching operation handler, flattens responses into the output
// item list and applies the per-item failure policy.
//
// Execution is strictly sequential. Each item's request completes or fails
// before the next begins, and nothing is shared across items beyond the
// accumulating output.
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/expr"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

// Engine runs integration nodes over input items.
type Engine struct {
	logger *zap.Logger
	tracer trace.Tracer
	eval   *expr.Evaluator
}

// New creates an engine. A nil logger falls back to zap's production
// logger.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Engine{
		logger: logger,
		tracer: otel.Tracer("talos/engine"),
		eval:   expr.NewEvaluator(),
	}
}

// runConfig is the configuration fixed before the loop starts. Resource,
// operation and credentials are constant across all items of a run.
type runConfig struct {
	key         OperationKey
	handler     Handler
	credentials []byte
}

// Run executes a node over the input items and returns the collected
// output. When ContinueOnFail is off (the default), the first failing item
// aborts the loop; items already appended are returned alongside the error.
// When it is on, the failure becomes an {"error": message} output item and
// the loop continues.
func (e *Engine) Run(ctx context.Context, in RunInput) ([]normalize.Item, error) {
	cfg, err := e.prepare(in)
	if err != nil {
		return nil, err
	}

	// The loop runs strictly over the input items. No items, no dispatches.
	items := in.Items

	ctx, span := e.tracer.Start(ctx, "engine.Run",
		trace.WithAttributes(
			attribute.String("node.type", in.Integration.Description().Name),
			attribute.String("node.resource", cfg.key.Resource),
			attribute.String("node.operation", cfg.key.Operation),
			attribute.Int("items.in", len(items)),
		))
	defer span.End()

	output := make([]normalize.Item, 0, len(items))

	for i, item := range items {
		result, itemErr := e.runItem(ctx, cfg, in, item, i)
		if itemErr != nil {
			if in.ContinueOnFail {
				e.logger.Warn("item failed, continuing",
					zap.String("node", in.Integration.Description().Name),
					zap.Int("item", i),
					zap.Error(itemErr))
				output = append(output, normalize.ErrorItem(itemErr))
				continue
			}

			span.RecordError(itemErr)
			span.SetStatus(codes.Error, itemErr.Error())
			return output, fmt.Errorf("item %d: %w", i, itemErr)
		}

		output = append(output, normalize.Items(result)...)
	}

	span.SetAttributes(attribute.Int("items.out", len(output)))
	span.SetStatus(codes.Ok, "")
	return output, nil
}

// prepare validates the input and builds the immutable run configuration.
func (e *Engine) prepare(in RunInput) (*runConfig, error) {
	if in.Integration == nil {
		return nil, sdkerrors.NewValidationError("", "integration cannot be nil", sdkerrors.ErrorCodeConfiguration, nil)
	}
	if in.Resource == "" || in.Operation == "" {
		return nil, sdkerrors.NewValidationError("", "resource and operation are required", sdkerrors.ErrorCodeConfiguration, nil)
	}

	key := OperationKey{Resource: in.Resource, Operation: in.Operation}
	handler, ok := in.Integration.Handlers()[key]
	if !ok {
		return nil, sdkerrors.NewValidationError("",
			fmt.Sprintf("node %q does not implement %s:%s", in.Integration.Description().Name, key.Resource, key.Operation),
			sdkerrors.ErrorCodeConfiguration, sdkerrors.ErrUnknownOperation)
	}

	return &runConfig{
		key:         key,
		handler:     handler,
		credentials: in.Credentials,
	}, nil
}

// runItem resolves the item's parameters and dispatches to the handler.
func (e *Engine) runItem(ctx context.Context, cfg *runConfig, in RunInput, item normalize.Item, index int) (any, error) {
	params, err := e.eval.ResolveParameters(in.Parameters, item, index)
	if err != nil {
		return nil, err
	}

	rc := &RunContext{
		Credentials: cfg.credentials,
		Params:      params,
		Item:        item,
		Index:       index,
	}

	return cfg.handler(ctx, rc)
}
