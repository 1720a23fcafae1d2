// Package expr resolves per-item parameter expressions. A parameter value
// of the form "={{ <script> }}" is evaluated in a restricted JavaScript
// runtime with $json bound to the current input item and $itemIndex to its
// position; every other value passes through unchanged. Plain field lookups
// use dotted gjson paths.
package expr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/tidwall/gjson"

	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
)

const (
	exprPrefix = "={{"
	exprSuffix = "}}"

	// DefaultTimeout bounds a single expression evaluation
	DefaultTimeout = 500 * time.Millisecond
)

// Evaluator evaluates parameter expressions against input items.
type Evaluator struct {
	timeout time.Duration
}

// NewEvaluator creates an evaluator with the default timeout.
func NewEvaluator() *Evaluator {
	return &Evaluator{timeout: DefaultTimeout}
}

// NewEvaluatorWithTimeout creates an evaluator with a custom per-expression
// timeout.
func NewEvaluatorWithTimeout(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{timeout: timeout}
}

// IsExpression reports whether a string value is an expression.
func IsExpression(value string) bool {
	return strings.HasPrefix(value, exprPrefix) && strings.HasSuffix(value, exprSuffix)
}

// Resolve evaluates value against the given item. Non-string values and
// strings that are not expressions are returned unchanged.
func (e *Evaluator) Resolve(value any, item map[string]any, itemIndex int) (any, error) {
	s, ok := value.(string)
	if !ok || !IsExpression(s) {
		return value, nil
	}

	script := strings.TrimSuffix(strings.TrimPrefix(s, exprPrefix), exprSuffix)

	vm := goja.New()
	if err := restrictRuntime(vm); err != nil {
		return nil, sdkerrors.NewInternalError("", "failed to prepare expression runtime", "EXPRESSION_SETUP_FAILED", err)
	}

	if err := vm.Set("$json", item); err != nil {
		return nil, sdkerrors.NewInternalError("", "failed to bind $json", "EXPRESSION_SETUP_FAILED", err)
	}
	if err := vm.Set("$itemIndex", itemIndex); err != nil {
		return nil, sdkerrors.NewInternalError("", "failed to bind $itemIndex", "EXPRESSION_SETUP_FAILED", err)
	}

	timer := time.AfterFunc(e.timeout, func() {
		vm.Interrupt("expression timed out")
	})
	defer timer.Stop()

	result, err := vm.RunString(script)
	if err != nil {
		return nil, sdkerrors.NewValidationError("",
			fmt.Sprintf("expression evaluation failed: %s", strings.TrimSpace(script)),
			"EXPRESSION_FAILED", err)
	}

	return normalizeValue(result.Export()), nil
}

// ResolveParameters resolves every string value of params against the item,
// recursing into nested maps and slices so expressions inside collection
// parameters are resolved too. The input map is not mutated.
func (e *Evaluator) ResolveParameters(params map[string]any, item map[string]any, itemIndex int) (map[string]any, error) {
	resolved := make(map[string]any, len(params))
	for name, value := range params {
		v, err := e.resolveValue(value, item, itemIndex)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		resolved[name] = v
	}
	return resolved, nil
}

// resolveValue resolves a single parameter value, descending into maps and
// slices.
func (e *Evaluator) resolveValue(value any, item map[string]any, itemIndex int) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		nested := make(map[string]any, len(v))
		for k, entry := range v {
			r, err := e.resolveValue(entry, item, itemIndex)
			if err != nil {
				return nil, err
			}
			nested[k] = r
		}
		return nested, nil
	case []any:
		nested := make([]any, len(v))
		for i, entry := range v {
			r, err := e.resolveValue(entry, item, itemIndex)
			if err != nil {
				return nil, err
			}
			nested[i] = r
		}
		return nested, nil
	default:
		return e.Resolve(value, item, itemIndex)
	}
}

// Path extracts a value from an item by dotted path, e.g. "build.number".
// The second return reports whether the path exists.
func Path(item map[string]any, path string) (any, bool) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, false
	}

	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// restrictRuntime removes host-environment globals from the VM.
func restrictRuntime(vm *goja.Runtime) error {
	blocked := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"Buffer",
		"setTimeout",
		"setInterval",
		"setImmediate",
	}

	for _, name := range blocked {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// normalizeValue maps goja export types onto JSON-compatible values.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return v
	}
}
