package engine

import (
	"context"
	"encoding/json"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/normalize"
)

// OperationKey identifies one node operation. Dispatch goes through a
// lookup table keyed by resource and operation instead of conditional
// cascades.
type OperationKey struct {
	Resource  string
	Operation string
}

// RunContext carries everything a handler needs for one item: the
// credentials resolved once for the whole run, the parameters resolved for
// this item, and the item itself.
type RunContext struct {
	// Credentials is the decrypted credential payload, constant across items
	Credentials json.RawMessage

	// Params holds the parameter values for the current item, with
	// expressions already resolved
	Params catalog.Parameters

	// Item is the current input item
	Item normalize.Item

	// Index is the item's position in the input
	Index int
}

// Handler executes one operation for one item and returns the raw response
// value. Array responses flatten into multiple output items downstream.
type Handler func(ctx context.Context, rc *RunContext) (any, error)

// Integration is one integration node: a declarative description plus the
// operation handler table.
type Integration interface {
	// Description returns the node's declarative parameter schema
	Description() *catalog.Description

	// Handlers returns the operation dispatch table
	Handlers() map[OperationKey]Handler

	// TestCredential verifies a credential payload with a live call
	TestCredential(ctx context.Context, credentials json.RawMessage) error
}

// RunInput describes one node run in full. Resource, operation
// and credentials are fixed before the loop starts and never re-read per
// item.
type RunInput struct {
	Integration    Integration
	Resource       string
	Operation      string
	Parameters     catalog.Parameters
	Items          []normalize.Item
	Credentials    json.RawMessage
	ContinueOnFail bool
}
