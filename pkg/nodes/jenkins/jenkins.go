// Package jenkins implements the Jenkins CI integration node: triggering,
// copying and creating jobs, instance lifecycle management, and build
// listing via the XML remote access API.
package jenkins

import (
	"context"
	"encoding/json"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/credentials"
	"github.com/wehubfusion/Talos/pkg/engine"
	"github.com/wehubfusion/Talos/pkg/rest"
)

// Node is the Jenkins integration.
type Node struct {
	restOpts []rest.Option
}

// Option configures the node.
type Option func(*Node)

// WithRESTOptions forwards options to every request adapter the node
// creates. Used by tests to inject a transport.
func WithRESTOptions(opts ...rest.Option) Option {
	return func(n *Node) {
		n.restOpts = opts
	}
}

// New creates the Jenkins node.
func New(opts ...Option) *Node {
	n := &Node{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Description implements engine.Integration.
func (n *Node) Description() *catalog.Description {
	return description()
}

// Handlers implements engine.Integration.
func (n *Node) Handlers() map[engine.OperationKey]engine.Handler {
	return map[engine.OperationKey]engine.Handler{
		{Resource: "job", Operation: "trigger"}:       n.triggerJob,
		{Resource: "job", Operation: "triggerParams"}: n.triggerJobWithParams,
		{Resource: "job", Operation: "copy"}:          n.copyJob,
		{Resource: "job", Operation: "create"}:        n.createJob,

		{Resource: "instance", Operation: "quietDown"}:       n.instanceOp("quietDown"),
		{Resource: "instance", Operation: "cancelQuietDown"}: n.instanceOp("cancelQuietDown"),
		{Resource: "instance", Operation: "restart"}:         n.instanceOp("restart"),
		{Resource: "instance", Operation: "safeRestart"}:     n.instanceOp("safeRestart"),
		{Resource: "instance", Operation: "exit"}:            n.instanceOp("exit"),
		{Resource: "instance", Operation: "safeExit"}:        n.instanceOp("safeExit"),

		{Resource: "build", Operation: "getAll"}: n.listBuilds,
	}
}

// TestCredential implements engine.Integration.
func (n *Node) TestCredential(ctx context.Context, raw json.RawMessage) error {
	var cred credentials.Jenkins
	if err := credentials.Decode(raw, &cred); err != nil {
		return err
	}
	return cred.Test(ctx, n.restOpts...)
}

// adapter builds the request adapter for the run's credential payload.
func (n *Node) adapter(rc *engine.RunContext) (*rest.Adapter, error) {
	var cred credentials.Jenkins
	if err := credentials.Decode(rc.Credentials, &cred); err != nil {
		return nil, err
	}

	auth := &rest.BasicAuth{Username: cred.Username, Password: cred.APIKey}
	return rest.NewAdapter(cred.BaseURL, auth, n.restOpts...), nil
}
