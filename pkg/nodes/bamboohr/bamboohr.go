// Package bamboohr implements the BambooHR integration node: employee
// records, employee documents and company reports. All calls go through
// the account's API gateway with the API key as basic-auth username.
package bamboohr

import (
	"context"
	"encoding/json"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/credentials"
	"github.com/wehubfusion/Talos/pkg/engine"
	"github.com/wehubfusion/Talos/pkg/rest"
)

// Node is the BambooHR integration.
type Node struct {
	restOpts []rest.Option
	gateway  string // overrides the credential-derived base URL when set
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

// WithGateway overrides the API gateway root. Used by tests.
func WithGateway(baseURL string) Option {
	return func(n *Node) {
		n.gateway = baseURL
	}
}

// New creates the BambooHR node.
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
		{Resource: "employee", Operation: "create"}: n.createEmployee,
		{Resource: "employee", Operation: "get"}:    n.getEmployee,
		{Resource: "employee", Operation: "getAll"}: n.getEmployees,
		{Resource: "employee", Operation: "update"}: n.updateEmployee,

		{Resource: "employeeDocument", Operation: "upload"}:   n.uploadDocument,
		{Resource: "employeeDocument", Operation: "getAll"}:   n.listDocuments,
		{Resource: "employeeDocument", Operation: "download"}: n.downloadDocument,
		{Resource: "employeeDocument", Operation: "delete"}:   n.deleteDocument,

		{Resource: "companyReport", Operation: "get"}: n.getCompanyReport,
	}
}

// TestCredential implements engine.Integration.
func (n *Node) TestCredential(ctx context.Context, raw json.RawMessage) error {
	var cred credentials.BambooHR
	if err := credentials.Decode(raw, &cred); err != nil {
		return err
	}
	return cred.Test(ctx, n.restOpts...)
}

// adapter builds the request adapter for the run's credential payload.
func (n *Node) adapter(rc *engine.RunContext) (*rest.Adapter, error) {
	var cred credentials.BambooHR
	if err := credentials.Decode(rc.Credentials, &cred); err != nil {
		return nil, err
	}

	baseURL := cred.BaseURL()
	if n.gateway != "" {
		baseURL = n.gateway
	}

	auth := &rest.BasicAuth{Username: cred.APIKey, Password: "x"}
	return rest.NewAdapter(baseURL, auth, n.restOpts...), nil
}
