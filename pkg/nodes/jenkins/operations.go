package jenkins

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wehubfusion/Talos/pkg/catalog"
	"github.com/wehubfusion/Talos/pkg/engine"
	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/normalize"
	"github.com/wehubfusion/Talos/pkg/rest"
)

// triggerJob issues a plain build trigger for a job.
func (n *Node) triggerJob(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	job, err := requiredString(rc.Params, "job")
	if err != nil {
		return nil, err
	}

	req := rest.Request{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/job/%s/build", url.PathEscape(job)),
		Query:    tokenQuery(rc.Params),
	}

	if _, err := adapter.Do(ctx, req); err != nil {
		return nil, err
	}

	return map[string]any{"job": job, "triggered": true}, nil
}

// triggerJobWithParams triggers a parameterized build. The ordered
// name/value list folds into a form body; duplicate names silently
// overwrite, last value wins.
func (n *Node) triggerJobWithParams(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	job, err := requiredString(rc.Params, "job")
	if err != nil {
		return nil, err
	}

	pairs := rc.Params.GetPairs("param", "parameter")
	folded := catalog.FoldPairs(pairs)

	req := rest.Request{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/job/%s/buildWithParameters", url.PathEscape(job)),
		Query:    tokenQuery(rc.Params),
		FormData: folded,
	}

	if _, err := adapter.Do(ctx, req); err != nil {
		return nil, err
	}

	return map[string]any{"job": job, "triggered": true, "parameters": folded}, nil
}

// copyJob creates a new job as a copy of an existing one.
func (n *Node) copyJob(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	job, err := requiredString(rc.Params, "job")
	if err != nil {
		return nil, err
	}
	newJob, err := requiredString(rc.Params, "newJob")
	if err != nil {
		return nil, err
	}

	req := rest.Request{
		Method:   http.MethodPost,
		Endpoint: "/createItem",
		Query: map[string]string{
			"name": newJob,
			"mode": "copy",
			"from": job,
		},
	}

	if _, err := adapter.Do(ctx, req); err != nil {
		return nil, err
	}

	return map[string]any{"job": newJob, "copiedFrom": job}, nil
}

// createJob creates a job from a raw config.xml document.
func (n *Node) createJob(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	newJob, err := requiredString(rc.Params, "newJob")
	if err != nil {
		return nil, err
	}
	xml, err := requiredString(rc.Params, "xml")
	if err != nil {
		return nil, err
	}

	req := rest.Request{
		Method:   http.MethodPost,
		Endpoint: "/createItem",
		Query:    map[string]string{"name": newJob},
		Headers:  map[string]string{"Content-Type": "application/xml"},
		RawBody:  []byte(xml),
	}

	if _, err := adapter.Do(ctx, req); err != nil {
		return nil, err
	}

	return map[string]any{"job": newJob, "created": true}, nil
}

// instanceOp returns the handler for one instance lifecycle operation. Only
// quietDown takes an optional reason query. No client-side dedup: issuing
// the same operation twice issues two POSTs.
func (n *Node) instanceOp(op string) engine.Handler {
	return func(ctx context.Context, rc *engine.RunContext) (any, error) {
		adapter, err := n.adapter(rc)
		if err != nil {
			return nil, err
		}

		req := rest.Request{
			Method:   http.MethodPost,
			Endpoint: "/" + op,
		}

		result := map[string]any{"operation": op, "success": true}

		if op == "quietDown" {
			if reason := rc.Params.GetString("reason", ""); reason != "" {
				req.Query = map[string]string{"reason": reason}
				result["reason"] = reason
			}
		}

		if _, err := adapter.Do(ctx, req); err != nil {
			return nil, err
		}

		return result, nil
	}
}

// listBuilds queries the instance's XML API and returns the parsed object.
// depth defaults to 1 when unset.
func (n *Node) listBuilds(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	query := map[string]string{
		"depth": strconv.Itoa(rc.Params.GetInt("depth", 1)),
	}
	for _, name := range []string{"tree", "xpath", "exclude"} {
		if v := rc.Params.GetString(name, ""); v != "" {
			query[name] = v
		}
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/xml",
		Query:    query,
	})
	if err != nil {
		return nil, err
	}

	return normalize.ParseXML(body)
}

func requiredString(params catalog.Parameters, name string) (string, error) {
	v := params.GetString(name, "")
	if v == "" {
		return "", sdkerrors.NewValidationError("",
			fmt.Sprintf("required parameter %q is missing", name),
			sdkerrors.ErrorCodeConfiguration, nil)
	}
	return v, nil
}

func tokenQuery(params catalog.Parameters) map[string]string {
	if token := params.GetString("token", ""); token != "" {
		return map[string]string{"token": token}
	}
	return nil
}
