package bamboohr

import (
	"context"
	"encoding/base64"
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

var jsonAccept = map[string]string{"Accept": "application/json"}

// createEmployee creates an employee record from the required name fields
// plus any additional update fields.
func (n *Node) createEmployee(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	firstName, err := requiredString(rc.Params, "firstName")
	if err != nil {
		return nil, err
	}
	lastName, err := requiredString(rc.Params, "lastName")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
	}
	for name, value := range foldedUpdateFields(rc.Params) {
		body[name] = value
	}

	if _, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodPost,
		Endpoint: "/employees",
		Body:     body,
	}); err != nil {
		return nil, err
	}

	return map[string]any{"firstName": firstName, "lastName": lastName, "created": true}, nil
}

// getEmployee fetches one employee record with the selected fields.
func (n *Node) getEmployee(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "employeeId")
	if err != nil {
		return nil, err
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("/employees/%s", url.PathEscape(id)),
		Query:    map[string]string{"fields": rc.Params.GetString("fields", "displayName,jobTitle,workEmail")},
		Headers:  jsonAccept,
	})
	if err != nil {
		return nil, err
	}

	return normalize.ParseJSON(body)
}

// getEmployees fetches the employee directory. The directory's employee
// list is returned directly so each employee becomes one output item.
func (n *Node) getEmployees(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: "/employees/directory",
		Headers:  jsonAccept,
	})
	if err != nil {
		return nil, err
	}

	value, err := normalize.ParseJSON(body)
	if err != nil {
		return nil, err
	}

	if directory, ok := value.(map[string]any); ok {
		if employees, ok := directory["employees"]; ok {
			return employees, nil
		}
	}
	return value, nil
}

// updateEmployee applies the update fields to an employee record.
func (n *Node) updateEmployee(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "employeeId")
	if err != nil {
		return nil, err
	}

	fields := foldedUpdateFields(rc.Params)
	if len(fields) == 0 {
		return nil, sdkerrors.NewValidationError("", "at least one update field is required", sdkerrors.ErrorCodeConfiguration, nil)
	}

	body := make(map[string]any, len(fields))
	for name, value := range fields {
		body[name] = value
	}

	if _, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/employees/%s", url.PathEscape(id)),
		Body:     body,
	}); err != nil {
		return nil, err
	}

	return map[string]any{"employeeId": id, "updated": true}, nil
}

// uploadDocument uploads a base64-encoded file to an employee's documents.
func (n *Node) uploadDocument(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "documentEmployeeId")
	if err != nil {
		return nil, err
	}
	fileName, err := requiredString(rc.Params, "fileName")
	if err != nil {
		return nil, err
	}
	encoded, err := requiredString(rc.Params, "fileContent")
	if err != nil {
		return nil, err
	}
	category, err := requiredString(rc.Params, "category")
	if err != nil {
		return nil, err
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, sdkerrors.NewValidationError("", "fileContent is not valid base64", sdkerrors.ErrorCodeConfiguration, err)
	}

	share := "yes"
	if !rc.Params.GetBool("shareWithEmployee", true) {
		share = "no"
	}

	if _, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/employees/%s/files", url.PathEscape(id)),
		FormData: map[string]string{
			"category":          category,
			"fileName":          fileName,
			"shareWithEmployee": share,
		},
		File: &rest.FileUpload{Param: "file", FileName: fileName, Content: content},
	}); err != nil {
		return nil, err
	}

	return map[string]any{"employeeId": id, "fileName": fileName, "uploaded": true}, nil
}

// listDocuments lists an employee's documents. The endpoint answers in
// XML; the parsed object is returned as a single item.
func (n *Node) listDocuments(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "documentEmployeeId")
	if err != nil {
		return nil, err
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("/employees/%s/files/view", url.PathEscape(id)),
	})
	if err != nil {
		return nil, err
	}

	return normalize.ParseXML(body)
}

// downloadDocument fetches a document's raw bytes and returns them
// base64-encoded alongside the file metadata.
func (n *Node) downloadDocument(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "documentEmployeeId")
	if err != nil {
		return nil, err
	}
	fileID, err := requiredString(rc.Params, "fileId")
	if err != nil {
		return nil, err
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("/employees/%s/files/%s", url.PathEscape(id), url.PathEscape(fileID)),
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"employeeId": id,
		"fileId":     fileID,
		"content":    base64.StdEncoding.EncodeToString(body),
		"size":       len(body),
	}, nil
}

// deleteDocument removes a document from an employee's records.
func (n *Node) deleteDocument(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	id, err := requiredString(rc.Params, "documentEmployeeId")
	if err != nil {
		return nil, err
	}
	fileID, err := requiredString(rc.Params, "fileId")
	if err != nil {
		return nil, err
	}

	if _, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodDelete,
		Endpoint: fmt.Sprintf("/employees/%s/files/%s", url.PathEscape(id), url.PathEscape(fileID)),
	}); err != nil {
		return nil, err
	}

	return map[string]any{"employeeId": id, "fileId": fileID, "deleted": true}, nil
}

// getCompanyReport runs a saved company report and returns its JSON output.
func (n *Node) getCompanyReport(ctx context.Context, rc *engine.RunContext) (any, error) {
	adapter, err := n.adapter(rc)
	if err != nil {
		return nil, err
	}

	reportID, err := requiredString(rc.Params, "reportId")
	if err != nil {
		return nil, err
	}

	body, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("/reports/%s", url.PathEscape(reportID)),
		Query: map[string]string{
			"format": "JSON",
			"fd":     strconv.FormatBool(rc.Params.GetBool("duplicateFields", false)),
		},
		Headers: jsonAccept,
	})
	if err != nil {
		return nil, err
	}

	return normalize.ParseJSON(body)
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

func foldedUpdateFields(params catalog.Parameters) map[string]string {
	return catalog.FoldPairs(params.GetPairs("updateFields", "field"))
}
