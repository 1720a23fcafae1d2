package bamboohr

import "github.com/wehubfusion/Talos/pkg/catalog"

// NodeName is the type name the platform dispatches runs under.
const NodeName = "bambooHr"

// CredentialType names the credential payload shape this node consumes.
const CredentialType = "bambooHrApi"

func description() *catalog.Description {
	return &catalog.Description{
		Name:        NodeName,
		DisplayName: "BambooHR",
		Description: "Consume BambooHR API",
		Version:     1,
		Group:       []string{"output"},
		Credentials: []catalog.CredentialRef{
			{Name: CredentialType, Required: true},
		},
		Properties: []catalog.Property{
			{
				Name:        "resource",
				DisplayName: "Resource",
				Type:        catalog.TypeOptions,
				Default:     "employee",
				Options: []catalog.Option{
					{Name: "Company Report", Value: "companyReport"},
					{Name: "Employee", Value: "employee"},
					{Name: "Employee Document", Value: "employeeDocument"},
				},
			},

			// employee operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "get",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"employee"}},
				},
				Options: []catalog.Option{
					{Name: "Create", Value: "create", Description: "Create an employee"},
					{Name: "Get", Value: "get", Description: "Get an employee"},
					{Name: "Get Many", Value: "getAll", Description: "Get the employee directory"},
					{Name: "Update", Value: "update", Description: "Update an employee"},
				},
			},
			{
				Name:        "employeeId",
				DisplayName: "Employee ID",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employee"},
						"operation": {"get", "update"},
					},
				},
			},
			{
				Name:        "firstName",
				DisplayName: "First Name",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employee"},
						"operation": {"create"},
					},
				},
			},
			{
				Name:        "lastName",
				DisplayName: "Last Name",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employee"},
						"operation": {"create"},
					},
				},
			},
			{
				Name:        "fields",
				DisplayName: "Fields",
				Type:        catalog.TypeString,
				Default:     "displayName,jobTitle,workEmail",
				Description: "Comma-separated list of fields to return",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employee"},
						"operation": {"get"},
					},
				},
			},
			{
				Name:        "updateFields",
				DisplayName: "Update Fields",
				Type:        catalog.TypeFixedCollection,
				Placeholder: "Add Field",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employee"},
						"operation": {"create", "update"},
					},
				},
				Values: []catalog.Property{
					{Name: "name", DisplayName: "Name", Type: catalog.TypeString},
					{Name: "value", DisplayName: "Value", Type: catalog.TypeString},
				},
			},

			// employee document operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "getAll",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"employeeDocument"}},
				},
				Options: []catalog.Option{
					{Name: "Delete", Value: "delete", Description: "Delete a document"},
					{Name: "Download", Value: "download", Description: "Download a document"},
					{Name: "Get Many", Value: "getAll", Description: "List an employee's documents"},
					{Name: "Upload", Value: "upload", Description: "Upload a document"},
				},
			},
			{
				Name:        "documentEmployeeId",
				DisplayName: "Employee ID",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"employeeDocument"}},
				},
			},
			{
				Name:        "fileId",
				DisplayName: "File ID",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employeeDocument"},
						"operation": {"delete", "download"},
					},
				},
			},
			{
				Name:        "fileName",
				DisplayName: "File Name",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employeeDocument"},
						"operation": {"upload"},
					},
				},
			},
			{
				Name:        "fileContent",
				DisplayName: "File Content",
				Type:        catalog.TypeString,
				Required:    true,
				Description: "Base64-encoded content of the document",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employeeDocument"},
						"operation": {"upload"},
					},
				},
			},
			{
				Name:        "category",
				DisplayName: "Category ID",
				Type:        catalog.TypeString,
				Required:    true,
				Description: "ID of the document category",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employeeDocument"},
						"operation": {"upload"},
					},
				},
			},
			{
				Name:        "shareWithEmployee",
				DisplayName: "Share With Employee",
				Type:        catalog.TypeBoolean,
				Default:     true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"employeeDocument"},
						"operation": {"upload"},
					},
				},
			},

			// company report operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "get",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"companyReport"}},
				},
				Options: []catalog.Option{
					{Name: "Get", Value: "get", Description: "Run a company report"},
				},
			},
			{
				Name:        "reportId",
				DisplayName: "Report ID",
				Type:        catalog.TypeString,
				Required:    true,
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"companyReport"}},
				},
			},
			{
				Name:        "duplicateFields",
				DisplayName: "Duplicate Fields",
				Type:        catalog.TypeBoolean,
				Default:     false,
				Description: "Whether to keep duplicate fields in the report output",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"companyReport"}},
				},
			},
		},
	}
}
