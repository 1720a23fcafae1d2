package jenkins

import "github.com/wehubfusion/Talos/pkg/catalog"

// NodeName is the type name the platform dispatches runs under.
const NodeName = "jenkins"

// CredentialType names the credential payload shape this node consumes.
const CredentialType = "jenkinsApi"

func description() *catalog.Description {
	return &catalog.Description{
		Name:        NodeName,
		DisplayName: "Jenkins",
		Description: "Consume Jenkins API",
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
				Default:     "job",
				Options: []catalog.Option{
					{Name: "Build", Value: "build", Description: "List builds of the Jenkins instance"},
					{Name: "Instance", Value: "instance", Description: "Manage the Jenkins instance"},
					{Name: "Job", Value: "job", Description: "Trigger, copy and create jobs"},
				},
			},

			// job operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "trigger",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"job"}},
				},
				Options: []catalog.Option{
					{Name: "Copy", Value: "copy", Description: "Copy a specific job"},
					{Name: "Create", Value: "create", Description: "Create a new job"},
					{Name: "Trigger", Value: "trigger", Description: "Trigger a specific job"},
					{Name: "Trigger with Parameters", Value: "triggerParams", Description: "Trigger a specific job with parameters"},
				},
			},
			{
				Name:        "job",
				DisplayName: "Job Name",
				Type:        catalog.TypeString,
				Required:    true,
				Description: "Name of the job",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"job"},
						"operation": {"trigger", "triggerParams", "copy"},
					},
				},
			},
			{
				Name:        "token",
				DisplayName: "Trigger Token",
				Type:        catalog.TypeString,
				Description: "Authorization token configured on the job",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"job"},
						"operation": {"trigger", "triggerParams"},
					},
				},
			},
			{
				Name:        "param",
				DisplayName: "Parameters",
				Type:        catalog.TypeFixedCollection,
				Description: "Parameters to pass to the build",
				Placeholder: "Add Parameter",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"job"},
						"operation": {"triggerParams"},
					},
				},
				Values: []catalog.Property{
					{Name: "name", DisplayName: "Name", Type: catalog.TypeString},
					{Name: "value", DisplayName: "Value", Type: catalog.TypeString},
				},
			},
			{
				Name:        "newJob",
				DisplayName: "New Job Name",
				Type:        catalog.TypeString,
				Required:    true,
				Description: "Name of the new job",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"job"},
						"operation": {"copy", "create"},
					},
				},
			},
			{
				Name:        "xml",
				DisplayName: "XML",
				Type:        catalog.TypeString,
				Required:    true,
				Description: "XML of the job config",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"job"},
						"operation": {"create"},
					},
				},
			},

			// instance operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "quietDown",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"instance"}},
				},
				Options: []catalog.Option{
					{Name: "Cancel Quiet Down", Value: "cancelQuietDown", Description: "Cancel quiet down state"},
					{Name: "Quiet Down", Value: "quietDown", Description: "Put Jenkins in quiet mode, no builds can be started, Jenkins is ready for shutdown"},
					{Name: "Restart", Value: "restart", Description: "Restart Jenkins immediately on environments where it is possible"},
					{Name: "Safely Restart", Value: "safeRestart", Description: "Restart Jenkins once no jobs are running"},
					{Name: "Safely Shut Down", Value: "safeExit", Description: "Shut down once no jobs are running"},
					{Name: "Shut Down", Value: "exit", Description: "Shut down Jenkins immediately"},
				},
			},
			{
				Name:        "reason",
				DisplayName: "Reason",
				Type:        catalog.TypeString,
				Description: "Freeform reason for quiet down mode",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{
						"resource":  {"instance"},
						"operation": {"quietDown"},
					},
				},
			},

			// build operations
			{
				Name:        "operation",
				DisplayName: "Operation",
				Type:        catalog.TypeOptions,
				Default:     "getAll",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"build"}},
				},
				Options: []catalog.Option{
					{Name: "Get Many", Value: "getAll", Description: "List builds"},
				},
			},
			{
				Name:        "depth",
				DisplayName: "Depth",
				Type:        catalog.TypeNumber,
				Default:     1,
				Description: "How much data to return, see the Jenkins remote access API docs",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"build"}},
				},
			},
			{
				Name:        "tree",
				DisplayName: "Tree",
				Type:        catalog.TypeString,
				Description: "Filter the returned object graph, e.g. jobs[name,builds[number]]",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"build"}},
				},
			},
			{
				Name:        "xpath",
				DisplayName: "XPath",
				Type:        catalog.TypeString,
				Description: "Select a subset of the XML response",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"build"}},
				},
			},
			{
				Name:        "exclude",
				DisplayName: "Exclude",
				Type:        catalog.TypeString,
				Description: "Exclude nodes matching this XPath from the response",
				DisplayOptions: &catalog.DisplayOptions{
					Show: map[string][]any{"resource": {"build"}},
				},
			},
		},
	}
}
