// Package catalog defines the declarative parameter schema for integration
// nodes: resources, operations, fields and their display-conditional
// visibility. The catalog is purely descriptive; it is consumed by the host
// UI for rendering and by the engine for typed parameter access.
package catalog

import "encoding/json"

// ParameterType represents the data type of a node parameter
type ParameterType string

// Supported parameter types
const (
	TypeString          ParameterType = "string"
	TypeNumber          ParameterType = "number"
	TypeBoolean         ParameterType = "boolean"
	TypeOptions         ParameterType = "options"
	TypeCollection      ParameterType = "collection"
	TypeFixedCollection ParameterType = "fixedCollection"
	TypeJSON            ParameterType = "json"
)

// Option is a single selectable value for a TypeOptions parameter
type Option struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// DisplayOptions restricts when a parameter is shown. Show is a conjunction:
// the parameter is visible only if every named parameter's current value is
// in its allowed set. Hide wins over Show when both match.
type DisplayOptions struct {
	Show map[string][]any `json:"show,omitempty"`
	Hide map[string][]any `json:"hide,omitempty"`
}

// Property represents a single parameter definition
type Property struct {
	Name           string          `json:"name"`
	DisplayName    string          `json:"displayName"`
	Type           ParameterType   `json:"type"`
	Default        any             `json:"default,omitempty"`
	Required       bool            `json:"required,omitempty"`
	Description    string          `json:"description,omitempty"`
	Placeholder    string          `json:"placeholder,omitempty"`
	Options        []Option        `json:"options,omitempty"`
	DisplayOptions *DisplayOptions `json:"displayOptions,omitempty"`

	// Values describes the repeated group of a fixedCollection parameter
	Values []Property `json:"values,omitempty"`
}

// CredentialRef names a credential type the node can use
type CredentialRef struct {
	Name     string `json:"name"`
	Required bool   `json:"required,omitempty"`
}

// Description is the complete declarative description of a node type
type Description struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description,omitempty"`
	Version     int             `json:"version"`
	Group       []string        `json:"group,omitempty"`
	Credentials []CredentialRef `json:"credentials,omitempty"`
	Properties  []Property      `json:"properties"`
}

// Pair is one ordered name/value entry of a fixedCollection parameter
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ToJSON serializes a description for transmission to the host UI
func (d *Description) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

// Property returns the property definition with the given name, or nil
func (d *Description) Property(name string) *Property {
	for i := range d.Properties {
		if d.Properties[i].Name == name {
			return &d.Properties[i]
		}
	}
	return nil
}

// ParameterDefault returns the declared default for a parameter name.
// The second return reports whether the parameter is declared at all.
func (d *Description) ParameterDefault(name string) (any, bool) {
	p := d.Property(name)
	if p == nil {
		return nil, false
	}
	return p.Default, true
}
