// Package normalize reshapes API responses into the platform's uniform
// item-array output: array responses flatten to one item per element,
// everything else becomes exactly one item. XML responses are converted to
// JSON-compatible objects before normalization.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/clbanning/mxj/v2"

	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
)

// Item is a single JSON-compatible output record.
type Item map[string]any

// Items normalizes a response value into output items. An array of N
// elements contributes N items in original order; any other value
// contributes exactly one item. Scalar array elements and scalar responses
// are wrapped under a "data" key so every item stays a mapping.
func Items(response any) []Item {
	switch v := response.(type) {
	case nil:
		return []Item{{}}
	case []any:
		items := make([]Item, 0, len(v))
		for _, element := range v {
			items = append(items, asItem(element))
		}
		return items
	case []Item:
		items := make([]Item, 0, len(v))
		items = append(items, v...)
		return items
	case []map[string]any:
		items := make([]Item, 0, len(v))
		for _, element := range v {
			items = append(items, Item(element))
		}
		return items
	default:
		return []Item{asItem(response)}
	}
}

// ErrorItem wraps a failure message in the shape appended to the output
// stream when a run is failure tolerant.
func ErrorItem(err error) Item {
	return Item{"error": err.Error()}
}

func asItem(value any) Item {
	if m, ok := value.(map[string]any); ok {
		return Item(m)
	}
	if m, ok := value.(Item); ok {
		return m
	}
	return Item{"data": value}
}

// ParseXML converts an XML document into a JSON-compatible object. Repeated
// sibling elements become a slice; single elements stay scalar values or
// nested objects. A malformed document fails the whole item.
func ParseXML(text []byte) (map[string]any, error) {
	mv, err := mxj.NewMapXml(text)
	if err != nil {
		return nil, sdkerrors.NewParseError("", "failed to parse XML response", sdkerrors.ErrorCodeParse, err)
	}
	return map[string]any(mv), nil
}

// ParseJSON decodes a JSON response body into a value suitable for Items.
func ParseJSON(body []byte) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, sdkerrors.NewParseError("", "failed to parse JSON response", sdkerrors.ErrorCodeParse,
			fmt.Errorf("unmarshal response body: %w", err))
	}
	return value, nil
}
