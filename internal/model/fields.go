package model

import "strconv"

type CustomFieldType string

const (
	FieldEnum   CustomFieldType = "enum"
	FieldNumber CustomFieldType = "number"
	FieldText   CustomFieldType = "text"
)

type EnumOption struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type CustomFieldDescriptor struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        CustomFieldType `json:"type"`
	EnumOptions []EnumOption    `json:"enum_options,omitempty"`
}

// EnabledOptions returns the enum options that may be picked, in source order.
func (d CustomFieldDescriptor) EnabledOptions() []EnumOption {
	out := make([]EnumOption, 0, len(d.EnumOptions))
	for _, o := range d.EnumOptions {
		if o.Enabled {
			out = append(out, o)
		}
	}
	return out
}

type CustomFieldSetting struct {
	ID          int64                 `json:"id,omitempty"`
	CustomField CustomFieldDescriptor `json:"custom_field"`
}

// FieldValue is a coerced custom field value: EnumValue, NumberValue or TextValue.
type FieldValue interface {
	fieldType() CustomFieldType
	JSONValue() any
}

type EnumValue int64

type NumberValue int64

type TextValue string

func (EnumValue) fieldType() CustomFieldType   { return FieldEnum }
func (NumberValue) fieldType() CustomFieldType { return FieldNumber }
func (TextValue) fieldType() CustomFieldType   { return FieldText }

func (v EnumValue) JSONValue() any   { return int64(v) }
func (v NumberValue) JSONValue() any { return int64(v) }
func (v TextValue) JSONValue() any   { return string(v) }

// TypeOf reports which union member v is.
func TypeOf(v FieldValue) CustomFieldType {
	if v == nil {
		return ""
	}
	return v.fieldType()
}

// CustomFieldPayload renders values as the API expects: keyed by decimal field id.
func CustomFieldPayload(values map[int64]FieldValue) map[string]any {
	out := make(map[string]any, len(values))
	for id, v := range values {
		if v == nil {
			continue
		}
		out[strconv.FormatInt(id, 10)] = v.JSONValue()
	}
	return out
}
