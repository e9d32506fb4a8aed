package scraper

import (
	"bytes"
	"encoding/json"
)

// Function names understood by the extraction schema.
const (
	FnXPath            = "xpath"
	FnXPathOne         = "xpath_one"
	FnJoin             = "join"
	FnRegexFindAll     = "regex_find_all"
	FnAmountFromString = "amount_from_string"
)

// Fn is one step of a field's extraction pipeline.
type Fn struct {
	Name string
	Args any
}

func (f Fn) MarshalJSON() ([]byte, error) {
	if f.Args == nil {
		return json.Marshal(struct {
			Name string `json:"_fn"`
		}{f.Name})
	}
	return json.Marshal(struct {
		Name string `json:"_fn"`
		Args any    `json:"_args"`
	}{f.Name, f.Args})
}

// XPath selects every node matching expr.
func XPath(expr string) Fn { return Fn{Name: FnXPath, Args: []string{expr}} }

// XPathOne selects the first node matching expr.
func XPathOne(expr string) Fn { return Fn{Name: FnXPathOne, Args: []string{expr}} }

// Join concatenates a list of strings with sep.
func Join(sep string) Fn { return Fn{Name: FnJoin, Args: sep} }

// RegexFindAll returns every match of pattern (the first group when present).
func RegexFindAll(pattern string) Fn { return Fn{Name: FnRegexFindAll, Args: []string{pattern}} }

// AmountFromString parses the first number found in a string.
func AmountFromString() Fn { return Fn{Name: FnAmountFromString} }

// Field describes how to extract one value. When Items or Fields is set, Fns
// must yield a list and each element is processed by Items (a pipeline) or
// Fields (a nested schema producing one object per element).
type Field struct {
	Fns    []Fn
	Items  *Field
	Fields Schema
}

func (f Field) MarshalJSON() ([]byte, error) {
	out := struct {
		Fns   []Fn `json:"_fns,omitempty"`
		Items any  `json:"_items,omitempty"`
	}{Fns: f.Fns}
	switch {
	case len(f.Fields) > 0:
		out.Items = f.Fields
	case f.Items != nil:
		out.Items = f.Items
	}
	return json.Marshal(out)
}

// NamedField binds an output key to its Field.
type NamedField struct {
	Name  string
	Field Field
}

// Schema is an ordered set of named fields. It marshals to a JSON object whose
// keys keep declaration order.
type Schema []NamedField

func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nf := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nf.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(nf.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
