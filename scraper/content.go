package scraper

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Content is the raw JSON value of results[0].content in an API response.
type Content []byte

// Get queries the content with a gjson path. An empty path returns the whole value.
func (c Content) Get(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(c)
	}
	return gjson.GetBytes(c, path)
}

// Text renders a parsed value as a single string: lists are joined with ", ",
// null and missing values become "".
func Text(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	if r.IsArray() {
		parts := make([]string, 0, len(r.Array()))
		for _, el := range r.Array() {
			parts = append(parts, Text(el))
		}
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(r.String())
}

// Number returns the numeric value of r or nil when r is null, missing or not numeric.
func Number(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Float()
		return &v
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return nil
		}
		return &v
	default:
		return nil
	}
}

// First returns the first element of a list, or r itself when it is a scalar.
func First(r gjson.Result) gjson.Result {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return gjson.Result{}
		}
		return arr[0]
	}
	return r
}
