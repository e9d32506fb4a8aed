// Package scraper describes requests to a managed rendering/parsing service
// and the contract every rendering backend satisfies.
package scraper

import (
	"context"
	"encoding/json"
)

// SourceUniversalEcommerce is the scraping API source used for every query.
const SourceUniversalEcommerce = "universal_ecommerce"

// Query is the JSON request body sent to the scraping API.
type Query struct {
	Source              string        `json:"source"`
	URL                 string        `json:"url"`
	GeoLocation         string        `json:"geo_location,omitempty"`
	Locale              string        `json:"locale,omitempty"`
	UserAgentType       string        `json:"user_agent_type,omitempty"`
	Render              string        `json:"render,omitempty"`
	BrowserInstructions []Instruction `json:"browser_instructions,omitempty"`
	Parse               bool          `json:"parse,omitempty"`
	ParsingInstructions Schema        `json:"parsing_instructions,omitempty"`
}

// Backend executes a Query and returns the extracted content.
type Backend interface {
	Do(ctx context.Context, q *Query) (Content, error)
}

// Instruction is a browser interaction performed before extraction.
type Instruction struct {
	Type     string
	X, Y     int
	WaitTime float64
	Selector Selector
}

// Selector locates an element for a click instruction.
type Selector struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Scroll scrolls the page by (x, y) and waits waitSeconds afterwards.
func Scroll(x, y int, waitSeconds float64) Instruction {
	return Instruction{Type: "scroll", X: x, Y: y, WaitTime: waitSeconds}
}

// ClickXPath clicks the element matching the XPath expression.
func ClickXPath(expr string) Instruction {
	return Instruction{Type: "click", Selector: Selector{Type: "xpath", Value: expr}}
}

// Repeat returns n copies of in.
func Repeat(in Instruction, n int) []Instruction {
	out := make([]Instruction, n)
	for i := range out {
		out[i] = in
	}
	return out
}

func (in Instruction) MarshalJSON() ([]byte, error) {
	switch in.Type {
	case "scroll":
		return json.Marshal(struct {
			Type     string  `json:"type"`
			X        int     `json:"x"`
			Y        int     `json:"y"`
			WaitTime float64 `json:"wait_time_s"`
		}{in.Type, in.X, in.Y, in.WaitTime})
	case "click":
		return json.Marshal(struct {
			Type     string   `json:"type"`
			Selector Selector `json:"selector"`
		}{in.Type, in.Selector})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{in.Type})
	}
}
