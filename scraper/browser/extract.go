package browser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"ali-crawler/scraper"
)

var (
	// leafStepRegexp matches XPath expressions whose last step yields strings.
	leafStepRegexp = regexp.MustCompile(`(text\(\)|@[\w:-]+)\s*$`)
	amountRegexp   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// Extract evaluates schema against an HTML document and returns the result
// encoded the same way the scraping API returns parsed content.
func Extract(doc *html.Node, schema scraper.Schema) (scraper.Content, error) {
	out, err := extractSchema(doc, schema)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("browser: encode extracted content: %w", err)
	}
	return scraper.Content(raw), nil
}

func extractSchema(node *html.Node, schema scraper.Schema) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	for _, nf := range schema {
		v, err := extractField(node, nf.Field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", nf.Name, err)
		}
		out[nf.Name] = v
	}
	return out, nil
}

func extractField(node *html.Node, f scraper.Field) (any, error) {
	var v any = node
	for _, fn := range f.Fns {
		var err error
		if v, err = apply(fn, v); err != nil {
			return nil, err
		}
	}

	if len(f.Fields) == 0 && f.Items == nil {
		return finalize(v), nil
	}

	list := asList(v)
	items := make([]any, 0, len(list))
	for _, el := range list {
		n, ok := el.(*html.Node)
		if !ok {
			continue
		}
		var (
			item any
			err  error
		)
		if len(f.Fields) > 0 {
			item, err = extractSchema(n, f.Fields)
		} else {
			item, err = extractField(n, *f.Items)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func apply(fn scraper.Fn, v any) (any, error) {
	switch fn.Name {
	case scraper.FnXPath, scraper.FnXPathOne:
		expr, err := firstArg(fn)
		if err != nil {
			return nil, err
		}
		results, err := queryAll(v, expr)
		if err != nil {
			return nil, err
		}
		if fn.Name == scraper.FnXPathOne {
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		}
		return results, nil

	case scraper.FnJoin:
		sep, _ := fn.Args.(string)
		list := asList(v)
		parts := make([]string, 0, len(list))
		for _, el := range list {
			parts = append(parts, toText(el))
		}
		return strings.Join(parts, sep), nil

	case scraper.FnRegexFindAll:
		pattern, err := firstArg(fn)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("regex_find_all: %w", err)
		}
		if v == nil {
			return nil, nil
		}
		var matches []any
		for _, m := range re.FindAllStringSubmatch(toText(v), -1) {
			if len(m) > 1 {
				matches = append(matches, m[1])
			} else {
				matches = append(matches, m[0])
			}
		}
		return matches, nil

	case scraper.FnAmountFromString:
		if v == nil {
			return nil, nil
		}
		m := amountRegexp.FindString(toText(v))
		if m == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			return nil, nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported function %q", fn.Name)
}

func queryAll(v any, expr string) ([]any, error) {
	leaf := leafStepRegexp.MatchString(expr)
	var out []any
	for _, el := range asList(v) {
		n, ok := el.(*html.Node)
		if !ok {
			continue
		}
		nodes, err := htmlquery.QueryAll(n, expr)
		if err != nil {
			return nil, fmt.Errorf("xpath %q: %w", expr, err)
		}
		for _, found := range nodes {
			if leaf {
				out = append(out, htmlquery.InnerText(found))
			} else {
				out = append(out, found)
			}
		}
	}
	return out, nil
}

func firstArg(fn scraper.Fn) (string, error) {
	switch args := fn.Args.(type) {
	case []string:
		if len(args) > 0 {
			return args[0], nil
		}
	case string:
		return args, nil
	}
	return "", fmt.Errorf("%s: missing argument", fn.Name)
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *html.Node:
		return strings.TrimSpace(htmlquery.InnerText(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			parts = append(parts, toText(el))
		}
		return strings.Join(parts, "")
	}
	return fmt.Sprint(v)
}

// finalize converts nodes left at the end of a pipeline into their text.
func finalize(v any) any {
	switch t := v.(type) {
	case *html.Node:
		return toText(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = finalize(el)
		}
		return out
	}
	return v
}
