package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"ali-crawler/models"
	"ali-crawler/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// productIDRegexp captures the numeric item id of a product URL
	productIDRegexp = regexp.MustCompile(`/(\d+)\.html`)
)

// Cleaner normalises scraped product records before they are loaded or reported on.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// CleanDetails drops details without a URL and keeps the first detail seen
// for every product. Titles and free text fields are whitespace-normalised.
func (c *Cleaner) CleanDetails(raw []models.ProductDetail) []models.ProductDetail {
	seen := make(map[string]struct{})
	result := make([]models.ProductDetail, 0, len(raw))

	for _, d := range raw {
		url := strings.TrimSpace(d.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping product with empty URL: %s", d.Title)
			continue
		}

		key := productKey(url)
		if _, dup := seen[key]; dup {
			c.logger.Debug("[cleaner] Duplicate product skipped: %s", url)
			continue
		}
		seen[key] = struct{}{}

		d.URL = url
		d.Title = NormaliseText(d.Title)
		d.Delivery = NormaliseText(d.Delivery)
		d.Discount = NormaliseText(d.Discount)
		result = append(result, d)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d products (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// NormaliseText trims s and collapses internal whitespace.
func (c *Cleaner) NormaliseText(s string) string {
	return NormaliseText(s)
}

// ParsePrice extracts the first amount from a displayed price.
// Examples:
//
//	"US $12.34"  → 12.34
//	"NGN1,234.50" → 1234.50
//	"Free"       → 0
func (c *Cleaner) ParsePrice(raw string) float64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		c.logger.Debug("[cleaner] Unparseable price %q: %v", raw, err)
		return 0
	}
	return price
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// productKey identifies a product by its item id, falling back to the URL
// without scheme and query.
func productKey(url string) string {
	if m := productIDRegexp.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	url = strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	return url
}
