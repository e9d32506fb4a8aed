package aliexpress

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/scraper"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

const listingContent = `{"products": [
	{"Title": "Wireless Earbuds", "Price current": ["US $12.99"], "Price original": "US $25.00", "Sales amount": "5,000+ sold", "URL": ["www.aliexpress.com/item/1005001.html"]},
	{"Title": "Smart Watch", "Price current": ["US $30.00", "US $35.00"], "Price original": null, "Sales amount": null, "URL": ["www.aliexpress.com/item/1005002.html"]},
	{"Title": "Wireless Earbuds", "Price current": ["US $12.99"], "Price original": "US $25.00", "Sales amount": "5,000+ sold", "URL": ["www.aliexpress.com/item/1005001.html"]}
]}`

func TestTopSellingFetchPreservesOrder(t *testing.T) {
	backend := newFakeBackend().on("calp-plus", listingContent)
	f := NewTopSellingFetcher(backend, storage.Layout{Root: t.TempDir()}, utils.NopLogger())

	listings, urls, err := f.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, listings, 3)
	assert.Equal(t, []string{
		"www.aliexpress.com/item/1005001.html",
		"www.aliexpress.com/item/1005002.html",
		"www.aliexpress.com/item/1005001.html",
	}, urls)
	assert.Equal(t, "Smart Watch", listings[1].Title)
	assert.Equal(t, "US $30.00, US $35.00", listings[1].PriceCurrent)
	assert.Equal(t, "", listings[1].PriceOriginal)

	require.Len(t, backend.queries, 1)
	q := backend.queries[0]
	assert.Equal(t, CategoryURL, q.URL)
	assert.Equal(t, "Nigeria", q.GeoLocation)
	assert.Len(t, q.BrowserInstructions, 19)
	assert.True(t, q.Parse)
}

func TestTopSellingRunWritesFiles(t *testing.T) {
	layout := storage.Layout{Root: t.TempDir()}
	f := NewTopSellingFetcher(newFakeBackend().on("calp-plus", listingContent), layout, utils.NopLogger())

	urls, err := f.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, urls, 3)

	raw, err := os.ReadFile(layout.ListingURLsJSON())
	require.NoError(t, err)
	var stored []string
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, urls, stored)

	csvRaw, err := os.ReadFile(layout.ListingCSV())
	require.NoError(t, err)
	assert.Contains(t, string(csvRaw), "Title,Price current,Price original,Sales amount,URL\n")
	assert.Contains(t, string(csvRaw), `"US $30.00, US $35.00"`)
}

func TestTopSellingStatusErrorWritesNothing(t *testing.T) {
	layout := storage.Layout{Root: t.TempDir()}
	backend := newFakeBackend().fail("calp-plus", &scraper.StatusError{StatusCode: 401, Body: "unauthorized"})
	f := NewTopSellingFetcher(backend, layout, utils.NopLogger())

	_, err := f.Run(context.Background())
	var statusErr *scraper.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 401, statusErr.StatusCode)

	assert.NoFileExists(t, layout.ListingURLsJSON())
	assert.NoFileExists(t, layout.ListingCSV())
}

func TestTopSellingMissingProducts(t *testing.T) {
	f := NewTopSellingFetcher(newFakeBackend().on("calp-plus", `{"other": []}`),
		storage.Layout{Root: t.TempDir()}, utils.NopLogger())

	_, _, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, scraper.ErrMissingField)
}

func TestListingQueryShape(t *testing.T) {
	raw, err := json.Marshal(ListingQuery())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "universal_ecommerce", decoded["source"])
	assert.Equal(t, "html", decoded["render"])
	assert.Equal(t, "en-us", decoded["locale"])

	instructions := decoded["browser_instructions"].([]any)
	assert.Equal(t, map[string]any{"type": "scroll", "x": 0.0, "y": 2400.0, "wait_time_s": 2.0}, instructions[0])

	products := decoded["parsing_instructions"].(map[string]any)["products"].(map[string]any)
	assert.Contains(t, products, "_fns")
	assert.Contains(t, products["_items"], "URL")
}

func TestTopSellingBlocksWithoutURLKeepListingOnly(t *testing.T) {
	content := `{"products": [
		{"Title": "Earbuds", "URL": ["www.aliexpress.com/item/1005001.html"]},
		{"Title": "Sponsored tile", "URL": null},
		{"Title": "Cable"},
		{"Title": "Watch", "URL": ["www.aliexpress.com/item/1005002.html"]}
	]}`
	f := NewTopSellingFetcher(newFakeBackend().on("calp-plus", content), storage.Layout{Root: t.TempDir()}, utils.NopLogger())

	listings, urls, err := f.Fetch(context.Background())
	require.NoError(t, err)

	// Every block becomes a listing row; only blocks with a URL feed the detail steps.
	require.Len(t, listings, 4)
	assert.Equal(t, "Sponsored tile", listings[1].Title)
	assert.Empty(t, listings[1].URL)
	assert.Equal(t, []string{
		"www.aliexpress.com/item/1005001.html",
		"www.aliexpress.com/item/1005002.html",
	}, urls)
}
