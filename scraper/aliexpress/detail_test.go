package aliexpress

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/models"
	"ali-crawler/scraper"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

const detailContent = `{
	"Title": "Earbuds Pro",
	"Price current": ["US $12.99"],
	"Price original": "US $25.00",
	"Discount": "48% off",
	"Sold": 5000,
	"Rating": 4.8,
	"Reviews count": 1234,
	"Delivery": "Free delivery by Jun 12",
	"Specifications": [
		{"Title": "Brand Name", "Description": "ACME"},
		{"Title": "Origin", "Description": "Mainland China"},
		{"Title": "Battery", "Description": "400mAh"}
	]
}`

func TestFlattenSpecifications(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.SpecEntry
		want    *string
	}{
		{"empty", nil, nil},
		{"one", []models.SpecEntry{{Title: "A", Description: "1"}}, strPtr("A: 1")},
		{"ordered", []models.SpecEntry{{Title: "A", Description: "1"}, {Title: "B", Description: "2"}, {Title: "C", Description: ""}},
			strPtr("A: 1;\n B: 2;\n C: ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenSpecifications(tt.entries)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
			assert.Len(t, strings.Split(*got, ";\n "), len(tt.entries))
		})
	}
}

func TestDetailFetch(t *testing.T) {
	backend := newFakeBackend().on("1005001", detailContent)
	f := NewProductDetailFetcher(backend, storage.Layout{Root: t.TempDir()}, PolicyAbort, utils.NopLogger())

	d, err := f.Fetch(context.Background(), "www.aliexpress.com/item/1005001.html")
	require.NoError(t, err)

	assert.Equal(t, "1005001", d.ID)
	assert.Equal(t, "www.aliexpress.com/item/1005001.html", d.URL)
	assert.Equal(t, "Earbuds Pro", d.Title)
	assert.Equal(t, "US $12.99", d.PriceCurrent)
	require.NotNil(t, d.Rating)
	assert.Equal(t, 4.8, *d.Rating)
	require.NotNil(t, d.Specifications)
	assert.Equal(t, "Brand Name: ACME;\n Origin: Mainland China;\n Battery: 400mAh", *d.Specifications)

	require.Len(t, backend.queries, 1)
	q := backend.queries[0]
	assert.Equal(t, "http://www.aliexpress.com/item/1005001.html", q.URL)
	require.Len(t, q.BrowserInstructions, 1)
	assert.Equal(t, "click", q.BrowserInstructions[0].Type)
	assert.Equal(t, `//div[@data-pl="product-specs"]//button`, q.BrowserInstructions[0].Selector.Value)
}

func TestDetailFetchNullSpecifications(t *testing.T) {
	backend := newFakeBackend().on("1005001", `{"Title": "X", "Specifications": null, "Rating": null}`)
	f := NewProductDetailFetcher(backend, storage.Layout{Root: t.TempDir()}, PolicyAbort, utils.NopLogger())

	d, err := f.Fetch(context.Background(), "www.aliexpress.com/item/1005001.html")
	require.NoError(t, err)
	assert.Nil(t, d.Specifications)
	assert.Nil(t, d.Rating)
}

func TestDetailRunAbortWritesNothing(t *testing.T) {
	layout := storage.Layout{Root: t.TempDir()}
	backend := newFakeBackend().
		on("1005001", detailContent).
		fail("1005002", &scraper.StatusError{StatusCode: 500, Body: "boom"})
	f := NewProductDetailFetcher(backend, layout, PolicyAbort, utils.NopLogger())

	_, err := f.Run(context.Background(), []string{
		"www.aliexpress.com/item/1005001.html",
		"www.aliexpress.com/item/1005002.html",
		"www.aliexpress.com/item/1005003.html",
	})
	var statusErr *scraper.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, backend.queries, 2)
	assert.NoFileExists(t, layout.DetailsJSON())
	assert.NoFileExists(t, layout.DetailsCSV())
}

func TestDetailRunSkipKeepsSuccesses(t *testing.T) {
	layout := storage.Layout{Root: t.TempDir()}
	backend := newFakeBackend().
		on("1005001", detailContent).
		fail("1005002", &scraper.StatusError{StatusCode: 500, Body: "boom"}).
		on("1005003", detailContent)
	f := NewProductDetailFetcher(backend, layout, PolicySkip, utils.NopLogger())

	details, err := f.Run(context.Background(), []string{
		"www.aliexpress.com/item/1005001.html",
		"www.aliexpress.com/item/1005002.html",
		"www.aliexpress.com/item/1005003.html",
	})
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "1005001", details[0].ID)
	assert.Equal(t, "1005003", details[1].ID)
	assert.FileExists(t, layout.DetailsJSON())
	assert.FileExists(t, layout.DetailsCSV())
}

func TestDetailRunSkipAllFailed(t *testing.T) {
	backend := newFakeBackend().fail("aliexpress", errors.New("network down"))
	f := NewProductDetailFetcher(backend, storage.Layout{Root: t.TempDir()}, PolicySkip, utils.NopLogger())

	_, err := f.Run(context.Background(), []string{"www.aliexpress.com/item/1.html", "www.aliexpress.com/item/2.html"})
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Total)
	assert.Len(t, batchErr.Failed, 2)
}

func strPtr(s string) *string { return &s }
