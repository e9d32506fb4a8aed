package aliexpress

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"ali-crawler/metrics"
	"ali-crawler/models"
	"ali-crawler/scraper"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

const specSeparator = ";\n "

// ProductDetailFetcher collects the detail page of every product URL.
type ProductDetailFetcher struct {
	backend scraper.Backend
	layout  storage.Layout
	policy  Policy
	logger  *utils.Logger
}

func NewProductDetailFetcher(backend scraper.Backend, layout storage.Layout, policy Policy, logger *utils.Logger) *ProductDetailFetcher {
	return &ProductDetailFetcher{backend: backend, layout: layout, policy: policy, logger: logger}
}

// FetchAll fetches the URLs sequentially and returns their details in order.
func (f *ProductDetailFetcher) FetchAll(ctx context.Context, urls []string) ([]models.ProductDetail, error) {
	f.logger.Info("[detail] About to work on %d products", len(urls))
	return forEach(ctx, f.policy, f.logger, "detail", urls, f.Fetch)
}

// Fetch returns the detail of one scheme-less product URL.
func (f *ProductDetailFetcher) Fetch(ctx context.Context, productURL string) (models.ProductDetail, error) {
	content, err := f.backend.Do(ctx, DetailQuery(productURL))
	if err != nil {
		return models.ProductDetail{}, fmt.Errorf("fetch product %s: %w", productURL, err)
	}

	specs := content.Get("Specifications")
	if !specs.Exists() {
		return models.ProductDetail{}, fmt.Errorf("fetch product %s: %w", productURL, scraper.MissingField("Specifications"))
	}

	d := models.ProductDetail{
		ID:             DetailID(productURL),
		URL:            productURL,
		Title:          scraper.Text(content.Get("Title")),
		PriceCurrent:   scraper.Text(content.Get("Price current")),
		PriceOriginal:  scraper.Text(content.Get("Price original")),
		Discount:       scraper.Text(content.Get("Discount")),
		Sold:           scraper.Number(content.Get("Sold")),
		Rating:         scraper.Number(content.Get("Rating")),
		ReviewsCount:   scraper.Number(content.Get("Reviews count")),
		Delivery:       scraper.Text(content.Get("Delivery")),
		Specifications: FlattenSpecifications(specEntries(specs)),
	}
	f.logger.Info("[detail] Product %s information appended", d.ID)
	return d, nil
}

// Run fetches every URL and writes the aggregated JSON and CSV once the
// whole batch is collected.
func (f *ProductDetailFetcher) Run(ctx context.Context, urls []string) ([]models.ProductDetail, error) {
	details, err := f.FetchAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	if err := storage.WriteJSON(f.layout.DetailsJSON(), details); err != nil {
		return nil, err
	}
	if err := storage.WriteCSV(f.layout.DetailsCSV(), storage.DetailHeader, storage.DetailRows(details)); err != nil {
		return nil, err
	}
	metrics.RecordsWritten.WithLabelValues("detail").Add(float64(len(details)))

	f.logger.Info("[detail] Done with gathering product information (%d products)", len(details))
	return details, nil
}

func specEntries(r gjson.Result) []models.SpecEntry {
	var entries []models.SpecEntry
	for _, s := range r.Array() {
		entries = append(entries, models.SpecEntry{
			Title:       scraper.Text(s.Get("Title")),
			Description: scraper.Text(s.Get("Description")),
		})
	}
	return entries
}

// FlattenSpecifications renders entries as "Title: Description" segments
// joined by ";\n ". An empty list yields nil.
func FlattenSpecifications(entries []models.SpecEntry) *string {
	if len(entries) == 0 {
		return nil
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Title+": "+e.Description)
	}
	s := strings.Join(parts, specSeparator)
	return &s
}
