package aliexpress

import (
	"context"
	"fmt"

	"ali-crawler/metrics"
	"ali-crawler/models"
	"ali-crawler/scraper"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

// TopSellingFetcher collects the top-selling products of the category page.
type TopSellingFetcher struct {
	backend scraper.Backend
	layout  storage.Layout
	logger  *utils.Logger
}

func NewTopSellingFetcher(backend scraper.Backend, layout storage.Layout, logger *utils.Logger) *TopSellingFetcher {
	return &TopSellingFetcher{backend: backend, layout: layout, logger: logger}
}

// Fetch returns one listing per product block, in page order, and the
// detail URLs of the listings that carry one.
func (f *TopSellingFetcher) Fetch(ctx context.Context) ([]models.ProductListing, []string, error) {
	f.logger.Info("[listing] Requesting top-selling products from %s", CategoryURL)

	content, err := f.backend.Do(ctx, ListingQuery())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch top-selling products: %w", err)
	}

	products := content.Get(listingProductsPath)
	if !products.IsArray() {
		return nil, nil, fmt.Errorf("fetch top-selling products: %w", scraper.MissingField(listingProductsPath))
	}

	blocks := products.Array()
	listings := make([]models.ProductListing, 0, len(blocks))
	urls := make([]string, 0, len(blocks))
	for _, p := range blocks {
		l := models.ProductListing{
			Title:         scraper.Text(p.Get("Title")),
			PriceCurrent:  scraper.Text(p.Get("Price current")),
			PriceOriginal: scraper.Text(p.Get("Price original")),
			SalesAmount:   scraper.Text(p.Get("Sales amount")),
			URL:           scraper.Text(scraper.First(p.Get("URL"))),
		}
		listings = append(listings, l)
		if l.URL != "" {
			urls = append(urls, l.URL)
		} else {
			f.logger.Warn("[listing] Product %q has no detail URL", l.Title)
		}
	}

	f.logger.Info("[listing] Extracted %d products, %d URLs", len(listings), len(urls))
	return listings, urls, nil
}

// Run fetches the listings and writes the URL list and the listing table.
// Nothing is written when the fetch fails.
func (f *TopSellingFetcher) Run(ctx context.Context) ([]string, error) {
	listings, urls, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := storage.WriteJSON(f.layout.ListingURLsJSON(), urls); err != nil {
		return nil, err
	}
	if err := storage.WriteCSV(f.layout.ListingCSV(), storage.ListingHeader, storage.ListingRows(listings)); err != nil {
		return nil, err
	}
	metrics.RecordsWritten.WithLabelValues("listing").Add(float64(len(listings)))

	f.logger.Info("[listing] Stored %d URLs to %s", len(urls), f.layout.ListingURLsJSON())
	return urls, nil
}
