package storage

import "path/filepath"

// Layout names the output files of a crawl under a local root directory.
type Layout struct {
	Root string
}

func (l Layout) ListingURLsJSON() string {
	return filepath.Join(l.Root, "main", "top_selling_products_urls.json")
}

func (l Layout) ListingCSV() string {
	return filepath.Join(l.Root, "main", "top_selling_products.csv")
}

func (l Layout) DetailsJSON() string {
	return filepath.Join(l.Root, "products_info", "product_info.json")
}

func (l Layout) DetailsCSV() string {
	return filepath.Join(l.Root, "final", "products_info.csv")
}

func (l Layout) ProductReviewsJSON(productID string) string {
	return filepath.Join(l.Root, "parsed_reviews", productID+"_parsed_reviews.json")
}

func (l Layout) ProductReviewsCSV(productID string) string {
	return filepath.Join(l.Root, "reviews", productID+"_reviews.csv")
}

func (l Layout) AllReviewsJSON() string {
	return filepath.Join(l.Root, "all_parsed_reviews", "all_parsed_reviews.json")
}

func (l Layout) AllReviewsCSV() string {
	return filepath.Join(l.Root, "final", "all_parsed_reviews.csv")
}
