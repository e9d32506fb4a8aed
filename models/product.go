package models

// ProductListing is one product block of the top-selling category page.
type ProductListing struct {
	Title         string `json:"title"`
	PriceCurrent  string `json:"price_current"`
	PriceOriginal string `json:"price_original"`
	SalesAmount   string `json:"sales_amount"`
	URL           string `json:"url"`
}

// SpecEntry is a single "Title: Description" pair of the specification panel.
type SpecEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProductDetail holds the fields extracted from a product detail page.
// Numeric fields are nil when the page did not expose them.
type ProductDetail struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	PriceCurrent   string   `json:"price_current"`
	PriceOriginal  string   `json:"price_original"`
	Discount       string   `json:"discount"`
	Sold           *float64 `json:"sold"`
	Rating         *float64 `json:"rating"`
	ReviewsCount   *float64 `json:"reviews_count"`
	Delivery       string   `json:"delivery"`
	Specifications *string  `json:"specifications"`
}

// ReviewLabel is one of the free-form label/value pairs attached to a review,
// e.g. {"Color", "Black"}.
type ReviewLabel struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// MaxReviewLabels is the number of label/value pairs the review service exposes.
const MaxReviewLabels = 3

// Review is a single buyer review of a product.
type Review struct {
	ProductID          string        `json:"product_id"`
	Rating             int64         `json:"rating"`
	Date               string        `json:"date"`
	FeedbackTranslated string        `json:"feedback_translated"`
	Feedback           string        `json:"feedback"`
	Labels             []ReviewLabel `json:"labels"`
	Name               string        `json:"name"`
	Country            string        `json:"country"`
	Upvotes            int64         `json:"upvotes"`
	Downvotes          int64         `json:"downvotes"`
}

// InsightReport holds the computed analytics over one crawl.
type InsightReport struct {
	TotalProducts     int
	TotalReviews      int
	AveragePrice      float64
	MinPrice          float64
	MaxPrice          float64
	MostExpensive     *ProductDetail
	TopRated          []*ProductDetail
	ReviewsByCountry  map[string]int
	AverageReviewStar float64
}
