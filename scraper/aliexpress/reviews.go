package aliexpress

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"ali-crawler/metrics"
	"ali-crawler/models"
	"ali-crawler/scraper"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

const reviewListPath = "data.evaViewList"

// ProductReviews holds the reviews of one product.
type ProductReviews struct {
	ProductID string
	Reviews   []models.Review
}

// ReviewFetcher collects buyer reviews from the review service.
type ReviewFetcher struct {
	backend  scraper.Backend
	layout   storage.Layout
	policy   Policy
	pageSize int
	logger   *utils.Logger
}

func NewReviewFetcher(backend scraper.Backend, layout storage.Layout, policy Policy, pageSize int, logger *utils.Logger) *ReviewFetcher {
	return &ReviewFetcher{backend: backend, layout: layout, policy: policy, pageSize: pageSize, logger: logger}
}

// FetchAll fetches the reviews of every product URL in order.
func (f *ReviewFetcher) FetchAll(ctx context.Context, urls []string) ([]ProductReviews, error) {
	return forEach(ctx, f.policy, f.logger, "reviews", urls, f.Fetch)
}

// Fetch returns the reviews of one product URL.
func (f *ReviewFetcher) Fetch(ctx context.Context, productURL string) (ProductReviews, error) {
	id, err := ProductIDFromURL(productURL)
	if err != nil {
		return ProductReviews{}, err
	}

	content, err := f.backend.Do(ctx, ReviewQuery(ReviewURL(id, f.pageSize)))
	if err != nil {
		return ProductReviews{}, fmt.Errorf("fetch reviews of %s: %w", id, err)
	}

	reviews, err := ParseReviews(id, content)
	if err != nil {
		return ProductReviews{}, fmt.Errorf("fetch reviews of %s: %w", id, err)
	}

	f.logger.Info("[reviews] Done with %s (%d reviews)", id, len(reviews))
	return ProductReviews{ProductID: id, Reviews: reviews}, nil
}

// ParseReviews maps the review service payload to reviews. The payload is
// usually delivered as a JSON document embedded in a string.
func ParseReviews(productID string, content scraper.Content) ([]models.Review, error) {
	doc := content.Get("")
	if doc.Type == gjson.String {
		if !gjson.Valid(doc.Str) {
			return nil, fmt.Errorf("review payload is not valid JSON")
		}
		doc = gjson.Parse(doc.Str)
	}

	list := doc.Get(reviewListPath)
	if !list.Exists() {
		return nil, scraper.MissingField(reviewListPath)
	}

	items := list.Array()
	reviews := make([]models.Review, 0, len(items))
	for _, r := range items {
		reviews = append(reviews, models.Review{
			ProductID:          productID,
			Rating:             r.Get("buyerEval").Int(),
			Date:               r.Get("evalDate").String(),
			FeedbackTranslated: r.Get("buyerTranslationFeedback").String(),
			Feedback:           r.Get("buyerFeedback").String(),
			Labels:             reviewLabels(r),
			Name:               r.Get("buyerName").String(),
			Country:            r.Get("buyerCountry").String(),
			Upvotes:            r.Get("upVoteCount").Int(),
			Downvotes:          r.Get("downVoteCount").Int(),
		})
	}
	return reviews, nil
}

func reviewLabels(r gjson.Result) []models.ReviewLabel {
	var labels []models.ReviewLabel
	for i := 1; i <= models.MaxReviewLabels; i++ {
		label := r.Get(fmt.Sprintf("reviewLabel%d", i)).String()
		if label == "" {
			continue
		}
		labels = append(labels, models.ReviewLabel{
			Label: label,
			Value: r.Get(fmt.Sprintf("reviewLabelValue%d", i)).String(),
		})
	}
	return labels
}

// Run fetches every product's reviews, then writes the per-product files and
// the aggregated files. It returns one entry per product fetched, in order;
// products skipped under PolicySkip are absent.
func (f *ReviewFetcher) Run(ctx context.Context, urls []string) ([]ProductReviews, error) {
	batches, err := f.FetchAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	for _, b := range batches {
		if err := storage.WriteJSON(f.layout.ProductReviewsJSON(b.ProductID), nonNil(b.Reviews)); err != nil {
			return nil, err
		}
		if err := storage.WriteCSV(f.layout.ProductReviewsCSV(b.ProductID), storage.ReviewHeader, storage.ReviewRows(b.Reviews)); err != nil {
			return nil, err
		}
	}

	all := AllReviews(batches)

	if err := storage.WriteJSON(f.layout.AllReviewsJSON(), all); err != nil {
		return nil, err
	}
	if err := storage.WriteCSV(f.layout.AllReviewsCSV(), storage.ReviewHeader, storage.ReviewRows(all)); err != nil {
		return nil, err
	}
	metrics.RecordsWritten.WithLabelValues("review").Add(float64(len(all)))

	f.logger.Info("[reviews] Stored %d reviews of %d products", len(all), len(batches))
	return batches, nil
}

// AllReviews concatenates the reviews of every product in order.
func AllReviews(batches []ProductReviews) []models.Review {
	all := make([]models.Review, 0)
	for _, b := range batches {
		all = append(all, b.Reviews...)
	}
	return all
}

func nonNil(reviews []models.Review) []models.Review {
	if reviews == nil {
		return []models.Review{}
	}
	return reviews
}
