// Package pipeline assembles the AliExpress crawler DAG.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"ali-crawler/models"
	"ali-crawler/objectstore"
	"ali-crawler/scheduler"
	"ali-crawler/scraper"
	"ali-crawler/scraper/aliexpress"
	"ali-crawler/services"
	"ali-crawler/storage"
	"ali-crawler/utils"
)

// DAG and task ids.
const (
	DAGID = "aliexpress_crawler"

	TaskTopSelling   = "extract_top_selling_products"
	TaskProductInfo  = "extract_product_information"
	TaskReviews      = "extract_product_reviews"
	TaskUpload       = "upload_folder_to_s3"
	TaskLoadPostgres = "load_postgres"
	TaskReport       = "report_insights"
)

// Deps holds everything the tasks need. Sink, Reader and Insights are optional.
type Deps struct {
	Backend    scraper.Backend
	Layout     storage.Layout
	Policy     aliexpress.Policy
	MaxReviews int
	Uploader   *objectstore.Uploader
	// KeyPrefix returns the object key prefix for a logical date.
	KeyPrefix func(logicalDate time.Time) string

	Sink     Sink
	Reader   storage.DetailReader
	Cleaner  *services.Cleaner
	Insights *services.InsightService
	Logger   *utils.Logger
}

// Sink is a relational store for details and reviews.
type Sink interface {
	storage.DetailWriter
	storage.ReviewWriter
}

// Summary is the XCom value of the detail and review tasks.
type Summary struct {
	Products int `json:"products"`
	Records  int `json:"records"`
}

// UploadResult is the XCom value of the upload task.
type UploadResult struct {
	Prefix string `json:"prefix"`
	Keys   int    `json:"keys"`
}

// NewDAG returns the crawler DAG: listing, details, reviews, upload, then the
// optional relational load and insights report.
func NewDAG(d Deps) *scheduler.DAG {
	if d.Logger == nil {
		d.Logger = utils.NopLogger()
	}

	dag := &scheduler.DAG{ID: DAGID, Tasks: []scheduler.Task{
		{ID: TaskTopSelling, Run: d.extractTopSelling},
		{ID: TaskProductInfo, Run: d.extractProductInformation},
		{ID: TaskReviews, Run: d.extractProductReviews},
		{ID: TaskUpload, Run: d.uploadFolder},
	}}
	if d.Sink != nil {
		dag.Tasks = append(dag.Tasks, scheduler.Task{ID: TaskLoadPostgres, Run: d.loadPostgres})
	}
	if d.Insights != nil {
		dag.Tasks = append(dag.Tasks, scheduler.Task{ID: TaskReport, Run: d.reportInsights})
	}
	return dag
}

func (d Deps) extractTopSelling(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	f := aliexpress.NewTopSellingFetcher(d.Backend, d.Layout, tc.Logger)
	return f.Run(ctx)
}

func (d Deps) productURLs(ctx context.Context, tc *scheduler.TaskContext) ([]string, error) {
	var urls []string
	if err := tc.Pull(ctx, TaskTopSelling, &urls); err != nil {
		return nil, fmt.Errorf("pull product urls: %w", err)
	}
	return urls, nil
}

func (d Deps) extractProductInformation(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	urls, err := d.productURLs(ctx, tc)
	if err != nil {
		return nil, err
	}
	details, err := aliexpress.NewProductDetailFetcher(d.Backend, d.Layout, d.Policy, tc.Logger).Run(ctx, urls)
	if err != nil {
		return nil, err
	}
	return Summary{Products: len(details), Records: len(details)}, nil
}

func (d Deps) extractProductReviews(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	urls, err := d.productURLs(ctx, tc)
	if err != nil {
		return nil, err
	}
	batches, err := aliexpress.NewReviewFetcher(d.Backend, d.Layout, d.Policy, d.MaxReviews, tc.Logger).Run(ctx, urls)
	if err != nil {
		return nil, err
	}
	return Summary{Products: len(batches), Records: len(aliexpress.AllReviews(batches))}, nil
}

func (d Deps) uploadFolder(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	prefix := d.KeyPrefix(tc.LogicalDate)
	keys, err := d.Uploader.UploadDir(ctx, d.Layout.Root, prefix)
	if err != nil {
		return nil, err
	}
	return UploadResult{Prefix: prefix, Keys: len(keys)}, nil
}

func (d Deps) loadPostgres(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	details, reviews, err := d.readOutputs()
	if err != nil {
		return nil, err
	}
	if d.Cleaner != nil {
		details = d.Cleaner.CleanDetails(details)
	}

	if err := d.Sink.WriteDetails(ctx, details); err != nil {
		return nil, fmt.Errorf("load details: %w", err)
	}
	if err := d.Sink.WriteReviews(ctx, reviews); err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	tc.Logger.Info("[pipeline] Loaded %d products and %d reviews into PostgreSQL", len(details), len(reviews))
	return Summary{Products: len(details), Records: len(reviews)}, nil
}

func (d Deps) reportInsights(ctx context.Context, tc *scheduler.TaskContext) (any, error) {
	details, reviews, err := d.readOutputs()
	if err != nil {
		return nil, err
	}

	if d.Reader != nil {
		stored, err := d.Reader.FetchDetails(ctx)
		if err != nil {
			tc.Logger.Warn("[pipeline] Failed to fetch details from DB for insights: %v", err)
		} else {
			details = stored
		}
	}

	report := d.Insights.Generate(details, reviews)
	d.Insights.Print(report)
	return nil, nil
}

func (d Deps) readOutputs() ([]models.ProductDetail, []models.Review, error) {
	var (
		details []models.ProductDetail
		reviews []models.Review
	)
	if err := storage.ReadJSON(d.Layout.DetailsJSON(), &details); err != nil {
		return nil, nil, err
	}
	if err := storage.ReadJSON(d.Layout.AllReviewsJSON(), &reviews); err != nil {
		return nil, nil, err
	}
	return details, reviews, nil
}
