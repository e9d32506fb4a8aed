package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/models"
	"ali-crawler/objectstore"
	"ali-crawler/objectstore/memory"
	"ali-crawler/scheduler"
	"ali-crawler/scraper/aliexpress"
	"ali-crawler/scraper/oxylabs"
	"ali-crawler/services"
	"ali-crawler/storage"
	"ali-crawler/utils"
	"ali-crawler/xcom"
)

const (
	listingContent = `{"products": [
		{"Title": "Earbuds", "Price current": ["US $12.99"], "Price original": "US $25.00", "Sales amount": "5,000+ sold", "URL": ["www.aliexpress.com/item/1005001.html"]},
		{"Title": "Watch", "Price current": ["US $30.00"], "Price original": null, "Sales amount": "12 sold", "URL": ["www.aliexpress.com/item/1005002.html"]}
	]}`
	detailContent = `{"Title": "%s", "Price current": ["US $12.99"], "Rating": 4.7, "Sold": 10,
		"Specifications": [{"Title": "Brand Name", "Description": "ACME"}]}`
	reviewPayload = `{"data": {"evaViewList": [{"buyerEval": 100, "buyerFeedback": "Great", "buyerCountry": "US",
		"reviewLabel1": "Color", "reviewLabelValue1": "Black"}]}}`
)

// fakeAPI emulates the realtime scraping API.
type fakeAPI struct {
	mu      sync.Mutex
	queries []map[string]any
	failURL string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "user" || pass != "secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	raw, _ := io.ReadAll(r.Body)
	var q map[string]any
	if err := json.Unmarshal(raw, &q); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	failURL := f.failURL
	f.mu.Unlock()

	url, _ := q["url"].(string)
	if failURL != "" && strings.Contains(url, failURL) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
		return
	}

	var content string
	switch {
	case strings.Contains(url, "calp-plus"):
		content = listingContent
	case strings.Contains(url, "searchEvaluation"):
		content = strconv.Quote(reviewPayload)
	case strings.Contains(url, "1005001"):
		content = strings.Replace(detailContent, "%s", "Earbuds Pro", 1)
	default:
		content = strings.Replace(detailContent, "%s", "Watch S", 1)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"results": [{"content": `+content+`, "status_code": 200}]}`)
}

type recordingSink struct {
	details []models.ProductDetail
	reviews []models.Review
}

func (s *recordingSink) WriteDetails(_ context.Context, d []models.ProductDetail) error {
	s.details = d
	return nil
}

func (s *recordingSink) WriteReviews(_ context.Context, r []models.Review) error {
	s.reviews = r
	return nil
}

func (s *recordingSink) Close() error { return nil }

type fixture struct {
	api    *fakeAPI
	store  *memory.Store
	layout storage.Layout
	sink   *recordingSink
	report *bytes.Buffer
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := utils.NopLogger()
	store := memory.New("bucket-ali-crawler")
	layout := storage.Layout{Root: t.TempDir()}
	sink := &recordingSink{}
	report := &bytes.Buffer{}
	cleaner := services.NewCleaner(logger)

	return &fixture{
		api: api, store: store, layout: layout, sink: sink, report: report,
		deps: Deps{
			Backend:    oxylabs.New(oxylabs.Config{URL: srv.URL, Username: "user", Password: "secret"}, logger),
			Layout:     layout,
			Policy:     aliexpress.PolicyAbort,
			MaxReviews: 100,
			Uploader:   objectstore.NewUploader(store, logger),
			KeyPrefix: func(d time.Time) string {
				return "ali_crawler/" + d.Format("2006-01-02")
			},
			Sink:     sink,
			Cleaner:  cleaner,
			Insights: services.NewInsightService(logger, cleaner).WithOutput(report),
			Logger:   logger,
		},
	}
}

func TestDAGTaskOrder(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for _, task := range NewDAG(f.deps).Tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{
		TaskTopSelling, TaskProductInfo, TaskReviews, TaskUpload, TaskLoadPostgres, TaskReport,
	}, ids)

	f.deps.Sink = nil
	f.deps.Insights = nil
	assert.Len(t, NewDAG(f.deps).Tasks, 4)
}

func TestPipelineEndToEnd(t *testing.T) {
	f := newFixture(t)
	xc := xcom.NewMemoryStore()
	logical := time.Date(2024, 5, 28, 0, 0, 0, 0, time.UTC)

	run, err := scheduler.New(NewDAG(f.deps), scheduler.Options{XCom: xc}).RunOnce(context.Background(), logical)
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, run.State)

	// listing + 2 details + 2 review pages
	assert.Len(t, f.api.queries, 5)

	var urls []string
	require.NoError(t, xcom.PullJSON(context.Background(), xc, run.ID, TaskTopSelling, &urls))
	assert.Equal(t, []string{"www.aliexpress.com/item/1005001.html", "www.aliexpress.com/item/1005002.html"}, urls)

	keys := f.store.Keys()
	assert.Contains(t, keys, "ali_crawler/2024-05-28/main/top_selling_products_urls.json")
	assert.Contains(t, keys, "ali_crawler/2024-05-28/final/products_info.csv")
	assert.Contains(t, keys, "ali_crawler/2024-05-28/final/all_parsed_reviews.csv")
	assert.Contains(t, keys, "ali_crawler/2024-05-28/parsed_reviews/1005002_parsed_reviews.json")
	assert.Len(t, keys, 10)

	require.Len(t, f.sink.details, 2)
	assert.Equal(t, "Earbuds Pro", f.sink.details[0].Title)
	require.Len(t, f.sink.reviews, 2)
	assert.Equal(t, []models.ReviewLabel{{Label: "Color", Value: "Black"}}, f.sink.reviews[0].Labels)

	assert.Contains(t, f.report.String(), "ALIEXPRESS CRAWL INSIGHTS")
}

func TestPipelineDetailFailureStopsRun(t *testing.T) {
	f := newFixture(t)
	f.api.failURL = "1005002.html"

	run, err := scheduler.New(NewDAG(f.deps), scheduler.Options{}).RunOnce(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, run.State)

	assert.FileExists(t, f.layout.ListingURLsJSON())
	assert.NoFileExists(t, f.layout.DetailsJSON())
	assert.NoFileExists(t, f.layout.AllReviewsJSON())
	assert.Empty(t, f.store.Keys())
	assert.Nil(t, f.sink.details)
}

func TestPipelineSkipPolicyCountsFetchedProducts(t *testing.T) {
	f := newFixture(t)
	f.deps.Policy = aliexpress.PolicySkip
	f.api.failURL = "productId=1005002"
	xc := xcom.NewMemoryStore()

	run, err := scheduler.New(NewDAG(f.deps), scheduler.Options{XCom: xc}).RunOnce(context.Background(), time.Now())
	require.NoError(t, err)

	var summary Summary
	require.NoError(t, xcom.PullJSON(context.Background(), xc, run.ID, TaskReviews, &summary))
	assert.Equal(t, Summary{Products: 1, Records: 1}, summary)

	require.NoError(t, xcom.PullJSON(context.Background(), xc, run.ID, TaskProductInfo, &summary))
	assert.Equal(t, Summary{Products: 2, Records: 2}, summary)
	assert.Len(t, f.sink.reviews, 1)
}
