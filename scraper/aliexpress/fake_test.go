package aliexpress

import (
	"context"
	"strings"
	"sync"

	"ali-crawler/scraper"
)

// fakeBackend answers queries by URL substring and records every query.
type fakeBackend struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	queries   []*scraper.Query
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{responses: map[string]string{}, errs: map[string]error{}}
}

func (b *fakeBackend) on(urlPart, content string) *fakeBackend {
	b.responses[urlPart] = content
	return b
}

func (b *fakeBackend) fail(urlPart string, err error) *fakeBackend {
	b.errs[urlPart] = err
	return b
}

func (b *fakeBackend) Do(_ context.Context, q *scraper.Query) (scraper.Content, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q)
	for part, err := range b.errs {
		if strings.Contains(q.URL, part) {
			return nil, err
		}
	}
	for part, content := range b.responses {
		if strings.Contains(q.URL, part) {
			return scraper.Content(content), nil
		}
	}
	return nil, &scraper.StatusError{StatusCode: 404, Body: "no fixture for " + q.URL}
}
