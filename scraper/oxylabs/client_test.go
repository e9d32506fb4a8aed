package oxylabs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/scraper"
	"ali-crawler/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL, Username: "user", Password: "pass"}, utils.NopLogger())
}

func TestClientDoReturnsContent(t *testing.T) {
	var gotQuery map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotQuery))

		_, _ = w.Write([]byte(`{"results":[{"content":{"products":[{"Title":"A"}]},"status_code":200}]}`))
	})

	content, err := c.Do(context.Background(), &scraper.Query{
		Source: scraper.SourceUniversalEcommerce,
		URL:    "https://www.aliexpress.com/p/calp-plus/index.html",
		Parse:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "A", content.Get("products.0.Title").String())
	assert.Equal(t, "universal_ecommerce", gotQuery["source"])
	assert.Equal(t, true, gotQuery["parse"])
}

func TestClientDoStringContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"content":"{\"data\":{\"evaViewList\":[]}}"}]}`))
	})

	content, err := c.Do(context.Background(), &scraper.Query{URL: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"evaViewList":[]}}`, content.Get("").String())
}

func TestClientDoNon2xxIsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	})

	_, err := c.Do(context.Background(), &scraper.Query{URL: "x"})
	require.Error(t, err)

	var statusErr *scraper.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Unauthorized")
}

func TestClientDoDoesNotRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Do(context.Background(), &scraper.Query{URL: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestParseEnvelope(t *testing.T) {
	_, err := parseEnvelope([]byte(`{"results":[]}`))
	assert.ErrorIs(t, err, scraper.ErrEmptyResults)

	_, err = parseEnvelope([]byte(`{"results":[{"status_code":200}]}`))
	assert.ErrorIs(t, err, scraper.ErrMissingField)

	_, err = parseEnvelope([]byte(`<html>`))
	assert.Error(t, err)
}
