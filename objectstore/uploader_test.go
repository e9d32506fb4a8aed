package objectstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/objectstore"
	"ali-crawler/objectstore/memory"
	"ali-crawler/utils"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestUploadDirMirrorsTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main/top_selling_products_urls.json": `["a"]`,
		"final/products_info.csv":             "Title\nx\n",
		"reviews/1_reviews.csv":               "productId\n1\n",
	})
	store := memory.New("bucket-ali-crawler")
	u := objectstore.NewUploader(store, utils.NopLogger())

	keys, err := u.UploadDir(context.Background(), root, "ali_crawler/2024-05-28")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"ali_crawler/2024-05-28/main/top_selling_products_urls.json",
		"ali_crawler/2024-05-28/final/products_info.csv",
		"ali_crawler/2024-05-28/reviews/1_reviews.csv",
	}, keys)

	data, ok := store.Get("ali_crawler/2024-05-28/main/top_selling_products_urls.json")
	require.True(t, ok)
	assert.Equal(t, `["a"]`, string(data))
}

func TestUploadDirIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.json":    "1",
		"sub/b.csv": "2",
	})
	store := memory.New("b")
	u := objectstore.NewUploader(store, utils.NopLogger())

	first, err := u.UploadDir(context.Background(), root, "p/2024-05-28")
	require.NoError(t, err)
	snapshot := map[string]string{}
	for _, k := range store.Keys() {
		v, _ := store.Get(k)
		snapshot[k] = string(v)
	}

	second, err := u.UploadDir(context.Background(), root, "p/2024-05-28")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.Keys(), 2)
	assert.Equal(t, 4, store.Puts())
	for _, k := range store.Keys() {
		v, _ := store.Get(k)
		assert.Equal(t, snapshot[k], string(v))
	}
}

type failingStore struct {
	calls int
}

func (f *failingStore) Put(context.Context, *objectstore.PutInput) (*objectstore.PutResult, error) {
	f.calls++
	return nil, errors.New("access denied")
}

func (f *failingStore) Ping(context.Context) error { return nil }

func TestUploadDirStopsAtFirstFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1", "b": "2", "c": "3"})
	store := &failingStore{}

	_, err := objectstore.NewUploader(store, utils.NopLogger()).UploadDir(context.Background(), root, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, 1, store.calls)
}

func TestUploadDirMissingRoot(t *testing.T) {
	_, err := objectstore.NewUploader(memory.New("b"), utils.NopLogger()).
		UploadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), "p")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "p/d/x/y.csv", objectstore.ObjectKey("p/d/", filepath.Join("x", "y.csv")))
	assert.Equal(t, "y.csv", objectstore.ObjectKey("", "y.csv"))
}
