package xcom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	urls := []string{"www.aliexpress.com/item/1.html", "www.aliexpress.com/item/1.html"}
	require.NoError(t, PushJSON(ctx, s, "run-1", "extract_top_selling_products", urls))

	var got []string
	require.NoError(t, PullJSON(ctx, s, "run-1", "extract_top_selling_products", &got))
	assert.Equal(t, urls, got)
}

func TestMemoryStoreIsolatesRuns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Push(ctx, "run-1", "t", []byte(`1`)))

	_, err := s.Pull(ctx, "run-2", "t")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "xcom:run-1:task", Key("run-1", "task"))
}
