package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/ytscope/pkg/domain"
)

func TestKey(t *testing.T) {
	item := &domain.ContentItem{Source: domain.SourceYouTube, ExternalID: "abc", Title: "Go"}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Key(item, domain.ProviderOpenAI), Key(item, domain.ProviderOpenAI))
	})

	t.Run("provider matters", func(t *testing.T) {
		assert.NotEqual(t, Key(item, domain.ProviderOpenAI), Key(item, domain.ProviderAnthropic))
	})

	t.Run("content matters", func(t *testing.T) {
		changed := *item
		changed.Title = "Rust"
		assert.NotEqual(t, Key(item, ""), Key(&changed, ""))
	})

	t.Run("has prefix", func(t *testing.T) {
		k := Key(item, "")
		assert.True(t, strings.HasPrefix(k, "ytscope:analysis:"))
		assert.Len(t, k, len("ytscope:analysis:")+24)
	})
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c := New(nil, time.Minute, 100, nil)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", &domain.Analysis{ContentID: "youtube:abc", Summary: "hello"})
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Summary)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestExpiredEntriesMiss(t *testing.T) {
	ctx := context.Background()
	c := New(nil, time.Millisecond, 0, nil)

	c.Set(ctx, "k", &domain.Analysis{Summary: "soon gone"})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	c := New(nil, time.Hour, 2, nil)

	c.Set(ctx, "first", &domain.Analysis{})
	time.Sleep(time.Millisecond)
	c.Set(ctx, "second", &domain.Analysis{})
	time.Sleep(time.Millisecond)
	c.Set(ctx, "third", &domain.Analysis{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "first")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "third")
	assert.True(t, ok)
}
