package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const searchListing = `{"kind":"Listing","data":{"children":[
{"kind":"t3","data":{"id":"abc1","title":"Why Go for backend?","selftext":"Looking for opinions.","author":"gopher","subreddit":"golang","score":321,"num_comments":87,"permalink":"/r/golang/comments/abc1/why_go/","created_utc":1700000000.0,"link_flair_text":"discussion"}},
{"kind":"t3","data":{"id":"pin","title":"Weekly thread","stickied":true,"permalink":"/r/golang/comments/pin/"}},
{"kind":"t1","data":{"id":"comment"}},
{"kind":"t3","data":{"id":"abc2","title":"Generics tips","author":"rob","subreddit":"golang","score":12,"num_comments":3,"permalink":"/r/golang/comments/abc2/generics/"}}
]}}`

func TestScrapeSubredditSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/golang/search.json", r.URL.Path)
		assert.Equal(t, "go backend", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(searchListing))
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, UserAgent: "test-agent"}, zap.NewNop())
	items, err := s.Scrape(context.Background(), ports.ScrapeRequest{Query: "go backend", Subreddit: "r/golang", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "reddit:abc1", first.ID)
	assert.Equal(t, domain.SourceReddit, first.Source)
	assert.Equal(t, "Looking for opinions.", first.Description)
	assert.Equal(t, "golang", first.Community)
	assert.Equal(t, int64(321), first.Likes)
	assert.Equal(t, int64(87), first.Comments)
	assert.Equal(t, "2023-11-14T22:13:20Z", first.PublishedAt)
	assert.Equal(t, []string{"discussion"}, first.Tags)
	assert.Equal(t, server.URL+"/r/golang/comments/abc1/why_go/", first.URL)

	assert.Equal(t, "abc2", items[1].ExternalID)
}

func TestListingURL(t *testing.T) {
	s := New(Config{BaseURL: "https://reddit.test"}, nil)

	u, err := s.listingURL(ports.ScrapeRequest{Subreddit: "golang"})
	require.NoError(t, err)
	assert.Equal(t, "https://reddit.test/r/golang/hot.json?limit=10&raw_json=1", u)

	u, err = s.listingURL(ports.ScrapeRequest{Query: "go", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, "https://reddit.test/search.json?limit=100&q=go&raw_json=1&sort=relevance", u)

	_, err = s.listingURL(ports.ScrapeRequest{})
	assert.Error(t, err)
}

func TestScrapeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("blocked"))
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}, zap.NewNop()).Scrape(context.Background(), ports.ScrapeRequest{Query: "go"})
	assert.ErrorContains(t, err, "http 403")
}
