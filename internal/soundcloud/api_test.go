package soundcloud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(staticTokens("tok-1"), zap.NewNop())
	c.base = srv.URL
	return c
}

func TestLikedTracksFollowsPagination(t *testing.T) {
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/me/likes/tracks", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "true", r.URL.Query().Get("linked_partitioning"))
		fmt.Fprintf(w, `{
			"collection": [
				{"id": 1, "title": "one", "duration": 120000, "stream_url": "https://s/1", "user": {"username": "a"}},
				{"id": 2, "title": "two", "duration": 240000, "stream_url": "https://s/2", "user": {"username": "b"}}
			],
			"next_href": %q
		}`, base+"/page2")
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"collection": [
				{"id": 3, "title": "three", "duration": 60000, "stream_url": "https://s/3", "user": {"username": "c"}}
			],
			"next_href": null
		}`)
	})
	c := newTestClient(t, mux)
	base = c.base

	got, err := c.LikedTracks(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "one", got[0].Title)
	assert.Equal(t, "a", got[0].Artist)
	assert.Equal(t, 2*time.Minute, got[0].Duration)
	assert.Equal(t, "https://s/1", got[0].StreamURL)
	assert.Equal(t, int64(3), got[2].ID)
}

func TestLikedTracksHonorsMax(t *testing.T) {
	var pages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/me/likes/tracks", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		fmt.Fprint(w, `{
			"collection": [
				{"id": 1, "title": "one", "duration": 1000, "stream_url": "https://s/1", "user": {}},
				{"id": 2, "title": "two", "duration": 1000, "stream_url": "https://s/2", "user": {}}
			],
			"next_href": "https://never.invalid/page2"
		}`)
	})
	c := newTestClient(t, mux)

	got, err := c.LikedTracks(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), pages.Load(), "must stop paging once full")
}

func TestStreamlessTracksDropped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "bass", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{
			"collection": [
				{"id": 1, "title": "blocked", "duration": 1000, "user": {}},
				{"id": 2, "title": "ok", "duration": 1000, "stream_url": "https://s/2", "user": {}}
			],
			"next_href": null
		}`)
	})
	c := newTestClient(t, mux)

	got, err := c.SearchTracks(context.Background(), "bass", 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestActivityFeedUnwrapsOrigin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/activities/tracks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"collection": [
				{"type": "track", "origin": {"id": 7, "title": "posted", "duration": 1000, "stream_url": "https://s/7", "user": {"username": "d"}}}
			],
			"next_href": null
		}`)
	})
	c := newTestClient(t, mux)

	got, err := c.ActivityFeed(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "d", got[0].Artist)
}

func TestNonOKStatusIsError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))

	_, err := c.LikedTracks(context.Background(), 10)
	assert.Error(t, err)
}
