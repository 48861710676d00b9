package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/IxianPixel/wavepod/internal/track"
)

const defaultAPIBase = "https://api.soundcloud.com"

// pageLimit is the collection size requested per API call.
const pageLimit = 50

// Tokens is what the client needs from the auth layer.
type Tokens interface {
	Token(ctx context.Context) (string, error)
}

// Client reads the track catalogue: likes, the activity feed and search.
type Client struct {
	base   string
	client *http.Client
	tokens Tokens
	log    *zap.Logger
}

func NewClient(tokens Tokens, log *zap.Logger) *Client {
	return &Client{
		base:   defaultAPIBase,
		client: &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		log:    log,
	}
}

type apiUser struct {
	Username string `json:"username"`
}

type apiTrack struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	DurationMS int64   `json:"duration"`
	StreamURL  string  `json:"stream_url"`
	ArtworkURL string  `json:"artwork_url"`
	User       apiUser `json:"user"`
}

// trackPage is one linked_partitioning page. The likes endpoint wraps each
// track, the activities endpoint nests it under origin; both shapes decode
// into collectionItem.
type trackPage struct {
	Collection []collectionItem `json:"collection"`
	NextHref   string           `json:"next_href"`
}

type collectionItem struct {
	raw json.RawMessage
}

func (c *collectionItem) UnmarshalJSON(data []byte) error {
	c.raw = append(c.raw[:0], data...)
	return nil
}

func (c *collectionItem) track() (*apiTrack, error) {
	// A bare track object.
	var t apiTrack
	if err := json.Unmarshal(c.raw, &t); err == nil && t.ID != 0 {
		return &t, nil
	}
	// An activity item wrapping the track under origin.
	var wrapped struct {
		Origin apiTrack `json:"origin"`
		Track  apiTrack `json:"track"`
	}
	if err := json.Unmarshal(c.raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Origin.ID != 0 {
		return &wrapped.Origin, nil
	}
	if wrapped.Track.ID != 0 {
		return &wrapped.Track, nil
	}
	return nil, nil
}

// LikedTracks fetches the authenticated user's liked tracks, following
// pagination up to maxTracks entries.
func (c *Client) LikedTracks(ctx context.Context, maxTracks int) ([]*track.Track, error) {
	return c.collect(ctx, c.base+"/me/likes/tracks?"+pageQuery(), maxTracks)
}

// ActivityFeed fetches recent track activity from followed artists.
func (c *Client) ActivityFeed(ctx context.Context, maxTracks int) ([]*track.Track, error) {
	return c.collect(ctx, c.base+"/me/activities/tracks?"+pageQuery(), maxTracks)
}

// SearchTracks runs a free-text track search.
func (c *Client) SearchTracks(ctx context.Context, query string, maxTracks int) ([]*track.Track, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("linked_partitioning", "true")
	return c.collect(ctx, c.base+"/tracks?"+q.Encode(), maxTracks)
}

func pageQuery() string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("linked_partitioning", "true")
	return q.Encode()
}

func (c *Client) collect(ctx context.Context, pageURL string, maxTracks int) ([]*track.Track, error) {
	var out []*track.Track
	for pageURL != "" && len(out) < maxTracks {
		page, err := c.getPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Collection {
			at, err := item.track()
			if err != nil || at == nil {
				continue
			}
			t := toTrack(at, item.raw)
			if t == nil {
				continue
			}
			out = append(out, t)
			if len(out) == maxTracks {
				break
			}
		}
		pageURL = page.NextHref
	}
	c.log.Debug("catalogue page walk done", zap.Int("tracks", len(out)))
	return out, nil
}

func (c *Client) getPage(ctx context.Context, pageURL string) (*trackPage, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("soundcloud: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soundcloud: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("soundcloud: %s returned %s", req.URL.Path, resp.Status)
	}

	var page trackPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("soundcloud: decode page: %w", err)
	}
	return &page, nil
}

// toTrack maps an API track to the player's model. Tracks without a stream
// URL cannot be played and are dropped.
func toTrack(at *apiTrack, raw json.RawMessage) *track.Track {
	if at.StreamURL == "" {
		return nil
	}
	return &track.Track{
		ID:         at.ID,
		Title:      at.Title,
		Artist:     at.User.Username,
		Duration:   time.Duration(at.DurationMS) * time.Millisecond,
		StreamURL:  at.StreamURL,
		ArtworkURL: at.ArtworkURL,
		Raw:        raw,
	}
}
