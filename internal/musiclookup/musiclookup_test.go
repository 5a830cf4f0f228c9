package musiclookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_TrackInfoShape(t *testing.T) {
	raw := []byte(`{
		"download_url": "https://cdn.example/track.mp3",
		"track_info": {
			"name": "Midnight Drive",
			"artists": [{"name": "Asha"}, {"name": "Rohit"}],
			"album": {"name": "Night Sessions", "images": [{"url": "https://cdn.example/cover.jpg"}]}
		}
	}`)

	r, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/track.mp3", r.Link)
	assert.Equal(t, "Midnight Drive", r.Title)
	assert.Equal(t, "Asha, Rohit", r.Artist)
	assert.Equal(t, "Night Sessions", r.Album)
	assert.Equal(t, "https://cdn.example/cover.jpg", r.Cover)
}

func TestDecode_DataWrapperShape(t *testing.T) {
	raw := []byte(`{
		"data": {
			"title": "Monsoon Song",
			"artists": ["Kavya"],
			"link": "https://cdn.example/m.mp3",
			"thumbnail": "https://cdn.example/t.jpg"
		}
	}`)

	r, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/m.mp3", r.Link)
	assert.Equal(t, "Monsoon Song", r.Title)
	assert.Equal(t, "Kavya", r.Artist)
	assert.Equal(t, "https://cdn.example/t.jpg", r.Cover)
}

func TestDecode_FlatShape(t *testing.T) {
	raw := []byte(`{"name": "Echoes", "artist": "Dev", "url": "https://cdn.example/e.mp3"}`)

	r, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/e.mp3", r.Link)
	assert.Equal(t, "Echoes", r.Title)
	assert.Equal(t, "Dev", r.Artist)
}

func TestDecode_LinkOnWrapperMetadataInData(t *testing.T) {
	raw := []byte(`{"link": "https://cdn.example/w.mp3", "data": {"title": "Wrapped"}}`)

	r, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/w.mp3", r.Link)
	assert.Equal(t, "Wrapped", r.Title)
}

func TestDecode_MissingLink(t *testing.T) {
	_, err := Decode([]byte(`{"title": "No Link Here"}`))
	assert.ErrorIs(t, err, ErrNoLink)
}

func TestDecode_DefaultTitle(t *testing.T) {
	r, err := Decode([]byte(`{"url": "https://cdn.example/x.mp3"}`))
	require.NoError(t, err)
	assert.Equal(t, "Spotify Track", r.Title)
}

func TestCache_TTL(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("https://open.spotify.com/track/1", Resolved{Link: "l", Title: "t"})

	got, ok := c.Get("https://open.spotify.com/track/1")
	require.True(t, ok)
	assert.Equal(t, "l", got.Link)

	now = now.Add(cacheTTL + time.Second)
	_, ok = c.Get("https://open.spotify.com/track/1")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Evict())
	assert.Empty(t, c.entries)
}

func TestClient_ResolveAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "https://open.spotify.com/track/abc", r.URL.Query().Get("url"))
		w.Write([]byte(`{"link": "https://cdn.example/abc.mp3", "title": "Cached Tune", "artist": "Mira"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, NewCache())

	r, err := c.Resolve(context.Background(), "https://open.spotify.com/track/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/abc.mp3", r.Link)
	assert.Equal(t, "Mira", r.Artist)

	// Second resolve hits the cache.
	_, err = c.Resolve(context.Background(), "https://open.spotify.com/track/abc")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, NewCache())
	_, err := c.Resolve(context.Background(), "https://open.spotify.com/track/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Spotify API Error")
}
