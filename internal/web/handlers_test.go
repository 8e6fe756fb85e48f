package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/search"
	"github.com/ratemymusic/catalog/internal/spotify"
	"github.com/ratemymusic/catalog/internal/sync"
)

type fakeBasicSearcher struct {
	result *search.BasicResult
	artist *db.Artist
	albums []search.AlbumItem
	err    error
}

func (f *fakeBasicSearcher) BasicSearch(ctx context.Context, mode search.Mode, q string, limit, offset int) (*search.BasicResult, error) {
	return f.result, f.err
}

func (f *fakeBasicSearcher) ListAlbumsByArtist(ctx context.Context, artistID uuid.UUID, limit, offset int) (*db.Artist, []search.AlbumItem, error) {
	return f.artist, f.albums, f.err
}

type fakeCandidates struct {
	result *search.CandidateResult
	err    error
}

func (f *fakeCandidates) Search(ctx context.Context, params search.CandidateParams) (*search.CandidateResult, error) {
	return f.result, f.err
}

type fakeSyncer struct {
	detail *sync.AlbumDetail
	err    error
	gotID  string
	gotMkt string
}

func (f *fakeSyncer) SyncAlbum(ctx context.Context, id, market string) (*sync.AlbumDetail, error) {
	f.gotID = id
	f.gotMkt = market
	return f.detail, f.err
}

type fakeAlbumReader struct {
	album   *db.Album
	artists []db.Artist
	err     error
	views   int
}

func (f *fakeAlbumReader) GetByID(ctx context.Context, id uuid.UUID) (*db.Album, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.album, nil
}

func (f *fakeAlbumReader) GetBySpotifyID(ctx context.Context, spotifyID string) (*db.Album, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.album, nil
}

func (f *fakeAlbumReader) ArtistsFor(ctx context.Context, albumID uuid.UUID) ([]db.Artist, error) {
	return f.artists, nil
}

func (f *fakeAlbumReader) IncrementViews(ctx context.Context, albumID uuid.UUID) error {
	f.views++
	return nil
}

type fakeTrackReader struct {
	tracks []db.Track
}

func (f *fakeTrackReader) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]db.Track, error) {
	return f.tracks, nil
}

func newTestServer(h *Handlers) *httptest.Server {
	srv := NewServer(ServerConfig{Addr: ":0"}, h, log.New(io.Discard))
	return httptest.NewServer(srv.Handler())
}

func quietHandlers(s BasicSearcher, c CandidateSearcher, y Syncer, a AlbumReader, tr TrackReader) *Handlers {
	return NewHandlers(s, c, y, a, tr, log.New(io.Discard))
}

func getJSON(t *testing.T, url string, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s status = %d, want %d (body %s)", url, resp.StatusCode, wantStatus, body)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestBasicSearchRejectsUnknownMode(t *testing.T) {
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	var body errorResponse
	getJSON(t, ts.URL+"/api/music/search?mode=track&q=x", http.StatusBadRequest, &body)
	if body.Error == "" {
		t.Error("expected error message for unknown mode")
	}

	getJSON(t, ts.URL+"/api/music/search?mode=artist", http.StatusBadRequest, nil)
}

func TestBasicSearchReturnsResult(t *testing.T) {
	result := &search.BasicResult{Mode: search.ModeArtist, Artists: []db.Artist{{ID: uuid.New(), Name: "Slowdive"}}}
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{result: result}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	var body search.BasicResult
	getJSON(t, ts.URL+"/api/music/search?mode=artist&q=slow", http.StatusOK, &body)
	if len(body.Artists) != 1 || body.Artists[0].Name != "Slowdive" {
		t.Errorf("body = %+v", body)
	}
}

func TestAlbumDetailNotFound(t *testing.T) {
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{err: db.ErrNotFound}, &fakeTrackReader{}))
	defer ts.Close()

	getJSON(t, ts.URL+"/api/music/albums/"+uuid.NewString(), http.StatusNotFound, nil)
}

func TestAlbumDetailRejectsBadID(t *testing.T) {
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	getJSON(t, ts.URL+"/api/music/albums/not-a-uuid", http.StatusBadRequest, nil)
}

func TestAlbumDetailIncrementsViews(t *testing.T) {
	album := &db.Album{ID: uuid.New(), SpotifyID: "alb1", Title: "Souvlaki"}
	albums := &fakeAlbumReader{album: album, artists: []db.Artist{{Name: "Slowdive"}}}
	tracks := &fakeTrackReader{tracks: []db.Track{{Title: "Alison"}}}
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, albums, tracks))
	defer ts.Close()

	var body albumDetailResponse
	getJSON(t, ts.URL+"/api/music/albums/by-spotify/alb1", http.StatusOK, &body)
	if body.Album == nil || body.Album.Title != "Souvlaki" {
		t.Errorf("album = %+v", body.Album)
	}
	if body.Meta.Source != "db" {
		t.Errorf("source = %q, want db", body.Meta.Source)
	}
	if len(body.Tracks) != 1 {
		t.Errorf("tracks = %d, want 1", len(body.Tracks))
	}
	if albums.views != 1 {
		t.Errorf("view increments = %d, want 1", albums.views)
	}
}

func TestSyncAlbumEndpoint(t *testing.T) {
	syncer := &fakeSyncer{detail: &sync.AlbumDetail{
		Album:  &db.Album{ID: uuid.New(), SpotifyID: "alb1", Title: "Loveless"},
		Source: "spotify+db",
	}}
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, syncer, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/music/albums/sync", "application/json",
		strings.NewReader(`{"spotify_album_id":"alb1","market":"KR"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body albumDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if syncer.gotID != "alb1" || syncer.gotMkt != "KR" {
		t.Errorf("sync called with id=%q market=%q", syncer.gotID, syncer.gotMkt)
	}
	if body.Meta.Source != "spotify+db" {
		t.Errorf("source = %q", body.Meta.Source)
	}
}

func TestSyncAlbumEndpointRequiresID(t *testing.T) {
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/music/albums/sync", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCandidateSearchMapsProviderFailureToBadGateway(t *testing.T) {
	candidates := &fakeCandidates{err: &spotify.APIError{StatusCode: 503, URL: "/v1/search"}}
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, candidates, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	getJSON(t, ts.URL+"/api/music/search/candidates?q=x", http.StatusBadGateway, nil)
}

func TestArtistAlbumsRejectsBadID(t *testing.T) {
	ts := newTestServer(quietHandlers(&fakeBasicSearcher{}, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	getJSON(t, ts.URL+"/api/music/artists/nope/albums", http.StatusBadRequest, nil)
}

func TestArtistAlbumsNotFound(t *testing.T) {
	searcher := &fakeBasicSearcher{err: db.ErrNotFound}
	ts := newTestServer(quietHandlers(searcher, &fakeCandidates{}, &fakeSyncer{}, &fakeAlbumReader{}, &fakeTrackReader{}))
	defer ts.Close()

	getJSON(t, ts.URL+"/api/music/artists/"+uuid.NewString()+"/albums", http.StatusNotFound, nil)
}
