package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

// newTestClient wires a client against a httptest mux serving both the
// token endpoint and the API surface.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(Config{
		ClientID:       "id",
		ClientSecret:   "secret",
		TokenURL:       server.URL + "/api/token",
		BaseURL:        server.URL + "/v1",
		RequestsPerSec: 1000, // keep the limiter out of the way
	})
	return client, server
}

func tokenHandler(hits *int, expiresIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok%d","token_type":"Bearer","expires_in":%d}`, *hits, expiresIn)
	}
}

func TestTokenRefreshesAtNinetyPercentOfLifetime(t *testing.T) {
	var tokenHits int
	var lastAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler(&tokenHits, 100))
	mux.HandleFunc("/v1/albums/a1", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id":"a1","name":"Album"}`)
	})

	client, _ := newTestClient(t, mux)

	now := time.Now()
	client.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := client.GetAlbum(ctx, "a1", ""); err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if tokenHits != 1 {
		t.Fatalf("token hits after first call = %d, want 1", tokenHits)
	}
	if lastAuth != "Bearer tok1" {
		t.Errorf("Authorization = %q, want Bearer tok1", lastAuth)
	}

	// 50s into a 100s lifetime: still inside the 90% window, cached token.
	now = now.Add(50 * time.Second)
	if _, err := client.GetAlbum(ctx, "a1", ""); err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if tokenHits != 1 {
		t.Errorf("token hits at 50%% lifetime = %d, want 1 (cached)", tokenHits)
	}

	// 91s: past the 90% mark, refresh before the request, not on failure.
	now = now.Add(41 * time.Second)
	if _, err := client.GetAlbum(ctx, "a1", ""); err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if tokenHits != 2 {
		t.Errorf("token hits past 90%% lifetime = %d, want 2", tokenHits)
	}
	if lastAuth != "Bearer tok2" {
		t.Errorf("Authorization = %q, want Bearer tok2", lastAuth)
	}
}

func TestTokenExchangeFailureIsHard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.GetAlbum(context.Background(), "a1", ""); err == nil {
		t.Fatal("expected error from failed credential exchange")
	}
}

func TestGetAlbumTracksAllFollowsPagination(t *testing.T) {
	var tokenHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler(&tokenHits, 3600))

	var server *httptest.Server
	var requests []string
	mux.HandleFunc("/v1/albums/a1/tracks", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())

		page := TrackPage{}
		if r.URL.Query().Get("offset") == "50" {
			for i := 51; i <= 70; i++ {
				page.Items = append(page.Items, Track{ID: fmt.Sprintf("t%d", i), TrackNumber: i})
			}
		} else {
			for i := 1; i <= 50; i++ {
				page.Items = append(page.Items, Track{ID: fmt.Sprintf("t%d", i), TrackNumber: i})
			}
			next := server.URL + "/v1/albums/a1/tracks?offset=50&limit=50"
			page.Next = &next
		}
		json.NewEncoder(w).Encode(page)
	})

	client, srv := newTestClient(t, mux)
	server = srv

	tracks, err := client.GetAlbumTracksAll(context.Background(), "a1", "KR")
	if err != nil {
		t.Fatalf("GetAlbumTracksAll: %v", err)
	}
	if len(tracks) != 70 {
		t.Fatalf("got %d tracks, want 70", len(tracks))
	}
	if tracks[0].ID != "t1" || tracks[69].ID != "t70" {
		t.Errorf("tracks out of order: first %s last %s", tracks[0].ID, tracks[69].ID)
	}
	if len(requests) != 2 {
		t.Fatalf("made %d requests, want 2", len(requests))
	}
	if !strings.Contains(requests[0], "market=KR") {
		t.Errorf("first request %q should carry the market", requests[0])
	}
	if !strings.Contains(requests[1], "offset=50") {
		t.Errorf("second request %q should follow the next pointer", requests[1])
	}
}

func TestGetArtistsChunksAtFifty(t *testing.T) {
	var tokenHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler(&tokenHits, 3600))

	var batchSizes []int
	mux.HandleFunc("/v1/artists", func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batchSizes = append(batchSizes, len(ids))

		resp := struct {
			Artists []Artist `json:"artists"`
		}{}
		for _, id := range ids {
			resp.Artists = append(resp.Artists, Artist{ID: id, Name: "artist " + id})
		}
		json.NewEncoder(w).Encode(resp)
	})

	client, _ := newTestClient(t, mux)

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("ar%d", i)
	}

	artists, err := client.GetArtists(context.Background(), ids)
	if err != nil {
		t.Fatalf("GetArtists: %v", err)
	}
	if len(artists) != 120 {
		t.Fatalf("got %d artists, want 120", len(artists))
	}
	if artists[0].ID != "ar0" || artists[119].ID != "ar119" {
		t.Errorf("results out of order: first %s last %s", artists[0].ID, artists[119].ID)
	}

	wantBatches := []int{50, 50, 20}
	if len(batchSizes) != len(wantBatches) {
		t.Fatalf("made %d batch requests, want %d", len(batchSizes), len(wantBatches))
	}
	for i, want := range wantBatches {
		if batchSizes[i] != want {
			t.Errorf("batch %d size = %d, want %d", i, batchSizes[i], want)
		}
	}
}

func TestGetArtistsEmptyInputShortCircuits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL)
	})

	client, _ := newTestClient(t, mux)

	artists, err := client.GetArtists(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetArtists: %v", err)
	}
	if len(artists) != 0 {
		t.Errorf("got %d artists, want 0", len(artists))
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	var tokenHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler(&tokenHits, 3600))
	mux.HandleFunc("/v1/albums/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":404}}`, http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.GetAlbum(context.Background(), "missing", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestSearchAlbumsBuildsFieldedQuery(t *testing.T) {
	var tokenHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler(&tokenHits, 3600))

	var gotQuery, gotType string
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotType = r.URL.Query().Get("type")
		json.NewEncoder(w).Encode(SearchDocument{Albums: &AlbumPage{Items: []Album{{ID: "al1"}}}})
	})

	client, _ := newTestClient(t, mux)

	page, err := client.SearchAlbums(context.Background(), "OK Computer", "Radiohead", 5, "")
	if err != nil {
		t.Fatalf("SearchAlbums: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "al1" {
		t.Errorf("unexpected page items: %+v", page.Items)
	}
	if gotQuery != `album:"OK Computer" artist:"Radiohead"` {
		t.Errorf("q = %q", gotQuery)
	}
	if gotType != "album" {
		t.Errorf("type = %q, want album", gotType)
	}
}

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"empty", 0, 50, nil},
		{"under limit", 3, 50, []int{3}},
		{"exact limit", 50, 50, []int{50}},
		{"one over", 51, 50, []int{50, 1}},
		{"several", 120, 50, []int{50, 50, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.n)
			chunks := chunkIDs(ids, tt.size)
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}
			for i, want := range tt.want {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d has %d ids, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}
}
