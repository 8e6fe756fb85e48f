package search

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/spotify"
)

// candidateTypes is the provider search type vocabulary, in response order.
var candidateTypes = []string{"album", "artist", "track"}

// Searcher is the slice of the provider client candidate discovery uses.
type Searcher interface {
	Search(ctx context.Context, q string, types []string, opts spotify.SearchOptions) (*spotify.SearchDocument, error)
}

// AlbumIndex reports which external album IDs are already stored locally.
type AlbumIndex interface {
	ExistingSpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]struct{}, error)
}

var _ AlbumIndex = (*db.AlbumRepository)(nil)

// Enqueuer hands discovered album IDs to the ingestion queue. Delivery is
// best effort; implementations swallow and log their own failures.
type Enqueuer interface {
	EnqueueAlbumSync(ctx context.Context, spotifyAlbumIDs []string, market string)
}

// CandidateParams are the request parameters for a candidate search.
type CandidateParams struct {
	Query           string
	Types           []string
	Market          string
	Limit           int
	Offset          int
	IncludeExternal string
}

// ArtistRef is a lightweight artist credit on a candidate.
type ArtistRef struct {
	SpotifyID string `json:"spotify_id"`
	Name      string `json:"name"`
}

// AlbumCandidate is a provider album mapped for the candidate response.
// Stored marks albums that already exist in the local catalog.
type AlbumCandidate struct {
	SpotifyID   string      `json:"spotify_id"`
	Title       string      `json:"title"`
	AlbumType   string      `json:"album_type,omitempty"`
	ReleaseDate string      `json:"release_date,omitempty"`
	TotalTracks int         `json:"total_tracks,omitempty"`
	CoverURL    string      `json:"cover_url,omitempty"`
	SpotifyURL  string      `json:"spotify_url,omitempty"`
	Artists     []ArtistRef `json:"artists"`
	Stored      bool        `json:"stored"`
}

// ArtistCandidate is a provider artist mapped for the candidate response.
type ArtistCandidate struct {
	SpotifyID  string   `json:"spotify_id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Followers  int      `json:"followers,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	PhotoURL   string   `json:"photo_url,omitempty"`
	SpotifyURL string   `json:"spotify_url,omitempty"`
}

// TrackCandidate is a provider track mapped for the candidate response.
type TrackCandidate struct {
	SpotifyID   string          `json:"spotify_id"`
	Title       string          `json:"title"`
	TrackNo     int             `json:"track_no,omitempty"`
	DurationSec int             `json:"duration_sec,omitempty"`
	SpotifyURL  string          `json:"spotify_url,omitempty"`
	Artists     []ArtistRef     `json:"artists"`
	Album       *AlbumCandidate `json:"album,omitempty"`
}

// Pagination mirrors the provider's per-type pagination envelope.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasNext bool `json:"has_next"`
}

// CandidateResult is a candidate search response. Only the requested type
// blocks carry pagination.
type CandidateResult struct {
	Albums          []AlbumCandidate  `json:"albums,omitempty"`
	AlbumsPage      *Pagination       `json:"albums_pagination,omitempty"`
	Artists         []ArtistCandidate `json:"artists,omitempty"`
	ArtistsPage     *Pagination       `json:"artists_pagination,omitempty"`
	Tracks          []TrackCandidate  `json:"tracks,omitempty"`
	TracksPage      *Pagination       `json:"tracks_pagination,omitempty"`
	EnqueuedAlbums  int               `json:"enqueued_albums"`
	DiscoveredTotal int               `json:"discovered_albums"`
}

// Candidates discovers provider catalog entries, marks which albums are
// already stored, and feeds the unstored ones to the ingestion queue.
type Candidates struct {
	catalog  Searcher
	albums   AlbumIndex
	enqueuer Enqueuer
	logger   *log.Logger
}

// CandidatesOption configures a Candidates service.
type CandidatesOption func(*Candidates)

// WithEnqueuer attaches the ingestion queue. Without one, discovery still
// works but nothing is enqueued.
func WithEnqueuer(e Enqueuer) CandidatesOption {
	return func(c *Candidates) {
		c.enqueuer = e
	}
}

// WithCandidatesLogger sets the service logger.
func WithCandidatesLogger(logger *log.Logger) CandidatesOption {
	return func(c *Candidates) {
		c.logger = logger
	}
}

// NewCandidates creates a candidate discovery service.
func NewCandidates(catalog Searcher, albums AlbumIndex, opts ...CandidatesOption) *Candidates {
	c := &Candidates{
		catalog: catalog,
		albums:  albums,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a provider search across the requested types, maps the
// results, and enqueues any discovered album not yet in the local store.
// Enqueue failures never fail the search.
func (c *Candidates) Search(ctx context.Context, params CandidateParams) (*CandidateResult, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("candidate search: empty query")
	}
	types, err := normalizeTypes(params.Types)
	if err != nil {
		return nil, err
	}
	limit, offset := clampPage(params.Limit, params.Offset)

	doc, err := c.catalog.Search(ctx, params.Query, types, spotify.SearchOptions{
		Market:          params.Market,
		Limit:           limit,
		Offset:          offset,
		IncludeExternal: params.IncludeExternal,
	})
	if err != nil {
		return nil, fmt.Errorf("provider search: %w", err)
	}

	discovered := collectCandidateAlbumIDs(doc)
	stored, err := c.albums.ExistingSpotifyIDs(ctx, discovered)
	if err != nil {
		return nil, fmt.Errorf("checking stored albums: %w", err)
	}

	result := &CandidateResult{DiscoveredTotal: len(discovered)}
	if doc.Albums != nil {
		result.Albums = make([]AlbumCandidate, len(doc.Albums.Items))
		for i, a := range doc.Albums.Items {
			result.Albums[i] = mapAlbumCandidate(a, stored)
		}
		result.AlbumsPage = paginationFrom(doc.Albums.PageInfo)
	}
	if doc.Artists != nil {
		result.Artists = make([]ArtistCandidate, len(doc.Artists.Items))
		for i, a := range doc.Artists.Items {
			result.Artists[i] = mapArtistCandidate(a)
		}
		result.ArtistsPage = paginationFrom(doc.Artists.PageInfo)
	}
	if doc.Tracks != nil {
		result.Tracks = make([]TrackCandidate, len(doc.Tracks.Items))
		for i, t := range doc.Tracks.Items {
			result.Tracks[i] = mapTrackCandidate(t, stored)
		}
		result.TracksPage = paginationFrom(doc.Tracks.PageInfo)
	}

	var unstored []string
	for _, id := range discovered {
		if _, ok := stored[id]; !ok {
			unstored = append(unstored, id)
		}
	}
	if len(unstored) > 0 && c.enqueuer != nil {
		c.enqueuer.EnqueueAlbumSync(ctx, unstored, params.Market)
		result.EnqueuedAlbums = len(unstored)
	}

	return result, nil
}

// normalizeTypes validates the requested search types against the provider
// vocabulary, preserving request order and dropping duplicates. An empty
// request means all types; a request with no valid type is an error.
func normalizeTypes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return candidateTypes, nil
	}

	allowed := make(map[string]struct{}, len(candidateTypes))
	for _, t := range candidateTypes {
		allowed[t] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, t := range requested {
		if _, ok := allowed[t]; !ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid search types in %v", requested)
	}
	return out, nil
}

// collectCandidateAlbumIDs gathers album external IDs from the album block
// first, then from track results' parent albums, deduplicated in first-seen
// order.
func collectCandidateAlbumIDs(doc *spotify.SearchDocument) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if doc.Albums != nil {
		for _, a := range doc.Albums.Items {
			add(a.ID)
		}
	}
	if doc.Tracks != nil {
		for _, t := range doc.Tracks.Items {
			if t.Album != nil {
				add(t.Album.ID)
			}
		}
	}
	return ids
}

func mapAlbumCandidate(a spotify.Album, stored map[string]struct{}) AlbumCandidate {
	_, isStored := stored[a.ID]
	return AlbumCandidate{
		SpotifyID:   a.ID,
		Title:       a.Name,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		TotalTracks: a.TotalTracks,
		CoverURL:    a.ImageURL(),
		SpotifyURL:  a.SpotifyURL(),
		Artists:     mapArtistRefs(a.Artists),
		Stored:      isStored,
	}
}

func mapArtistCandidate(a spotify.Artist) ArtistCandidate {
	return ArtistCandidate{
		SpotifyID:  a.ID,
		Name:       a.Name,
		Genres:     a.Genres,
		Followers:  a.Followers.Total,
		Popularity: a.Popularity,
		PhotoURL:   a.ImageURL(),
		SpotifyURL: a.SpotifyURL(),
	}
}

func mapTrackCandidate(t spotify.Track, stored map[string]struct{}) TrackCandidate {
	out := TrackCandidate{
		SpotifyID:   t.ID,
		Title:       t.Name,
		TrackNo:     t.TrackNumber,
		DurationSec: t.DurationMS / 1000,
		SpotifyURL:  t.SpotifyURL(),
		Artists:     mapArtistRefs(t.Artists),
	}
	if t.Album != nil {
		album := mapAlbumCandidate(*t.Album, stored)
		out.Album = &album
	}
	return out
}

func mapArtistRefs(artists []spotify.Artist) []ArtistRef {
	refs := make([]ArtistRef, len(artists))
	for i, a := range artists {
		refs[i] = ArtistRef{SpotifyID: a.ID, Name: a.Name}
	}
	return refs
}

func paginationFrom(p spotify.PageInfo) *Pagination {
	return &Pagination{
		Total:   p.Total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasNext: p.Next != nil && *p.Next != "",
	}
}
