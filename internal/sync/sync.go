// Package sync implements the album ingestion pipeline: fetch an album and
// its tracks from the provider, resolve every credited artist, and persist
// the whole graph in a single database transaction.
package sync

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/singleflight"
	"github.com/ratemymusic/catalog/internal/spotify"
)

// AlbumDetail is the result of a sync run: the album row as committed,
// its linked artists, and its tracks in album order.
type AlbumDetail struct {
	Album   *db.Album   `json:"album"`
	Artists []db.Artist `json:"artists"`
	Tracks  []db.Track  `json:"tracks"`
	Source  string      `json:"source"`
}

// Service orchestrates album syncs.
type Service struct {
	store   Store
	catalog Catalog
	guard   *singleflight.Guard
	logger  *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithGuard sets the per-album guard. Services sharing a guard serialize
// syncs of the same album across each other.
func WithGuard(guard *singleflight.Guard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// NewService creates a sync service over the given store and provider client.
func NewService(store Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: catalog,
		guard:   singleflight.New(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAlbum fetches the album and its full track listing from the provider,
// resolves all credited artists, and upserts everything atomically. Repeated
// syncs of the same album are idempotent, and concurrent syncs of the same
// album serialize behind a per-album lock so the later one re-runs against
// the committed state.
//
// Provider fetches happen before the transaction opens, so a provider error
// never leaves a partial write behind.
func (s *Service) SyncAlbum(ctx context.Context, spotifyAlbumID, market string) (*AlbumDetail, error) {
	if spotifyAlbumID == "" {
		return nil, fmt.Errorf("syncing album: empty album id")
	}

	key := "sync:" + spotifyAlbumID
	s.guard.Acquire(key)
	defer s.guard.Release(key)

	album, err := s.catalog.GetAlbum(ctx, spotifyAlbumID, market)
	if err != nil {
		return nil, fmt.Errorf("fetching album %s: %w", spotifyAlbumID, err)
	}
	tracks, err := s.catalog.GetAlbumTracksAll(ctx, spotifyAlbumID, market)
	if err != nil {
		return nil, fmt.Errorf("fetching tracks for album %s: %w", spotifyAlbumID, err)
	}

	artistIDs := collectArtistIDs(album, tracks)
	profiles, err := s.catalog.GetArtists(ctx, artistIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching artists for album %s: %w", spotifyAlbumID, err)
	}
	byID := make(map[string]spotify.Artist, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	albumArtists := make([]uuid.UUID, 0, len(album.Artists))
	detailArtists := make([]db.Artist, 0, len(album.Artists))
	onAlbum := make(map[string]struct{}, len(album.Artists))
	for _, a := range album.Artists {
		onAlbum[a.ID] = struct{}{}
	}

	for _, id := range artistIDs {
		credit := creditNamed(id, album, tracks)
		if full, ok := byID[id]; ok {
			credit = full
		}
		row, err := tx.Artists().Upsert(ctx, artistUpsertFrom(credit))
		if err != nil {
			return nil, fmt.Errorf("upserting artist %s: %w", id, err)
		}
		if _, ok := onAlbum[id]; ok {
			albumArtists = append(albumArtists, row.ID)
			detailArtists = append(detailArtists, *row)
		}
	}

	albumRow, err := tx.Albums().Upsert(ctx, db.AlbumUpsert{
		SpotifyID:   album.ID,
		Title:       album.Name,
		ReleaseDate: NormalizeReleaseDate(album.ReleaseDate, album.ReleaseDatePrecision),
		CoverURL:    nonEmptyPtr(album.ImageURL()),
		AlbumType:   nonEmptyPtr(album.AlbumType),
		TotalTracks: &album.TotalTracks,
		Label:       nonEmptyPtr(album.Label),
		Popularity:  &album.Popularity,
		ExtRefs:     extRefsFor(album.SpotifyURL()),
	})
	if err != nil {
		return nil, fmt.Errorf("upserting album %s: %w", spotifyAlbumID, err)
	}
	if err := tx.Albums().LinkArtists(ctx, albumRow.ID, albumArtists); err != nil {
		return nil, fmt.Errorf("linking album artists: %w", err)
	}

	if err := ingestTracks(ctx, tx, albumRow.ID, tracks, album.Artists); err != nil {
		return nil, err
	}

	storedTracks, err := tx.Tracks().ListByAlbum(ctx, albumRow.ID)
	if err != nil {
		return nil, fmt.Errorf("listing synced tracks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing sync for album %s: %w", spotifyAlbumID, err)
	}

	s.logger.Info("album synced",
		"spotify_album_id", spotifyAlbumID,
		"album_id", albumRow.ID,
		"artists", len(artistIDs),
		"tracks", len(storedTracks),
	)

	return &AlbumDetail{
		Album:   albumRow,
		Artists: detailArtists,
		Tracks:  storedTracks,
		Source:  "spotify+db",
	}, nil
}

// collectArtistIDs gathers the distinct provider artist IDs across the album
// and its tracks, album credits first, in first-seen order.
func collectArtistIDs(album *spotify.Album, tracks []spotify.Track) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(a spotify.Artist) {
		if a.ID == "" {
			return
		}
		if _, ok := seen[a.ID]; ok {
			return
		}
		seen[a.ID] = struct{}{}
		ids = append(ids, a.ID)
	}
	for _, a := range album.Artists {
		add(a)
	}
	for _, t := range tracks {
		for _, a := range t.Artists {
			add(a)
		}
	}
	return ids
}

// creditNamed finds the simplified credit for an artist ID within the album
// payload, so an artist the batch endpoint did not return still gets a row
// with at least its credited name.
func creditNamed(id string, album *spotify.Album, tracks []spotify.Track) spotify.Artist {
	for _, a := range album.Artists {
		if a.ID == id {
			return a
		}
	}
	for _, t := range tracks {
		for _, a := range t.Artists {
			if a.ID == id {
				return a
			}
		}
	}
	return spotify.Artist{ID: id}
}

// artistUpsertFrom maps a provider artist onto an upsert. Simplified credits
// carry zero followers and popularity, which must not clobber real values
// from an earlier full sync, so zeros become "not supplied".
func artistUpsertFrom(a spotify.Artist) db.ArtistUpsert {
	in := db.ArtistUpsert{
		SpotifyID: a.ID,
		Name:      a.Name,
		PhotoURL:  nonEmptyPtr(a.ImageURL()),
		Genres:    a.Genres,
		ExtRefs:   extRefsFor(a.SpotifyURL()),
	}
	if a.Followers.Total > 0 {
		followers := a.Followers.Total
		in.FollowersCount = &followers
	}
	if a.Popularity > 0 {
		popularity := a.Popularity
		in.Popularity = &popularity
	}
	return in
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// extRefsFor builds an ext_refs payload with the provider permalink. An
// absent permalink omits the key entirely so the jsonb merge on upsert
// cannot blank out a previously stored one.
func extRefsFor(spotifyURL string) db.ExtRefs {
	refs := db.ExtRefs{}
	if spotifyURL != "" {
		refs[db.ExtRefSpotifyURL] = spotifyURL
	}
	return refs
}
