// Package search serves the catalog's read paths: basic queries against the
// local store and candidate discovery against the provider.
package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// ArtistFinder is the slice of the artist repository the read paths use.
type ArtistFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.Artist, error)
	SearchByName(ctx context.Context, q string, limit, offset int) ([]db.Artist, error)
}

// AlbumFinder is the slice of the album repository the read paths use.
type AlbumFinder interface {
	SearchByTitle(ctx context.Context, q string, limit, offset int) ([]db.Album, error)
	PrimaryArtistMap(ctx context.Context, albumIDs []uuid.UUID) (map[uuid.UUID]db.PrimaryArtist, error)
	ListByArtist(ctx context.Context, artistID uuid.UUID, limit, offset int) ([]db.Album, map[uuid.UUID]db.PrimaryArtist, error)
}

var (
	_ ArtistFinder = (*db.ArtistRepository)(nil)
	_ AlbumFinder  = (*db.AlbumRepository)(nil)
)

// AlbumItem is an album list entry with its primary-artist attribution.
type AlbumItem struct {
	Album  db.Album          `json:"album"`
	Artist *db.PrimaryArtist `json:"artist,omitempty"`
}

// BasicResult holds a basic search's matches. Exactly one of Artists and
// Albums is populated, per the mode.
type BasicResult struct {
	Mode    Mode        `json:"mode"`
	Artists []db.Artist `json:"artists,omitempty"`
	Albums  []AlbumItem `json:"albums,omitempty"`
}

// Service runs read queries against the local store.
type Service struct {
	artists ArtistFinder
	albums  AlbumFinder
}

// NewService creates a search service over the catalog database.
func NewService(database *db.DB) *Service {
	return &Service{
		artists: database.Artists(),
		albums:  database.Albums(),
	}
}

// BasicSearch queries the local store by name or title per the mode.
func (s *Service) BasicSearch(ctx context.Context, mode Mode, q string, limit, offset int) (*BasicResult, error) {
	limit, offset = clampPage(limit, offset)

	switch mode {
	case ModeArtist:
		artists, err := s.artists.SearchByName(ctx, q, limit, offset)
		if err != nil {
			return nil, err
		}
		return &BasicResult{Mode: mode, Artists: artists}, nil
	case ModeAlbum:
		albums, err := s.albums.SearchByTitle(ctx, q, limit, offset)
		if err != nil {
			return nil, err
		}
		items, err := s.attachPrimaryArtists(ctx, albums, nil)
		if err != nil {
			return nil, err
		}
		return &BasicResult{Mode: mode, Albums: items}, nil
	default:
		return nil, fmt.Errorf("unhandled search mode %v", mode)
	}
}

// ListAlbumsByArtist lists the albums an artist appears on, most popular and
// most recent first. The artist must exist locally.
func (s *Service) ListAlbumsByArtist(ctx context.Context, artistID uuid.UUID, limit, offset int) (*db.Artist, []AlbumItem, error) {
	limit, offset = clampPage(limit, offset)

	artist, err := s.artists.GetByID(ctx, artistID)
	if err != nil {
		return nil, nil, err
	}
	albums, primary, err := s.albums.ListByArtist(ctx, artistID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.attachPrimaryArtists(ctx, albums, primary)
	if err != nil {
		return nil, nil, err
	}
	return artist, items, nil
}

func (s *Service) attachPrimaryArtists(ctx context.Context, albums []db.Album, primary map[uuid.UUID]db.PrimaryArtist) ([]AlbumItem, error) {
	if primary == nil {
		ids := make([]uuid.UUID, len(albums))
		for i, a := range albums {
			ids[i] = a.ID
		}
		var err error
		primary, err = s.albums.PrimaryArtistMap(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	items := make([]AlbumItem, len(albums))
	for i, a := range albums {
		items[i] = AlbumItem{Album: a}
		if pa, ok := primary[a.ID]; ok {
			copied := pa
			items[i].Artist = &copied
		}
	}
	return items, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
