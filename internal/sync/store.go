package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/spotify"
)

// Catalog is the slice of the provider client the sync pipeline consumes.
type Catalog interface {
	GetAlbum(ctx context.Context, albumID, market string) (*spotify.Album, error)
	GetAlbumTracksAll(ctx context.Context, albumID, market string) ([]spotify.Track, error)
	GetArtists(ctx context.Context, ids []string) ([]spotify.Artist, error)
}

// ArtistStore resolves artist identities by external ID.
type ArtistStore interface {
	Upsert(ctx context.Context, in db.ArtistUpsert) (*db.Artist, error)
	RequireAllBySpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]*db.Artist, error)
}

// AlbumStore persists albums and their artist links.
type AlbumStore interface {
	Upsert(ctx context.Context, in db.AlbumUpsert) (*db.Album, error)
	LinkArtists(ctx context.Context, albumID uuid.UUID, artistIDs []uuid.UUID) error
}

// TrackStore persists tracks and their artist links.
type TrackStore interface {
	Upsert(ctx context.Context, in db.TrackUpsert) (*db.Track, error)
	LinkArtists(ctx context.Context, trackID uuid.UUID, artistIDs []uuid.UUID) error
	ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]db.Track, error)
}

// Tx is one open store transaction. All writes through its repositories
// become visible atomically on Commit.
type Tx interface {
	Artists() ArtistStore
	Albums() AlbumStore
	Tracks() TrackStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions for sync runs.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Interface checks against the pgx-backed repositories.
var (
	_ ArtistStore = (*db.ArtistRepository)(nil)
	_ AlbumStore  = (*db.AlbumRepository)(nil)
	_ TrackStore  = (*db.TrackRepository)(nil)
)

// NewStore adapts *db.DB to the Store interface.
func NewStore(database *db.DB) Store {
	return &pgStore{db: database}
}

type pgStore struct {
	db *db.DB
}

func (s *pgStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx *db.Tx
}

func (t *pgTx) Artists() ArtistStore              { return t.tx.Artists() }
func (t *pgTx) Albums() AlbumStore                { return t.tx.Albums() }
func (t *pgTx) Tracks() TrackStore                { return t.tx.Tracks() }
func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
