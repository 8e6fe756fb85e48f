package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AlbumRepository handles album database operations.
type AlbumRepository struct {
	q Querier
}

// AlbumUpsert is the input to Upsert. ReleaseDate, CoverURL and AlbumType
// mirror the provider payload and overwrite on resync; the remaining
// optional fields only overwrite when supplied.
type AlbumUpsert struct {
	SpotifyID   string
	Title       string
	ReleaseDate *time.Time
	CoverURL    *string
	AlbumType   *string
	TotalTracks *int
	Label       *string
	Popularity  *int
	ExtRefs     ExtRefs
}

const albumColumns = `id, spotify_id, title, release_date, cover_url, album_type, total_tracks, label, popularity, ext_refs, views, created_at`

func scanAlbum(row pgx.Row) (*Album, error) {
	var a Album
	err := row.Scan(
		&a.ID,
		&a.SpotifyID,
		&a.Title,
		&a.ReleaseDate,
		&a.CoverURL,
		&a.AlbumType,
		&a.TotalTracks,
		&a.Label,
		&a.Popularity,
		&a.ExtRefs,
		&a.Views,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert creates or updates an album by its provider ID. The title survives
// empty updates, ext_refs merge key by key, and the provider-sourced fields
// (release date, cover, type) track the latest payload.
func (r *AlbumRepository) Upsert(ctx context.Context, in AlbumUpsert) (*Album, error) {
	if in.SpotifyID == "" {
		return nil, errors.New("upserting album: empty spotify_id")
	}
	if in.ExtRefs == nil {
		in.ExtRefs = ExtRefs{}
	}

	query := `
		INSERT INTO albums (id, spotify_id, title, release_date, cover_url, album_type, total_tracks, label, popularity, ext_refs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			title        = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE albums.title END,
			release_date = EXCLUDED.release_date,
			cover_url    = EXCLUDED.cover_url,
			album_type   = EXCLUDED.album_type,
			total_tracks = COALESCE(EXCLUDED.total_tracks, albums.total_tracks),
			label        = COALESCE(EXCLUDED.label, albums.label),
			popularity   = COALESCE(EXCLUDED.popularity, albums.popularity),
			ext_refs     = albums.ext_refs || EXCLUDED.ext_refs
		RETURNING ` + albumColumns

	album, err := scanAlbum(r.q.QueryRow(ctx, query,
		uuid.New(),
		in.SpotifyID,
		in.Title,
		in.ReleaseDate,
		in.CoverURL,
		in.AlbumType,
		in.TotalTracks,
		in.Label,
		in.Popularity,
		in.ExtRefs,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting album: %w", err)
	}
	return album, nil
}

// GetByID retrieves an album by local ID.
func (r *AlbumRepository) GetByID(ctx context.Context, id uuid.UUID) (*Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums WHERE id = $1`
	album, err := scanAlbum(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying album: %w", err)
	}
	return album, nil
}

// GetBySpotifyID retrieves an album by provider ID.
func (r *AlbumRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums WHERE spotify_id = $1`
	album, err := scanAlbum(r.q.QueryRow(ctx, query, spotifyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying album: %w", err)
	}
	return album, nil
}

// SearchByTitle retrieves albums whose title contains q, most popular first.
func (r *AlbumRepository) SearchByTitle(ctx context.Context, q string, limit, offset int) ([]Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY popularity DESC NULLS LAST, title
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, *album)
	}
	return albums, rows.Err()
}

// LinkArtists idempotently links an album to the given artists. Re-linking
// an existing pair is a no-op, never a duplicate row.
func (r *AlbumRepository) LinkArtists(ctx context.Context, albumID uuid.UUID, artistIDs []uuid.UUID) error {
	if len(artistIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO album_artists (album_id, artist_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (album_id, artist_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, albumID, artistIDs); err != nil {
		return fmt.Errorf("linking album artists: %w", err)
	}
	return nil
}

// ArtistsFor retrieves the artists linked to an album.
func (r *AlbumRepository) ArtistsFor(ctx context.Context, albumID uuid.UUID) ([]Artist, error) {
	query := `
		SELECT ` + prefixedArtistColumns + `
		FROM artists a
		JOIN album_artists aa ON aa.artist_id = a.id
		WHERE aa.album_id = $1
		ORDER BY a.name
	`
	rows, err := r.q.Query(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("querying album artists: %w", err)
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, *artist)
	}
	return artists, rows.Err()
}

const prefixedArtistColumns = `a.id, a.spotify_id, a.name, a.photo_url, a.genres, a.followers_count, a.popularity, a.ext_refs, a.views, a.created_at`

// PrimaryArtistMap returns a representative artist per album: the first
// linked artist seen for each album ID.
func (r *AlbumRepository) PrimaryArtistMap(ctx context.Context, albumIDs []uuid.UUID) (map[uuid.UUID]PrimaryArtist, error) {
	result := make(map[uuid.UUID]PrimaryArtist, len(albumIDs))
	if len(albumIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT aa.album_id, a.name, a.spotify_id
		FROM album_artists aa
		JOIN artists a ON a.id = aa.artist_id
		WHERE aa.album_id = ANY($1)
	`
	rows, err := r.q.Query(ctx, query, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("querying primary artists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var albumID uuid.UUID
		var pa PrimaryArtist
		if err := rows.Scan(&albumID, &pa.Name, &pa.SpotifyID); err != nil {
			return nil, fmt.Errorf("scanning primary artist: %w", err)
		}
		if _, ok := result[albumID]; !ok {
			result[albumID] = pa
		}
	}
	return result, rows.Err()
}

// ExistingSpotifyIDs returns which of the given provider IDs already have a
// local album row.
func (r *AlbumRepository) ExistingSpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(spotifyIDs))
	if len(spotifyIDs) == 0 {
		return existing, nil
	}

	query := `SELECT spotify_id FROM albums WHERE spotify_id = ANY($1)`
	rows, err := r.q.Query(ctx, query, spotifyIDs)
	if err != nil {
		return nil, fmt.Errorf("querying existing album ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning album id: %w", err)
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// ListByArtist retrieves albums an artist appears on, most popular and most
// recent first, along with the artist attribution for each album.
func (r *AlbumRepository) ListByArtist(ctx context.Context, artistID uuid.UUID, limit, offset int) ([]Album, map[uuid.UUID]PrimaryArtist, error) {
	query := `
		SELECT ` + prefixedAlbumColumns + `, ar.name, ar.spotify_id
		FROM albums al
		JOIN album_artists aa ON aa.album_id = al.id
		JOIN artists ar ON ar.id = aa.artist_id
		WHERE ar.id = $1
		ORDER BY al.popularity DESC NULLS LAST, al.release_date DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.Query(ctx, query, artistID, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("querying artist albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	primary := make(map[uuid.UUID]PrimaryArtist)
	for rows.Next() {
		var a Album
		var pa PrimaryArtist
		if err := rows.Scan(
			&a.ID,
			&a.SpotifyID,
			&a.Title,
			&a.ReleaseDate,
			&a.CoverURL,
			&a.AlbumType,
			&a.TotalTracks,
			&a.Label,
			&a.Popularity,
			&a.ExtRefs,
			&a.Views,
			&a.CreatedAt,
			&pa.Name,
			&pa.SpotifyID,
		); err != nil {
			return nil, nil, fmt.Errorf("scanning artist album: %w", err)
		}
		albums = append(albums, a)
		if _, ok := primary[a.ID]; !ok {
			primary[a.ID] = pa
		}
	}
	return albums, primary, rows.Err()
}

const prefixedAlbumColumns = `al.id, al.spotify_id, al.title, al.release_date, al.cover_url, al.album_type, al.total_tracks, al.label, al.popularity, al.ext_refs, al.views, al.created_at`

// IncrementViews bumps an album's view counter.
func (r *AlbumRepository) IncrementViews(ctx context.Context, albumID uuid.UUID) error {
	query := `UPDATE albums SET views = views + 1 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, albumID); err != nil {
		return fmt.Errorf("incrementing album views: %w", err)
	}
	return nil
}
