package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TrackRepository handles track database operations.
type TrackRepository struct {
	q Querier
}

// TrackUpsert is the input to Upsert.
type TrackUpsert struct {
	AlbumID     uuid.UUID
	SpotifyID   *string
	Title       string
	TrackNo     *int
	DurationSec *int
	ExtRefs     ExtRefs
}

const trackColumns = `id, album_id, spotify_id, title, track_no, duration_sec, ext_refs, views, created_at`

func scanTrack(row pgx.Row) (*Track, error) {
	var t Track
	err := row.Scan(
		&t.ID,
		&t.AlbumID,
		&t.SpotifyID,
		&t.Title,
		&t.TrackNo,
		&t.DurationSec,
		&t.ExtRefs,
		&t.Views,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert creates or updates a track by its provider ID, refreshing title,
// track number and duration on conflict. A track without a provider ID
// cannot be deduplicated and is inserted as-is.
func (r *TrackRepository) Upsert(ctx context.Context, in TrackUpsert) (*Track, error) {
	if in.ExtRefs == nil {
		in.ExtRefs = ExtRefs{}
	}

	if in.SpotifyID == nil || *in.SpotifyID == "" {
		query := `
			INSERT INTO tracks (id, album_id, spotify_id, title, track_no, duration_sec, ext_refs, created_at)
			VALUES ($1, $2, NULL, $3, $4, $5, $6, NOW())
			RETURNING ` + trackColumns
		track, err := scanTrack(r.q.QueryRow(ctx, query,
			uuid.New(), in.AlbumID, in.Title, in.TrackNo, in.DurationSec, in.ExtRefs,
		))
		if err != nil {
			return nil, fmt.Errorf("inserting track: %w", err)
		}
		return track, nil
	}

	query := `
		INSERT INTO tracks (id, album_id, spotify_id, title, track_no, duration_sec, ext_refs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (spotify_id) WHERE spotify_id IS NOT NULL DO UPDATE SET
			title        = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE tracks.title END,
			track_no     = EXCLUDED.track_no,
			duration_sec = EXCLUDED.duration_sec
		RETURNING ` + trackColumns

	track, err := scanTrack(r.q.QueryRow(ctx, query,
		uuid.New(), in.AlbumID, in.SpotifyID, in.Title, in.TrackNo, in.DurationSec, in.ExtRefs,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting track: %w", err)
	}
	return track, nil
}

// GetBySpotifyID retrieves a track by provider ID.
func (r *TrackRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE spotify_id = $1`
	track, err := scanTrack(r.q.QueryRow(ctx, query, spotifyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	return track, nil
}

// ListByAlbum retrieves an album's tracks in track-number order.
func (r *TrackRepository) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE album_id = $1
		ORDER BY track_no NULLS LAST, created_at
	`
	rows, err := r.q.Query(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("querying album tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}

// LinkArtists idempotently links a track to the given artists.
func (r *TrackRepository) LinkArtists(ctx context.Context, trackID uuid.UUID, artistIDs []uuid.UUID) error {
	if len(artistIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO track_artists (track_id, artist_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (track_id, artist_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, trackID, artistIDs); err != nil {
		return fmt.Errorf("linking track artists: %w", err)
	}
	return nil
}

// ArtistsFor retrieves the artists credited on a track.
func (r *TrackRepository) ArtistsFor(ctx context.Context, trackID uuid.UUID) ([]Artist, error) {
	query := `
		SELECT ` + prefixedArtistColumns + `
		FROM artists a
		JOIN track_artists ta ON ta.artist_id = a.id
		WHERE ta.track_id = $1
		ORDER BY a.name
	`
	rows, err := r.q.Query(ctx, query, trackID)
	if err != nil {
		return nil, fmt.Errorf("querying track artists: %w", err)
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
