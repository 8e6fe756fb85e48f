package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MissingArtistsError reports credited artists that were expected in the
// store but are absent. It signals a pipeline invariant violation: artist
// resolution is strictly an upstream responsibility and must complete before
// anything that depends on it.
type MissingArtistsError struct {
	SpotifyIDs []string
}

func (e *MissingArtistsError) Error() string {
	return fmt.Sprintf("missing artists in store (spotify_id): %s", strings.Join(e.SpotifyIDs, ", "))
}

// ArtistRepository handles artist database operations.
type ArtistRepository struct {
	q Querier
}

// ArtistUpsert is the input to Upsert. Nil optional fields mean "not
// supplied" and leave any existing value untouched.
type ArtistUpsert struct {
	SpotifyID      string
	Name           string
	PhotoURL       *string
	Genres         []string
	FollowersCount *int
	Popularity     *int
	ExtRefs        ExtRefs
}

const artistColumns = `id, spotify_id, name, photo_url, genres, followers_count, popularity, ext_refs, views, created_at`

func scanArtist(row pgx.Row) (*Artist, error) {
	var a Artist
	err := row.Scan(
		&a.ID,
		&a.SpotifyID,
		&a.Name,
		&a.PhotoURL,
		&a.Genres,
		&a.FollowersCount,
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

// Upsert finds-or-creates an artist by its provider ID. Existing records are
// merged, never clobbered: the name is overwritten only when the new one is
// non-empty, optional attributes only when supplied, and ext_refs key by key
// with new keys winning. The unique index on spotify_id is the source of
// truth for the no-duplicates invariant.
func (r *ArtistRepository) Upsert(ctx context.Context, in ArtistUpsert) (*Artist, error) {
	if in.SpotifyID == "" {
		return nil, errors.New("upserting artist: empty spotify_id")
	}
	if in.ExtRefs == nil {
		in.ExtRefs = ExtRefs{}
	}

	query := `
		INSERT INTO artists (id, spotify_id, name, photo_url, genres, followers_count, popularity, ext_refs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			name            = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE artists.name END,
			photo_url       = COALESCE(EXCLUDED.photo_url, artists.photo_url),
			genres          = COALESCE(EXCLUDED.genres, artists.genres),
			followers_count = COALESCE(EXCLUDED.followers_count, artists.followers_count),
			popularity      = COALESCE(EXCLUDED.popularity, artists.popularity),
			ext_refs        = artists.ext_refs || EXCLUDED.ext_refs
		RETURNING ` + artistColumns

	artist, err := scanArtist(r.q.QueryRow(ctx, query,
		uuid.New(),
		in.SpotifyID,
		in.Name,
		in.PhotoURL,
		in.Genres,
		in.FollowersCount,
		in.Popularity,
		in.ExtRefs,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting artist: %w", err)
	}
	return artist, nil
}

// GetByID retrieves an artist by local ID.
func (r *ArtistRepository) GetByID(ctx context.Context, id uuid.UUID) (*Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = $1`
	artist, err := scanArtist(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist: %w", err)
	}
	return artist, nil
}

// GetBySpotifyID retrieves an artist by provider ID.
func (r *ArtistRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE spotify_id = $1`
	artist, err := scanArtist(r.q.QueryRow(ctx, query, spotifyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist: %w", err)
	}
	return artist, nil
}

// SearchByName retrieves artists whose name contains q, case-insensitively.
func (r *ArtistRepository) SearchByName(ctx context.Context, q string, limit, offset int) ([]Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY popularity DESC NULLS LAST, name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching artists: %w", err)
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

// GetMapBySpotifyIDs retrieves artists for a set of provider IDs, keyed by
// provider ID. IDs with no local record are simply absent from the map.
func (r *ArtistRepository) GetMapBySpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]*Artist, error) {
	m := make(map[string]*Artist, len(spotifyIDs))
	if len(spotifyIDs) == 0 {
		return m, nil
	}

	query := `SELECT ` + artistColumns + ` FROM artists WHERE spotify_id = ANY($1)`
	rows, err := r.q.Query(ctx, query, spotifyIDs)
	if err != nil {
		return nil, fmt.Errorf("querying artists by spotify ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		m[artist.SpotifyID] = artist
	}
	return m, rows.Err()
}

// RequireAllBySpotifyIDs retrieves artists for all given provider IDs and
// fails with MissingArtistsError naming every absent ID if any is not found.
// Callers use it to enforce that artist resolution happened upstream.
func (r *ArtistRepository) RequireAllBySpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]*Artist, error) {
	m, err := r.GetMapBySpotifyIDs(ctx, spotifyIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(spotifyIDs, m); len(missing) > 0 {
		return nil, &MissingArtistsError{SpotifyIDs: missing}
	}
	return m, nil
}

// missingIDs returns the sorted, deduplicated set of wanted IDs absent from
// the resolved map.
func missingIDs(want []string, have map[string]*Artist) []string {
	var missing []string
	seen := make(map[string]struct{}, len(want))
	for _, id := range want {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
