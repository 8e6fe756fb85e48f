package db

import (
	"time"

	"github.com/google/uuid"
)

// ExtRefs is the open-ended provider attribute bag stored as JSONB next to
// each entity's fixed columns. Upserts merge it shallowly: new keys win,
// keys absent from the update are preserved.
type ExtRefs map[string]any

// ExtRefSpotifyURL is the documented ExtRefs key holding the provider's
// canonical permalink for an entity.
const ExtRefSpotifyURL = "spotify_url"

// Artist is a locally stored catalog artist. SpotifyID is the natural key;
// names are not unique (distinct artists may share one).
type Artist struct {
	ID             uuid.UUID `json:"id"`
	SpotifyID      string    `json:"spotify_id"`
	Name           string    `json:"name"`
	PhotoURL       *string   `json:"photo_url,omitempty"`
	Genres         []string  `json:"genres,omitempty"`
	FollowersCount *int      `json:"followers_count,omitempty"`
	Popularity     *int      `json:"popularity,omitempty"`
	ExtRefs        ExtRefs   `json:"ext_refs,omitempty"`
	Views          int       `json:"views"`
	CreatedAt      time.Time `json:"created_at"`
}

// Album is a locally stored album. It owns its tracks (cascade delete) and
// shares artists through album_artists.
type Album struct {
	ID          uuid.UUID  `json:"id"`
	SpotifyID   string     `json:"spotify_id"`
	Title       string     `json:"title"`
	ReleaseDate *time.Time `json:"release_date,omitempty"` // nullable: provider may report only year or year-month
	CoverURL    *string    `json:"cover_url,omitempty"`
	AlbumType   *string    `json:"album_type,omitempty"`
	TotalTracks *int       `json:"total_tracks,omitempty"`
	Label       *string    `json:"label,omitempty"`
	Popularity  *int       `json:"popularity,omitempty"`
	ExtRefs     ExtRefs    `json:"ext_refs,omitempty"`
	Views       int        `json:"views"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Track belongs to exactly one album. SpotifyID is nullable: the provider
// occasionally omits it, in which case upsert-by-external-id degrades to a
// plain insert.
type Track struct {
	ID          uuid.UUID `json:"id"`
	AlbumID     uuid.UUID `json:"album_id"`
	SpotifyID   *string   `json:"spotify_id,omitempty"`
	Title       string    `json:"title"`
	TrackNo     *int      `json:"track_no,omitempty"`
	DurationSec *int      `json:"duration_sec,omitempty"`
	ExtRefs     ExtRefs   `json:"ext_refs,omitempty"`
	Views       int       `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrimaryArtist is the representative artist attached to an album in list
// views (the first linked artist seen).
type PrimaryArtist struct {
	Name      string `json:"name"`
	SpotifyID string `json:"spotify_id"`
}
