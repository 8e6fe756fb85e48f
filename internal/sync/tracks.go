package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/spotify"
)

// ingestTracks upserts an album's tracks and links each to its credited
// artists. Tracks without per-track credits fall back to the album's own
// artist list.
//
// Every credited artist must already exist locally: resolution is an
// upstream pipeline stage, and a missing artist here aborts the whole
// ingestion rather than silently creating a stub.
func ingestTracks(ctx context.Context, tx Tx, albumID uuid.UUID, tracks []spotify.Track, fallback []spotify.Artist) error {
	needed := creditedArtistIDs(tracks, fallback)

	resolved, err := tx.Artists().RequireAllBySpotifyIDs(ctx, needed)
	if err != nil {
		return fmt.Errorf("resolving credited artists: %w", err)
	}

	for _, t := range tracks {
		duration := t.DurationMS / 1000
		trackNo := t.TrackNumber

		var spotifyID *string
		if t.ID != "" {
			id := t.ID
			spotifyID = &id
		}

		row, err := tx.Tracks().Upsert(ctx, db.TrackUpsert{
			AlbumID:     albumID,
			SpotifyID:   spotifyID,
			Title:       t.Name,
			TrackNo:     &trackNo,
			DurationSec: &duration,
			ExtRefs:     extRefsFor(t.SpotifyURL()),
		})
		if err != nil {
			return fmt.Errorf("upserting track %q: %w", t.Name, err)
		}

		var artistIDs []uuid.UUID
		for _, credit := range creditsFor(t, fallback) {
			artist, ok := resolved[credit.ID]
			if !ok {
				// unreachable given the fail-fast above; skip rather
				// than link a stub
				continue
			}
			artistIDs = append(artistIDs, artist.ID)
		}
		if err := tx.Tracks().LinkArtists(ctx, row.ID, artistIDs); err != nil {
			return fmt.Errorf("linking artists for track %q: %w", t.Name, err)
		}
	}
	return nil
}

// creditsFor returns a track's artist credits, substituting the fallback
// list when the track carries none.
func creditsFor(t spotify.Track, fallback []spotify.Artist) []spotify.Artist {
	if len(t.Artists) > 0 {
		return t.Artists
	}
	return fallback
}

// creditedArtistIDs collects the distinct provider artist IDs referenced by
// the tracks, applying the fallback substitution, in first-seen order.
func creditedArtistIDs(tracks []spotify.Track, fallback []spotify.Artist) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, t := range tracks {
		for _, a := range creditsFor(t, fallback) {
			if a.ID == "" {
				continue
			}
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			ids = append(ids, a.ID)
		}
	}
	return ids
}
