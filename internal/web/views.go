package web

import (
	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/search"
)

// syncRequest is the POST /albums/sync body.
type syncRequest struct {
	SpotifyAlbumID string `json:"spotify_album_id"`
	Market         string `json:"market"`
}

type responseMeta struct {
	Source string `json:"source"`
}

type albumDetailResponse struct {
	Album   *db.Album    `json:"album"`
	Artists []db.Artist  `json:"artists"`
	Tracks  []db.Track   `json:"tracks"`
	Meta    responseMeta `json:"meta"`
}

type artistAlbumsResponse struct {
	Artist *db.Artist         `json:"artist"`
	Albums []search.AlbumItem `json:"albums"`
}

type errorResponse struct {
	Error string `json:"error"`
}
