package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/search"
	"github.com/ratemymusic/catalog/internal/spotify"
	"github.com/ratemymusic/catalog/internal/sync"
)

// Syncer runs album syncs.
type Syncer interface {
	SyncAlbum(ctx context.Context, spotifyAlbumID, market string) (*sync.AlbumDetail, error)
}

// BasicSearcher serves local store searches.
type BasicSearcher interface {
	BasicSearch(ctx context.Context, mode search.Mode, q string, limit, offset int) (*search.BasicResult, error)
	ListAlbumsByArtist(ctx context.Context, artistID uuid.UUID, limit, offset int) (*db.Artist, []search.AlbumItem, error)
}

// CandidateSearcher serves provider candidate discovery.
type CandidateSearcher interface {
	Search(ctx context.Context, params search.CandidateParams) (*search.CandidateResult, error)
}

// AlbumReader serves the album detail read path.
type AlbumReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.Album, error)
	GetBySpotifyID(ctx context.Context, spotifyID string) (*db.Album, error)
	ArtistsFor(ctx context.Context, albumID uuid.UUID) ([]db.Artist, error)
	IncrementViews(ctx context.Context, albumID uuid.UUID) error
}

// TrackReader serves an album's track listing.
type TrackReader interface {
	ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]db.Track, error)
}

var (
	_ AlbumReader = (*db.AlbumRepository)(nil)
	_ TrackReader = (*db.TrackRepository)(nil)
)

// Handlers contains the API's HTTP handlers.
type Handlers struct {
	search     BasicSearcher
	candidates CandidateSearcher
	sync       Syncer
	albums     AlbumReader
	tracks     TrackReader
	logger     *log.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(searcher BasicSearcher, candidates CandidateSearcher, syncer Syncer, albums AlbumReader, tracks TrackReader, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		search:     searcher,
		candidates: candidates,
		sync:       syncer,
		albums:     albums,
		tracks:     tracks,
		logger:     logger,
	}
}

// BasicSearch handles GET /api/music/search.
func (h *Handlers) BasicSearch(w http.ResponseWriter, r *http.Request) {
	mode, err := search.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("missing q parameter"))
		return
	}

	limit, offset := pageParams(r)
	result, err := h.search.BasicSearch(r.Context(), mode, q, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

// CandidateSearch handles GET /api/music/search/candidates.
func (h *Handlers) CandidateSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := search.CandidateParams{
		Query:           query.Get("q"),
		Market:          query.Get("market"),
		IncludeExternal: query.Get("include_external"),
	}
	if raw := query.Get("type"); raw != "" {
		params.Types = strings.Split(raw, ",")
	}
	params.Limit, params.Offset = pageParams(r)

	result, err := h.candidates.Search(r.Context(), params)
	if err != nil {
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) {
			h.logger.Warn("provider search failed", "status", apiErr.StatusCode, "err", err)
			h.writeError(w, http.StatusBadGateway, errors.New("catalog provider unavailable"))
			return
		}
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

// AlbumDetail handles GET /api/music/albums/{albumID}.
func (h *Handlers) AlbumDetail(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid album id"))
		return
	}
	album, err := h.albums.GetByID(r.Context(), albumID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeAlbumDetail(w, r, album)
}

// AlbumDetailBySpotifyID handles GET /api/music/albums/by-spotify/{spotifyAlbumID}.
func (h *Handlers) AlbumDetailBySpotifyID(w http.ResponseWriter, r *http.Request) {
	spotifyID := chi.URLParam(r, "spotifyAlbumID")
	if spotifyID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("missing spotify album id"))
		return
	}
	album, err := h.albums.GetBySpotifyID(r.Context(), spotifyID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeAlbumDetail(w, r, album)
}

func (h *Handlers) writeAlbumDetail(w http.ResponseWriter, r *http.Request, album *db.Album) {
	artists, err := h.albums.ArtistsFor(r.Context(), album.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	tracks, err := h.tracks.ListByAlbum(r.Context(), album.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.albums.IncrementViews(r.Context(), album.ID); err != nil {
		// the read already succeeded; losing one view count is tolerable
		h.logger.Warn("incrementing album views failed", "album_id", album.ID, "err", err)
	}

	h.respond(w, http.StatusOK, albumDetailResponse{
		Album:   album,
		Artists: artists,
		Tracks:  tracks,
		Meta:    responseMeta{Source: "db"},
	})
}

// SyncAlbum handles POST /api/music/albums/sync.
func (h *Handlers) SyncAlbum(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.SpotifyAlbumID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("spotify_album_id is required"))
		return
	}

	detail, err := h.sync.SyncAlbum(r.Context(), req.SpotifyAlbumID, req.Market)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, albumDetailResponse{
		Album:   detail.Album,
		Artists: detail.Artists,
		Tracks:  detail.Tracks,
		Meta:    responseMeta{Source: detail.Source},
	})
}

// ArtistAlbums handles GET /api/music/artists/{artistID}/albums.
func (h *Handlers) ArtistAlbums(w http.ResponseWriter, r *http.Request) {
	artistID, err := uuid.Parse(chi.URLParam(r, "artistID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid artist id"))
		return
	}
	limit, offset := pageParams(r)

	artist, albums, err := h.search.ListAlbumsByArtist(r.Context(), artistID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, artistAlbumsResponse{Artist: artist, Albums: albums})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		h.writeError(w, http.StatusNotFound, errors.New("not found"))
	default:
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) {
			h.logger.Warn("provider request failed", "status", apiErr.StatusCode, "err", err)
			h.writeError(w, http.StatusBadGateway, errors.New("catalog provider unavailable"))
			return
		}
		h.logger.Error("request failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.respond(w, status, errorResponse{Error: err.Error()})
}

func (h *Handlers) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response failed", "err", err)
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
