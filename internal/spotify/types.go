package spotify

// Wire types for the Spotify Web API, based on
// https://developer.spotify.com/documentation/web-api/reference/

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Followers holds a follower count.
type Followers struct {
	Total int `json:"total"`
}

// Artist represents an artist. Album and track payloads embed the
// simplified form, so only ID, Name and ExternalURLs are guaranteed;
// the remaining fields are populated by the batch artist endpoint.
type Artist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Genres       []string          `json:"genres"`
	Images       []Image           `json:"images"`
	Followers    Followers         `json:"followers"`
	Popularity   int               `json:"popularity"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// Album represents an album.
type Album struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	AlbumType            string            `json:"album_type"`
	ReleaseDate          string            `json:"release_date"`
	ReleaseDatePrecision string            `json:"release_date_precision"`
	TotalTracks          int               `json:"total_tracks"`
	Label                string            `json:"label"`
	Popularity           int               `json:"popularity"`
	Images               []Image           `json:"images"`
	Artists              []Artist          `json:"artists"`
	ExternalURLs         map[string]string `json:"external_urls"`
}

// Track represents a track. Album is populated only in search results.
type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	TrackNumber  int               `json:"track_number"`
	DurationMS   int               `json:"duration_ms"`
	Artists      []Artist          `json:"artists"`
	Album        *Album            `json:"album,omitempty"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// PageInfo holds the provider's pagination envelope.
type PageInfo struct {
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Href     string  `json:"href"`
}

// AlbumPage is a paginated list of albums.
type AlbumPage struct {
	PageInfo
	Items []Album `json:"items"`
}

// ArtistPage is a paginated list of artists.
type ArtistPage struct {
	PageInfo
	Items []Artist `json:"items"`
}

// TrackPage is a paginated list of tracks.
type TrackPage struct {
	PageInfo
	Items []Track `json:"items"`
}

// SearchDocument is the provider search response. Only the requested type
// blocks are present.
type SearchDocument struct {
	Albums  *AlbumPage  `json:"albums"`
	Artists *ArtistPage `json:"artists"`
	Tracks  *TrackPage  `json:"tracks"`
}

// ImageURL returns the artist's first image URL, or "".
func (a Artist) ImageURL() string {
	return firstImageURL(a.Images)
}

// SpotifyURL returns the artist's canonical external permalink, or "".
func (a Artist) SpotifyURL() string {
	return a.ExternalURLs["spotify"]
}

// ImageURL returns the album's first (largest) image URL, or "".
func (a Album) ImageURL() string {
	return firstImageURL(a.Images)
}

// SpotifyURL returns the album's canonical external permalink, or "".
func (a Album) SpotifyURL() string {
	return a.ExternalURLs["spotify"]
}

// SpotifyURL returns the track's canonical external permalink, or "".
func (t Track) SpotifyURL() string {
	return t.ExternalURLs["spotify"]
}

func firstImageURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
