package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchOptions tunes a catalog search. Zero values are omitted from the
// request and fall back to provider defaults.
type SearchOptions struct {
	Market          string
	Limit           int
	Offset          int
	IncludeExternal string
}

// Search runs a provider search across the given entity types
// ("album", "artist", "track") and returns the raw search document.
func (c *Client) Search(ctx context.Context, q string, types []string, opts SearchOptions) (*SearchDocument, error) {
	params := url.Values{
		"q":    {q},
		"type": {strings.Join(types, ",")},
	}
	if m := c.marketOr(opts.Market); m != "" {
		params.Set("market", m)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.IncludeExternal != "" {
		params.Set("include_external", opts.IncludeExternal)
	}

	var doc SearchDocument
	if err := c.get(ctx, c.baseURL+"/search", params, &doc); err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	return &doc, nil
}

// SearchAlbums runs a fielded album search, optionally narrowed by artist
// name, and returns the album page.
func (c *Client) SearchAlbums(ctx context.Context, album, artist string, limit int, market string) (*AlbumPage, error) {
	q := fmt.Sprintf("album:%q", album)
	if artist != "" {
		q += fmt.Sprintf(" artist:%q", artist)
	}

	doc, err := c.Search(ctx, q, []string{"album"}, SearchOptions{Market: market, Limit: limit})
	if err != nil {
		return nil, err
	}
	if doc.Albums == nil {
		return &AlbumPage{}, nil
	}
	return doc.Albums, nil
}
