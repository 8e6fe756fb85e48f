package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetAlbum fetches one album's metadata. Provider errors propagate as-is.
func (c *Client) GetAlbum(ctx context.Context, albumID, market string) (*Album, error) {
	params := url.Values{}
	if m := c.marketOr(market); m != "" {
		params.Set("market", m)
	}

	var album Album
	if err := c.get(ctx, c.baseURL+"/albums/"+albumID, params, &album); err != nil {
		return nil, fmt.Errorf("fetching album %s: %w", albumID, err)
	}
	return &album, nil
}

// GetAlbumTracksAll fetches an album's complete track listing, following
// the provider's "next" pointer until no page remains. The result preserves
// the provider's track-number ordering.
func (c *Client) GetAlbumTracksAll(ctx context.Context, albumID, market string) ([]Track, error) {
	params := url.Values{
		"limit":  {strconv.Itoa(trackPageSize)},
		"offset": {"0"},
	}
	if m := c.marketOr(market); m != "" {
		params.Set("market", m)
	}

	pageURL := c.baseURL + "/albums/" + albumID + "/tracks"
	var tracks []Track
	for {
		var page TrackPage
		if err := c.get(ctx, pageURL, params, &page); err != nil {
			return nil, fmt.Errorf("fetching tracks for album %s: %w", albumID, err)
		}
		tracks = append(tracks, page.Items...)

		if page.Next == nil || *page.Next == "" {
			break
		}
		// The next pointer is an absolute URL carrying its own query.
		pageURL = *page.Next
		params = nil
	}
	return tracks, nil
}
