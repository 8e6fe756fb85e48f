package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetArtists batch-fetches artist metadata for the given provider IDs,
// issuing one request per chunk of at most 50 IDs and concatenating the
// results. An empty input returns immediately without a network call.
func (c *Client) GetArtists(ctx context.Context, ids []string) ([]Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var artists []Artist
	for _, chunk := range chunkIDs(ids, artistBatchLimit) {
		params := url.Values{"ids": {strings.Join(chunk, ",")}}

		var resp struct {
			Artists []Artist `json:"artists"`
		}
		if err := c.get(ctx, c.baseURL+"/artists", params, &resp); err != nil {
			return nil, fmt.Errorf("fetching artists batch: %w", err)
		}
		artists = append(artists, resp.Artists...)
	}
	return artists, nil
}

// chunkIDs splits ids into groups of at most size, preserving order.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
