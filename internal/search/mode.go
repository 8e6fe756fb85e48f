package search

import "fmt"

// Mode selects which local entity a basic search runs against.
type Mode int

const (
	ModeArtist Mode = iota
	ModeAlbum
)

// ParseMode parses a request mode parameter. Unknown values are an error,
// never a silent default.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "artist":
		return ModeArtist, nil
	case "album":
		return ModeAlbum, nil
	default:
		return 0, fmt.Errorf("unknown search mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeArtist:
		return "artist"
	case ModeAlbum:
		return "album"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
