package search

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"artist", ModeArtist, false},
		{"album", ModeAlbum, false},
		{"track", 0, true},
		{"", 0, true},
		{"Artist", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	if got := ModeArtist.String(); got != "artist" {
		t.Errorf("ModeArtist.String() = %q", got)
	}
	if got := ModeAlbum.String(); got != "album" {
		t.Errorf("ModeAlbum.String() = %q", got)
	}
}
