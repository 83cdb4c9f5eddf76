package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGenreAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dnb", "Drum & Bass"},
		{"d&b", "Drum & Bass"},
		{"Drum and Bass", "Drum & Bass"},
		{"DRUM N BASS", "Drum & Bass"},
		{"tech-house", "Tech House"},
		{"TechHouse", "Tech House"},
		{"hip hop", "Hip Hop"},
		{"Hip-Hop", "Hip Hop"},
		{"rnb", "R&B"},
		{"top40", "Top 40"},
		{"pop", "Top 40"},
		{"garage", "UK Garage"},
		{"House", "House"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeGenre(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeGenreWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "Deep House", NormalizeGenre("  deep   house  "))
	assert.Equal(t, "", NormalizeGenre("   "))
}

func TestNormalizeGenreUnknownTitleCased(t *testing.T) {
	assert.Equal(t, "Ambient", NormalizeGenre("ambient"))
	assert.Equal(t, "Future Bass", NormalizeGenre("FUTURE BASS"))
	// Connectives stay lowercase
	assert.Equal(t, "Best of Ibiza", NormalizeGenre("best OF ibiza"))
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name       string
		wantArtist string
		wantTitle  string
		wantMix    string
		wantOK     bool
	}{
		{"Artist - Title.mp3", "Artist", "Title", "", true},
		{"Artist - Title (Extended Mix).mp3", "Artist", "Title", "Extended Mix", true},
		{"Some_Artist_-_Some_Title.wav", "Some Artist", "Some Title", "", true},
		{"DJ Duo - Long Track Name (Club Edit).flac", "DJ Duo", "Long Track Name", "Club Edit", true},
		{"untagged_file.mp3", "", "untagged file", "", false},
		{"/incoming/Artist - Title.mp3", "Artist", "Title", "", true},
	}
	for _, tt := range tests {
		got, ok := ParseFilename(tt.name)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.name)
		assert.Equal(t, tt.wantArtist, got.Artist, "input %q", tt.name)
		assert.Equal(t, tt.wantTitle, got.Title, "input %q", tt.name)
		assert.Equal(t, tt.wantMix, got.Mix, "input %q", tt.name)
	}
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("track.mp3"))
	assert.True(t, IsAudioFile("track.FLAC"))
	assert.True(t, IsAudioFile("track.aiff"))
	assert.False(t, IsAudioFile("cover.jpg"))
	assert.False(t, IsAudioFile("notes.txt"))
	assert.False(t, IsAudioFile("noextension"))
}
