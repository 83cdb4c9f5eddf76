package catalog

import (
	"path"
	"strings"
)

// ParsedTrack holds the metadata recovered from a track filename
type ParsedTrack struct {
	Artist string
	Title  string
	Mix    string
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
	".flac": true,
	".m4a":  true,
}

// IsAudioFile reports whether the filename carries a supported audio extension
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(path.Ext(name))]
}

// ParseFilename recovers artist/title/mix from the "Artist - Title (Mix)"
// convention used on label drops. Underscores count as spaces; a trailing
// parenthesized segment becomes the mix name. Returns ok=false when no
// "Artist - Title" split is present, in which case the whole stem is the
// title and curation fills in the rest.
func ParseFilename(name string) (ParsedTrack, bool) {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.Join(strings.Fields(stem), " ")

	parsed := ParsedTrack{}

	// A trailing "(...)" segment is the mix name
	if open := strings.LastIndex(stem, "("); open >= 0 && strings.HasSuffix(stem, ")") {
		parsed.Mix = strings.TrimSpace(stem[open+1 : len(stem)-1])
		stem = strings.TrimSpace(stem[:open])
	}

	parts := strings.SplitN(stem, " - ", 2)
	if len(parts) != 2 {
		parsed.Title = stem
		return parsed, false
	}

	parsed.Artist = strings.TrimSpace(parts[0])
	parsed.Title = strings.TrimSpace(parts[1])
	if parsed.Artist == "" || parsed.Title == "" {
		parsed.Title = stem
		parsed.Artist = ""
		return parsed, false
	}
	return parsed, true
}
