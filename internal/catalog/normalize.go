package catalog

import (
	"strings"
)

// genreAliases maps lowercased spellings seen in label drops and member
// submissions to canonical genre names.
var genreAliases = map[string]string{
	"house":          "House",
	"deep house":     "Deep House",
	"deephouse":      "Deep House",
	"tech house":     "Tech House",
	"tech-house":     "Tech House",
	"techhouse":      "Tech House",
	"afro house":     "Afro House",
	"afrohouse":      "Afro House",
	"progressive":    "Progressive House",
	"prog house":     "Progressive House",
	"techno":         "Techno",
	"trance":         "Trance",
	"psytrance":      "Psytrance",
	"psy trance":     "Psytrance",
	"drum & bass":    "Drum & Bass",
	"drum and bass":  "Drum & Bass",
	"drum n bass":    "Drum & Bass",
	"drum'n'bass":    "Drum & Bass",
	"d'n'b":          "Drum & Bass",
	"dnb":            "Drum & Bass",
	"d&b":            "Drum & Bass",
	"jungle":         "Drum & Bass",
	"dubstep":        "Dubstep",
	"bass":           "Bass",
	"trap":           "Trap",
	"hip hop":        "Hip Hop",
	"hip-hop":        "Hip Hop",
	"hiphop":         "Hip Hop",
	"rap":            "Hip Hop",
	"r&b":            "R&B",
	"rnb":            "R&B",
	"r'n'b":          "R&B",
	"reggaeton":      "Reggaeton",
	"latin":          "Latin",
	"dancehall":      "Dancehall",
	"reggae":         "Reggae",
	"funk":           "Funk",
	"disco":          "Disco",
	"nu disco":       "Nu Disco",
	"nu-disco":       "Nu Disco",
	"amapiano":       "Amapiano",
	"top 40":         "Top 40",
	"top40":          "Top 40",
	"pop":            "Top 40",
	"mainstream":     "Top 40",
	"edm":            "EDM",
	"electro":        "Electro",
	"big room":       "Big Room",
	"future house":   "Future House",
	"bass house":     "Bass House",
	"melodic techno": "Melodic Techno",
	"minimal":        "Minimal",
	"hardstyle":      "Hardstyle",
	"moombahton":     "Moombahton",
	"uk garage":      "UK Garage",
	"garage":         "UK Garage",
	"2-step":         "UK Garage",
}

// NormalizeGenre canonicalizes a genre spelling. Unknown genres are
// title-cased as-is so the catalog never stores mixed casings of the
// same name.
func NormalizeGenre(genre string) string {
	cleaned := strings.TrimSpace(genre)
	if cleaned == "" {
		return ""
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if canonical, ok := genreAliases[strings.ToLower(cleaned)]; ok {
		return canonical
	}

	// Title-case fallback for genres outside the alias table
	words := strings.Fields(strings.ToLower(cleaned))
	for i, w := range words {
		if w == "&" || w == "and" || w == "of" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
