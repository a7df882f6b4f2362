package synth

import (
	"fmt"
	"strings"
)

// Genre selects a voice-stack recipe.
type Genre int

const (
	Electronic Genre = iota
	Classical
	Jazz
	Rock
	Ambient
	Pop
	HipHop
	Folk
)

// GenreInfo is the catalog entry for a genre.
type GenreInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var genres = [...]struct {
	GenreInfo
	adjectives []string
}{
	Electronic: {GenreInfo{"electronic", "Electronic", "Modern electronic music with synthesizers"},
		[]string{"radiant", "surging", "prismatic", "kinetic", "orbital"}},
	Classical: {GenreInfo{"classical", "Classical", "Traditional orchestral music"},
		[]string{"delicate", "flowing", "stately", "luminous", "grand"}},
	Jazz: {GenreInfo{"jazz", "Jazz", "Smooth jazz with improvisation"},
		[]string{"smoky", "midnight", "velvet", "golden", "swinging"}},
	Rock: {GenreInfo{"rock", "Rock", "Energetic rock music"},
		[]string{"thunderous", "blazing", "driven", "roaring", "massive"}},
	Ambient: {GenreInfo{"ambient", "Ambient", "Atmospheric and relaxing sounds"},
		[]string{"floating", "weightless", "still", "glacial", "infinite"}},
	Pop: {GenreInfo{"pop", "Pop", "Catchy popular music"},
		[]string{"bright", "sparkling", "sunlit", "bouncing", "vivid"}},
	HipHop: {GenreInfo{"hiphop", "Hip Hop", "Rhythmic rap and beats"},
		[]string{"dusty", "heavy", "late-night", "laid-back", "gritty"}},
	Folk: {GenreInfo{"folk", "Folk", "Traditional acoustic music"},
		[]string{"wooded", "fireside", "open", "rustic", "earthen"}},
}

// Genres returns the catalog in declaration order.
func Genres() []GenreInfo {
	out := make([]GenreInfo, len(genres))
	for i, g := range genres {
		out[i] = g.GenreInfo
	}
	return out
}

// ParseGenre resolves a genre name. Matching ignores case, spaces, hyphens
// and underscores, so "Hip Hop" and "hip-hop" both select HipHop. The second
// result is false when the name is unknown and Electronic was substituted.
func ParseGenre(name string) (Genre, bool) {
	key := genreKey(name)
	for i, g := range genres {
		if g.ID == key {
			return Genre(i), true
		}
	}
	return Electronic, false
}

func genreKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(name))
}

func (g Genre) valid() bool { return g >= 0 && int(g) < len(genres) }

func (g Genre) String() string {
	if !g.valid() {
		return fmt.Sprintf("Genre(%d)", int(g))
	}
	return genres[g].ID
}

// Info returns the catalog entry.
func (g Genre) Info() GenreInfo {
	if !g.valid() {
		return genres[Electronic].GenreInfo
	}
	return genres[g].GenreInfo
}

// TrackTitle builds a human-readable title such as "velvet Jazz" from a
// genre and a track id. The adjective is picked from the first 8 bytes of
// the id, so a given id always gets the same title.
func TrackTitle(g Genre, id string) string {
	if !g.valid() {
		g = Electronic
	}
	info := genres[g]
	if id == "" {
		return info.Name + " session"
	}

	var h int
	for i := 0; i < len(id) && i < 8; i++ {
		h = h*31 + int(id[i])
	}
	if h < 0 {
		h = -h
	}
	return info.adjectives[h%len(info.adjectives)] + " " + info.Name
}
