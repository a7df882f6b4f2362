package remix

import (
	"fmt"
	"regexp"
	"strings"
)

// Style selects a spectral transfer function.
type Style int

const (
	Generic Style = iota
	DeepHouse
	Trap
	Dubstep
	Ambient
	Orchestral
)

// Preset holds the default effect amounts for a style.
type Preset struct {
	BassBoost   float64 `json:"bass_boost"`
	TrebleBoost float64 `json:"treble_boost"`
	Reverb      float64 `json:"reverb"`
	Delay       float64 `json:"delay"`
	Distortion  float64 `json:"distortion"`
}

// StyleInfo is the catalog entry for a style.
type StyleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preset      Preset `json:"preset"`
}

var styles = [...]StyleInfo{
	Generic:    {"generic", "Custom", "Bass and treble shelves from the request", Preset{1.0, 1.0, 0, 0, 0}},
	DeepHouse:  {"deep_house", "Deep House", "Smooth, deep basslines with filtered highs", Preset{1.5, 0.7, 0.3, 0.2, 0.1}},
	Trap:       {"trap", "Trap", "Heavy bass with crisp highs and punchy drums", Preset{2.0, 1.3, 0.1, 0.15, 0.2}},
	Dubstep:    {"dubstep", "Dubstep", "Wobble bass with dramatic drops", Preset{1.8, 0.5, 0.4, 0.3, 0.4}},
	Ambient:    {"ambient", "Ambient", "Ethereal, atmospheric soundscape", Preset{0.8, 1.2, 0.6, 0.4, 0.05}},
	Orchestral: {"orchestral", "Orchestral", "Full, rich orchestral enhancement", Preset{1.1, 1.2, 0.4, 0.1, 0.0}},
}

// Styles returns the catalog, generic first.
func Styles() []StyleInfo {
	out := make([]StyleInfo, len(styles))
	copy(out, styles[:])
	return out
}

var styleIdent = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ParseStyle resolves a style identifier. Case is ignored and spaces or
// hyphens count as underscores, so "Deep House" selects DeepHouse. An empty
// or unknown but well-formed identifier selects Generic. Anything else is
// malformed and returns ErrInvalidRequest.
func ParseStyle(s string) (Style, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" {
		return Generic, nil
	}
	for i, st := range styles {
		if st.ID == key {
			return Style(i), nil
		}
	}
	if !styleIdent.MatchString(key) {
		return Generic, fmt.Errorf("%w: malformed style %q", ErrInvalidRequest, s)
	}
	return Generic, nil
}

func (s Style) valid() bool { return s >= 0 && int(s) < len(styles) }

func (s Style) String() string {
	if !s.valid() {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styles[s].ID
}

// Info returns the catalog entry. Out-of-range values report Generic.
func (s Style) Info() StyleInfo {
	if !s.valid() {
		return styles[Generic]
	}
	return styles[s]
}

func (s Style) MarshalText() ([]byte, error) { return []byte(s.Info().ID), nil }

func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
