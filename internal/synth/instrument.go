package synth

import "strings"

// InstrumentInfo describes a selectable instrument. Instruments are advisory:
// every genre recipe has a fixed voice stack.
type InstrumentInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

var instruments = []InstrumentInfo{
	{"piano", "Piano", "Keyboard"},
	{"guitar", "Guitar", "String"},
	{"violin", "Violin", "String"},
	{"drums", "Drums", "Percussion"},
	{"bass", "Bass", "String"},
	{"flute", "Flute", "Wind"},
	{"saxophone", "Saxophone", "Wind"},
	{"synthesizer", "Synthesizer", "Electronic"},
	{"trumpet", "Trumpet", "Brass"},
	{"cello", "Cello", "String"},
}

// Instruments returns the instrument catalog.
func Instruments() []InstrumentInfo {
	out := make([]InstrumentInfo, len(instruments))
	copy(out, instruments)
	return out
}

// LookupInstrument finds an instrument by id or display name, ignoring case.
func LookupInstrument(name string) (InstrumentInfo, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, in := range instruments {
		if in.ID == key {
			return in, true
		}
	}
	return InstrumentInfo{}, false
}
