package synth

import "math"

// clock carries the timing shared by every voice for one frame.
type clock struct {
	rate  int
	tempo int
	spb   int // samples per beat, truncated toward zero and at least 1
	noise *Noise

	i int     // frame index
	t float64 // seconds since the start
}

// beat is the whole-beat index. Beat boundaries fall on multiples of spb,
// so a fractional samples-per-beat value is truncated rather than rounded.
func (c *clock) beat() int { return c.i / c.spb }

// pos is the position within the current beat, in [0, 1).
func (c *clock) pos() float64 { return float64(c.i%c.spb) / float64(c.spb) }

// local is the time in seconds since the current beat started.
func (c *clock) local() float64 { return float64(c.i%c.spb) / float64(c.rate) }

// since is the time in seconds since the start of the current group of n beats.
func (c *clock) since(n int) float64 {
	span := c.spb * n
	return float64(c.i%span) / float64(c.rate)
}

// recipe returns the mono sample for the frame described by c.
type recipe func(c *clock) float64

var recipes = [...]recipe{
	Electronic: electronic,
	Classical:  classical,
	Jazz:       jazz,
	Rock:       rock,
	Ambient:    ambient,
	Pop:        pop,
	HipHop:     hipHop,
	Folk:       folk,
}

// --- Electronic ---

// Voice gains: bass 0.4, lead 0.3, drums 0.5, pads 0.2. The sum goes through
// a 4:1 soft knee above 0.8 instead of a master gain.
func electronic(c *clock) float64 {
	bp := c.pos()

	bassFreq := 60.0
	if bp < 0.5 {
		bassFreq = 80
	}
	bass := subBass(bassFreq, c.t) * 0.4
	lead := detunedLead(440*(1+math.Sin(c.t*0.5)*0.3), c.t) * 0.3
	drums := fourOnFloor(c) * 0.5
	pads := atmosphere(c.t) * 0.2

	return softKnee(bass+lead+drums+pads, 0.8, 4)
}

// softKnee scales the part of |x| above threshold down by ratio.
func softKnee(x, threshold, ratio float64) float64 {
	if a := math.Abs(x); a > threshold {
		return math.Copysign(threshold+(a-threshold)/ratio, x)
	}
	return x
}

func subBass(freq, t float64) float64 {
	return Sine(freq, t) + Sine(freq*0.5, t)*0.3 + Sine(freq*2, t)*0.1
}

func detunedLead(freq, t float64) float64 {
	lfo := Sine(5, t)*0.1 + 1
	return (Sine(freq, t) + Sine(freq*1.01, t) + Sawtooth(freq*2, t)*0.3) * lfo * 0.33
}

// fourOnFloor is a kick on every beat, a noise snare centred on the
// off-beat and a hat on each sixteenth.
func fourOnFloor(c *clock) float64 {
	bp := c.pos()
	var out float64
	if bp < 0.1 {
		out += Sine(60, c.local()) * ExpDecay(bp, 50)
	}
	if bp > 0.45 && bp < 0.55 {
		out += c.noise.Next() * ExpDecay(math.Abs(bp-0.5), 100) * 2
	}
	if math.Mod(bp, 0.25) < 0.05 {
		out += c.noise.Next() * 0.3
	}
	return out
}

func atmosphere(t float64) float64 {
	return math.Sin(2*math.Pi*220*t+math.Sin(t*0.1)*2)*0.3 +
		math.Sin(2*math.Pi*330*t+math.Sin(t*0.07)*1.5)*0.2 +
		math.Sin(2*math.Pi*440*t+math.Sin(t*0.13))*0.15
}

// --- Classical ---

// C major scale plus the octave.
var classicalScale = [...]float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88, 523.25}

// Scale-degree triads: C, Am, F, G.
var classicalChords = [...][3]int{
	{0, 2, 4},
	{5, 7, 1},
	{3, 5, 7},
	{4, 6, 1},
}

// One note per beat, chord change every 4 notes. Voice gains: melody 1.0,
// each harmony tone 0.3, strings 0.4, master 0.35.
func classical(c *clock) float64 {
	note := classicalScale[c.beat()%len(classicalScale)]
	chord := classicalChords[(c.beat()/4)%len(classicalChords)]
	env := AttackDecay(c.local())

	melody := piano(note, c.t) * env
	var harmony float64
	for _, deg := range chord {
		harmony += piano(classicalScale[deg], c.t) * env * 0.3
	}
	strings := bowed(note, c.t) * env * 0.4

	return (melody + harmony + strings) * 0.35
}

func piano(freq, t float64) float64 {
	return Sine(freq, t) + Sine(freq*2, t)*0.3 + Sine(freq*3, t)*0.1
}

func bowed(freq, t float64) float64 {
	return Sine(freq, t) * (1 + math.Sin(t*2)*0.1)
}

// --- Jazz ---

// C7, Dm7, Em7, F7.
var jazzChords = [...][4]float64{
	{261.63, 329.63, 392.00, 466.16},
	{293.66, 369.99, 440.00, 523.25},
	{329.63, 415.30, 493.88, 587.33},
	{349.23, 440.00, 523.25, 622.25},
}

const swingRatio = 0.67

// Chord change every 4 beats. The bass walks the chord tones an octave
// down, one per beat. Voice gains: bass 0.4, piano 0.15/0.13/0.11/0.09,
// brushes 0.3, sax 0.25, master 0.7.
func jazz(c *clock) float64 {
	chord := jazzChords[(c.beat()/4)%len(jazzChords)]
	bp := c.pos()

	swing := bp * swingRatio
	if bp >= 0.5 {
		swing = 0.5*swingRatio + (bp-0.5)*(2-swingRatio)
	}

	walk := chord[c.beat()%len(chord)] / 2
	bass := Sine(walk, c.t) * (1 + math.Sin(c.t*8)*0.2) * 0.4

	chordTime := c.since(4)
	var keys float64
	for k, f := range chord {
		keys += Sine(f, c.t) * ExpDecay(chordTime, 0.5) * (0.15 - float64(k)*0.02)
	}

	brushes := c.noise.Next() * math.Sin(swing*math.Pi) * 0.5 * 0.3
	sax := Sine(chord[2]*1.5, c.t) * (1 + math.Sin(c.t*6)*0.3) * 0.25

	return (bass + keys + brushes + sax) * 0.7
}

// --- Rock ---

// E5, A5, D5, G5 power-chord dyads.
var powerChords = [...][2]float64{
	{82.41, 164.81},
	{110.00, 220.00},
	{146.83, 293.66},
	{196.00, 392.00},
}

// Chord change every 2 beats. Voice gains: guitar 0.4 (dyad averaged),
// drums 0.5, bass 0.3, master 0.8.
func rock(c *clock) float64 {
	chord := powerChords[(c.beat()/2)%len(powerChords)]

	guitar := (overdrive(chord[0], c.t) + overdrive(chord[1], c.t)) / 2 * 0.4
	drums := backbeat(c) * 0.5
	bass := Sine(chord[0]/2, c.t) * 0.8 * 0.3

	return (guitar + drums + bass) * 0.8
}

func overdrive(freq, t float64) float64 {
	return math.Tanh(Sine(freq, t)*3) * 0.7
}

// backbeat is a decaying kick on the beat and a noise snare on the off-beat.
func backbeat(c *clock) float64 {
	bp := c.pos()
	switch {
	case bp < 0.1:
		return Sine(55, c.local()) * ExpDecay(bp, 10)
	case bp >= 0.5 && bp < 0.6:
		return c.noise.Next() * 2 * ExpDecay(bp-0.5, 8) * 0.8
	}
	return 0
}

// --- Ambient ---

// Ambient ignores tempo. Voice gains: pads 0.2/0.15, wind 0.05, master 0.6.
func ambient(c *clock) float64 {
	t := c.t
	pad1 := math.Sin(2*math.Pi*220*t+math.Sin(t*0.1)*2) * 0.2
	pad2 := math.Sin(2*math.Pi*330*t+math.Sin(t*0.15)*1.5) * 0.15
	wind := c.noise.Next() * 0.05 * math.Sin(t*0.3)
	return (pad1 + pad2 + wind) * 0.6
}

// --- Pop ---

// C, Dm, Em, F triads.
var popChords = [...][3]float64{
	{261.63, 329.63, 392.00},
	{293.66, 369.99, 440.00},
	{329.63, 415.30, 493.88},
	{349.23, 440.00, 523.25},
}

// Chord change every 4 beats. Voice gains: lead 0.3, drums 0.4, bass 0.3,
// master 0.7.
func pop(c *clock) float64 {
	root := popChords[(c.beat()/4)%len(popChords)][0]

	lead := (Sine(root*2, c.t) + Sine(root*4, c.t)*0.3) * 0.3
	bass := Sine(root/2, c.t) * 0.3

	bp := c.pos()
	var drums float64
	if bp < 0.05 {
		drums += Sine(60, c.local()) * ExpDecay(bp, 40)
	}
	if math.Mod(bp, 0.25) < 0.03 {
		drums += c.noise.Next() * 0.2
	}

	return (lead + drums*0.4 + bass) * 0.7
}

// --- Hip hop ---

// Voice gains: 808 0.5, drums 0.6, vinyl 0.02, master 0.8.
func hipHop(c *clock) float64 {
	bp := c.pos()

	var bass808 float64
	if bp < 0.1 {
		bass808 = Sine(60, c.t) * ExpDecay(bp, 20) * 0.5
	}

	var drums float64
	switch {
	case bp < 0.05:
		drums = Sine(50, c.local()) * ExpDecay(bp, 30)
	case bp >= 0.5 && bp < 0.53:
		drums = c.noise.Next() * 1.6
	}
	drums += c.noise.Next() * 0.1

	vinyl := c.noise.Next() * 0.02
	return (bass808 + drums*0.6 + vinyl) * 0.8
}

// --- Folk ---

// G, C, Dm, Am triads.
var folkChords = [...][3]float64{
	{196.00, 246.94, 293.66},
	{261.63, 329.63, 392.00},
	{293.66, 369.99, 440.00},
	{220.00, 277.18, 329.63},
}

// Chord change every 4 beats, strummed on every beat. Voice gains: guitar
// 0.4, percussion 0.2, master 0.6.
func folk(c *clock) float64 {
	chord := folkChords[(c.beat()/4)%len(folkChords)]

	strum := ExpDecay(c.local(), 3)
	var guitar float64
	for _, f := range chord {
		guitar += Sine(f, c.t) * strum
	}
	guitar = guitar / float64(len(chord)) * 0.4

	var perc float64
	if bp := c.pos(); bp < 0.05 {
		perc = c.noise.Next() * ExpDecay(bp, 60) * 0.2
	}

	return (guitar + perc) * 0.6
}
