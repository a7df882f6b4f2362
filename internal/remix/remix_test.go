package remix

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

const testRate = 96000

// tone returns a stereo buffer holding a sine of freq Hz in both channels.
func tone(freq float64, frames int) *audio.Buffer {
	b := audio.NewBuffer(frames, testRate)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2*math.Pi*freq*float64(i)/testRate) * 0.5)
		b.Samples[2*i] = v
		b.Samples[2*i+1] = v
	}
	return b
}

// lowBandEnergy sums |X[k]|^2 over bins 1-3 of the window starting at off.
func lowBandEnergy(samples []float32, off int) float64 {
	in := make([]complex128, WindowSize)
	for j := range in {
		in[j] = complex(float64(samples[off+j]), 0)
	}
	spec := fourier.NewCmplxFFT(WindowSize).Coefficients(nil, in)
	var e float64
	for k := 1; k <= 3; k++ {
		e += real(spec[k])*real(spec[k]) + imag(spec[k])*imag(spec[k])
	}
	return e
}

// --- Styles ---

func TestParseStyle(t *testing.T) {
	tests := []struct {
		input string
		want  Style
		ok    bool
	}{
		{"deep_house", DeepHouse, true},
		{"Deep House", DeepHouse, true},
		{"DEEP-HOUSE", DeepHouse, true},
		{"trap", Trap, true},
		{"dubstep", Dubstep, true},
		{"ambient", Ambient, true},
		{"orchestral", Orchestral, true},
		{"generic", Generic, true},
		{"", Generic, true},
		{"unknown_style_xyz", Generic, true},
		{"lofi2", Generic, true},
		{"bad style!", Generic, false},
		{"drum&bass", Generic, false},
		{strings.Repeat("a", 65), Generic, false},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("ParseStyle(%q) error = %v, want ok=%v", tt.input, err, tt.ok)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ParseStyle(%q) error = %v, want ErrInvalidRequest", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseStyle(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		style Style
		want  Preset
	}{
		{DeepHouse, Preset{1.5, 0.7, 0.3, 0.2, 0.1}},
		{Trap, Preset{2.0, 1.3, 0.1, 0.15, 0.2}},
		{Dubstep, Preset{1.8, 0.5, 0.4, 0.3, 0.4}},
		{Ambient, Preset{0.8, 1.2, 0.6, 0.4, 0.05}},
		{Orchestral, Preset{1.1, 1.2, 0.4, 0.1, 0.0}},
		{Generic, Preset{1, 1, 0, 0, 0}},
	}
	for _, tt := range tests {
		r := NewRequest(tt.style)
		got := Preset{r.BassBoost, r.TrebleBoost, r.Reverb, r.Delay, r.Distortion}
		if got != tt.want {
			t.Errorf("NewRequest(%v) = %+v, want %+v", tt.style, got, tt.want)
		}
		if err := r.Validate(); err != nil {
			t.Errorf("preset %v does not validate: %v", tt.style, err)
		}
	}
	if len(Styles()) != 6 {
		t.Errorf("len(Styles()) = %d, want 6", len(Styles()))
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Request)
	}{
		{"NaN bass", func(r *Request) { r.BassBoost = math.NaN() }},
		{"Inf treble", func(r *Request) { r.TrebleBoost = math.Inf(1) }},
		{"negative reverb", func(r *Request) { r.Reverb = -0.1 }},
		{"delay above 1", func(r *Request) { r.Delay = 1.5 }},
		{"NaN distortion", func(r *Request) { r.Distortion = math.NaN() }},
		{"bad style", func(r *Request) { r.Style = Style(42) }},
	}
	for _, tt := range tests {
		r := NewRequest(Generic)
		tt.mod(&r)
		if err := r.Validate(); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidRequest", tt.name, err)
		}
	}
}

// --- Transfer functions ---

func TestGainBands(t *testing.T) {
	generic := Request{Style: Generic, BassBoost: 1.7, TrebleBoost: 0.4}
	tests := []struct {
		name string
		req  Request
		f    float64
		want float64
	}{
		{"deep house bass", Request{Style: DeepHouse}, 50, 1.5},
		{"deep house edge", Request{Style: DeepHouse}, 100, 1},
		{"deep house highs", Request{Style: DeepHouse}, 9000, 0.7},
		{"trap sub", Request{Style: Trap}, 79, 2.0},
		{"trap sub edge", Request{Style: Trap}, 80, 1},
		{"trap presence low edge", Request{Style: Trap}, 2000, 1.3},
		{"trap presence high edge", Request{Style: Trap}, 8000, 1.3},
		{"trap air", Request{Style: Trap}, 9000, 1},
		{"dubstep highs", Request{Style: Dubstep}, 12000, 0.5},
		{"ambient rumble", Request{Style: Ambient}, 30, 0.5},
		{"ambient mids", Request{Style: Ambient}, 200, 1.2},
		{"ambient gap", Request{Style: Ambient}, 100, 1},
		{"ambient air", Request{Style: Ambient}, 13000, 0.8},
		{"orchestral body", Request{Style: Orchestral}, 400, 1.1},
		{"orchestral presence", Request{Style: Orchestral}, 4000, 1.2},
		{"orchestral gap", Request{Style: Orchestral}, 600, 1},
		{"generic bass", generic, 150, 1.7},
		{"generic mids", generic, 1000, 1},
		{"generic treble", generic, 5000, 0.4},
	}
	for _, tt := range tests {
		if got := tt.req.gain(7, tt.f); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: gain(%v Hz) = %v, want %v", tt.name, tt.f, got, tt.want)
		}
	}
}

func TestDubstepWobble(t *testing.T) {
	r := Request{Style: Dubstep}
	for _, k := range []int{0, 5, 16, 31} {
		w := 0.5*math.Sin(0.1*float64(k)) + 1
		if got := r.gain(k, 100); math.Abs(got-1.8*w) > 1e-12 {
			t.Errorf("gain(k=%d, 100 Hz) = %v, want %v", k, got, 1.8*w)
		}
		if got := r.gain(k, 1000); math.Abs(got-w) > 1e-12 {
			t.Errorf("gain(k=%d, 1000 Hz) = %v, want %v", k, got, w)
		}
	}
}

func TestBinFrequency(t *testing.T) {
	if got := binFrequency(0, WindowSize, testRate); got != 0 {
		t.Errorf("bin 0 = %v Hz", got)
	}
	if got := binFrequency(1024, WindowSize, testRate); got != 24000 {
		t.Errorf("bin 1024 = %v Hz, want 24000", got)
	}
}

// --- Processor ---

func TestProcessPreservesLengthAndTail(t *testing.T) {
	n := WindowSize + 3*HopSize + 100
	in := &audio.Buffer{Samples: make([]float32, n), SampleRate: testRate, Channels: 2}
	for i := range in.Samples {
		in.Samples[i] = float32(math.Sin(float64(i) * 0.05))
	}
	orig := slices.Clone(in.Samples)

	out, err := New(nil).Process(context.Background(), in, NewRequest(Trap))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Samples) != n {
		t.Fatalf("len = %d, want %d", len(out.Samples), n)
	}
	if !slices.Equal(in.Samples, orig) {
		t.Error("Process modified its input")
	}

	lastEnd := 3*HopSize + WindowSize
	if !slices.Equal(out.Samples[lastEnd:], orig[lastEnd:]) {
		t.Error("samples after the last full window were changed")
	}
	if slices.Equal(out.Samples[:lastEnd], orig[:lastEnd]) {
		t.Error("windowed region was not processed")
	}
}

func TestProcessShortInputPassesThrough(t *testing.T) {
	in := tone(440, WindowSize/2-1)
	out, err := New(nil).Process(context.Background(), in, NewRequest(Dubstep))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(out.Samples, in.Samples) {
		t.Error("input shorter than one window was altered")
	}
	if &out.Samples[0] == &in.Samples[0] {
		t.Error("output shares storage with input")
	}
}

func TestProcessUnityOverlapAdd(t *testing.T) {
	// With unit gains each window reconstructs its input, and an interior
	// sample is covered by 4 windows at 0.5 each: out = x + 4*0.5*x.
	in := tone(1000, 4096)
	out, err := New(nil).Process(context.Background(), in, Request{Style: Generic, BassBoost: 1, TrebleBoost: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range []int{4000, 4001, 5000} {
		want := 3 * in.Samples[j]
		if math.Abs(float64(out.Samples[j]-want)) > 1e-4 {
			t.Errorf("out[%d] = %v, want %v", j, out.Samples[j], want)
		}
	}
}

func TestProcessFiniteForAllStyles(t *testing.T) {
	in := &audio.Buffer{Samples: make([]float32, 3*WindowSize), SampleRate: testRate, Channels: 2}
	for i := range in.Samples {
		in.Samples[i] = math.MaxFloat32 * float32(1-2*(i%2))
	}
	for _, info := range Styles() {
		s, _ := ParseStyle(info.ID)
		req := NewRequest(s)
		req.BassBoost, req.TrebleBoost = 4, 4
		out, err := New(nil).Process(context.Background(), in, req)
		if err != nil {
			t.Fatalf("%s: %v", info.ID, err)
		}
		for i, v := range out.Samples {
			if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
				t.Fatalf("%s: sample %d = %v", info.ID, i, v)
			}
		}
	}
}

func TestTrapBoostsLowBand(t *testing.T) {
	in := tone(100, testRate)
	p := New(nil)

	trap, err := p.Process(context.Background(), in, NewRequest(Trap))
	if err != nil {
		t.Fatal(err)
	}
	flat, err := p.Process(context.Background(), in, Request{Style: Generic, BassBoost: 1, TrebleBoost: 1})
	if err != nil {
		t.Fatal(err)
	}

	off := 40 * HopSize
	before := lowBandEnergy(in.Samples, off)
	withTrap := lowBandEnergy(trap.Samples, off)
	withFlat := lowBandEnergy(flat.Samples, off)
	if withTrap <= before {
		t.Errorf("trap low-band energy %v did not grow from %v", withTrap, before)
	}
	if withTrap <= withFlat {
		t.Errorf("trap low-band energy %v not above unity-gain remix %v", withTrap, withFlat)
	}
}

func TestUnknownStyleUsesGenericBoosts(t *testing.T) {
	in := tone(150, 8192)
	s, err := ParseStyle("unknown_style_xyz")
	if err != nil {
		t.Fatalf("ParseStyle: %v", err)
	}
	p := New(nil)
	got, err := p.Process(context.Background(), in, Request{Style: s, BassBoost: 2.5, TrebleBoost: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := p.Process(context.Background(), in, Request{Style: Generic, BassBoost: 2.5, TrebleBoost: 0.5})
	if !slices.Equal(got.Samples, want.Samples) {
		t.Error("unknown style did not match the generic transfer function")
	}
	unity, _ := p.Process(context.Background(), in, Request{Style: Generic, BassBoost: 1, TrebleBoost: 1})
	if slices.Equal(got.Samples, unity.Samples) {
		t.Error("bass boost had no effect")
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Process(ctx, tone(440, 8192), NewRequest(Ambient))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestProcessRejectsBadBuffer(t *testing.T) {
	in := &audio.Buffer{Samples: make([]float32, 3), SampleRate: testRate, Channels: 2}
	if _, err := New(nil).Process(context.Background(), in, NewRequest(Generic)); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}
