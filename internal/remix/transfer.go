package remix

import "math"

// binFrequency is the centre frequency assigned to bin k of an n-point
// transform. Bins above n/2 are not folded back onto negative
// frequencies, so the scale runs from 0 to sampleRate/2 across all n bins.
func binFrequency(k, n, sampleRate int) float64 {
	return float64(k) / float64(n) * float64(sampleRate) / 2
}

// gain returns the transfer function of r's style for bin k. Band edges
// written as closed ranges include both endpoints.
func (r Request) gain(k int, f float64) float64 {
	switch r.Style {
	case DeepHouse:
		switch {
		case f < 100:
			return 1.5
		case f > 8000:
			return 0.7
		}
	case Trap:
		switch {
		case f < 80:
			return 2.0
		case f >= 2000 && f <= 8000:
			return 1.3
		}
	case Dubstep:
		wobble := 0.5*math.Sin(0.1*float64(k)) + 1.0
		switch {
		case f < 200:
			return 1.8 * wobble
		case f > 10000:
			return 0.5
		}
		return wobble
	case Ambient:
		switch {
		case f < 60:
			return 0.5
		case f >= 200 && f <= 2000:
			return 1.2
		case f > 12000:
			return 0.8
		}
	case Orchestral:
		switch {
		case f >= 100 && f <= 400:
			return 1.1
		case f >= 1000 && f <= 4000:
			return 1.2
		}
	default:
		g := 1.0
		if f < 200 {
			g *= r.BassBoost
		}
		if f > 4000 {
			g *= r.TrebleBoost
		}
		return g
	}
	return 1
}

// transfer evaluates the gain curve once for every bin of an n-point window.
func (r Request) transfer(n, sampleRate int) []float64 {
	gains := make([]float64, n)
	for k := range gains {
		gains[k] = r.gain(k, binFrequency(k, n, sampleRate))
	}
	return gains
}
