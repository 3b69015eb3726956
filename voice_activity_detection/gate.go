package voice_activity_detection

// Verdict classifies one chunk as seen by the Gate.
type Verdict int

const (
	// Quiet is a chunk before any sound was detected.
	Quiet Verdict = iota
	// Onset is the first chunk whose level exceeded the threshold.
	Onset
	// Speech is any chunk after onset that does not end the utterance.
	Speech
	// Bail is the chunk that made the trailing silence exceed the allowance.
	Bail
)

func (v Verdict) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Onset:
		return "onset"
	case Speech:
		return "speech"
	case Bail:
		return "bail"
	}
	return "unknown"
}

// Gate is an energy threshold with a trailing-silence allowance. It is not
// safe for concurrent use.
type Gate struct {
	meter     Meter
	threshold float64
	maxSilent int

	detected bool
	silent   int
}

func NewGate(meter Meter, threshold float64, maxSilent int) *Gate {
	if meter == nil {
		meter = &rmsImpl{}
	}

	return &Gate{
		meter:     meter,
		threshold: threshold,
		maxSilent: maxSilent,
	}
}

// Observe measures pcm and advances the gate. Sound counts as present when
// the level is strictly above the threshold.
func (g *Gate) Observe(pcm []byte) Verdict {
	loud := g.meter.Level(pcm) > g.threshold

	if !g.detected {
		if !loud {
			return Quiet
		}

		g.detected = true
		g.silent = 0
		return Onset
	}

	if loud {
		g.silent = 0
		return Speech
	}

	g.silent++
	if g.silent > g.maxSilent {
		return Bail
	}

	return Speech
}

func (g *Gate) Detected() bool {
	return g.detected
}

func (g *Gate) Reset() {
	g.detected = false
	g.silent = 0
	g.meter.Reset()
}
