// Package variation provides independently seeded pseudo-random streams.
//
// A spawner uses up to four streams: entity choice, size, horizontal angle
// and vertical angle. Each stream is created only when the feature it drives
// is enabled, so a disabled feature never allocates state or consumes
// entropy. Replaying the same draws from a stream with the same seed
// reproduces the same values.
package variation

import (
	"fmt"
	"math/rand/v2"
)

// Channel names one of the logical streams.
type Channel int

const (
	EntityChoice Channel = iota
	Size
	HorizontalAngle
	VerticalAngle

	numChannels
)

func (c Channel) String() string {
	switch c {
	case EntityChoice:
		return "entity-choice"
	case Size:
		return "size"
	case HorizontalAngle:
		return "horizontal-angle"
	case VerticalAngle:
		return "vertical-angle"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Seeds holds one seed per channel.
type Seeds struct {
	EntityChoice    int64 `yaml:"object"`
	Size            int64 `yaml:"size"`
	HorizontalAngle int64 `yaml:"h_angle"`
	VerticalAngle   int64 `yaml:"v_angle"`
}

// For returns the seed configured for c.
func (s Seeds) For(c Channel) int64 {
	switch c {
	case EntityChoice:
		return s.EntityChoice
	case Size:
		return s.Size
	case HorizontalAngle:
		return s.HorizontalAngle
	case VerticalAngle:
		return s.VerticalAngle
	default:
		return 0
	}
}

// Stream is a reproducible source of uniform samples in [0,1).
type Stream struct {
	seed  int64
	rng   *rand.Rand
	draws uint64
}

// NewStream creates a stream for seed.
func NewStream(seed int64) *Stream {
	s := uint64(seed)
	return &Stream{
		seed: seed,
		rng:  rand.New(rand.NewPCG(s, s)),
	}
}

// Float64 draws the next sample in [0,1).
func (s *Stream) Float64() float64 {
	s.draws++
	return s.rng.Float64()
}

// IntN draws an index uniformly from [0,n). It consumes exactly one sample.
// It panics if n <= 0.
func (s *Stream) IntN(n int) int {
	if n <= 0 {
		panic("variation: IntN called with non-positive n")
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Draws returns how many samples have been taken.
func (s *Stream) Draws() uint64 {
	return s.draws
}

// Streams is the set of channels a single owner uses.
type Streams struct {
	streams [numChannels]*Stream
}

// NewStreams allocates a stream for each listed channel, seeded from seeds.
// Channels not listed stay nil.
func NewStreams(seeds Seeds, channels ...Channel) *Streams {
	s := &Streams{}
	for _, c := range channels {
		if c < 0 || c >= numChannels || s.streams[c] != nil {
			continue
		}
		s.streams[c] = NewStream(seeds.For(c))
	}
	return s
}

// Get returns the stream for c, or false if it was never allocated.
func (s *Streams) Get(c Channel) (*Stream, bool) {
	if c < 0 || c >= numChannels {
		return nil, false
	}
	st := s.streams[c]
	return st, st != nil
}

// Has reports whether c was allocated.
func (s *Streams) Has(c Channel) bool {
	_, ok := s.Get(c)
	return ok
}

// Active lists the allocated channels in channel order.
func (s *Streams) Active() []Channel {
	var out []Channel
	for c := Channel(0); c < numChannels; c++ {
		if s.streams[c] != nil {
			out = append(out, c)
		}
	}
	return out
}
