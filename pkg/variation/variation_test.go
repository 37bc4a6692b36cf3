package variation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func draw(s *Stream, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Float64()
	}
	return out
}

func TestStreamDeterminism(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, -7, 1 << 40} {
		a := draw(NewStream(seed), 64)
		b := draw(NewStream(seed), 64)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("seed %d not reproducible (-first +second):\n%s", seed, diff)
		}
		for i, v := range a {
			if v < 0 || v >= 1 {
				t.Fatalf("seed %d draw %d out of range: %v", seed, i, v)
			}
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := draw(NewStream(1), 8)
	b := draw(NewStream(2), 8)
	if cmp.Equal(a, b) {
		t.Fatal("streams with different seeds produced identical output")
	}
}

func TestEntityChoiceScenario(t *testing.T) {
	// Seed 0, three candidates, five draws, two fresh runs.
	run := func() []int {
		s := NewStream(0)
		out := make([]int, 5)
		for i := range out {
			out[i] = s.IntN(3)
		}
		return out
	}
	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("index sequence differs between runs:\n%s", diff)
	}
	for _, idx := range first {
		if idx < 0 || idx >= 3 {
			t.Fatalf("index out of range: %d", idx)
		}
	}

	// IntN is floor(u*n) of the same uniform sample.
	raw := NewStream(0)
	for i, idx := range first {
		if want := int(raw.Float64() * 3); want != idx {
			t.Errorf("draw %d: IntN = %d, floor(u*3) = %d", i, idx, want)
		}
	}
}

func TestIntNCoversRange(t *testing.T) {
	s := NewStream(99)
	seen := make(map[int]int)
	for i := 0; i < 3000; i++ {
		seen[s.IntN(3)]++
	}
	for i := 0; i < 3; i++ {
		if seen[i] < 800 {
			t.Errorf("index %d drawn %d times out of 3000", i, seen[i])
		}
	}
	if s.Draws() != 3000 {
		t.Errorf("Draws() = %d, want 3000", s.Draws())
	}
}

func TestStreamsAllocation(t *testing.T) {
	t.Run("only listed channels exist", func(t *testing.T) {
		s := NewStreams(Seeds{}, Size, VerticalAngle)
		if s.Has(EntityChoice) || s.Has(HorizontalAngle) {
			t.Fatal("unlisted channel was allocated")
		}
		if diff := cmp.Diff([]Channel{Size, VerticalAngle}, s.Active()); diff != "" {
			t.Fatalf("Active() mismatch:\n%s", diff)
		}
	})

	t.Run("channels are independent", func(t *testing.T) {
		seeds := Seeds{EntityChoice: 5, Size: 5, HorizontalAngle: 5, VerticalAngle: 5}
		s := NewStreams(seeds, EntityChoice, Size, HorizontalAngle, VerticalAngle)
		h, _ := s.Get(HorizontalAngle)
		v, _ := s.Get(VerticalAngle)
		// Drawing from h must not move v.
		draw(h, 10)
		if v.Draws() != 0 {
			t.Fatalf("vertical stream advanced by horizontal draws: %d", v.Draws())
		}
		want := draw(NewStream(5), 3)
		if diff := cmp.Diff(want, draw(v, 3)); diff != "" {
			t.Fatalf("vertical stream lost its sequence:\n%s", diff)
		}
	})

	t.Run("seeds map to their channel", func(t *testing.T) {
		seeds := Seeds{EntityChoice: 1, Size: 2, HorizontalAngle: 3, VerticalAngle: 4}
		s := NewStreams(seeds, EntityChoice, Size, HorizontalAngle, VerticalAngle)
		for c, want := range map[Channel]int64{EntityChoice: 1, Size: 2, HorizontalAngle: 3, VerticalAngle: 4} {
			st, ok := s.Get(c)
			if !ok {
				t.Fatalf("%s missing", c)
			}
			if st.Seed() != want {
				t.Errorf("%s seed = %d, want %d", c, st.Seed(), want)
			}
		}
	})
}
