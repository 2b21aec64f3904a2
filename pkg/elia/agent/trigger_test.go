package agent

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestShouldReplyMention(t *testing.T) {
	// A mention always triggers, including with reply_chance 0.
	for _, chance := range []string{"0", "0.5", "1"} {
		got, err := ShouldReply(true, chance, func() float64 { return 0.99 })
		if err != nil {
			t.Errorf("ShouldReply(mention, %q) error: %v", chance, err)
		}
		if !got {
			t.Errorf("ShouldReply(mention, %q) = false, want true", chance)
		}
	}
}

func TestShouldReplyAmbient(t *testing.T) {
	tests := []struct {
		name   string
		chance string
		draw   float64
		want   bool
	}{
		{"draw below chance", "0.5", 0.4, true},
		{"draw equal to chance", "0.5", 0.5, false},
		{"draw above chance", "0.05", 0.5, false},
		{"chance zero never fires", "0", 0.0, false},
		{"chance one always fires", "1", 0.999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShouldReply(false, tt.chance, func() float64 { return tt.draw })
			if err != nil {
				t.Fatalf("ShouldReply() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldReply(false, %q) with draw %v = %v, want %v",
					tt.chance, tt.draw, got, tt.want)
			}
		})
	}
}

func TestShouldReplyBadChance(t *testing.T) {
	for _, chance := range []string{"", "abc", "1.5", "-0.1"} {
		_, err := ShouldReply(false, chance, func() float64 { return 0 })
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("ShouldReply(false, %q) error = %v, want ErrConfiguration", chance, err)
		}
	}

	// A mention short-circuits before the chance is consulted.
	got, err := ShouldReply(true, "garbage", func() float64 { return 0 })
	if err != nil || !got {
		t.Errorf("ShouldReply(mention, garbage) = %v, %v; want true, nil", got, err)
	}
}

func TestTriggerRateConverges(t *testing.T) {
	// Seed-controlled statistical property: observed trigger rate
	// converges to the configured probability.
	r := rand.New(rand.NewPCG(7, 13))

	for _, p := range []struct {
		chance string
		want   float64
	}{
		{"0.05", 0.05},
		{"0.3", 0.3},
		{"0.9", 0.9},
	} {
		const trials = 20000
		var fired int
		for i := 0; i < trials; i++ {
			ok, err := ShouldReply(false, p.chance, r.Float64)
			if err != nil {
				t.Fatalf("ShouldReply() error: %v", err)
			}
			if ok {
				fired++
			}
		}
		rate := float64(fired) / trials
		if diff := rate - p.want; diff < -0.02 || diff > 0.02 {
			t.Errorf("trigger rate for p=%s: got %.4f, want within 0.02 of %v",
				p.chance, rate, p.want)
		}
	}
}
