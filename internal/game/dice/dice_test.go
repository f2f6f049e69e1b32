package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func TestCryptoSource_Range(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(Faces)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, Faces)
	}
}

func TestCryptoSource_PanicsOnZero(t *testing.T) {
	src := NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestRollHand_Length(t *testing.T) {
	r := NewRoller(NewCryptoSource(), zaptest.NewLogger(t))
	hand := r.RollHand(5)
	assert.Len(t, hand, 5)
	for _, d := range hand {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, Faces)
	}
}

func TestRollHand_Empty(t *testing.T) {
	r := NewRoller(NewCryptoSource(), zaptest.NewLogger(t))
	assert.Empty(t, r.RollHand(0))
}

// Property: every hand has the requested length and face-valid dice.
func TestPropertyRollHandValid(t *testing.T) {
	r := NewRoller(NewCryptoSource(), zaptest.NewLogger(t))
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "n")
		hand := r.RollHand(n)
		if len(hand) != n {
			t.Fatalf("expected %d dice, got %d", n, len(hand))
		}
		for _, d := range hand {
			if d < 1 || d > Faces {
				t.Fatalf("die value %d out of range", d)
			}
		}
	})
}
