package dice

import "go.uber.org/zap"

// Roller produces dice hands from a Source and logs each roll at debug
// level so a match can be audited against the private hands it dealt.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// RollHand returns n fresh die values, each uniformly random in 1..Faces.
//
// Precondition: n >= 0.
// Postcondition: len(result) == n; every value is in [1, Faces].
func (r *Roller) RollHand(n int) []int {
	hand := make([]int, n)
	for i := range hand {
		hand[i] = r.src.Intn(Faces) + 1
	}
	r.logger.Debug("rolled hand",
		zap.Int("count", n),
		zap.Ints("dice", hand),
	)
	return hand
}
