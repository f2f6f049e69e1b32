// Package dice provides the randomness abstraction and hand rolling for
// the dice server. The server is the sole holder of the dice; every hand
// a client ever sees originates here.
package dice

// Faces is the number of faces on each die. Rolls are values in 1..Faces.
const Faces = 6

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
