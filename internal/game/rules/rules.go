// Package rules implements the pure game logic for liar's dice: bid
// ordering, wild-ones match counting, and challenge resolution. Functions
// here are stateless; all mutable state is owned by the table coordinator.
package rules

import "github.com/cory-johannsen/liarsdice/internal/game/dice"

// WildFace is the face that counts toward any other face's bid. A bid on
// the wild face itself counts only literal wild dice.
const WildFace = 1

// Bid is a claim that at least Quantity dice across all active hands show
// Face (or the wild face). The zero value is the "no bid yet" sentinel.
type Bid struct {
	Quantity int
	Face     int
	Bidder   string
}

// Placed reports whether a bid has been made this round.
func (b Bid) Placed() bool {
	return b.Quantity > 0
}

// Beats reports whether b strictly exceeds old under the (quantity, face)
// lexicographic order. Any well-formed bid beats the unplaced sentinel.
func (b Bid) Beats(old Bid) bool {
	if b.Quantity != old.Quantity {
		return b.Quantity > old.Quantity
	}
	return b.Face > old.Face
}

// WellFormed reports whether quantity and face are legal bid components,
// independent of the current table bid.
func WellFormed(quantity, face int) bool {
	return quantity >= 1 && face >= 1 && face <= dice.Faces
}

// CountMatches returns the number of dice across hands that count toward
// a bid on face. Wild dice count toward every face except when the bid is
// on the wild face itself, in which case only literal wilds count.
//
// Precondition: face must be in [1, dice.Faces].
func CountMatches(face int, hands ...[]int) int {
	total := 0
	for _, hand := range hands {
		for _, d := range hand {
			if d == face || (face != WildFace && d == WildFace) {
				total++
			}
		}
	}
	return total
}

// Result describes the outcome of one resolved challenge.
type Result struct {
	// Total is the number of matching dice found across all active hands.
	Total int
	// Truthful reports whether the bid held (Total >= Quantity). When
	// true the challenger loses a die; otherwise the bidder does.
	Truthful bool
}

// ResolveChallenge counts matches for the bid's face across hands and
// decides whether the bid held.
//
// Precondition: b.Placed() must be true; hands holds every active hand.
// Postcondition: Result.Truthful == (Result.Total >= b.Quantity).
func ResolveChallenge(b Bid, hands ...[]int) Result {
	total := CountMatches(b.Face, hands...)
	return Result{Total: total, Truthful: total >= b.Quantity}
}
