package table

import "github.com/cory-johannsen/liarsdice/internal/protocol"

// Notifier delivers one server message to a single connected client.
// Implementations are free to block; the table sends synchronously while
// holding its mutation lock.
type Notifier interface {
	Notify(env protocol.Envelope) error
}

// Player is one seat at the table. Dice counts are mutated only by
// challenge resolution; hands are mutated only by the round roll.
type Player struct {
	// ID uniquely identifies the seat for the life of the match.
	ID string
	// Name is the display name, unique per table.
	Name string

	diceCount int
	hand      []int
	sink      Notifier
}

// DiceCount returns the player's remaining dice.
func (p *Player) DiceCount() int {
	return p.diceCount
}

// Hand returns the player's current private roll. Length always equals
// DiceCount() while a round is in progress.
func (p *Player) Hand() []int {
	return p.hand
}

// Active reports whether the player still holds dice. Inactive players
// keep their seat for display but are skipped for turns and rolls.
func (p *Player) Active() bool {
	return p.diceCount > 0
}
