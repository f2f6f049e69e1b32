package table

import "errors"

// Sentinel errors returned by table operations. Handlers translate these
// into error messages on the wire.
var (
	// ErrNameTaken is returned when a joining player's name is already seated.
	ErrNameTaken = errors.New("name already taken")
	// ErrTableFull is returned when the lobby has no free seat.
	ErrTableFull = errors.New("table is full")
	// ErrAlreadyStarted is returned when joining after the match began.
	ErrAlreadyStarted = errors.New("match already started")
	// ErrNotStarted is returned for actions taken before the lobby fills.
	ErrNotStarted = errors.New("match has not started")
	// ErrNotYourTurn is returned for actions from a non-turn-holder.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrInvalidBid is returned for malformed or non-raising bids.
	ErrInvalidBid = errors.New("bid does not raise the current bid")
	// ErrNoBid is returned for a challenge with no bid outstanding.
	ErrNoBid = errors.New("no bid to challenge")
	// ErrGameOver is returned for any action after the match ended.
	ErrGameOver = errors.New("match is over")
)
