// Package protocol defines the JSON message envelope exchanged between the
// dice server and its clients, along with the payload types for every
// message on the wire. Messages are framed as one JSON document per line.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client-to-server message types.
const (
	// TypeSetName must be the first message on every connection.
	TypeSetName = "set_name"
	// TypeBid places or raises the table bid.
	TypeBid = "bid"
	// TypeChallenge disputes the current bid.
	TypeChallenge = "challenge"
)

// Server-to-client message types.
const (
	// TypeRoundStart delivers a player's private hand for the new round.
	TypeRoundStart = "round_start"
	// TypeGameUpdate broadcasts the public table state.
	TypeGameUpdate = "game_update"
	// TypeYourTurn is sent only to the player whose action is awaited.
	TypeYourTurn = "your_turn"
	// TypeInfo carries an informational notice.
	TypeInfo = "info"
	// TypeError reports a rejected or malformed action.
	TypeError = "error"
	// TypeRevealAll publishes every active hand during a challenge.
	TypeRevealAll = "reveal_all"
	// TypeGameOver announces the end of the match.
	TypeGameOver = "game_over"
)

// Envelope is the wire format for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope builds an Envelope with the payload marshalled to JSON.
// A nil payload produces a JSON null, matching messages like your_turn
// and challenge that carry no data.
//
// Precondition: msgType must be one of the Type constants.
// Postcondition: Returns an Envelope ready for encoding, or a marshal error.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshalling %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// MustEnvelope builds an Envelope and panics on marshal failure. All payload
// types in this package marshal unconditionally, so this is safe for them.
func MustEnvelope(msgType string, payload any) Envelope {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		panic("protocol: " + err.Error())
	}
	return env
}

// DecodePayload unmarshals the envelope payload into v.
//
// Precondition: v must be a non-nil pointer.
// Postcondition: v is populated, or an unmarshal error is returned.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("decoding %s payload: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// SetName is the payload of the first client message.
type SetName struct {
	Name string `json:"name"`
}

// BidRequest is the payload of a client bid.
type BidRequest struct {
	Quantity int `json:"quantity"`
	Face     int `json:"face"`
}

// RoundStart is the private per-recipient payload carrying a fresh hand.
type RoundStart struct {
	Dice []int `json:"dice"`
}

// PlayerState is one roster entry in a game update. Eliminated players
// stay in the list with DiceCount 0.
type PlayerState struct {
	Name      string `json:"name"`
	DiceCount int    `json:"dice_count"`
}

// BidState is the public view of the table bid. Quantity 0 means no bid
// has been placed this round.
type BidState struct {
	Quantity int `json:"quantity"`
	Face     int `json:"face"`
}

// GameState is the public table snapshot broadcast to all clients.
type GameState struct {
	Players     []PlayerState `json:"players"`
	LastBid     BidState      `json:"last_bid"`
	CurrentTurn string        `json:"current_turn"`
}

// GameUpdate pairs a state snapshot with a human-readable event line.
type GameUpdate struct {
	State   GameState `json:"state"`
	Message string    `json:"message"`
}

// PlayerDice is one revealed hand in a reveal_all message.
type PlayerDice struct {
	Player string `json:"player"`
	Dice   []int  `json:"dice"`
}

// RevealAll publishes every active player's hand during challenge resolution.
type RevealAll struct {
	DiceData []PlayerDice `json:"dice_data"`
}

// Notice is the payload shared by info, error, and game_over messages.
type Notice struct {
	Message string `json:"message"`
}
