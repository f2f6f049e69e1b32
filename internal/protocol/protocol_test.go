package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_NilPayload(t *testing.T) {
	env, err := NewEnvelope(TypeYourTurn, nil)
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"your_turn","payload":null}`, string(data))
}

func TestEnvelope_WireFormat(t *testing.T) {
	env := MustEnvelope(TypeBid, BidRequest{Quantity: 3, Face: 4})
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"bid","payload":{"quantity":3,"face":4}}`, string(data))
}

func TestDecodePayload(t *testing.T) {
	var env Envelope
	raw := `{"type":"set_name","payload":{"name":"Alice"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, TypeSetName, env.Type)

	var p SetName
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, "Alice", p.Name)
}

func TestDecodePayload_Empty(t *testing.T) {
	env := Envelope{Type: TypeBid}
	var p BidRequest
	assert.Error(t, env.DecodePayload(&p))
}

func TestDecodePayload_WrongShape(t *testing.T) {
	env := MustEnvelope(TypeBid, map[string]string{"quantity": "three"})
	var p BidRequest
	assert.Error(t, env.DecodePayload(&p))
}

func TestGameUpdate_EliminatedPlayersKeepSeat(t *testing.T) {
	update := GameUpdate{
		State: GameState{
			Players: []PlayerState{
				{Name: "Alice", DiceCount: 4},
				{Name: "Bob", DiceCount: 0},
			},
			LastBid:     BidState{Quantity: 2, Face: 5},
			CurrentTurn: "Alice",
		},
		Message: "Bob is out of dice",
	}
	env := MustEnvelope(TypeGameUpdate, update)

	var decoded GameUpdate
	require.NoError(t, env.DecodePayload(&decoded))
	require.Len(t, decoded.State.Players, 2)
	assert.Equal(t, 0, decoded.State.Players[1].DiceCount)
	assert.Equal(t, "Alice", decoded.State.CurrentTurn)
}
