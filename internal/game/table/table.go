// Package table implements the session coordinator for a liar's dice
// match: the concurrency-safe state machine that owns the roster, the
// turn pointer, and the current bid.
//
// All mutating operations run under a single table-wide mutex, so at most
// one mutation is ever in flight. Broadcasts happen synchronously inside
// the critical section; a stalled client send therefore delays everyone
// else's turn. That is an accepted trade-off for the small fixed lobby —
// there is no per-send timeout and no backpressure queue.
package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/liarsdice/internal/audit"
	"github.com/cory-johannsen/liarsdice/internal/game/dice"
	"github.com/cory-johannsen/liarsdice/internal/game/rules"
	"github.com/cory-johannsen/liarsdice/internal/protocol"
)

// Table owns all shared match state. Connection handlers call its
// operations; nothing else may touch the roster, bid, or turn pointer.
//
// Invariant: the turn pointer always references a player with dice unless
// the match has ended. Invariant: the sum of all dice counts decreases by
// exactly one per resolved challenge and never increases.
type Table struct {
	mu       sync.Mutex
	logger   *zap.Logger
	roller   *dice.Roller
	recorder audit.Recorder

	matchID       string
	seats         int
	dicePerPlayer int

	roster  []*Player
	turnIdx int
	bid     rules.Bid
	started bool
	ended   bool
}

// New creates an empty table waiting for seats players.
//
// Precondition: seats >= 2; dicePerPlayer >= 1; roller, recorder, and
// logger must be non-nil.
func New(seats, dicePerPlayer int, roller *dice.Roller, recorder audit.Recorder, logger *zap.Logger) *Table {
	return &Table{
		logger:        logger,
		roller:        roller,
		recorder:      recorder,
		matchID:       uuid.NewString(),
		seats:         seats,
		dicePerPlayer: dicePerPlayer,
	}
}

// MatchID returns the unique identifier recorded with audit events.
func (t *Table) MatchID() string {
	return t.matchID
}

// Join seats a new player. Once the configured seat count is reached the
// match starts inside the same critical section: hands are rolled, each
// player receives their private round_start, and the first joined player
// is prompted for the opening bid.
//
// Postcondition: Returns the seated Player, or ErrNameTaken, ErrTableFull,
// ErrAlreadyStarted, or ErrGameOver.
func (t *Table) Join(ctx context.Context, name string, sink Notifier) (*Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return nil, ErrGameOver
	}
	if t.started {
		return nil, ErrAlreadyStarted
	}
	for _, p := range t.roster {
		if p.Name == name {
			return nil, ErrNameTaken
		}
	}
	if len(t.roster) >= t.seats {
		return nil, ErrTableFull
	}

	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		diceCount: t.dicePerPlayer,
		sink:      sink,
	}
	t.roster = append(t.roster, p)

	t.logger.Info("player joined",
		zap.String("match_id", t.matchID),
		zap.String("name", name),
		zap.Int("seat", len(t.roster)),
		zap.Int("seats", t.seats),
	)
	t.record(ctx, audit.EventJoin, name, fmt.Sprintf("seat %d of %d", len(t.roster), t.seats))
	t.broadcastNoticeLocked(protocol.TypeInfo,
		fmt.Sprintf("%s joined the game (%d/%d)", name, len(t.roster), t.seats))

	if len(t.roster) == t.seats {
		t.startMatchLocked(ctx)
	}
	return p, nil
}

// startMatchLocked begins the match: rolls every hand, deals the private
// round_start messages, and prompts the first joined player.
//
// Precondition: t.mu held; called exactly once, when the lobby fills.
func (t *Table) startMatchLocked(ctx context.Context) {
	t.started = true
	t.bid = rules.Bid{}
	t.turnIdx = 0
	t.rollHandsLocked()

	t.logger.Info("match started",
		zap.String("match_id", t.matchID),
		zap.Int("players", len(t.roster)),
		zap.Int("dice_per_player", t.dicePerPlayer),
	)
	t.record(ctx, audit.EventMatchStart, "",
		fmt.Sprintf("%d players, %d dice each", len(t.roster), t.dicePerPlayer))

	t.sendHandsLocked()
	t.broadcastStateLocked("All players are in. The game begins!")
	t.notifyTurnLocked()
}

// PlaceBid replaces the current bid with a strictly higher one and passes
// the turn to the next player holding dice.
//
// Postcondition: On success the bid and turn pointer are updated and all
// clients are notified. On error the table state is unchanged; returns
// ErrGameOver, ErrNotStarted, ErrNotYourTurn, or ErrInvalidBid.
func (t *Table) PlaceBid(ctx context.Context, p *Player, quantity, face int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return ErrGameOver
	}
	if !t.started {
		return ErrNotStarted
	}
	if t.roster[t.turnIdx] != p {
		return ErrNotYourTurn
	}
	if !rules.WellFormed(quantity, face) {
		return ErrInvalidBid
	}
	nb := rules.Bid{Quantity: quantity, Face: face, Bidder: p.Name}
	if !nb.Beats(t.bid) {
		return ErrInvalidBid
	}

	t.bid = nb
	t.logger.Debug("bid placed",
		zap.String("match_id", t.matchID),
		zap.String("bidder", p.Name),
		zap.Int("quantity", quantity),
		zap.Int("face", face),
	)
	t.record(ctx, audit.EventBid, p.Name, fmt.Sprintf("%d dice showing %d", quantity, face))

	t.advanceTurnLocked()
	t.broadcastStateLocked(fmt.Sprintf("%s bids %d dice showing %d.", p.Name, quantity, face))
	t.notifyTurnLocked()
	return nil
}

// Challenge disputes the current bid. The reveal, the count, the die loss,
// and either the game end or the next round's deal all happen atomically
// under the table lock, so no other client's action can interleave.
//
// Postcondition: Returns nil after full resolution, or ErrGameOver,
// ErrNotStarted, ErrNotYourTurn, or ErrNoBid with state unchanged.
func (t *Table) Challenge(ctx context.Context, p *Player) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return ErrGameOver
	}
	if !t.started {
		return ErrNotStarted
	}
	if t.roster[t.turnIdx] != p {
		return ErrNotYourTurn
	}
	if !t.bid.Placed() {
		return ErrNoBid
	}

	bid := t.bid
	bidder := t.playerByNameLocked(bid.Bidder)

	t.record(ctx, audit.EventChallenge, p.Name,
		fmt.Sprintf("disputes %d dice showing %d by %s", bid.Quantity, bid.Face, bid.Bidder))

	// Reveal every active hand to everyone.
	reveal := protocol.RevealAll{}
	var hands [][]int
	for _, rp := range t.roster {
		if !rp.Active() {
			continue
		}
		reveal.DiceData = append(reveal.DiceData, protocol.PlayerDice{Player: rp.Name, Dice: rp.hand})
		hands = append(hands, rp.hand)
	}
	t.broadcastLocked(protocol.MustEnvelope(protocol.TypeRevealAll, reveal))

	res := rules.ResolveChallenge(bid, hands...)
	loser := bidder
	var verdict string
	if res.Truthful {
		loser = p
		verdict = fmt.Sprintf("The bid was TRUE: %d dice showing %d (needed %d). %s loses a die.",
			res.Total, bid.Face, bid.Quantity, loser.Name)
	} else {
		verdict = fmt.Sprintf("The bid was a BLUFF: only %d dice showing %d (claimed %d). %s loses a die.",
			res.Total, bid.Face, bid.Quantity, loser.Name)
	}

	loser.diceCount--
	t.logger.Info("challenge resolved",
		zap.String("match_id", t.matchID),
		zap.String("challenger", p.Name),
		zap.String("bidder", bid.Bidder),
		zap.Int("total", res.Total),
		zap.Bool("truthful", res.Truthful),
		zap.String("loser", loser.Name),
	)
	t.record(ctx, audit.EventReveal, "",
		fmt.Sprintf("face %d appeared %d times against a claim of %d", bid.Face, res.Total, bid.Quantity))
	if !loser.Active() {
		t.record(ctx, audit.EventElimination, loser.Name, "out of dice")
	}

	t.broadcastNoticeLocked(protocol.TypeInfo, verdict)

	if t.activeCountLocked() <= 1 {
		t.endMatchLocked(ctx)
		return nil
	}

	// New round in the same critical section. The loser leads; if they
	// just ran out of dice, the next active player after them does.
	t.bid = rules.Bid{}
	t.rollHandsLocked()
	t.turnIdx = t.indexOfLocked(loser)
	if !loser.Active() {
		t.advanceTurnLocked()
	}
	t.sendHandsLocked()
	t.broadcastStateLocked(fmt.Sprintf("New round. %s leads.", t.roster[t.turnIdx].Name))
	t.notifyTurnLocked()
	return nil
}

// Leave removes a player. Before the match starts this just frees the
// seat; during a running match the departure ends the game for everyone
// with exactly one game_over broadcast. Calling Leave for a player who
// already left is a no-op.
func (t *Table) Leave(ctx context.Context, p *Player) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOfLocked(p)
	if idx < 0 {
		return
	}

	if !t.started {
		t.roster = append(t.roster[:idx], t.roster[idx+1:]...)
		t.logger.Info("player left lobby",
			zap.String("match_id", t.matchID),
			zap.String("name", p.Name),
		)
		t.record(ctx, audit.EventLeave, p.Name, "left before the match started")
		t.broadcastNoticeLocked(protocol.TypeInfo, fmt.Sprintf("%s left the game.", p.Name))
		return
	}

	// Mid-match: keep the seat for display but stop sending to it.
	p.sink = nil
	if t.ended {
		return
	}
	t.ended = true
	t.logger.Warn("player disconnected mid-match",
		zap.String("match_id", t.matchID),
		zap.String("name", p.Name),
	)
	t.record(ctx, audit.EventLeave, p.Name, "disconnected mid-match")
	t.record(ctx, audit.EventGameOver, "", fmt.Sprintf("ended by %s disconnecting", p.Name))
	t.broadcastNoticeLocked(protocol.TypeGameOver,
		fmt.Sprintf("%s disconnected. The game is over.", p.Name))
}

// endMatchLocked marks the match over and announces the winner, if any.
//
// Precondition: t.mu held; at most one player still holds dice.
func (t *Table) endMatchLocked(ctx context.Context) {
	t.ended = true
	var winner *Player
	for _, p := range t.roster {
		if p.Active() {
			winner = p
			break
		}
	}

	msg := "Nobody has dice left. The game ends in a draw."
	winnerName := ""
	if winner != nil {
		winnerName = winner.Name
		msg = fmt.Sprintf("%s wins the game!", winner.Name)
	}

	t.logger.Info("match over",
		zap.String("match_id", t.matchID),
		zap.String("winner", winnerName),
	)
	t.record(ctx, audit.EventGameOver, winnerName, msg)
	t.broadcastNoticeLocked(protocol.TypeGameOver, msg)
}

// IsTurn reports whether p currently holds the turn in a running match.
func (t *Table) IsTurn(p *Player) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.ended && t.roster[t.turnIdx] == p
}

// Started reports whether the lobby has filled and play began.
func (t *Table) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// Ended reports whether the match is over.
func (t *Table) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// CurrentBid returns the outstanding bid; the zero value means none.
func (t *Table) CurrentBid() rules.Bid {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bid
}

// State returns the public table snapshot broadcast in game_update.
func (t *Table) State() protocol.GameState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// TotalDice returns the sum of all players' remaining dice.
func (t *Table) TotalDice() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, p := range t.roster {
		total += p.diceCount
	}
	return total
}

// rollHandsLocked deals a fresh hand to every player still holding dice.
//
// Precondition: t.mu held.
func (t *Table) rollHandsLocked() {
	for _, p := range t.roster {
		if p.Active() {
			p.hand = t.roller.RollHand(p.diceCount)
		} else {
			p.hand = nil
		}
	}
}

// sendHandsLocked delivers each active player's private round_start.
//
// Precondition: t.mu held.
func (t *Table) sendHandsLocked() {
	for _, p := range t.roster {
		if !p.Active() {
			continue
		}
		t.sendLocked(p, protocol.MustEnvelope(protocol.TypeRoundStart, protocol.RoundStart{Dice: p.hand}))
	}
}

// advanceTurnLocked moves the turn pointer to the next player with dice,
// wrapping around the roster.
//
// Precondition: t.mu held; at least one player is active.
func (t *Table) advanceTurnLocked() {
	for i := 1; i <= len(t.roster); i++ {
		idx := (t.turnIdx + i) % len(t.roster)
		if t.roster[idx].Active() {
			t.turnIdx = idx
			return
		}
	}
}

// notifyTurnLocked prompts the turn holder for their action.
//
// Precondition: t.mu held; match running.
func (t *Table) notifyTurnLocked() {
	cur := t.roster[t.turnIdx]
	t.sendLocked(cur, protocol.MustEnvelope(protocol.TypeYourTurn, nil))
}

// snapshotLocked builds the public game state in roster order. Eliminated
// players keep their seat with a dice count of zero.
//
// Precondition: t.mu held.
func (t *Table) snapshotLocked() protocol.GameState {
	state := protocol.GameState{
		Players: make([]protocol.PlayerState, 0, len(t.roster)),
		LastBid: protocol.BidState{Quantity: t.bid.Quantity, Face: t.bid.Face},
	}
	for _, p := range t.roster {
		state.Players = append(state.Players, protocol.PlayerState{
			Name:      p.Name,
			DiceCount: p.diceCount,
		})
	}
	if t.started && !t.ended {
		state.CurrentTurn = t.roster[t.turnIdx].Name
	}
	return state
}

// broadcastStateLocked sends a game_update carrying the current snapshot.
//
// Precondition: t.mu held.
func (t *Table) broadcastStateLocked(message string) {
	update := protocol.GameUpdate{State: t.snapshotLocked(), Message: message}
	t.broadcastLocked(protocol.MustEnvelope(protocol.TypeGameUpdate, update))
}

// broadcastNoticeLocked sends an info/error/game_over notice to everyone.
//
// Precondition: t.mu held.
func (t *Table) broadcastNoticeLocked(msgType, message string) {
	t.broadcastLocked(protocol.MustEnvelope(msgType, protocol.Notice{Message: message}))
}

// broadcastLocked fans env out to every connected seat, synchronously.
// Send failures are logged and skipped; the failing player's own reader
// goroutine is responsible for the Leave that follows.
//
// Precondition: t.mu held.
func (t *Table) broadcastLocked(env protocol.Envelope) {
	for _, p := range t.roster {
		t.sendLocked(p, env)
	}
}

// sendLocked delivers env to a single seat, ignoring departed players.
//
// Precondition: t.mu held.
func (t *Table) sendLocked(p *Player, env protocol.Envelope) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Notify(env); err != nil {
		t.logger.Warn("notifying player",
			zap.String("match_id", t.matchID),
			zap.String("name", p.Name),
			zap.String("type", env.Type),
			zap.Error(err),
		)
	}
}

// record writes an audit event, logging (but not propagating) failures so
// a broken audit store never blocks play.
func (t *Table) record(ctx context.Context, evType audit.EventType, player, detail string) {
	ev := audit.Event{
		MatchID: t.matchID,
		Type:    evType,
		Player:  player,
		Detail:  detail,
		At:      time.Now().UTC(),
	}
	if err := t.recorder.Record(ctx, ev); err != nil {
		t.logger.Warn("recording match event",
			zap.String("match_id", t.matchID),
			zap.String("event", string(evType)),
			zap.Error(err),
		)
	}
}

// playerByNameLocked returns the seat with the given name.
//
// Precondition: t.mu held; name must be seated.
func (t *Table) playerByNameLocked(name string) *Player {
	for _, p := range t.roster {
		if p.Name == name {
			return p
		}
	}
	panic(fmt.Sprintf("table: no seat named %q", name))
}

// indexOfLocked returns p's roster index, or -1.
//
// Precondition: t.mu held.
func (t *Table) indexOfLocked(p *Player) int {
	for i, rp := range t.roster {
		if rp == p {
			return i
		}
	}
	return -1
}

// activeCountLocked returns how many players still hold dice.
//
// Precondition: t.mu held.
func (t *Table) activeCountLocked() int {
	n := 0
	for _, p := range t.roster {
		if p.Active() {
			n++
		}
	}
	return n
}
