// Package gameserver wires connected clients to the shared game table.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/liarsdice/internal/game/table"
	"github.com/cory-johannsen/liarsdice/internal/protocol"
	"github.com/cory-johannsen/liarsdice/internal/transport"
)

// connSink adapts a transport connection to the table's Notifier. The
// table calls Notify synchronously under its lock; WriteEnvelope is
// mutex-guarded and bounded by the write timeout, so a stalled client
// cannot wedge the match indefinitely.
type connSink struct {
	conn *transport.Conn
}

func (s connSink) Notify(env protocol.Envelope) error {
	return s.conn.WriteEnvelope(env)
}

// Handler implements transport.SessionHandler and processes the message
// loop for one connected player.
type Handler struct {
	table  *table.Table
	logger *zap.Logger
}

// NewHandler creates a Handler serving the given table.
//
// Precondition: tbl and logger must be non-nil.
func NewHandler(tbl *table.Table, logger *zap.Logger) *Handler {
	return &Handler{
		table:  tbl,
		logger: logger,
	}
}

// HandleSession implements transport.SessionHandler. The client must
// introduce itself with a set_name message before anything else; after the
// seat is taken, bid and challenge messages are forwarded to the table
// until the client disconnects or the match ends.
//
// Postcondition: The player's seat is released exactly once, whether the
// session ends cleanly or the connection drops mid-match.
func (h *Handler) HandleSession(ctx context.Context, conn *transport.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	player, err := h.seatPlayer(ctx, conn)
	if err != nil {
		return err
	}
	if player == nil {
		// Clean rejection (full table, match in progress): already reported
		// to the client.
		return nil
	}

	// Releasing the seat mid-match ends the game for everyone; the table
	// guarantees at most one game_over broadcast no matter how the session
	// unwinds.
	defer h.table.Leave(context.Background(), player)

	h.logger.Info("player seated",
		zap.String("remote_addr", addr),
		zap.String("player", player.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		env, err := conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, transport.ErrMalformedEnvelope) {
				_ = h.sendError(conn, "malformed message")
				return fmt.Errorf("dropping %s: %w", player.Name, err)
			}
			// Read error or disconnect; the deferred Leave handles the rest.
			h.logger.Debug("player connection closed",
				zap.String("player", player.Name),
				zap.Duration("session_duration", time.Since(start)),
				zap.Error(err),
			)
			return err
		}

		switch env.Type {
		case protocol.TypeBid:
			h.handleBid(ctx, conn, player, env)

		case protocol.TypeChallenge:
			h.handleChallenge(ctx, conn, player)

		case protocol.TypeSetName:
			_ = h.sendError(conn, "name already set")

		default:
			_ = h.sendError(conn, fmt.Sprintf("unknown message type %q", env.Type))
		}

		if h.table.Ended() {
			h.logger.Info("match over, closing session",
				zap.String("player", player.Name),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		}
	}
}

// seatPlayer runs the naming handshake. It loops on recoverable rejections
// (bad or duplicate names) so the client can retry, and returns a nil
// player without error when the table cannot seat anyone at all.
func (h *Handler) seatPlayer(ctx context.Context, conn *transport.Conn) (*table.Player, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		env, err := conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, transport.ErrMalformedEnvelope) {
				_ = h.sendError(conn, "malformed message")
			}
			return nil, err
		}

		if env.Type != protocol.TypeSetName {
			_ = h.sendError(conn, "introduce yourself with set_name first")
			continue
		}

		var req protocol.SetName
		if err := env.DecodePayload(&req); err != nil {
			_ = h.sendError(conn, "set_name requires a name")
			continue
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			_ = h.sendError(conn, "name must not be empty")
			continue
		}

		player, err := h.table.Join(ctx, name, connSink{conn: conn})
		switch {
		case err == nil:
			return player, nil
		case errors.Is(err, table.ErrNameTaken):
			_ = h.sendError(conn, fmt.Sprintf("name %q is already taken", name))
		case errors.Is(err, table.ErrAlreadyStarted), errors.Is(err, table.ErrTableFull), errors.Is(err, table.ErrGameOver):
			_ = h.sendError(conn, "no seat available: "+err.Error())
			return nil, nil
		default:
			return nil, fmt.Errorf("seating %s: %w", name, err)
		}
	}
}

func (h *Handler) handleBid(ctx context.Context, conn *transport.Conn, player *table.Player, env protocol.Envelope) {
	var req protocol.BidRequest
	if err := env.DecodePayload(&req); err != nil {
		_ = h.sendError(conn, "bid requires quantity and face")
		h.reprompt(conn, player)
		return
	}

	err := h.table.PlaceBid(ctx, player, req.Quantity, req.Face)
	switch {
	case err == nil:
	case errors.Is(err, table.ErrInvalidBid):
		_ = h.sendError(conn, err.Error())
		h.reprompt(conn, player)
	case errors.Is(err, table.ErrNotYourTurn),
		errors.Is(err, table.ErrNotStarted),
		errors.Is(err, table.ErrGameOver):
		_ = h.sendError(conn, err.Error())
	default:
		h.logger.Error("bid failed",
			zap.String("player", player.Name),
			zap.Error(err),
		)
		_ = h.sendError(conn, "internal error")
	}
}

func (h *Handler) handleChallenge(ctx context.Context, conn *transport.Conn, player *table.Player) {
	err := h.table.Challenge(ctx, player)
	switch {
	case err == nil:
	case errors.Is(err, table.ErrNoBid):
		_ = h.sendError(conn, err.Error())
		h.reprompt(conn, player)
	case errors.Is(err, table.ErrNotYourTurn),
		errors.Is(err, table.ErrNotStarted),
		errors.Is(err, table.ErrGameOver):
		_ = h.sendError(conn, err.Error())
	default:
		h.logger.Error("challenge failed",
			zap.String("player", player.Name),
			zap.Error(err),
		)
		_ = h.sendError(conn, "internal error")
	}
}

// reprompt re-sends your_turn after a rejected action so the client knows
// the table is still waiting on it.
func (h *Handler) reprompt(conn *transport.Conn, player *table.Player) {
	if h.table.IsTurn(player) {
		_ = conn.WriteEnvelope(protocol.MustEnvelope(protocol.TypeYourTurn, nil))
	}
}

func (h *Handler) sendError(conn *transport.Conn, msg string) error {
	return conn.WriteEnvelope(protocol.MustEnvelope(protocol.TypeError, protocol.Notice{Message: msg}))
}
