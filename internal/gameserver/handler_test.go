package gameserver

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/liarsdice/internal/audit"
	"github.com/cory-johannsen/liarsdice/internal/config"
	"github.com/cory-johannsen/liarsdice/internal/game/dice"
	"github.com/cory-johannsen/liarsdice/internal/game/table"
	"github.com/cory-johannsen/liarsdice/internal/protocol"
	"github.com/cory-johannsen/liarsdice/internal/transport"
)

// seqSource replays a fixed value sequence so dealt hands are predictable.
type seqSource struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func (s *seqSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

// startServer runs an acceptor serving a fresh table and returns its address.
func startServer(t *testing.T, players, dicePer int, rolls []int) string {
	t.Helper()
	logger := zaptest.NewLogger(t)
	roller := dice.NewRoller(&seqSource{vals: rolls}, logger)
	tbl := table.New(players, dicePer, roller, audit.NopRecorder{}, logger)

	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  0,
		WriteTimeout: 5 * time.Second,
	}
	acc := transport.NewAcceptor(cfg, NewHandler(tbl, logger), logger)
	go func() {
		_ = acc.ListenAndServe()
	}()
	t.Cleanup(acc.Stop)

	deadline := time.After(2 * time.Second)
	for {
		if acc.IsRunning() && acc.Addr() != "" {
			return acc.Addr()
		}
		select {
		case <-deadline:
			t.Fatal("acceptor did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// testClient is a raw JSON-line client used to drive sessions end to end.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) send(msgType string, payload any) {
	c.t.Helper()
	env, err := protocol.NewEnvelope(msgType, payload)
	require.NoError(c.t, err)
	data, err := json.Marshal(env)
	require.NoError(c.t, err)
	_, err = c.conn.Write(append(data, '\n'))
	require.NoError(c.t, err)
}

func (c *testClient) sendRaw(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

// readEnvelope reads the next server message.
func (c *testClient) readEnvelope() (protocol.Envelope, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return protocol.Envelope{}, err
	}
	var env protocol.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return protocol.Envelope{}, err
	}
	return env, nil
}

// readUntil skips messages until one of the given type arrives.
func (c *testClient) readUntil(msgType string) protocol.Envelope {
	c.t.Helper()
	for {
		env, err := c.readEnvelope()
		require.NoError(c.t, err, "waiting for %s", msgType)
		if env.Type == msgType {
			return env
		}
	}
}

func TestFullMatch(t *testing.T) {
	// One die each: Alice rolls [2], Bob rolls [5].
	addr := startServer(t, 2, 1, []int{1, 4})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	alice.readUntil(protocol.TypeInfo)

	bob := dialClient(t, addr)
	bob.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})

	// The lobby fills: both players get a private hand and the opening state.
	var aliceHand protocol.RoundStart
	require.NoError(t, alice.readUntil(protocol.TypeRoundStart).DecodePayload(&aliceHand))
	assert.Equal(t, []int{2}, aliceHand.Dice)

	var bobHand protocol.RoundStart
	require.NoError(t, bob.readUntil(protocol.TypeRoundStart).DecodePayload(&bobHand))
	assert.Equal(t, []int{5}, bobHand.Dice)

	var update protocol.GameUpdate
	require.NoError(t, bob.readUntil(protocol.TypeGameUpdate).DecodePayload(&update))
	assert.Equal(t, "Alice", update.State.CurrentTurn)

	alice.readUntil(protocol.TypeYourTurn)

	// Bob acts out of turn and is rejected.
	bob.send(protocol.TypeBid, protocol.BidRequest{Quantity: 1, Face: 2})
	var rejection protocol.Notice
	require.NoError(t, bob.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "not your turn")

	// Alice claims two sixes across two dice; plainly a bluff.
	alice.send(protocol.TypeBid, protocol.BidRequest{Quantity: 2, Face: 6})

	bob.readUntil(protocol.TypeYourTurn)
	bob.send(protocol.TypeChallenge, nil)

	// Everyone sees the reveal, then the result.
	var reveal protocol.RevealAll
	require.NoError(t, alice.readUntil(protocol.TypeRevealAll).DecodePayload(&reveal))
	require.Len(t, reveal.DiceData, 2)
	assert.Equal(t, "Alice", reveal.DiceData[0].Player)

	var over protocol.Notice
	require.NoError(t, bob.readUntil(protocol.TypeGameOver).DecodePayload(&over))
	assert.Contains(t, over.Message, "Bob wins")

	require.NoError(t, alice.readUntil(protocol.TypeGameOver).DecodePayload(&over))
	assert.Contains(t, over.Message, "Bob wins")
}

func TestInvalidBidIsReprompted(t *testing.T) {
	addr := startServer(t, 2, 5, []int{0})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	bob := dialClient(t, addr)
	bob.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})

	alice.readUntil(protocol.TypeYourTurn)
	alice.send(protocol.TypeBid, protocol.BidRequest{Quantity: 3, Face: 4})

	bob.readUntil(protocol.TypeYourTurn)
	// Lower quantity does not raise; Bob keeps the turn and is re-prompted.
	bob.send(protocol.TypeBid, protocol.BidRequest{Quantity: 2, Face: 6})

	var rejection protocol.Notice
	require.NoError(t, bob.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "does not raise")
	bob.readUntil(protocol.TypeYourTurn)

	// A proper raise goes through; the turn comes back to Alice.
	bob.send(protocol.TypeBid, protocol.BidRequest{Quantity: 3, Face: 5})
	var update protocol.GameUpdate
	for update.State.CurrentTurn != "Alice" {
		require.NoError(t, alice.readUntil(protocol.TypeGameUpdate).DecodePayload(&update))
	}
	assert.Equal(t, 3, update.State.LastBid.Quantity)
	assert.Equal(t, 5, update.State.LastBid.Face)
}

func TestSetNameHandshake(t *testing.T) {
	addr := startServer(t, 2, 5, []int{0})

	client := dialClient(t, addr)

	// Anything before set_name is rejected without losing the connection.
	client.send(protocol.TypeBid, protocol.BidRequest{Quantity: 1, Face: 1})
	var rejection protocol.Notice
	require.NoError(t, client.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "set_name")

	// Empty names are rejected too.
	client.send(protocol.TypeSetName, protocol.SetName{Name: "   "})
	client.readUntil(protocol.TypeError)

	// A real name is accepted.
	client.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	var joined protocol.Notice
	require.NoError(t, client.readUntil(protocol.TypeInfo).DecodePayload(&joined))
	assert.Contains(t, joined.Message, "Alice joined")
}

func TestDuplicateNameCanRetry(t *testing.T) {
	addr := startServer(t, 3, 5, []int{0})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	alice.readUntil(protocol.TypeInfo)

	impostor := dialClient(t, addr)
	impostor.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	var rejection protocol.Notice
	require.NoError(t, impostor.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "already taken")

	impostor.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})
	var joined protocol.Notice
	require.NoError(t, impostor.readUntil(protocol.TypeInfo).DecodePayload(&joined))
	assert.Contains(t, joined.Message, "Bob joined")
}

func TestMalformedMessageDropsClient(t *testing.T) {
	addr := startServer(t, 2, 5, []int{0})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	bob := dialClient(t, addr)
	bob.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})
	alice.readUntil(protocol.TypeYourTurn)

	alice.sendRaw("this is not json")

	var rejection protocol.Notice
	require.NoError(t, alice.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "malformed")

	// The server drops Alice, which ends the match for Bob.
	var over protocol.Notice
	require.NoError(t, bob.readUntil(protocol.TypeGameOver).DecodePayload(&over))
	assert.Contains(t, over.Message, "Alice disconnected")
}

func TestDisconnectEndsMatch(t *testing.T) {
	addr := startServer(t, 2, 5, []int{0})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	bob := dialClient(t, addr)
	bob.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})

	alice.readUntil(protocol.TypeYourTurn)
	alice.conn.Close()

	var over protocol.Notice
	require.NoError(t, bob.readUntil(protocol.TypeGameOver).DecodePayload(&over))
	assert.Contains(t, over.Message, "Alice disconnected")
}

func TestUnknownMessageType(t *testing.T) {
	addr := startServer(t, 2, 5, []int{0})

	alice := dialClient(t, addr)
	alice.send(protocol.TypeSetName, protocol.SetName{Name: "Alice"})
	bob := dialClient(t, addr)
	bob.send(protocol.TypeSetName, protocol.SetName{Name: "Bob"})
	alice.readUntil(protocol.TypeYourTurn)

	alice.send("dance", nil)
	var rejection protocol.Notice
	require.NoError(t, alice.readUntil(protocol.TypeError).DecodePayload(&rejection))
	assert.Contains(t, rejection.Message, "unknown message type")

	// The session survives the unknown message.
	alice.send(protocol.TypeBid, protocol.BidRequest{Quantity: 1, Face: 2})
	var update protocol.GameUpdate
	require.NoError(t, alice.readUntil(protocol.TypeGameUpdate).DecodePayload(&update))
	assert.Equal(t, "Bob", update.State.CurrentTurn)
}
