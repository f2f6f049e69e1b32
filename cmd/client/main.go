// Package main provides the interactive terminal client for the dice server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/cory-johannsen/liarsdice/internal/protocol"
)

const defaultServer = "127.0.0.1:65432"

func main() {
	serverFlag := flag.String("server", defaultServer, "server address as host:port")
	nameFlag := flag.String("name", "", "player name; empty = ask interactively")
	logFlag := flag.String("log", "", "append a match transcript to this file; empty = disabled")
	flag.Parse()

	pterm.Print("\n")
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Liar's ", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("Dice", pterm.FgLightWhite.ToStyle()),
	).Srender()
	if err == nil {
		pterm.Print(title)
	}

	addr := *serverFlag
	if addr == defaultServer {
		addr, _ = pterm.DefaultInteractiveTextInput.
			WithDefaultText("Server address").
			WithDefaultValue(defaultServer).Show()
	}

	name := *nameFlag
	for strings.TrimSpace(name) == "" {
		name, _ = pterm.DefaultInteractiveTextInput.
			WithDefaultText("Enter your name").Show()
	}
	name = strings.TrimSpace(name)

	transcript := newTranscript(*logFlag)
	defer transcript.Close()

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		pterm.Error.Printfln("Connecting to %s: %v", addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	pterm.Success.Printfln("Connected to %s", addr)

	if err := send(conn, protocol.TypeSetName, protocol.SetName{Name: name}); err != nil {
		pterm.Error.Printfln("Sending name: %v", err)
		os.Exit(1)
	}
	transcript.Record("joined as " + name)

	// The reader goroutine owns all rendering; the main goroutine only
	// prompts when a your_turn arrives.
	turnCh := make(chan struct{}, 1)
	doneCh := make(chan struct{})
	go readLoop(conn, name, transcript, turnCh, doneCh)

	spinner, _ := pterm.DefaultSpinner.Start("Waiting for all players to join ...")
	firstTurn := true

	for {
		select {
		case <-doneCh:
			if spinner.IsActive {
				spinner.Stop()
			}
			pterm.Println("Thanks for playing.")
			return

		case <-turnCh:
			if firstTurn || spinner.IsActive {
				spinner.Stop()
				firstTurn = false
			}
			if !promptAction(conn, transcript, doneCh) {
				return
			}
		}
	}
}

// promptAction asks for one action and sends it. Returns false when the
// match ended while the prompt was open.
func promptAction(conn net.Conn, transcript *transcript, doneCh <-chan struct{}) bool {
	for {
		input, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Your move: '<quantity> <face>' to bid, or 'doubt' to challenge").Show()

		select {
		case <-doneCh:
			return false
		default:
		}

		action := strings.ToLower(strings.TrimSpace(input))
		if action == "doubt" || action == "challenge" {
			if err := send(conn, protocol.TypeChallenge, nil); err != nil {
				pterm.Error.Printfln("Sending challenge: %v", err)
				return false
			}
			transcript.Record("challenged the bid")
			return true
		}

		fields := strings.Fields(action)
		if len(fields) != 2 {
			pterm.Warning.Println("Enter two numbers like '3 4', or 'doubt'.")
			continue
		}
		quantity, err1 := strconv.Atoi(fields[0])
		face, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			pterm.Warning.Println("Both quantity and face must be numbers.")
			continue
		}

		if err := send(conn, protocol.TypeBid, protocol.BidRequest{Quantity: quantity, Face: face}); err != nil {
			pterm.Error.Printfln("Sending bid: %v", err)
			return false
		}
		transcript.Record(fmt.Sprintf("bid %d dice showing %d", quantity, face))
		return true
	}
}

// readLoop renders every server message until the connection drops or the
// match ends.
func readLoop(conn net.Conn, name string, transcript *transcript, turnCh chan<- struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			pterm.Error.Println("Lost connection to the server.")
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			pterm.Warning.Printfln("Unreadable server message: %v", err)
			continue
		}

		switch env.Type {
		case protocol.TypeRoundStart:
			var hand protocol.RoundStart
			if err := env.DecodePayload(&hand); err == nil {
				renderHand(hand.Dice)
				transcript.Record("new hand: " + diceLine(hand.Dice))
			}

		case protocol.TypeGameUpdate:
			var update protocol.GameUpdate
			if err := env.DecodePayload(&update); err == nil {
				renderUpdate(update, name)
				transcript.Record(update.Message)
			}

		case protocol.TypeYourTurn:
			select {
			case turnCh <- struct{}{}:
			default:
			}

		case protocol.TypeRevealAll:
			var reveal protocol.RevealAll
			if err := env.DecodePayload(&reveal); err == nil {
				renderReveal(reveal)
				for _, pd := range reveal.DiceData {
					transcript.Record(pd.Player + " had " + diceLine(pd.Dice))
				}
			}

		case protocol.TypeInfo:
			var notice protocol.Notice
			if err := env.DecodePayload(&notice); err == nil {
				pterm.Info.Println(notice.Message)
				transcript.Record(notice.Message)
			}

		case protocol.TypeError:
			var notice protocol.Notice
			if err := env.DecodePayload(&notice); err == nil {
				pterm.Error.Println(notice.Message)
			}

		case protocol.TypeGameOver:
			var notice protocol.Notice
			if err := env.DecodePayload(&notice); err == nil {
				renderGameOver(notice.Message)
				transcript.Record("game over: " + notice.Message)
			}
			return
		}
	}
}

func send(conn net.Conn, msgType string, payload any) error {
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// transcript appends timestamped match events to a local file. A nil file
// turns every call into a no-op.
type transcript struct {
	f *os.File
}

func newTranscript(path string) *transcript {
	if path == "" {
		return &transcript{}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		pterm.Warning.Printfln("Cannot open transcript %s: %v", path, err)
		return &transcript{}
	}
	return &transcript{f: f}
}

func (t *transcript) Record(line string) {
	if t.f == nil {
		return
	}
	fmt.Fprintf(t.f, "%s %s\n", time.Now().Format(time.RFC3339), line)
}

func (t *transcript) Close() {
	if t.f != nil {
		t.f.Close()
	}
}
