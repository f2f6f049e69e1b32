package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/cory-johannsen/liarsdice/internal/protocol"
)

// dieGlyphs maps a face value to its Unicode die.
var dieGlyphs = [7]string{"", "⚀", "⚁", "⚂", "⚃", "⚄", "⚅"}

// diceLine renders a hand as glyphs with numeric values, e.g. "⚂ 3  ⚄ 5".
func diceLine(dice []int) string {
	parts := make([]string, 0, len(dice))
	for _, d := range dice {
		if d >= 1 && d <= 6 {
			parts = append(parts, fmt.Sprintf("%s %d", dieGlyphs[d], d))
		}
	}
	return strings.Join(parts, "  ")
}

// renderHand shows the player's private roll in a highlighted box.
func renderHand(dice []int) {
	box := pterm.DefaultBox.
		WithTitle(pterm.LightYellow("|YOUR DICE|")).
		WithTitleTopCenter().
		WithHorizontalPadding(4).
		WithTopPadding(1).
		WithBottomPadding(1)
	pterm.Println(box.Sprint(diceLine(dice)))
}

// renderUpdate shows the public table state: roster, last bid, whose turn.
func renderUpdate(update protocol.GameUpdate, self string) {
	if update.Message != "" {
		pterm.Info.Println(update.Message)
	}

	rows := pterm.TableData{{"Player", "Dice", ""}}
	for _, p := range update.State.Players {
		marker := ""
		switch {
		case p.DiceCount == 0:
			marker = pterm.LightRed("out")
		case p.Name == update.State.CurrentTurn:
			marker = pterm.LightGreen("to act")
		}
		name := p.Name
		if p.Name == self {
			name = pterm.LightCyan(p.Name)
		}
		rows = append(rows, []string{name, fmt.Sprintf("%d", p.DiceCount), marker})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	if update.State.LastBid.Quantity > 0 {
		pterm.Printfln("Current bid: %s",
			pterm.LightYellow(fmt.Sprintf("%d dice showing %d %s",
				update.State.LastBid.Quantity,
				update.State.LastBid.Face,
				dieGlyphs[update.State.LastBid.Face],
			)))
	}
}

// renderReveal shows every player's dice after a challenge.
func renderReveal(reveal protocol.RevealAll) {
	box := pterm.DefaultBox.
		WithTitle(pterm.LightRed("|SHOWDOWN|")).
		WithTitleTopCenter().
		WithHorizontalPadding(4).
		WithTopPadding(1).
		WithBottomPadding(1)

	var lines []string
	for _, pd := range reveal.DiceData {
		lines = append(lines, fmt.Sprintf("%-12s %s", pd.Player, diceLine(pd.Dice)))
	}
	pterm.Println(box.Sprint(strings.Join(lines, "\n")))
}

// renderGameOver announces the result.
func renderGameOver(message string) {
	if strings.Contains(message, "wins") {
		pterm.Success.Println(message)
	} else {
		pterm.Warning.Println(message)
	}
}
