// Package oracle adjudicates chess legality and terminal conditions for the
// room coordinator. The coordinator never inspects positions itself; it hands
// the move history plus a candidate move here and applies the verdict.
package oracle

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrCorruptHistory = errors.New("corrupt move history")
)

// Outcome of the position after a move was applied.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeWhiteWins Outcome = "white_wins"
	OutcomeBlackWins Outcome = "black_wins"
	OutcomeStalemate Outcome = "stalemate"
	OutcomeDraw      Outcome = "draw"
)

// Verdict describes an accepted move.
type Verdict struct {
	UCI      string
	SAN      string
	FEN      string
	NextTurn string // "white" or "black"
	Outcome  Outcome
}

// Oracle validates a move against the game reconstructed from history.
type Oracle interface {
	Apply(history []string, move string) (*Verdict, error)
}

// Engine is the in-process Oracle backed by the chess rules library. It is
// stateless; each Apply call replays the UCI history from the start position.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Apply(history []string, move string) (*Verdict, error) {
	game := reconstruct(history)
	if game == nil {
		return nil, ErrCorruptHistory
	}
	pos := game.Position()

	raw := strings.TrimSpace(move)
	if raw == "" {
		return nil, ErrIllegalMove
	}

	var uci, san string
	// UCI preferred, SAN fallback
	if mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); derr == nil {
		if err := game.Move(mv, nil); err != nil {
			return nil, ErrIllegalMove
		}
		uci = strings.ToLower(raw)
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
	} else {
		if err := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return nil, ErrIllegalMove
		}
		last := lastMove(game)
		if last == nil {
			return nil, ErrIllegalMove
		}
		uci = last.String()
		san = nchess.AlgebraicNotation{}.Encode(pos, last)
	}

	v := &Verdict{
		UCI:     uci,
		SAN:     san,
		FEN:     game.FEN(),
		Outcome: outcomeOf(game),
	}
	if game.Position().Turn() == nchess.White {
		v.NextTurn = "white"
	} else {
		v.NextTurn = "black"
	}
	return v, nil
}

func outcomeOf(game *nchess.Game) Outcome {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return OutcomeWhiteWins
	case nchess.BlackWon:
		return OutcomeBlackWins
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return OutcomeStalemate
		}
		return OutcomeDraw
	default:
		return OutcomeNone
	}
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

// reconstruct replays the stored UCI moves from the start position. Returns
// nil when the history itself does not replay cleanly.
func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}
