package poker

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit, stored as its single-character wire form.
type Suit byte

const (
	Hearts   Suit = 'h'
	Diamonds Suit = 'd'
	Clubs    Suit = 'c'
	Spades   Suit = 's'
)

// Suits lists the four suits in deck enumeration order.
var Suits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the single-character representation of a suit.
func (s Suit) String() string {
	return string(byte(s))
}

// Valid reports whether the suit is one of the four known suits.
func (s Suit) Valid() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

// Rank represents a card rank, 2 through 14 with aces high.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankSymbols = "23456789TJQKA"

// String returns the single-character representation of a rank.
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankSymbols[r-Two])
}

// Valid reports whether the rank is in 2..14.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card is a playing card. Equality is by (rank, suit).
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a card.
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the two-character form used in logs, e.g. "Ah" or "Ts".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// ParseCard parses the two-character form ("Ah", "Ts", "2c").
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var rank Rank
	found := false
	for i := 0; i < len(rankSymbols); i++ {
		if rankSymbols[i] == s[0] {
			rank = Rank(i) + Two
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card rank %q", s)
	}
	suit := Suit(s[1])
	if !suit.Valid() {
		return Card{}, fmt.Errorf("invalid card suit %q", s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustParseCard is ParseCard for tests and fixed fixtures; panics on bad input.
func MustParseCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

// cardJSON is the persisted wire form: {"rank": 14, "suit": "h"}.
type cardJSON struct {
	Rank int    `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON serializes the card in its persistence form.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: int(c.Rank), Suit: c.Suit.String()})
}

// UnmarshalJSON restores a card from its persistence form, rejecting
// out-of-range ranks and unknown suits.
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	if len(cj.Suit) != 1 {
		return fmt.Errorf("invalid card suit %q", cj.Suit)
	}
	rank := Rank(cj.Rank)
	suit := Suit(cj.Suit[0])
	if !rank.Valid() || !suit.Valid() {
		return fmt.Errorf("invalid card %d%s", cj.Rank, cj.Suit)
	}
	c.Rank = rank
	c.Suit = suit
	return nil
}
