package poker

import (
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrNotEnoughCards is returned when a deal asks for more cards than remain.
var ErrNotEnoughCards = errors.New("not enough cards in deck")

// Deck is an ordered sequence of cards. The top of the deck is index 0
// and deals pop from the front.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full 52-card deck, enumerated suit-major and
// rank-minor, then shuffled with the provided RNG. A nil RNG leaves the
// deck unshuffled, which is only useful for tests that want a known order.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	if rng != nil {
		d.Shuffle()
	}
	return d
}

// RestoreDeck rebuilds a deck from a previously serialized card order.
// The order is preserved exactly; the deck is not reshuffled.
func RestoreDeck(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle reshuffles the remaining cards using Fisher-Yates.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughCards, n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// DealOne removes and returns the top card.
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// MarshalJSON serializes the remaining cards in order.
func (d *Deck) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.cards)
}

// UnmarshalJSON restores the remaining cards in order without reshuffling.
func (d *Deck) UnmarshalJSON(data []byte) error {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return fmt.Errorf("duplicate card %s in deck", c)
		}
		seen[c] = true
	}
	if len(cards) > 52 {
		return fmt.Errorf("deck has %d cards", len(cards))
	}
	d.cards = cards
	return nil
}
