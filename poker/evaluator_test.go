package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernight/pokernight/internal/randutil"
)

func cards(ss ...string) []Card {
	out := make([]Card, len(ss))
	for i, s := range ss {
		out[i] = MustParseCard(s)
	}
	return out
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cards       []string
		category    Category
		tiebreakers []int
	}{
		{"royal flush", []string{"Ah", "Kh", "Qh", "Jh", "Th"}, RoyalFlush, []int{14}},
		{"straight flush", []string{"9s", "8s", "7s", "6s", "5s"}, StraightFlush, []int{9}},
		{"steel wheel", []string{"Ad", "2d", "3d", "4d", "5d"}, StraightFlush, []int{5}},
		{"four of a kind", []string{"Ah", "Ad", "Ac", "As", "Kh"}, FourOfAKind, []int{14, 13}},
		{"full house", []string{"Th", "Td", "Tc", "4s", "4h"}, FullHouse, []int{10, 4}},
		{"flush", []string{"Ah", "Jh", "9h", "6h", "3h"}, Flush, []int{14, 11, 9, 6, 3}},
		{"straight", []string{"8h", "7d", "6c", "5s", "4h"}, Straight, []int{8}},
		{"wheel", []string{"Ah", "2d", "3c", "4s", "5h"}, Straight, []int{5}},
		{"three of a kind", []string{"7h", "7d", "7c", "Ks", "2h"}, ThreeOfAKind, []int{7, 13, 2}},
		{"two pair", []string{"Jh", "Jd", "4c", "4s", "9h"}, TwoPair, []int{11, 4, 9}},
		{"one pair", []string{"Qh", "Qd", "Ac", "8s", "3h"}, OnePair, []int{12, 14, 8, 3}},
		{"high card", []string{"Ah", "Jd", "9c", "6s", "3h"}, HighCard, []int{14, 11, 9, 6, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rank := Evaluate(cards(tc.cards...))
			assert.Equal(t, tc.category, rank.Category)
			assert.Equal(t, tc.tiebreakers, rank.Tiebreakers)
		})
	}
}

func TestWheelLosesToSixHighStraight(t *testing.T) {
	t.Parallel()

	wheel := Evaluate(cards("Ah", "2d", "3c", "4s", "5h"))
	sixHigh := Evaluate(cards("2h", "3d", "4c", "5s", "6h"))
	assert.True(t, wheel.Less(sixHigh))
	assert.False(t, sixHigh.Less(wheel))
}

func TestEvaluateSevenCardsPicksBestFive(t *testing.T) {
	t.Parallel()

	// Board makes a flush; the pocket pair is irrelevant.
	rank := Evaluate(cards("2c", "2d", "Ah", "Kh", "9h", "5h", "3h"))
	assert.Equal(t, Flush, rank.Category)
	assert.Equal(t, []int{14, 13, 9, 5, 3}, rank.Tiebreakers)

	// Seven cards containing a straight flush.
	rank = Evaluate(cards("9s", "8s", "7s", "6s", "5s", "Ah", "Ad"))
	assert.Equal(t, StraightFlush, rank.Category)
	assert.Equal(t, []int{9}, rank.Tiebreakers)
}

func TestEvaluatePanicsBelowFiveCards(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { Evaluate(cards("Ah", "Kh", "Qh", "Jh")) })
}

func TestTotalOrder(t *testing.T) {
	t.Parallel()

	hands := []HandRank{
		Evaluate(cards("Ah", "Jd", "9c", "6s", "3h")),
		Evaluate(cards("Qh", "Qd", "Ac", "8s", "3h")),
		Evaluate(cards("Jh", "Jd", "4c", "4s", "9h")),
		Evaluate(cards("7h", "7d", "7c", "Ks", "2h")),
		Evaluate(cards("8h", "7d", "6c", "5s", "4h")),
		Evaluate(cards("Ah", "Jh", "9h", "6h", "3h")),
		Evaluate(cards("Th", "Td", "Tc", "4s", "4h")),
		Evaluate(cards("Ah", "Ad", "Ac", "As", "Kh")),
		Evaluate(cards("9s", "8s", "7s", "6s", "5s")),
		Evaluate(cards("Ah", "Kh", "Qh", "Jh", "Th")),
	}

	// Exactly one of <, =, > holds for every pair, and the list above is
	// strictly ascending.
	for i := range hands {
		for j := range hands {
			cmp := hands[i].Compare(hands[j])
			assert.Equal(t, -hands[j].Compare(hands[i]), cmp)
			switch {
			case i < j:
				assert.Equal(t, -1, cmp, "hands[%d] vs hands[%d]", i, j)
			case i == j:
				assert.Equal(t, 0, cmp)
			default:
				assert.Equal(t, 1, cmp)
			}
		}
	}
}

func TestDetermineWinners(t *testing.T) {
	t.Parallel()

	a := Evaluate(cards("Ah", "Ad", "Kc", "Ks", "2h")) // aces up
	b := Evaluate(cards("As", "Ac", "Kd", "Kh", "2d")) // identical strength
	c := Evaluate(cards("Qh", "Qd", "Jc", "Js", "2c"))

	winners := DetermineWinners(map[string]HandRank{"a": a, "b": b, "c": c})
	assert.Equal(t, []string{"a", "b"}, winners)

	assert.Empty(t, DetermineWinners(nil))
	assert.Empty(t, DetermineWinners(map[string]HandRank{}))
}

// TestSevenCardDistribution deals 200k random 7-card hands and checks the
// observed category frequencies against theory.
func TestSevenCardDistribution(t *testing.T) {
	if testing.Short() {
		t.Skip("distribution test is slow")
	}
	t.Parallel()

	const deals = 200_000
	rng := randutil.New(20260826)
	counts := make(map[Category]int)

	for i := 0; i < deals; i++ {
		d := NewDeck(rng)
		hand, err := d.Deal(7)
		require.NoError(t, err)
		counts[Evaluate(hand).Category]++
	}

	expect := map[Category]struct{ pct, tol float64 }{
		HighCard:      {17.41, 1.0},
		OnePair:       {43.83, 1.0},
		TwoPair:       {23.50, 1.0},
		ThreeOfAKind:  {4.83, 0.5},
		Straight:      {4.62, 0.5},
		Flush:         {3.03, 0.5},
		FullHouse:     {2.60, 0.5},
		FourOfAKind:   {0.168, 0.1},
		StraightFlush: {0.0279, 0.1},
		RoyalFlush:    {0.0032, 0.1},
	}

	for cat, want := range expect {
		got := float64(counts[cat]) / deals * 100
		assert.InDelta(t, want.pct, got, want.tol, "category %s", cat)
	}
}
