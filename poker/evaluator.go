package poker

import (
	"fmt"
	"sort"
)

// Category enumerates hand categories from weakest to strongest.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"One Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

// String returns the human-readable category name.
func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// HandRank is a comparable hand strength: a category plus a lexicographic
// tiebreaker sequence of ranks. Equal HandRanks mean a genuine tie.
type HandRank struct {
	Category    Category `json:"category"`
	Tiebreakers []int    `json:"tiebreakers"`
}

// Compare returns -1, 0 or 1 as h is weaker than, equal to, or stronger
// than other.
func (h HandRank) Compare(other HandRank) int {
	if h.Category != other.Category {
		if h.Category < other.Category {
			return -1
		}
		return 1
	}
	n := len(h.Tiebreakers)
	if len(other.Tiebreakers) < n {
		n = len(other.Tiebreakers)
	}
	for i := 0; i < n; i++ {
		if h.Tiebreakers[i] != other.Tiebreakers[i] {
			if h.Tiebreakers[i] < other.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(h.Tiebreakers) < len(other.Tiebreakers):
		return -1
	case len(h.Tiebreakers) > len(other.Tiebreakers):
		return 1
	}
	return 0
}

// Less reports whether h is strictly weaker than other.
func (h HandRank) Less(other HandRank) bool { return h.Compare(other) < 0 }

// Equal reports a genuine tie.
func (h HandRank) Equal(other HandRank) bool { return h.Compare(other) == 0 }

// Name returns the category name.
func (h HandRank) Name() string { return h.Category.String() }

func (h HandRank) String() string {
	return fmt.Sprintf("%s %v", h.Category, h.Tiebreakers)
}

// Evaluate returns the HandRank of the best 5-card combination of the
// given cards. It accepts 5 to 7 cards; fewer than 5 is a programmer
// error and panics.
func Evaluate(cards []Card) HandRank {
	if len(cards) < 5 {
		panic(fmt.Sprintf("poker: evaluate needs at least 5 cards, got %d", len(cards)))
	}
	if len(cards) == 5 {
		return evaluateFive(cards)
	}

	// Enumerate all C(n,5) subsets and keep the best.
	var best HandRank
	first := true
	n := len(cards)
	combo := make([]Card, 5)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == 5 {
			rank := evaluateFive(combo)
			if first || best.Less(rank) {
				best = rank
				first = false
			}
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			combo[depth] = cards[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return best
}

// evaluateFive classifies exactly five cards.
func evaluateFive(cards []Card) HandRank {
	ranks := make([]int, 5)
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}

	straight, high := straightHigh(ranks, counts)

	if straight && flush {
		if high == int(Ace) {
			return HandRank{Category: RoyalFlush, Tiebreakers: []int{int(Ace)}}
		}
		return HandRank{Category: StraightFlush, Tiebreakers: []int{high}}
	}

	// Group ranks by multiplicity, ordered by (count desc, rank desc).
	type group struct{ rank, count int }
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	kickers := func(minIdx int) []int {
		out := []int{}
		for _, g := range groups[minIdx:] {
			out = append(out, g.rank)
		}
		return out
	}

	switch {
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreakers: []int{groups[0].rank, groups[1].rank}}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreakers: []int{groups[0].rank, groups[1].rank}}
	case flush:
		return HandRank{Category: Flush, Tiebreakers: ranks}
	case straight:
		return HandRank{Category: Straight, Tiebreakers: []int{high}}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreakers: append([]int{groups[0].rank}, kickers(1)...)}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreakers: []int{groups[0].rank, groups[1].rank, groups[2].rank}}
	case groups[0].count == 2:
		return HandRank{Category: OnePair, Tiebreakers: append([]int{groups[0].rank}, kickers(1)...)}
	}
	return HandRank{Category: HighCard, Tiebreakers: ranks}
}

// straightHigh reports whether the (descending-sorted) ranks form a
// straight and returns the straight's high card. The wheel A-2-3-4-5
// ranks as a 5-high straight.
func straightHigh(ranks []int, counts map[int]int) (bool, int) {
	if len(counts) != 5 {
		return false, 0
	}
	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	if ranks[0] == int(Ace) && ranks[1] == 5 && ranks[4] == 2 {
		return true, 5
	}
	return false, 0
}

// DetermineWinners returns the ids whose rank ties the maximum, sorted
// for deterministic output. An empty input yields an empty slice.
func DetermineWinners(hands map[string]HandRank) []string {
	if len(hands) == 0 {
		return nil
	}
	var best HandRank
	first := true
	for _, r := range hands {
		if first || best.Less(r) {
			best = r
			first = false
		}
	}
	winners := make([]string, 0, len(hands))
	for id, r := range hands {
		if r.Equal(best) {
			winners = append(winners, id)
		}
	}
	sort.Strings(winners)
	return winners
}
