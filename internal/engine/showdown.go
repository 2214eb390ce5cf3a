package engine

import (
	"sort"

	"github.com/pokernight/pokernight/poker"
)

// pot is one main or side pot with the ids eligible to win it.
type pot struct {
	amount   int
	eligible []string
}

// calculatePots splits total contributions into a main pot and side
// pots. Contributions from folded seats stay in whichever pots their
// bets reach; eligibility requires staying in the hand to that level.
func (e *Engine) calculatePots() []pot {
	var levels []int
	seen := make(map[int]bool)
	for _, s := range e.Seats {
		if !s.Folded && !s.SittingOut && s.BetThisHand > 0 {
			if !seen[s.BetThisHand] {
				seen[s.BetThisHand] = true
				levels = append(levels, s.BetThisHand)
			}
		}
	}
	sort.Ints(levels)

	var pots []pot
	prev := 0
	for _, level := range levels {
		slice := level - prev
		amount := 0
		for _, s := range e.Seats {
			if s.BetThisHand > prev {
				c := s.BetThisHand - prev
				if c > slice {
					c = slice
				}
				amount += c
			}
		}
		var eligible []string
		for _, s := range e.Seats {
			if !s.Folded && !s.SittingOut && s.BetThisHand >= level {
				eligible = append(eligible, s.PlayerID)
			}
		}
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, pot{amount: amount, eligible: eligible})
		}
		prev = level
	}
	return pots
}

// showdown evaluates every remaining hand, settles each pot in order
// (single-eligible pots are uncalled-bet refunds), and closes out the
// hand.
func (e *Engine) showdown() {
	e.Street = Showdown

	ranks := make(map[string]poker.HandRank)
	hands := make(map[string]PlayerHandResult)
	for _, s := range e.Seats {
		if s.Folded || s.SittingOut || len(s.HoleCards) == 0 {
			continue
		}
		cards := append(append([]poker.Card{}, s.HoleCards...), e.CommunityCards...)
		rank := poker.Evaluate(cards)
		ranks[s.PlayerID] = rank
		hands[s.PlayerID] = PlayerHandResult{
			Cards:    append([]poker.Card{}, s.HoleCards...),
			HandName: rank.Name(),
		}
	}

	totalPot := e.Pot
	winnings := make(map[string]int)
	winnerHand := make(map[string]string)
	var refunds []RefundRecord

	for _, p := range e.calculatePots() {
		if len(p.eligible) == 1 {
			id := p.eligible[0]
			s := e.Seats[e.findSeat(id)]
			s.Chips += p.amount
			refunds = append(refunds, RefundRecord{
				PlayerID: id,
				Name:     s.Name,
				Amount:   p.amount,
			})
			totalPot -= p.amount
			continue
		}
		sub := make(map[string]poker.HandRank, len(p.eligible))
		for _, id := range p.eligible {
			sub[id] = ranks[id]
		}
		winners := poker.DetermineWinners(sub)
		share := p.amount / len(winners)
		remainder := p.amount % len(winners)
		for _, id := range e.seatOrder(winners) {
			w := share
			if remainder > 0 {
				w++
				remainder--
			}
			e.Seats[e.findSeat(id)].Chips += w
			winnings[id] += w
			winnerHand[id] = ranks[id].Name()
		}
	}

	var winnerRecords []WinnerRecord
	for _, s := range e.Seats {
		if w, ok := winnings[s.PlayerID]; ok {
			winnerRecords = append(winnerRecords, WinnerRecord{
				PlayerID: s.PlayerID,
				Name:     s.Name,
				Winnings: w,
				Hand:     winnerHand[s.PlayerID],
			})
		}
	}

	e.LastHandResult = &HandResult{
		Winners:        winnerRecords,
		Refunds:        refunds,
		Pot:            totalPot,
		CommunityCards: append([]poker.Card{}, e.CommunityCards...),
		PlayerHands:    hands,
		Showdown:       true,
	}
	e.finishHand(winnerRecords)
}

// awardPotToLastPlayer settles a hand that ended with a single seat
// left: the whole pot, no showdown, cards stay hidden.
func (e *Engine) awardPotToLastPlayer(idx int) {
	s := e.Seats[idx]
	s.Chips += e.Pot
	winners := []WinnerRecord{{
		PlayerID: s.PlayerID,
		Name:     s.Name,
		Winnings: e.Pot,
	}}
	e.LastHandResult = &HandResult{
		Winners:        winners,
		Pot:            e.Pot,
		CommunityCards: append([]poker.Card{}, e.CommunityCards...),
		PlayerHands:    map[string]PlayerHandResult{},
		Showdown:       false,
	}
	e.finishHand(winners)
}

// finishHand does the terminal bookkeeping shared by showdown and
// fold-out: close the history, zero the pot, check for game over, and
// arm the auto-deal timer.
func (e *Engine) finishHand(winners []WinnerRecord) {
	if e.CurrentHistory != nil {
		e.CurrentHistory.recordWinners(winners)
		e.HandHistories = append(e.HandHistories, e.CurrentHistory)
		if len(e.HandHistories) > maxHandHistories {
			e.HandHistories = e.HandHistories[len(e.HandHistories)-maxHandHistories:]
		}
		e.CurrentHistory = nil
	}
	e.Pot = 0
	e.HandActive = false
	e.ActionDeadline = 0

	if e.checkGameOver() {
		return
	}
	if e.AutoDealDelay > 0 && !e.Paused {
		e.AutoDealDeadline = e.nowUnix() + int64(e.AutoDealDelay)
	}
}

// seatOrder returns ids sorted by seat index, used to hand out odd
// chips deterministically.
func (e *Engine) seatOrder(ids []string) []string {
	out := append([]string{}, ids...)
	sort.Slice(out, func(a, b int) bool {
		return e.findSeat(out[a]) < e.findSeat(out[b])
	})
	return out
}
