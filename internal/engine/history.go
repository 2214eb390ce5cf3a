package engine

import (
	"github.com/pokernight/pokernight/poker"
)

// maxHandHistories bounds the per-table history kept in the engine blob.
const maxHandHistories = 50

// HistoryAction is one recorded betting action.
type HistoryAction struct {
	PlayerID string `json:"player_id"`
	Action   Action `json:"action"`
	Amount   int    `json:"amount"`
	Street   Street `json:"street"`
}

// HandHistory is the append-only record of a single hand. It is never
// mutated after the hand completes.
type HandHistory struct {
	HandNumber     int             `json:"hand_number"`
	Actions        []HistoryAction `json:"actions"`
	CommunityCards [][]poker.Card  `json:"community_cards"`
	Winners        []WinnerRecord  `json:"winners"`
}

func newHandHistory(handNumber int) *HandHistory {
	return &HandHistory{HandNumber: handNumber}
}

func (h *HandHistory) recordAction(playerID string, action Action, amount int, street Street) {
	h.Actions = append(h.Actions, HistoryAction{
		PlayerID: playerID,
		Action:   action,
		Amount:   amount,
		Street:   street,
	})
}

func (h *HandHistory) recordCommunity(cards []poker.Card) {
	batch := make([]poker.Card, len(cards))
	copy(batch, cards)
	h.CommunityCards = append(h.CommunityCards, batch)
}

func (h *HandHistory) recordWinners(winners []WinnerRecord) {
	h.Winners = winners
}
