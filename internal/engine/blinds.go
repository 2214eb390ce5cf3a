package engine

import (
	"math"
	"sort"
)

// niceBlindSet is the standard tournament blind ladder: {1, 1.5, 2,
// 2.5, 3, 4, 5, 6, 8} across six decades.
var niceBlindSet = buildNiceBlindSet()

func buildNiceBlindSet() []int {
	factors := []float64{1, 1.5, 2, 2.5, 3, 4, 5, 6, 8}
	var out []int
	scale := 1
	for d := 0; d <= 5; d++ {
		for _, f := range factors {
			v := int(math.Round(f * float64(scale)))
			if v >= 1 {
				out = append(out, v)
			}
		}
		scale *= 10
	}
	sort.Ints(out)
	// drop duplicates from fractional factors at scale 1
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

// niceBlind snaps v to the nearest standard blind value, preferring the
// lower value when equidistant.
func niceBlind(v float64) int {
	if v <= float64(niceBlindSet[0]) {
		return niceBlindSet[0]
	}
	last := niceBlindSet[len(niceBlindSet)-1]
	if v >= float64(last) {
		return last
	}
	i := sort.Search(len(niceBlindSet), func(i int) bool {
		return float64(niceBlindSet[i]) >= v
	})
	hi := niceBlindSet[i]
	lo := niceBlindSet[i-1]
	if v-float64(lo) <= float64(hi)-v {
		return lo
	}
	return hi
}

// buildBlindSchedule lays out a tournament-style schedule: a linear
// opening phase, a geometric ramp toward the starting stack, and an
// overtime tail that keeps climbing by 1.5x until blinds dwarf the
// stacks.
func buildBlindSchedule(startingChips, totalMinutes, levelMinutes int) []BlindLevel {
	bbInitial := niceBlind(float64(startingChips) / 100)
	if bbInitial < 2 {
		bbInitial = 2
	}
	n := totalMinutes / levelMinutes
	if n < 3 {
		n = 3
	}

	var bbs []int
	phase1 := (n + 1) / 2
	for i := 0; i < phase1; i++ {
		bbs = append(bbs, niceBlind(float64(bbInitial)*float64(i+1)))
	}

	phase2 := n + 2 - phase1
	if phase2 > 0 {
		base := float64(bbs[len(bbs)-1])
		ratio := 1.2
		if phase2 > 1 {
			r := math.Pow(float64(startingChips)/base, 1/float64(phase2-1))
			if r > ratio {
				ratio = r
			}
		}
		for i := 1; i <= phase2; i++ {
			bbs = append(bbs, niceBlind(base*math.Pow(ratio, float64(i))))
		}
	}

	for bbs[len(bbs)-1] < 3*startingChips {
		bbs = append(bbs, nextOvertimeBlind(bbs[len(bbs)-1]))
	}

	var schedule []BlindLevel
	for _, bb := range bbs {
		lvl := toLevel(bb)
		if len(schedule) > 0 && schedule[len(schedule)-1] == lvl {
			continue
		}
		schedule = append(schedule, lvl)
	}
	return schedule
}

// nextOvertimeBlind grows a blind by 1.5x, snapped to the standard set,
// always strictly larger than the previous value.
func nextOvertimeBlind(prev int) int {
	next := niceBlind(float64(prev) * 1.5)
	if next <= prev {
		next = prev + 1
	}
	return next
}

func toLevel(bb int) BlindLevel {
	sb := bb / 2
	if sb < 1 {
		sb = 1
	}
	return BlindLevel{SmallBlind: sb, BigBlind: bb}
}

// advanceBlindLevel moves the table to the blind level implied by the
// effective elapsed time, extending the schedule if play has gone long.
// Called at the top of each new hand.
func (e *Engine) advanceBlindLevel() {
	if len(e.BlindSchedule) == 0 || e.BlindLevelDuration <= 0 || e.GameStartedAt == 0 {
		return
	}
	target := int(e.effectiveElapsed().Seconds()) / (60 * e.BlindLevelDuration)
	for target >= len(e.BlindSchedule) {
		e.BlindSchedule = append(e.BlindSchedule,
			toLevel(nextOvertimeBlind(e.BlindSchedule[len(e.BlindSchedule)-1].BigBlind)))
	}
	if target > e.BlindLevel {
		e.BlindLevel = target
		lvl := e.BlindSchedule[target]
		e.SmallBlind = lvl.SmallBlind
		e.BigBlind = lvl.BigBlind
	}
}
