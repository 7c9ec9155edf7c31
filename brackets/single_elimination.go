package brackets

import (
	"errors"
	"fmt"

	"github.com/Ljimmex/NexArenav2-sub001/models"
)

var (
	ErrInvalidBracketSize = errors.New("seeded slot list length must be a power of two, minimum 2")
	ErrInvalidGroupCount  = errors.New("number of groups does not admit a valid per-group bracket size")
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds the full single elimination skeleton: round-1
// pairings by the standard draw, TBD placeholders for later rounds, the
// optional bronze match fed by the semifinal losers, and immediate
// resolution of byes. With more than one group the seeded list is split by
// seed distribution and every group gets its own independent tree.
func (g *SingleEliminationGenerator) GenerateBracket(params GenerateParams) ([]*BracketMatch, error) {
	slots := params.Slots
	size := len(slots)
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: got %d slots", ErrInvalidBracketSize, size)
	}

	groups := params.Settings.NumberOfGroups
	if groups < 1 {
		groups = 1
	}
	if size%groups != 0 || size/groups < 2 {
		return nil, fmt.Errorf("%w: %d slots across %d groups", ErrInvalidGroupCount, size, groups)
	}

	parts := partitionIntoGroups(slots, groups)

	matchNumber := 0
	all := make([]*BracketMatch, 0, size)
	for i, part := range parts {
		groupMatches := buildGroupBracket(i+1, part, params.Settings.BronzeMatch, &matchNumber)
		all = append(all, groupMatches...)
	}
	return all, nil
}

// partitionIntoGroups distributes slots over groups serpentine-style, so the
// top seeds land in different groups (seed 1 and seed 2 never share a group)
// and the bye-padded tail spreads evenly.
func partitionIntoGroups(slots []Slot, groups int) [][]Slot {
	parts := make([][]Slot, groups)
	perGroup := len(slots) / groups
	for i := range parts {
		parts[i] = make([]Slot, 0, perGroup)
	}
	for i, s := range slots {
		row := i / groups
		col := i % groups
		target := col
		if row%2 == 1 {
			target = groups - 1 - col
		}
		parts[target] = append(parts[target], s)
	}
	return parts
}

func buildGroupBracket(groupID int, slots []Slot, bronzeMatch bool, matchNumber *int) []*BracketMatch {
	size := len(slots)
	totalRounds := 0
	for 1<<totalRounds < size {
		totalRounds++
	}

	rounds := make([][]*BracketMatch, totalRounds+1)
	for r := 1; r <= totalRounds; r++ {
		count := size >> uint(r)
		rounds[r] = make([]*BracketMatch, count)
		for p := 0; p < count; p++ {
			*matchNumber++
			rounds[r][p] = &BracketMatch{
				MatchNumber:     *matchNumber,
				GroupID:         groupID,
				Round:           r,
				PositionInRound: p,
				Status:          models.MatchStatusPending,
			}
		}
	}

	// Winner of (r, p) advances into (r+1, p/2), slot 1 for even p, slot 2
	// for odd p.
	for r := 1; r < totalRounds; r++ {
		for p, m := range rounds[r] {
			next := rounds[r+1][p/2]
			slot := p%2 + 1
			m.NextMatchNumber = &next.MatchNumber
			m.NextSlot = &slot
		}
	}

	// Round-1 pairings by the standard draw over local seed numbers.
	positions := DrawPositions(size)
	for p, m := range rounds[1] {
		a := slots[positions[2*p]-1]
		b := slots[positions[2*p+1]-1]
		if a.Bye {
			m.Slot1Bye = true
		} else {
			m.Participant1ID = &a.Participant.ID
		}
		if b.Bye {
			m.Slot2Bye = true
		} else {
			m.Participant2ID = &b.Participant.ID
		}
	}

	var bronze *BracketMatch
	if bronzeMatch && totalRounds >= 2 {
		*matchNumber++
		bronze = &BracketMatch{
			MatchNumber:     *matchNumber,
			GroupID:         groupID,
			Round:           totalRounds,
			PositionInRound: 0,
			IsBronzeMatch:   true,
			Status:          models.MatchStatusPending,
		}
		for i, semi := range rounds[totalRounds-1] {
			slot := i + 1
			semi.LoserMatchNumber = &bronze.MatchNumber
			semi.LoserSlot = &slot
		}
	}

	// Byes resolve immediately: the sole real participant wins by walkover
	// and advances. A bye never meets a bye in round 1, since byes take up
	// less than half of the draw.
	for p, m := range rounds[1] {
		if m.Slot1Bye == m.Slot2Bye {
			continue
		}
		winner := m.Participant1ID
		if m.Slot1Bye {
			winner = m.Participant2ID
		}
		m.WinnerID = winner
		m.Status = models.MatchStatusWalkover
		m.IsFinalized = true

		if m.NextMatchNumber != nil {
			next := rounds[2][p/2]
			if *m.NextSlot == 1 {
				next.Participant1ID = winner
			} else {
				next.Participant2ID = winner
			}
		}
		// The bye side has no loser to send to the bronze match.
		if m.LoserMatchNumber != nil && bronze != nil {
			if *m.LoserSlot == 1 {
				bronze.Slot1Bye = true
			} else {
				bronze.Slot2Bye = true
			}
		}
	}

	if bronze != nil && bronze.Slot1Bye && bronze.Slot2Bye {
		// Both semifinals were byes, nobody can contest third place.
		bronze.Status = models.MatchStatusCancelled
	}

	out := make([]*BracketMatch, 0, size)
	for r := 1; r <= totalRounds; r++ {
		out = append(out, rounds[r]...)
	}
	if bronze != nil {
		out = append(out, bronze)
	}
	return out
}
