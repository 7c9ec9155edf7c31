package brackets

import (
	"github.com/Ljimmex/NexArenav2-sub001/models"
)

// BracketMatch is the storage-agnostic output of a bracket generator. Matches
// reference each other through match numbers; the persistence layer resolves
// those into row ids once the skeleton is saved.
type BracketMatch struct {
	MatchNumber     int
	GroupID         int
	Round           int
	PositionInRound int

	Participant1ID *int
	Participant2ID *int
	Slot1Bye       bool
	Slot2Bye       bool

	Status      models.MatchStatus
	WinnerID    *int
	IsFinalized bool

	IsBronzeMatch bool

	// Winner destination, nil for the final and the bronze match.
	NextMatchNumber *int
	NextSlot        *int

	// Loser destination, set on semifinals when a bronze match exists.
	LoserMatchNumber *int
	LoserSlot        *int
}

// GenerateParams carries the seeded slot list and the parsed format settings
// into a generator.
type GenerateParams struct {
	Slots    []Slot
	Settings models.SingleEliminationSettings
}

// BracketGenerator builds a full bracket skeleton from a seeded slot list.
type BracketGenerator interface {
	GetName() string
	GenerateBracket(params GenerateParams) ([]*BracketMatch, error)
}
