package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchStatusPending      MatchStatus = "pending"
	MatchStatusScheduled    MatchStatus = "scheduled"
	MatchStatusLive         MatchStatus = "live"
	MatchStatusCompleted    MatchStatus = "completed"
	MatchStatusCancelled    MatchStatus = "cancelled"
	MatchStatusWalkover     MatchStatus = "walkover"
	MatchStatusDisqualified MatchStatus = "disqualified"
)

// IsTerminal reports whether s admits no further transitions.
func (s MatchStatus) IsTerminal() bool {
	switch s {
	case MatchStatusCompleted, MatchStatusCancelled, MatchStatusWalkover, MatchStatusDisqualified:
		return true
	}
	return false
}

// Match is one node of a tournament bracket.
//
// Participant slots are nullable: a nil slot is either a TBD placeholder
// waiting on a feeder match, or a permanently empty bye slot when the
// corresponding SlotNBye flag is set. NextMatchID/NextSlot point at the match
// the winner advances into; LoserMatchID/LoserSlot feed the bronze match from
// the semifinals. Version backs the optimistic concurrency check on result
// writes.
type Match struct {
	ID              int         `json:"id" db:"id"`
	TournamentID    int         `json:"tournament_id" db:"tournament_id"`
	GroupID         int         `json:"group_id" db:"group_id"`
	MatchNumber     int         `json:"match_number" db:"match_number"`
	Round           int         `json:"round" db:"round"`
	PositionInRound int         `json:"position_in_round" db:"position_in_round"`
	Participant1ID  *int        `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID  *int        `json:"participant2_id,omitempty" db:"participant2_id"`
	Slot1Bye        bool        `json:"slot1_bye" db:"slot1_bye"`
	Slot2Bye        bool        `json:"slot2_bye" db:"slot2_bye"`
	WinnerID        *int        `json:"winner_id,omitempty" db:"winner_id"`
	Status          MatchStatus `json:"status" db:"status"`
	ScheduledAt     *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Score1          *int        `json:"score1,omitempty" db:"score1"`
	Score2          *int        `json:"score2,omitempty" db:"score2"`
	IsBronzeMatch   bool        `json:"is_bronze_match" db:"is_bronze_match"`
	IsFinalized     bool        `json:"is_finalized" db:"is_finalized"`
	DisqualifiedID  *int        `json:"disqualified_participant_id,omitempty" db:"disqualified_participant_id"`
	NextMatchID     *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot        *int        `json:"next_slot,omitempty" db:"next_slot"`
	LoserMatchID    *int        `json:"loser_match_id,omitempty" db:"loser_match_id"`
	LoserSlot       *int        `json:"loser_slot,omitempty" db:"loser_slot"`
	Version         int         `json:"version" db:"version"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// LoserID returns the finalized match's losing participant, or nil for byes
// and non-finalized matches. A cancelled match has no loser.
func (m *Match) LoserID() *int {
	if !m.IsFinalized || m.WinnerID == nil {
		return nil
	}
	if m.Participant1ID != nil && *m.Participant1ID != *m.WinnerID {
		return m.Participant1ID
	}
	if m.Participant2ID != nil && *m.Participant2ID != *m.WinnerID {
		return m.Participant2ID
	}
	return nil
}

// HasBothParticipants reports whether both slots hold real participants.
func (m *Match) HasBothParticipants() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}

// RoundView groups the matches of one bracket round.
type RoundView struct {
	Round   int      `json:"round"`
	Matches []*Match `json:"matches"`
}

// GroupBracketView is the round-grouped projection of one group's bracket,
// with the bronze match split out of the regular rounds.
type GroupBracketView struct {
	GroupID     int          `json:"group_id"`
	TotalRounds int          `json:"total_rounds"`
	Rounds      []*RoundView `json:"rounds"`
	BronzeMatch *Match       `json:"bronze_match,omitempty"`
}

// BracketView is the full projection of a tournament bracket.
type BracketView struct {
	TournamentID int                  `json:"tournament_id"`
	Generated    bool                 `json:"generated"`
	Groups       []*GroupBracketView  `json:"groups,omitempty"`
	Participants map[int]*Participant `json:"participants,omitempty"`
}
