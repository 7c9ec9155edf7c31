package brackets

import (
	"errors"
	"fmt"

	"github.com/Ljimmex/NexArenav2-sub001/models"
)

var (
	ErrInvalidTransition  = errors.New("invalid match status transition")
	ErrMissingParticipant = errors.New("match still has an unresolved participant slot")
	ErrAmbiguousResult    = errors.New("scores are equal, elimination matches cannot end in a draw")
	ErrWinnerNotInMatch   = errors.New("designated participant is not part of this match")
)

// ValidateTransition checks whether match may move into the target status.
// Finalized and cancelled matches admit no transitions at all; editing a
// finalized result goes through the explicit reopen operation instead.
func ValidateTransition(match *models.Match, to models.MatchStatus) error {
	from := match.Status
	if from.IsTerminal() {
		return fmt.Errorf("%w: match %d is already %s", ErrInvalidTransition, match.ID, from)
	}

	switch to {
	case models.MatchStatusScheduled:
		if from != models.MatchStatusPending {
			return transitionError(match, to)
		}
		if !match.HasBothParticipants() {
			return fmt.Errorf("%w: match %d cannot be scheduled", ErrMissingParticipant, match.ID)
		}
	case models.MatchStatusLive:
		if from != models.MatchStatusScheduled && from != models.MatchStatusLive {
			return transitionError(match, to)
		}
	case models.MatchStatusCompleted:
		if from != models.MatchStatusPending && from != models.MatchStatusScheduled && from != models.MatchStatusLive {
			return transitionError(match, to)
		}
		if !match.HasBothParticipants() {
			return fmt.Errorf("%w: match %d cannot be completed", ErrMissingParticipant, match.ID)
		}
	case models.MatchStatusWalkover, models.MatchStatusDisqualified, models.MatchStatusCancelled:
		// Allowed from any non-terminal state.
	default:
		return transitionError(match, to)
	}
	return nil
}

func transitionError(match *models.Match, to models.MatchStatus) error {
	return fmt.Errorf("%w: match %d, %s -> %s", ErrInvalidTransition, match.ID, match.Status, to)
}

// WinnerFromScores determines the winning participant of a completed match.
func WinnerFromScores(match *models.Match, score1, score2 int) (*int, error) {
	if score1 == score2 {
		return nil, fmt.Errorf("%w: match %d, %d:%d", ErrAmbiguousResult, match.ID, score1, score2)
	}
	if score1 > score2 {
		return match.Participant1ID, nil
	}
	return match.Participant2ID, nil
}

// ValidateMember checks that the designated participant (walkover receiver or
// disqualified side) actually plays in the match.
func ValidateMember(match *models.Match, participantID int) error {
	if match.Participant1ID != nil && *match.Participant1ID == participantID {
		return nil
	}
	if match.Participant2ID != nil && *match.Participant2ID == participantID {
		return nil
	}
	return fmt.Errorf("%w: participant %d, match %d", ErrWinnerNotInMatch, participantID, match.ID)
}

// Opponent returns the other participant of the match, or nil when the other
// slot is a bye or still TBD.
func Opponent(match *models.Match, participantID int) *int {
	if match.Participant1ID != nil && *match.Participant1ID == participantID {
		return match.Participant2ID
	}
	if match.Participant2ID != nil && *match.Participant2ID == participantID {
		return match.Participant1ID
	}
	return nil
}
