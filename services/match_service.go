package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/brackets"
	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	"github.com/jonboulle/clockwork"
)

// RecordResultInput finalizes a match in one of three ways: a score pair, a
// walkover for the designated participant, or a disqualification of the
// designated participant. Exactly one form must be provided.
type RecordResultInput struct {
	MatchID     int  `json:"match_id"`
	Score1      *int `json:"score1,omitempty"`
	Score2      *int `json:"score2,omitempty"`
	WalkoverFor *int `json:"walkover_for,omitempty"`
	Disqualify  *int `json:"disqualify,omitempty"`
}

// MatchUpdateResult reports the mutated match together with every downstream
// match touched by propagation or retraction.
type MatchUpdateResult struct {
	Match      *models.Match   `json:"match"`
	Downstream []*models.Match `json:"downstream,omitempty"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ScheduleMatch(ctx context.Context, organizerID, matchID int, at time.Time) (*models.Match, error)
	StartMatch(ctx context.Context, organizerID, matchID int) (*models.Match, error)
	RecordResult(ctx context.Context, organizerID int, input RecordResultInput) (*MatchUpdateResult, error)
	CancelMatch(ctx context.Context, organizerID, matchID int) (*models.Match, error)
	ReopenMatch(ctx context.Context, organizerID, matchID int, cascade bool) (*MatchUpdateResult, error)
}

type matchService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	hub            *brackets.Hub
	clock          clockwork.Clock
	log            *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	hub *brackets.Hub,
	clock clockwork.Clock,
	log *slog.Logger,
) MatchService {
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		hub:            hub,
		clock:          clock,
		log:            log,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *matchService) ScheduleMatch(ctx context.Context, organizerID, matchID int, at time.Time) (*models.Match, error) {
	if at.IsZero() {
		return nil, ErrScheduleTimeRequired
	}
	if at.Before(s.clock.Now()) {
		return nil, ErrScheduleTimeInPast
	}

	match, _, err := s.loadOwnedMatch(ctx, s.db, organizerID, matchID)
	if err != nil {
		return nil, err
	}
	if err := brackets.ValidateTransition(match, models.MatchStatusScheduled); err != nil {
		return nil, err
	}

	match.Status = models.MatchStatusScheduled
	match.ScheduledAt = &at
	if err := s.matchRepo.Update(ctx, s.db, match); err != nil {
		return nil, mapMatchRepoError(err)
	}

	s.broadcast(match.TournamentID, brackets.EventMatchUpdated, match)
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, organizerID, matchID int) (*models.Match, error) {
	match, _, err := s.loadOwnedMatch(ctx, s.db, organizerID, matchID)
	if err != nil {
		return nil, err
	}
	if err := brackets.ValidateTransition(match, models.MatchStatusLive); err != nil {
		return nil, err
	}

	match.Status = models.MatchStatusLive
	if err := s.matchRepo.Update(ctx, s.db, match); err != nil {
		return nil, mapMatchRepoError(err)
	}

	s.broadcast(match.TournamentID, brackets.EventMatchUpdated, match)
	return match, nil
}

func (s *matchService) CancelMatch(ctx context.Context, organizerID, matchID int) (*models.Match, error) {
	match, _, err := s.loadOwnedMatch(ctx, s.db, organizerID, matchID)
	if err != nil {
		return nil, err
	}
	if err := brackets.ValidateTransition(match, models.MatchStatusCancelled); err != nil {
		return nil, err
	}

	// Cancellation is terminal without a winner: nothing propagates, the
	// dependent match keeps its TBD slot until an organizer intervenes.
	match.Status = models.MatchStatusCancelled
	if err := s.matchRepo.Update(ctx, s.db, match); err != nil {
		return nil, mapMatchRepoError(err)
	}

	s.broadcast(match.TournamentID, brackets.EventMatchUpdated, match)
	return match, nil
}

func (s *matchService) RecordResult(ctx context.Context, organizerID int, input RecordResultInput) (*MatchUpdateResult, error) {
	if err := validateResultInput(input); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	match, tournament, err := s.loadOwnedMatch(ctx, tx, organizerID, input.MatchID)
	if err != nil {
		return nil, err
	}

	switch {
	case input.Score1 != nil && input.Score2 != nil:
		if err := brackets.ValidateTransition(match, models.MatchStatusCompleted); err != nil {
			return nil, err
		}
		winner, err := brackets.WinnerFromScores(match, *input.Score1, *input.Score2)
		if err != nil {
			return nil, err
		}
		match.Score1 = input.Score1
		match.Score2 = input.Score2
		match.WinnerID = winner
		match.Status = models.MatchStatusCompleted

	case input.WalkoverFor != nil:
		if err := brackets.ValidateTransition(match, models.MatchStatusWalkover); err != nil {
			return nil, err
		}
		if err := brackets.ValidateMember(match, *input.WalkoverFor); err != nil {
			return nil, err
		}
		if err := s.ensureOpenSlotDecided(ctx, tx, match); err != nil {
			return nil, err
		}
		match.WinnerID = input.WalkoverFor
		match.Status = models.MatchStatusWalkover

	case input.Disqualify != nil:
		if err := brackets.ValidateTransition(match, models.MatchStatusDisqualified); err != nil {
			return nil, err
		}
		if err := brackets.ValidateMember(match, *input.Disqualify); err != nil {
			return nil, err
		}
		opponent := brackets.Opponent(match, *input.Disqualify)
		if opponent == nil {
			return nil, fmt.Errorf("%w: match %d has no opponent to award the win to", brackets.ErrMissingParticipant, match.ID)
		}
		match.WinnerID = opponent
		match.DisqualifiedID = input.Disqualify
		match.Status = models.MatchStatusDisqualified
	}

	match.IsFinalized = true
	if err := s.matchRepo.Update(ctx, tx, match); err != nil {
		return nil, mapMatchRepoError(err)
	}

	downstream, champion, err := s.propagate(ctx, tx, tournament, match)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit result for match %d: %w", match.ID, err)
	}

	result := &MatchUpdateResult{Match: match, Downstream: downstream}
	s.broadcast(match.TournamentID, brackets.EventMatchUpdated, result)
	if champion != nil {
		s.log.Info("tournament champion decided",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("participant_id", *champion),
		)
		s.broadcast(tournament.ID, brackets.EventTournamentWinner, map[string]interface{}{
			"tournament_id":  tournament.ID,
			"participant_id": *champion,
		})
	}
	return result, nil
}

func (s *matchService) ReopenMatch(ctx context.Context, organizerID, matchID int, cascade bool) (*MatchUpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	match, tournament, err := s.loadOwnedMatch(ctx, tx, organizerID, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsFinalized {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotFinalized, match.ID)
	}
	if match.Slot1Bye || match.Slot2Bye {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotReopenable, match.ID)
	}

	retracted, err := s.retract(ctx, tx, tournament, match, cascade)
	if err != nil {
		return nil, err
	}

	clearResult(match)
	if err := s.matchRepo.Update(ctx, tx, match); err != nil {
		return nil, mapMatchRepoError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reopen for match %d: %w", match.ID, err)
	}

	result := &MatchUpdateResult{Match: match, Downstream: retracted}
	s.broadcast(match.TournamentID, brackets.EventMatchReopened, result)
	return result, nil
}

// propagate pushes a finalized match's winner into the next round, its loser
// into the bronze match when wired, and recurses when the receiving match
// auto-resolves against a bye slot. Returns every downstream match touched
// and the tournament champion when the non-bronze final was decided.
func (s *matchService) propagate(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) ([]*models.Match, *int, error) {
	var touched []*models.Match
	var champion *int

	if match.NextMatchID != nil && match.WinnerID != nil {
		next, err := s.fillSlot(ctx, exec, *match.NextMatchID, *match.NextSlot, *match.WinnerID)
		if err != nil {
			return nil, nil, err
		}
		touched = append(touched, next)
		if next.IsFinalized {
			more, champ, err := s.propagate(ctx, exec, tournament, next)
			if err != nil {
				return nil, nil, err
			}
			touched = append(touched, more...)
			if champ != nil {
				champion = champ
			}
		}
	}

	if match.LoserMatchID != nil {
		// A walkover against a TBD slot has no loser to forward; the bronze
		// slot then stays open for the organizer.
		if loser := match.LoserID(); loser != nil {
			bronze, err := s.fillSlot(ctx, exec, *match.LoserMatchID, *match.LoserSlot, *loser)
			if err != nil {
				return nil, nil, err
			}
			touched = append(touched, bronze)
		}
	}

	if match.NextMatchID == nil && !match.IsBronzeMatch && match.WinnerID != nil {
		if err := s.tournamentRepo.SetWinner(ctx, exec, tournament.ID, *match.WinnerID); err != nil {
			return nil, nil, err
		}
		champion = match.WinnerID
	}

	return touched, champion, nil
}

// ensureOpenSlotDecided rejects a walkover while an empty slot still awaits a
// feeder match that can deliver an opponent. A cancelled feeder leaves the
// slot permanently open, so the walkover may proceed.
func (s *matchService) ensureOpenSlotDecided(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.HasBothParticipants() {
		return nil
	}
	openSlot := 1
	if match.Participant1ID != nil {
		openSlot = 2
	}
	if (openSlot == 1 && match.Slot1Bye) || (openSlot == 2 && match.Slot2Bye) {
		return nil
	}

	siblings, err := s.matchRepo.ListByTournament(ctx, exec, match.TournamentID, nil)
	if err != nil {
		return mapMatchRepoError(err)
	}
	for _, m := range siblings {
		feedsSlot := m.NextMatchID != nil && *m.NextMatchID == match.ID &&
			m.NextSlot != nil && *m.NextSlot == openSlot
		if !feedsSlot && match.IsBronzeMatch {
			feedsSlot = m.LoserMatchID != nil && *m.LoserMatchID == match.ID &&
				m.LoserSlot != nil && *m.LoserSlot == openSlot
		}
		if feedsSlot && !m.Status.IsTerminal() {
			return fmt.Errorf("%w: match %d awaits the outcome of match %d", ErrFeederMatchUndecided, match.ID, m.ID)
		}
	}
	return nil
}

// fillSlot writes a participant into one slot of the receiving match. If the
// opposite slot is a bye marker the match resolves immediately as a walkover.
func (s *matchService) fillSlot(ctx context.Context, exec repositories.SQLExecutor, matchID, slot int, participantID int) (*models.Match, error) {
	next, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if next.IsFinalized {
		return nil, fmt.Errorf("%w: cannot propagate into finalized match %d", ErrBracketIntegrity, next.ID)
	}

	occupant := next.Participant1ID
	otherBye := next.Slot2Bye
	if slot == 2 {
		occupant = next.Participant2ID
		otherBye = next.Slot1Bye
	}
	if occupant != nil && *occupant != participantID {
		return nil, fmt.Errorf("%w: slot %d of match %d already holds participant %d", ErrBracketIntegrity, slot, next.ID, *occupant)
	}

	if slot == 1 {
		next.Participant1ID = &participantID
	} else {
		next.Participant2ID = &participantID
	}
	if otherBye {
		next.WinnerID = &participantID
		next.Status = models.MatchStatusWalkover
		next.IsFinalized = true
	}

	if err := s.matchRepo.Update(ctx, exec, next); err != nil {
		return nil, mapMatchRepoError(err)
	}
	return next, nil
}

// retract undoes the propagation of a finalized match. Finalized downstream
// matches block retraction unless cascade is set, in which case the whole
// downstream chain is reopened and cleared.
func (s *matchService) retract(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, cascade bool) ([]*models.Match, error) {
	var touched []*models.Match

	if match.NextMatchID == nil && !match.IsBronzeMatch && match.WinnerID != nil {
		if err := s.tournamentRepo.ClearWinner(ctx, exec, tournament.ID); err != nil {
			return nil, err
		}
	}

	if match.NextMatchID != nil && match.WinnerID != nil {
		ms, err := s.clearSlot(ctx, exec, tournament, *match.NextMatchID, *match.NextSlot, *match.WinnerID, cascade)
		if err != nil {
			return nil, err
		}
		touched = append(touched, ms...)
	}

	if match.LoserMatchID != nil {
		if loser := match.LoserID(); loser != nil {
			ms, err := s.clearSlot(ctx, exec, tournament, *match.LoserMatchID, *match.LoserSlot, *loser, cascade)
			if err != nil {
				return nil, err
			}
			touched = append(touched, ms...)
		}
	}

	return touched, nil
}

func (s *matchService) clearSlot(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, matchID, slot, participantID int, cascade bool) ([]*models.Match, error) {
	next, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}

	occupant := next.Participant1ID
	if slot == 2 {
		occupant = next.Participant2ID
	}
	if occupant == nil || *occupant != participantID {
		return nil, fmt.Errorf("%w: slot %d of match %d does not hold participant %d", ErrBracketIntegrity, slot, next.ID, participantID)
	}

	var touched []*models.Match
	if next.IsFinalized {
		if !cascade {
			return nil, fmt.Errorf("%w: match %d", ErrDownstreamAlreadyFinalized, next.ID)
		}
		more, err := s.retract(ctx, exec, tournament, next, true)
		if err != nil {
			return nil, err
		}
		touched = append(touched, more...)
		clearResult(next)
	}

	if slot == 1 {
		next.Participant1ID = nil
	} else {
		next.Participant2ID = nil
	}
	// Without both participants the match cannot stay scheduled or live.
	if next.Status == models.MatchStatusScheduled || next.Status == models.MatchStatusLive {
		next.Status = models.MatchStatusPending
		next.ScheduledAt = nil
	}

	if err := s.matchRepo.Update(ctx, exec, next); err != nil {
		return nil, mapMatchRepoError(err)
	}
	return append(touched, next), nil
}

func clearResult(match *models.Match) {
	match.WinnerID = nil
	match.Score1 = nil
	match.Score2 = nil
	match.DisqualifiedID = nil
	match.IsFinalized = false
	match.Status = models.MatchStatusPending
	match.ScheduledAt = nil
}

func (s *matchService) loadOwnedMatch(ctx context.Context, exec repositories.SQLExecutor, organizerID, matchID int) (*models.Match, *models.Tournament, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, nil, mapMatchRepoError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, fmt.Errorf("%w: tournament %d for match %d", ErrBracketIntegrity, match.TournamentID, matchID)
		}
		return nil, nil, err
	}
	if tournament.OrganizerID != organizerID {
		return nil, nil, ErrForbiddenOperation
	}
	return match, tournament, nil
}

func (s *matchService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), eventType, payload)
}

func validateResultInput(input RecordResultInput) error {
	forms := 0
	if input.Score1 != nil || input.Score2 != nil {
		if input.Score1 == nil || input.Score2 == nil {
			return fmt.Errorf("%w: both scores are required", ErrResultPayloadInvalid)
		}
		forms++
	}
	if input.WalkoverFor != nil {
		forms++
	}
	if input.Disqualify != nil {
		forms++
	}
	if forms != 1 {
		return ErrResultPayloadInvalid
	}
	return nil
}

func mapMatchRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchVersionConflict):
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}
