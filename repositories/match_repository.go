package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchVersionConflict    = errors.New("match was modified concurrently")
	ErrMatchTournamentInvalid  = errors.New("match references an invalid tournament")
	ErrMatchParticipantInvalid = errors.New("match references an invalid participant")
	ErrMatchNumberConflict     = errors.New("match number already taken in this tournament")
)

const matchColumns = `
	id, tournament_id, group_id, match_number, round, position_in_round,
	participant1_id, participant2_id, slot1_bye, slot2_bye, winner_id, status,
	scheduled_at, score1, score2, is_bronze_match, is_finalized,
	disqualified_participant_id, next_match_id, next_slot, loser_match_id,
	loser_slot, version, created_at`

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, groupID *int) ([]*models.Match, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot, loserMatchID, loserSlot *int) error
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, group_id, match_number, round, position_in_round,
			 participant1_id, participant2_id, slot1_bye, slot2_bye, winner_id,
			 status, scheduled_at, score1, score2, is_bronze_match, is_finalized,
			 disqualified_participant_id, next_match_id, next_slot,
			 loser_match_id, loser_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, version, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.GroupID,
		match.MatchNumber,
		match.Round,
		match.PositionInRound,
		match.Participant1ID,
		match.Participant2ID,
		match.Slot1Bye,
		match.Slot2Bye,
		match.WinnerID,
		match.Status,
		match.ScheduledAt,
		match.Score1,
		match.Score2,
		match.IsBronzeMatch,
		match.IsFinalized,
		match.DisqualifiedID,
		match.NextMatchID,
		match.NextSlot,
		match.LoserMatchID,
		match.LoserSlot,
	).Scan(&match.ID, &match.Version, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	match := &models.Match{}
	err := scanMatch(exec.QueryRowContext(ctx, query, id), match)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, groupID *int) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if groupID != nil {
		queryBuilder.WriteString(" AND group_id = $" + strconv.Itoa(len(args)+1))
		args = append(args, *groupID)
	}
	queryBuilder.WriteString(" ORDER BY group_id ASC, round ASC, is_bronze_match ASC, position_in_round ASC")

	rows, err := exec.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		if scanErr := scanMatchRows(rows, match); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot, loserMatchID, loserSlot *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, next_slot = $2, loser_match_id = $3, loser_slot = $4
		WHERE id = $5`
	result, err := exec.ExecContext(ctx, query, nextMatchID, nextSlot, loserMatchID, loserSlot, id)
	if err != nil {
		return fmt.Errorf("failed to update links for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// Update writes the full mutable result state of the match guarded by the
// optimistic version check. A concurrent writer that committed first makes
// the version predicate miss, which surfaces as ErrMatchVersionConflict. On
// success the match's Version is refreshed in place.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET participant1_id = $1, participant2_id = $2, winner_id = $3,
		    status = $4, scheduled_at = $5, score1 = $6, score2 = $7,
		    is_finalized = $8, disqualified_participant_id = $9,
		    version = version + 1
		WHERE id = $10 AND version = $11
		RETURNING version`

	err := exec.QueryRowContext(ctx, query,
		match.Participant1ID,
		match.Participant2ID,
		match.WinnerID,
		match.Status,
		match.ScheduledAt,
		match.Score1,
		match.Score2,
		match.IsFinalized,
		match.DisqualifiedID,
		match.ID,
		match.Version,
	).Scan(&match.Version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: match %d, version %d", ErrMatchVersionConflict, match.ID, match.Version)
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner, match *models.Match) error {
	return row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.GroupID,
		&match.MatchNumber,
		&match.Round,
		&match.PositionInRound,
		&match.Participant1ID,
		&match.Participant2ID,
		&match.Slot1Bye,
		&match.Slot2Bye,
		&match.WinnerID,
		&match.Status,
		&match.ScheduledAt,
		&match.Score1,
		&match.Score2,
		&match.IsBronzeMatch,
		&match.IsFinalized,
		&match.DisqualifiedID,
		&match.NextMatchID,
		&match.NextSlot,
		&match.LoserMatchID,
		&match.LoserSlot,
		&match.Version,
		&match.CreatedAt,
	)
}

func scanMatchRows(rows *sql.Rows, match *models.Match) error {
	return scanMatch(rows, match)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_participant1_id_fkey", "matches_participant2_id_fkey",
			"matches_winner_id_fkey", "matches_disqualified_participant_id_fkey":
			return ErrMatchParticipantInvalid
		case "matches_tournament_id_match_number_key":
			return ErrMatchNumberConflict
		}
	}
	return err
}
