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
	ErrTournamentNotFound         = errors.New("tournament not found")
	ErrTournamentNameConflict     = errors.New("tournament name already exists")
	ErrTournamentOrganizerInvalid = errors.New("tournament references an invalid organizer")
)

const tournamentColumns = `
	id, name, game, description, organizer_id, bracket_type, seeding_mode,
	status, min_participants, max_participants, team_size, reg_date,
	start_date, end_date, settings_json, winner_participant_id, logo_key,
	created_at`

type ListTournamentsFilter struct {
	Status      *models.TournamentStatus
	OrganizerID *int
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, id, winnerParticipantID int) error
	ClearWinner(ctx context.Context, exec SQLExecutor, id int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(name, game, description, organizer_id, bracket_type, seeding_mode,
			 status, min_participants, max_participants, team_size, reg_date,
			 start_date, end_date, settings_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name,
		t.Game,
		t.Description,
		t.OrganizerID,
		t.BracketType,
		t.SeedingMode,
		t.Status,
		t.MinParticipants,
		t.MaxParticipants,
		t.TeamSize,
		t.RegDate,
		t.StartDate,
		t.EndDate,
		t.SettingsJSON,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(exec.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`)

	args := []interface{}{}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.OrganizerID != nil {
		queryBuilder.WriteString(" AND organizer_id = $" + strconv.Itoa(len(args)+1))
		args = append(args, *filter.OrganizerID)
	}
	queryBuilder.WriteString(" ORDER BY start_date DESC, id DESC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(len(args)+1))
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(len(args)+1))
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if scanErr := scanTournament(rows, t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, id, winnerParticipantID int) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournaments SET winner_participant_id = $1, status = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, winnerParticipantID, models.TournamentStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to set winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ClearWinner retracts a previously recorded champion, moving the tournament
// back to active. Used when the final match is reopened.
func (r *postgresTournamentRepository) ClearWinner(ctx context.Context, exec SQLExecutor, id int) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournaments SET winner_participant_id = NULL, status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, models.TournamentStatusActive, id)
	if err != nil {
		return fmt.Errorf("failed to clear winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update logo key for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID,
		&t.Name,
		&t.Game,
		&t.Description,
		&t.OrganizerID,
		&t.BracketType,
		&t.SeedingMode,
		&t.Status,
		&t.MinParticipants,
		&t.MaxParticipants,
		&t.TeamSize,
		&t.RegDate,
		&t.StartDate,
		&t.EndDate,
		&t.SettingsJSON,
		&t.WinnerID,
		&t.LogoKey,
		&t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "tournaments_name_key":
			return ErrTournamentNameConflict
		case "tournaments_organizer_id_fkey":
			return ErrTournamentOrganizerInvalid
		}
	}
	return err
}
