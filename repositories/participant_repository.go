package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantNameConflict      = errors.New("participant name already registered in this tournament")
	ErrParticipantSeedConflict      = errors.New("seed already taken in this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant references an invalid tournament")
)

const participantColumns = `id, tournament_id, name, type, seed, logo_key, created_at`

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	// ListByTournament returns participants in seed order; unseeded
	// participants follow in registration order.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error
	// ClearSeeds releases every seed in the tournament. Re-seeding must run
	// this first: the per-tournament seed uniqueness constraint is checked
	// per statement, so assigning permuted seeds one row at a time would
	// collide with a still-current seed.
	ClearSeeds(ctx context.Context, exec SQLExecutor, tournamentID int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, name, type, seed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.TournamentID, p.Name, p.Type, p.Seed).
		Scan(&p.ID, &p.CreatedAt)
	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.Name, &p.Type, &p.Seed, &p.LogoKey, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant by id %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		WHERE tournament_id = $1
		ORDER BY seed ASC NULLS LAST, created_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.Name, &p.Type, &p.Seed, &p.LogoKey, &p.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE participants SET seed = $1 WHERE id = $2`, seed, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ClearSeeds(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if exec == nil {
		exec = r.db
	}
	_, err := exec.ExecContext(ctx, `UPDATE participants SET seed = NULL WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to clear seeds for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE participants SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update logo key for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "participants_tournament_id_name_key":
			return ErrParticipantNameConflict
		case "participants_tournament_id_seed_key":
			return ErrParticipantSeedConflict
		case "participants_tournament_id_fkey":
			return ErrParticipantTournamentInvalid
		}
	}
	return err
}
