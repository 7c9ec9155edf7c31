package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	"github.com/Ljimmex/NexArenav2-sub001/storage"
	"github.com/google/uuid"
)

type CreateTournamentInput struct {
	Name            string             `json:"name"`
	Game            *string            `json:"game,omitempty"`
	Description     *string            `json:"description,omitempty"`
	BracketType     models.BracketType `json:"bracket_type"`
	SeedingMode     models.SeedingMode `json:"seeding_mode"`
	MinParticipants int                `json:"min_participants"`
	MaxParticipants int                `json:"max_participants"`
	TeamSize        int                `json:"team_size"`
	RegDate         time.Time          `json:"reg_date"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	SettingsJSON    *string            `json:"settings,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error)
	CancelTournament(ctx context.Context, organizerID, id int) error
	UploadTournamentLogo(ctx context.Context, organizerID, id int, contentType string, reader io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	uploader        storage.FileUploader
	log             *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	uploader storage.FileUploader,
	log *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		uploader:        uploader,
		log:             log,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.RegDate.Before(input.StartDate) {
		return nil, ErrTournamentInvalidRegDate
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, ErrTournamentInvalidDateRange
	}
	if input.MinParticipants < 2 || input.MaxParticipants < input.MinParticipants {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.TeamSize < 1 {
		input.TeamSize = 1
	}
	if input.SeedingMode == "" {
		input.SeedingMode = models.SeedingAuto
	}

	// Parse up front so a malformed settings payload is rejected before the
	// row exists.
	settings, err := models.ParseSingleEliminationSettings(input.BracketType, input.SettingsJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Game:            input.Game,
		Description:     input.Description,
		OrganizerID:     organizerID,
		BracketType:     input.BracketType,
		SeedingMode:     input.SeedingMode,
		Status:          models.TournamentStatusRegistration,
		MinParticipants: input.MinParticipants,
		MaxParticipants: input.MaxParticipants,
		TeamSize:        input.TeamSize,
		RegDate:         input.RegDate,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		SettingsJSON:    input.SettingsJSON,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	tournament.Settings = settings

	s.log.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("organizer_id", organizerID),
		slog.String("name", tournament.Name),
	)
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	if settings, err := models.ParseSingleEliminationSettings(tournament.BracketType, tournament.SettingsJSON); err == nil {
		tournament.Settings = settings
	}
	s.resolveLogoURL(tournament)

	participants, err := s.participantRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	tournament.Participants = make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if s.uploader != nil && p.LogoKey != nil {
			url := s.uploader.GetPublicURL(*p.LogoKey)
			p.LogoURL = &url
		}
		tournament.Participants = append(tournament.Participants, *p)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, t := range tournaments {
		s.resolveLogoURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) CancelTournament(ctx context.Context, organizerID, id int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return ErrForbiddenOperation
	}
	if tournament.Status == models.TournamentStatusCompleted || tournament.Status == models.TournamentStatusCanceled {
		return fmt.Errorf("%w: tournament %d is already %s", ErrValidationFailed, id, tournament.Status)
	}
	return s.tournamentRepo.UpdateStatus(ctx, nil, id, models.TournamentStatusCanceled)
}

func (s *tournamentService) UploadTournamentLogo(ctx context.Context, organizerID, id int, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("tournaments/%d/logo-%s", id, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}

	// Old logo is best-effort cleanup; a stale object is harmless.
	if tournament.LogoKey != nil && *tournament.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *tournament.LogoKey); delErr != nil {
			s.log.Warn("failed to delete previous tournament logo",
				slog.Int("tournament_id", id),
				slog.String("key", *tournament.LogoKey),
				slog.Any("error", delErr),
			)
		}
	}

	tournament.LogoKey = &result.Key
	tournament.LogoURL = &result.Location
	return tournament, nil
}

func (s *tournamentService) resolveLogoURL(t *models.Tournament) {
	if s.uploader != nil && t.LogoKey != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		t.LogoURL = &url
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	}
	return err
}
