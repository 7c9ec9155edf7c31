package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	"github.com/Ljimmex/NexArenav2-sub001/storage"
	"github.com/google/uuid"
)

type RegisterParticipantInput struct {
	TournamentID int                    `json:"tournament_id"`
	Name         string                 `json:"name"`
	Type         models.ParticipantType `json:"type"`
	Seed         *int                   `json:"seed,omitempty"`
}

type ParticipantService interface {
	RegisterParticipant(ctx context.Context, input RegisterParticipantInput) (*models.Participant, error)
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	UploadParticipantLogo(ctx context.Context, organizerID, participantID int, contentType string, reader io.Reader) (*models.Participant, error)
}

type participantService struct {
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	uploader        storage.FileUploader
	log             *slog.Logger
}

func NewParticipantService(
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
	log *slog.Logger,
) ParticipantService {
	return &participantService{
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		uploader:        uploader,
		log:             log,
	}
}

func (s *participantService) RegisterParticipant(ctx context.Context, input RegisterParticipantInput) (*models.Participant, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: participant name is required", ErrValidationFailed)
	}
	if input.Type == "" {
		input.Type = models.ParticipantTypeTeam
	}
	if input.Type != models.ParticipantTypeTeam && input.Type != models.ParticipantTypePlayer {
		return nil, fmt.Errorf("%w: unknown participant type %q", ErrValidationFailed, input.Type)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status != models.TournamentStatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	existing, err := s.participantRepo.ListByTournament(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= tournament.MaxParticipants {
		return nil, fmt.Errorf("%w: tournament %d allows %d participants", ErrTournamentFull, tournament.ID, tournament.MaxParticipants)
	}
	if input.Seed != nil && (*input.Seed < 1 || *input.Seed > tournament.MaxParticipants) {
		return nil, fmt.Errorf("%w: seed %d is out of range 1..%d", ErrValidationFailed, *input.Seed, tournament.MaxParticipants)
	}

	participant := &models.Participant{
		TournamentID: input.TournamentID,
		Name:         input.Name,
		Type:         input.Type,
		Seed:         input.Seed,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, mapParticipantRepoError(err)
	}

	s.log.Info("participant registered",
		slog.Int("tournament_id", input.TournamentID),
		slog.Int("participant_id", participant.ID),
		slog.String("name", participant.Name),
	)
	return participant, nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if s.uploader != nil {
		for _, p := range participants {
			if p.LogoKey != nil {
				url := s.uploader.GetPublicURL(*p.LogoKey)
				p.LogoURL = &url
			}
		}
	}
	return participants, nil
}

func (s *participantService) UploadParticipantLogo(ctx context.Context, organizerID, participantID int, contentType string, reader io.Reader) (*models.Participant, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, participant.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("participants/%d/logo-%s", participantID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload participant logo: %w", err)
	}
	if err := s.participantRepo.UpdateLogoKey(ctx, participantID, &result.Key); err != nil {
		return nil, err
	}
	if participant.LogoKey != nil && *participant.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *participant.LogoKey); delErr != nil {
			s.log.Warn("failed to delete previous participant logo",
				slog.Int("participant_id", participantID),
				slog.String("key", *participant.LogoKey),
				slog.Any("error", delErr),
			)
		}
	}

	participant.LogoKey = &result.Key
	participant.LogoURL = &result.Location
	return participant, nil
}

func mapParticipantRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrParticipantNameConflict):
		return ErrParticipantNameConflict
	case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	}
	return err
}
