package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	"golang.org/x/crypto/bcrypt"
)

type RegisterUserInput struct {
	Nickname string          `json:"nickname"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterUserInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	log      *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, log *slog.Logger) AuthService {
	return &authService{userRepo: userRepo, log: log}
}

func (s *authService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	if input.Nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", ErrValidationFailed)
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidationFailed)
	}
	switch input.Role {
	case "":
		input.Role = models.RolePlayer
	case models.RolePlayer, models.RoleOrganizer:
	default:
		return nil, fmt.Errorf("%w: role %q cannot be self-assigned", ErrValidationFailed, input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserNicknameConflict):
			return nil, ErrUserNicknameConflict
		}
		return nil, err
	}

	s.log.Info("user registered", slog.Int("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Same error as a bad password so the response does not reveal
			// which accounts exist.
			return nil, ErrAuthInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return user, nil
}

func (s *authService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
