package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusRegistration TournamentStatus = "registration"
	TournamentStatusActive       TournamentStatus = "active"
	TournamentStatusCompleted    TournamentStatus = "completed"
	TournamentStatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Game            *string          `json:"game,omitempty" db:"game"`
	Description     *string          `json:"description,omitempty" db:"description"`
	OrganizerID     int              `json:"organizer_id" db:"organizer_id"`
	BracketType     BracketType      `json:"bracket_type" db:"bracket_type"`
	SeedingMode     SeedingMode      `json:"seeding_mode" db:"seeding_mode"`
	Status          TournamentStatus `json:"status" db:"status"`
	MinParticipants int              `json:"min_participants" db:"min_participants"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	TeamSize        int              `json:"team_size" db:"team_size"`
	RegDate         time.Time        `json:"reg_date" db:"reg_date"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	EndDate         time.Time        `json:"end_date" db:"end_date"`
	SettingsJSON    *string          `json:"-" db:"settings_json"`
	WinnerID        *int             `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	LogoKey         *string          `json:"-" db:"logo_key"`
	LogoURL         *string          `json:"logo_url,omitempty" db:"-"`

	// Parsed format settings, populated by the service layer.
	Settings *SingleEliminationSettings `json:"settings,omitempty" db:"-"`

	// Optional related entities, loaded on demand.
	Participants []Participant `json:"participants,omitempty" db:"-"`
}
