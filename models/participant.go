package models

import "time"

type ParticipantType string

const (
	ParticipantTypeTeam   ParticipantType = "team"
	ParticipantTypePlayer ParticipantType = "player"
)

// Participant is a team or player registered into one tournament. Seed is a
// positive integer unique within the tournament's bracket; nil means the
// participant has not been seeded yet.
type Participant struct {
	ID           int             `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	Name         string          `json:"name" db:"name"`
	Type         ParticipantType `json:"type" db:"type"`
	Seed         *int            `json:"seed,omitempty" db:"seed"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	LogoKey      *string         `json:"-" db:"logo_key"`
	LogoURL      *string         `json:"logo_url,omitempty" db:"-"`
}
