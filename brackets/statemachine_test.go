package brackets

import (
	"testing"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func pendingMatch() *models.Match {
	return &models.Match{
		ID:             1,
		Status:         models.MatchStatusPending,
		Participant1ID: intPtr(10),
		Participant2ID: intPtr(20),
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.MatchStatus
		to      models.MatchStatus
		mutate  func(*models.Match)
		wantErr error
	}{
		{name: "pending to scheduled", from: models.MatchStatusPending, to: models.MatchStatusScheduled},
		{name: "scheduled to live", from: models.MatchStatusScheduled, to: models.MatchStatusLive},
		{name: "live to completed", from: models.MatchStatusLive, to: models.MatchStatusCompleted},
		{name: "pending straight to completed", from: models.MatchStatusPending, to: models.MatchStatusCompleted},
		{name: "pending to walkover", from: models.MatchStatusPending, to: models.MatchStatusWalkover},
		{name: "live to disqualified", from: models.MatchStatusLive, to: models.MatchStatusDisqualified},
		{name: "scheduled to cancelled", from: models.MatchStatusScheduled, to: models.MatchStatusCancelled},

		{name: "pending to live skips scheduled", from: models.MatchStatusPending, to: models.MatchStatusLive, wantErr: ErrInvalidTransition},
		{name: "live back to scheduled", from: models.MatchStatusLive, to: models.MatchStatusScheduled, wantErr: ErrInvalidTransition},
		{name: "completed admits nothing", from: models.MatchStatusCompleted, to: models.MatchStatusLive, wantErr: ErrInvalidTransition},
		{name: "walkover admits nothing", from: models.MatchStatusWalkover, to: models.MatchStatusCompleted, wantErr: ErrInvalidTransition},
		{name: "cancelled admits nothing", from: models.MatchStatusCancelled, to: models.MatchStatusScheduled, wantErr: ErrInvalidTransition},
		{
			name: "schedule needs both participants",
			from: models.MatchStatusPending,
			to:   models.MatchStatusScheduled,
			mutate: func(m *models.Match) {
				m.Participant2ID = nil
			},
			wantErr: ErrMissingParticipant,
		},
		{
			name: "complete needs both participants",
			from: models.MatchStatusPending,
			to:   models.MatchStatusCompleted,
			mutate: func(m *models.Match) {
				m.Participant1ID = nil
			},
			wantErr: ErrMissingParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := pendingMatch()
			match.Status = tt.from
			if tt.mutate != nil {
				tt.mutate(match)
			}

			err := ValidateTransition(match, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWinnerFromScores(t *testing.T) {
	match := pendingMatch()

	winner, err := WinnerFromScores(match, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, *winner)

	winner, err = WinnerFromScores(match, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, *winner)

	_, err = WinnerFromScores(match, 2, 2)
	assert.ErrorIs(t, err, ErrAmbiguousResult)
}

func TestValidateMember(t *testing.T) {
	match := pendingMatch()

	assert.NoError(t, ValidateMember(match, 10))
	assert.NoError(t, ValidateMember(match, 20))
	assert.ErrorIs(t, ValidateMember(match, 30), ErrWinnerNotInMatch)
}

func TestOpponent(t *testing.T) {
	match := pendingMatch()

	require.NotNil(t, Opponent(match, 10))
	assert.Equal(t, 20, *Opponent(match, 10))
	assert.Equal(t, 10, *Opponent(match, 20))
	assert.Nil(t, Opponent(match, 30))

	match.Participant2ID = nil
	assert.Nil(t, Opponent(match, 10))
}
