package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testOrganizerID = 7

type fixture struct {
	t    *testing.T
	db   *sql.DB
	mock sqlmock.Sqlmock

	matchRepo       *fakeMatchRepo
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo

	clock *clockwork.FakeClock

	brackets BracketService
	matches  MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		t:               t,
		db:              db,
		mock:            mock,
		matchRepo:       newFakeMatchRepo(),
		tournamentRepo:  newFakeTournamentRepo(),
		participantRepo: newFakeParticipantRepo(),
		clock:           clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.brackets = NewBracketService(db, f.tournamentRepo, f.participantRepo, f.matchRepo, nil, rand.New(rand.NewSource(1)), logger)
	f.matches = NewMatchService(db, f.matchRepo, f.tournamentRepo, nil, f.clock, logger)
	return f
}

func (f *fixture) createTournament(participants int, settingsJSON string) *models.Tournament {
	return f.createTournamentSeeded(participants, models.SeedingAuto, settingsJSON)
}

func (f *fixture) createTournamentSeeded(participants int, mode models.SeedingMode, settingsJSON string) *models.Tournament {
	f.t.Helper()

	var settings *string
	if settingsJSON != "" {
		settings = &settingsJSON
	}
	start := f.clock.Now().Add(24 * time.Hour)
	tournament := &models.Tournament{
		Name:            fmt.Sprintf("Test Cup %d", f.tournamentRepo.nextID),
		OrganizerID:     testOrganizerID,
		BracketType:     models.BracketSingleElimination,
		SeedingMode:     mode,
		Status:          models.TournamentStatusRegistration,
		MinParticipants: 2,
		MaxParticipants: 32,
		TeamSize:        1,
		RegDate:         start.Add(-time.Hour),
		StartDate:       start,
		EndDate:         start.Add(48 * time.Hour),
		SettingsJSON:    settings,
	}
	require.NoError(f.t, f.tournamentRepo.Create(context.Background(), tournament))

	for i := 0; i < participants; i++ {
		p := &models.Participant{
			TournamentID: tournament.ID,
			Name:         fmt.Sprintf("Team %d", i+1),
			Type:         models.ParticipantTypeTeam,
		}
		require.NoError(f.t, f.participantRepo.Create(context.Background(), p))
	}
	return tournament
}

// expectGenerateTx registers the transaction traffic one successful bracket
// generation produces against the mock connection.
func (f *fixture) expectGenerateTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()
}

func (f *fixture) expectGenerateRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()
}

func (f *fixture) expectMatchTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *fixture) expectMatchRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func (f *fixture) generate(tournamentID int) *models.BracketView {
	f.t.Helper()
	f.expectGenerateTx()
	view, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{TournamentID: tournamentID})
	require.NoError(f.t, err)
	return view
}

func (f *fixture) matchAt(tournamentID, group, round, position int) *models.Match {
	f.t.Helper()
	matches, err := f.matchRepo.ListByTournament(context.Background(), nil, tournamentID, nil)
	require.NoError(f.t, err)
	for _, m := range matches {
		if m.GroupID == group && m.Round == round && m.PositionInRound == position && !m.IsBronzeMatch {
			return m
		}
	}
	f.t.Fatalf("no match at group %d round %d position %d", group, round, position)
	return nil
}

func (f *fixture) bronzeMatch(tournamentID, group int) *models.Match {
	f.t.Helper()
	matches, err := f.matchRepo.ListByTournament(context.Background(), nil, tournamentID, nil)
	require.NoError(f.t, err)
	for _, m := range matches {
		if m.GroupID == group && m.IsBronzeMatch {
			return m
		}
	}
	f.t.Fatalf("no bronze match in group %d", group)
	return nil
}

func TestGenerateBracketPersistsLinkedMatches(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(4, "")

	view := f.generate(tournament.ID)

	assert.True(t, view.Generated)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, 2, view.Groups[0].TotalRounds)
	require.Len(t, view.Groups[0].Rounds, 2)
	assert.Len(t, view.Groups[0].Rounds[0].Matches, 2)
	assert.Len(t, view.Groups[0].Rounds[1].Matches, 1)

	// (1v4) and (2v3) by the standard draw; participant ids equal seeds
	// because auto seeding keeps registration order.
	final := f.matchAt(tournament.ID, 1, 2, 0)
	for p, want := range [][2]int{{1, 4}, {2, 3}} {
		m := f.matchAt(tournament.ID, 1, 1, p)
		require.NotNil(t, m.Participant1ID)
		require.NotNil(t, m.Participant2ID)
		assert.Equal(t, want[0], *m.Participant1ID)
		assert.Equal(t, want[1], *m.Participant2ID)

		// Number links were resolved to row ids.
		require.NotNil(t, m.NextMatchID)
		assert.Equal(t, final.ID, *m.NextMatchID)
		assert.Equal(t, p+1, *m.NextSlot)
	}
	assert.Nil(t, final.NextMatchID)

	// Seeds were persisted and the tournament went active.
	stored, err := f.participantRepo.ListByTournament(context.Background(), nil, tournament.ID)
	require.NoError(t, err)
	for i, p := range stored {
		require.NotNil(t, p.Seed)
		assert.Equal(t, i+1, *p.Seed)
	}
	updated, err := f.tournamentRepo.GetByID(context.Background(), nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusActive, updated.Status)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateBracketConflictsUnlessForced(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(4, "")

	f.generate(tournament.ID)
	firstFinal := f.matchAt(tournament.ID, 1, 2, 0)

	f.expectGenerateRollback()
	_, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{TournamentID: tournament.ID})
	assert.ErrorIs(t, err, ErrBracketAlreadyExists)

	f.expectGenerateTx()
	view, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{TournamentID: tournament.ID, Force: true})
	require.NoError(t, err)
	assert.True(t, view.Generated)

	count, err := f.matchRepo.CountByTournament(context.Background(), nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NotEqual(t, firstFinal.ID, f.matchAt(tournament.ID, 1, 2, 0).ID)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateBracketForbiddenForNonOrganizer(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(4, "")

	_, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID+1, GenerateBracketInput{TournamentID: tournament.ID})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestGenerateBracketResolvesByesUpFront(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(3, "")

	f.generate(tournament.ID)

	// 3 participants pad to 4 slots: (1 v bye) and (2 v 3).
	walkover := f.matchAt(tournament.ID, 1, 1, 0)
	assert.True(t, walkover.Slot2Bye)
	assert.Equal(t, models.MatchStatusWalkover, walkover.Status)
	assert.True(t, walkover.IsFinalized)
	require.NotNil(t, walkover.WinnerID)
	assert.Equal(t, 1, *walkover.WinnerID)

	final := f.matchAt(tournament.ID, 1, 2, 0)
	require.NotNil(t, final.Participant1ID)
	assert.Equal(t, 1, *final.Participant1ID)
	assert.Nil(t, final.Participant2ID)
}

func TestGenerateBracketHonorsGroupSettings(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(4, `{"number_of_groups": 2}`)

	view := f.generate(tournament.ID)

	require.Len(t, view.Groups, 2)
	for _, group := range view.Groups {
		assert.Equal(t, 1, group.TotalRounds)
		require.Len(t, group.Rounds, 1)
		assert.Len(t, group.Rounds[0].Matches, 1)
	}

	// An impossible group count fails before anything is written.
	groups := 3
	_, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{
		TournamentID:   tournament.ID,
		Force:          true,
		NumberOfGroups: &groups,
	})
	assert.Error(t, err)
}

func TestGenerateBracketForceReseedsWithoutCollision(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournamentSeeded(8, models.SeedingRandom, "")

	// Registration-time seeds occupy every value the shuffle re-assigns, so
	// each regeneration writes a permutation over rows that already hold
	// conflicting seeds.
	stored, err := f.participantRepo.ListByTournament(context.Background(), nil, tournament.ID)
	require.NoError(t, err)
	for i, p := range stored {
		require.NoError(t, f.participantRepo.UpdateSeed(context.Background(), nil, p.ID, intPtr(i+1)))
	}

	f.generate(tournament.ID)
	for i := 0; i < 3; i++ {
		f.expectGenerateTx()
		_, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{TournamentID: tournament.ID, Force: true})
		require.NoError(t, err)
	}

	stored, err = f.participantRepo.ListByTournament(context.Background(), nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, stored, 8)
	seen := make(map[int]bool)
	for _, p := range stored {
		require.NotNil(t, p.Seed)
		assert.GreaterOrEqual(t, *p.Seed, 1)
		assert.LessOrEqual(t, *p.Seed, 8)
		assert.False(t, seen[*p.Seed], "seed %d assigned twice", *p.Seed)
		seen[*p.Seed] = true
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateBracketConcurrentTournaments(t *testing.T) {
	f := newFixture(t)
	f.mock.MatchExpectationsInOrder(false)

	ids := make([]int, 4)
	for i := range ids {
		tournament := f.createTournamentSeeded(8, models.SeedingRandom, "")
		ids[i] = tournament.ID
		f.expectGenerateTx()
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := f.brackets.GenerateBracket(context.Background(), testOrganizerID, GenerateBracketInput{TournamentID: id})
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		count, err := f.matchRepo.CountByTournament(context.Background(), nil, id)
		require.NoError(t, err)
		assert.Equal(t, 7, count)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetBracketBeforeGeneration(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(4, "")

	view, err := f.brackets.GetBracket(context.Background(), tournament.ID, nil)
	require.NoError(t, err)
	assert.False(t, view.Generated)
	assert.Empty(t, view.Groups)
	assert.Len(t, view.Participants, 4)
}
