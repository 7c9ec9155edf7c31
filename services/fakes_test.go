package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
)

// In-memory repository fakes. They mirror the Postgres repositories' error
// contracts, including the optimistic version check on match updates and the
// per-tournament seed uniqueness constraint, so the services can be exercised
// without a database. All fakes are safe for concurrent use, like the real
// repositories.

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Match

	// beforeUpdate runs once against the stored row before the next Update's
	// version check, simulating a concurrent writer that committed first.
	beforeUpdate func(stored *models.Match)
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, byID: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *match
	cp.ID = r.nextID
	r.nextID++
	cp.Version = 1
	cp.CreatedAt = time.Now()
	r.byID[cp.ID] = &cp

	match.ID = cp.ID
	match.Version = cp.Version
	match.CreatedAt = cp.CreatedAt
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, groupID *int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Match, 0)
	for _, m := range r.byID {
		if m.TournamentID != tournamentID {
			continue
		}
		if groupID != nil && m.GroupID != *groupID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.IsBronzeMatch != b.IsBronzeMatch {
			return !a.IsBronzeMatch
		}
		return a.PositionInRound < b.PositionInRound
	})
	return out, nil
}

func (r *fakeMatchRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, m := range r.byID {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) UpdateLinks(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID, nextSlot, loserMatchID, loserSlot *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.NextMatchID = nextMatchID
	stored.NextSlot = nextSlot
	stored.LoserMatchID = loserMatchID
	stored.LoserSlot = loserSlot
	return nil
}

func (r *fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook(stored)
	}
	if stored.Version != match.Version {
		return fmt.Errorf("%w: match %d, version %d", repositories.ErrMatchVersionConflict, match.ID, match.Version)
	}
	stored.Participant1ID = match.Participant1ID
	stored.Participant2ID = match.Participant2ID
	stored.WinnerID = match.WinnerID
	stored.Status = match.Status
	stored.ScheduledAt = match.ScheduledAt
	stored.Score1 = match.Score1
	stored.Score2 = match.Score2
	stored.IsFinalized = match.IsFinalized
	stored.DisqualifiedID = match.DisqualifiedID
	stored.Version++
	match.Version = stored.Version
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.byID {
		if m.TournamentID == tournamentID {
			delete(r.byID, id)
		}
	}
	return nil
}

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, byID: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *t
	cp.ID = r.nextID
	r.nextID++
	cp.CreatedAt = time.Now()
	r.byID[cp.ID] = &cp

	t.ID = cp.ID
	t.CreatedAt = cp.CreatedAt
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Tournament, 0)
	for _, t := range r.byID {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, id, winnerParticipantID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	winner := winnerParticipantID
	stored.WinnerID = &winner
	stored.Status = models.TournamentStatusCompleted
	return nil
}

func (r *fakeTournamentRepo) ClearWinner(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.WinnerID = nil
	stored.Status = models.TournamentStatusActive
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.LogoKey = logoKey
	return nil
}

type fakeParticipantRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{nextID: 1, byID: make(map[int]*models.Participant)}
}

func (r *fakeParticipantRepo) Create(_ context.Context, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.TournamentID == p.TournamentID && existing.Name == p.Name {
			return repositories.ErrParticipantNameConflict
		}
	}
	cp := *p
	cp.ID = r.nextID
	r.nextID++
	cp.CreatedAt = time.Now()
	r.byID[cp.ID] = &cp

	p.ID = cp.ID
	p.CreatedAt = cp.CreatedAt
	return nil
}

func (r *fakeParticipantRepo) GetByID(_ context.Context, id int) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Participant, 0)
	for _, p := range r.byID {
		if p.TournamentID == tournamentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Seed != nil && b.Seed != nil && *a.Seed != *b.Seed:
			return *a.Seed < *b.Seed
		case a.Seed != nil && b.Seed == nil:
			return true
		case a.Seed == nil && b.Seed != nil:
			return false
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *fakeParticipantRepo) UpdateSeed(_ context.Context, _ repositories.SQLExecutor, id int, seed *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	if seed != nil {
		for otherID, other := range r.byID {
			if otherID != id && other.TournamentID == stored.TournamentID &&
				other.Seed != nil && *other.Seed == *seed {
				return repositories.ErrParticipantSeedConflict
			}
		}
	}
	stored.Seed = seed
	return nil
}

func (r *fakeParticipantRepo) ClearSeeds(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		if p.TournamentID == tournamentID {
			p.Seed = nil
		}
	}
	return nil
}

func (r *fakeParticipantRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	stored.LogoKey = logoKey
	return nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, byID: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	cp := *user
	cp.ID = r.nextID
	r.nextID++
	cp.CreatedAt = time.Now()
	r.byID[cp.ID] = &cp

	user.ID = cp.ID
	user.CreatedAt = cp.CreatedAt
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}
