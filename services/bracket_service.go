package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/Ljimmex/NexArenav2-sub001/brackets"
	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	"golang.org/x/sync/errgroup"
)

// GenerateBracketInput triggers bracket generation for one tournament. The
// bronze match flag and group count default to the tournament's stored format
// settings; explicit values here override them. Force replaces an existing
// bracket atomically instead of failing with ErrBracketAlreadyExists.
type GenerateBracketInput struct {
	TournamentID   int   `json:"tournament_id"`
	Force          bool  `json:"force"`
	BronzeMatch    *bool `json:"bronze_match,omitempty"`
	NumberOfGroups *int  `json:"number_of_groups,omitempty"`
}

type BracketService interface {
	GenerateBracket(ctx context.Context, organizerID int, input GenerateBracketInput) (*models.BracketView, error)
	GetBracket(ctx context.Context, tournamentID int, groupID *int) (*models.BracketView, error)
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	hub             *brackets.Hub
	rng             *rand.Rand
	rngMu           sync.Mutex
	log             *slog.Logger
}

// NewBracketService wires the bracket engine. rng drives RANDOM seeding and
// is injected so tests can pin the permutation; production callers seed it
// once at startup.
func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	hub *brackets.Hub,
	rng *rand.Rand,
	log *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		hub:             hub,
		rng:             rng,
		log:             log,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, organizerID int, input GenerateBracketInput) (*models.BracketView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", input.TournamentID, err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}

	settings, err := models.ParseSingleEliminationSettings(tournament.BracketType, tournament.SettingsJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if input.BronzeMatch != nil {
		settings.BronzeMatch = *input.BronzeMatch
	}
	if input.NumberOfGroups != nil {
		settings.NumberOfGroups = *input.NumberOfGroups
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournament.ID, err)
	}

	// rand.Rand is not safe for concurrent shuffles.
	s.rngMu.Lock()
	slots, err := brackets.Seed(participants, tournament.SeedingMode, tournament.MaxParticipants, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	generator := brackets.NewSingleEliminationGenerator()
	generated, err := generator.GenerateBracket(brackets.GenerateParams{Slots: slots, Settings: *settings})
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent generate calls for the same tournament. The lock
	// is released automatically on commit or rollback.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(tournament.ID)); err != nil {
		return nil, fmt.Errorf("failed to acquire generation lock for tournament %d: %w", tournament.ID, err)
	}

	existing, err := s.matchRepo.CountByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		if !input.Force {
			return nil, fmt.Errorf("%w: tournament %d has %d matches", ErrBracketAlreadyExists, tournament.ID, existing)
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, tournament.ID); err != nil {
			return nil, err
		}
	}

	// First pass: insert every match, remembering which row each match
	// number landed in.
	numberToID := make(map[int]int, len(generated))
	for _, bm := range generated {
		match := &models.Match{
			TournamentID:    tournament.ID,
			GroupID:         bm.GroupID,
			MatchNumber:     bm.MatchNumber,
			Round:           bm.Round,
			PositionInRound: bm.PositionInRound,
			Participant1ID:  bm.Participant1ID,
			Participant2ID:  bm.Participant2ID,
			Slot1Bye:        bm.Slot1Bye,
			Slot2Bye:        bm.Slot2Bye,
			WinnerID:        bm.WinnerID,
			Status:          bm.Status,
			IsBronzeMatch:   bm.IsBronzeMatch,
			IsFinalized:     bm.IsFinalized,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to create match %d for tournament %d: %w", bm.MatchNumber, tournament.ID, err)
		}
		numberToID[bm.MatchNumber] = match.ID
	}

	// Second pass: resolve match-number links into row ids.
	for _, bm := range generated {
		if bm.NextMatchNumber == nil && bm.LoserMatchNumber == nil {
			continue
		}
		var nextID, loserID *int
		if bm.NextMatchNumber != nil {
			id := numberToID[*bm.NextMatchNumber]
			nextID = &id
		}
		if bm.LoserMatchNumber != nil {
			id := numberToID[*bm.LoserMatchNumber]
			loserID = &id
		}
		if err := s.matchRepo.UpdateLinks(ctx, tx, numberToID[bm.MatchNumber], nextID, bm.NextSlot, loserID, bm.LoserSlot); err != nil {
			return nil, err
		}
	}

	// Persist the seed numbers the seeder assigned. Seeds are released first:
	// re-assigning a permutation row by row would otherwise collide with the
	// per-tournament uniqueness constraint.
	if err := s.participantRepo.ClearSeeds(ctx, tx, tournament.ID); err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if slot.Bye {
			continue
		}
		if err := s.participantRepo.UpdateSeed(ctx, tx, slot.Participant.ID, slot.Participant.Seed); err != nil {
			return nil, err
		}
	}

	if tournament.Status == models.TournamentStatusRegistration {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.TournamentStatusActive); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket for tournament %d: %w", tournament.ID, err)
	}

	s.log.Info("bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("participants", len(participants)),
		slog.Int("matches", len(generated)),
		slog.Int("groups", settings.NumberOfGroups),
		slog.Bool("bronze_match", settings.BronzeMatch),
	)

	view, err := s.GetBracket(ctx, tournament.ID, nil)
	if err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.TournamentRoom(tournament.ID), brackets.EventBracketGenerated, view)
	}
	return view, nil
}

// GetBracket projects the stored matches into the round-grouped view. An
// ungenerated bracket yields an empty view, not an error.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int, groupID *int) (*models.BracketView, error) {
	var (
		matches      []*models.Match
		participants []*models.Participant
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, s.db, tournamentID, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load bracket for tournament %d: %w", tournamentID, err)
	}

	view := &models.BracketView{
		TournamentID: tournamentID,
		Generated:    len(matches) > 0,
		Participants: make(map[int]*models.Participant, len(participants)),
	}
	for _, p := range participants {
		view.Participants[p.ID] = p
	}
	if len(matches) == 0 {
		return view, nil
	}

	byGroup := make(map[int]*models.GroupBracketView)
	groupOrder := make([]int, 0)
	for _, m := range matches {
		gv, ok := byGroup[m.GroupID]
		if !ok {
			gv = &models.GroupBracketView{GroupID: m.GroupID}
			byGroup[m.GroupID] = gv
			groupOrder = append(groupOrder, m.GroupID)
		}
		if m.IsBronzeMatch {
			gv.BronzeMatch = m
			continue
		}
		if m.Round > gv.TotalRounds {
			gv.TotalRounds = m.Round
		}
		var round *models.RoundView
		for _, rv := range gv.Rounds {
			if rv.Round == m.Round {
				round = rv
				break
			}
		}
		if round == nil {
			round = &models.RoundView{Round: m.Round}
			gv.Rounds = append(gv.Rounds, round)
		}
		round.Matches = append(round.Matches, m)
	}

	sort.Ints(groupOrder)
	for _, id := range groupOrder {
		gv := byGroup[id]
		sort.Slice(gv.Rounds, func(i, j int) bool { return gv.Rounds[i].Round < gv.Rounds[j].Round })
		for _, rv := range gv.Rounds {
			sort.Slice(rv.Matches, func(i, j int) bool { return rv.Matches[i].PositionInRound < rv.Matches[j].PositionInRound })
		}
		view.Groups = append(view.Groups, gv)
	}
	return view, nil
}
