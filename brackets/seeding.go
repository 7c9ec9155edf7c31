package brackets

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/Ljimmex/NexArenav2-sub001/models"
)

var (
	ErrInvalidParticipantCount = errors.New("participant count must be between 2 and the tournament capacity")
	ErrDuplicateSeed           = errors.New("duplicate seed in manual seeding")
	ErrSeedOutOfRange          = errors.New("seed out of range in manual seeding")
	ErrMissingSeed             = errors.New("participant without a seed in manual seeding")
	ErrRandomSourceRequired    = errors.New("random seeding requires a random source")
)

// Slot is one entry of the seeded bracket order. Either Participant is set,
// or Bye is true for a padding slot.
type Slot struct {
	Participant *models.Participant
	Bye         bool
}

// Seed orders participants according to the seeding mode, assigns seed
// numbers 1..N and pads the list with byes up to the next power of two.
// Byes occupy the highest seed numbers, so the standard draw pairs them
// against the top seeds first.
//
// The function is pure: it never touches the input slice, and randomness for
// SeedingRandom comes exclusively from rng so tests can pin the permutation.
func Seed(participants []*models.Participant, mode models.SeedingMode, maxParticipants int, rng *rand.Rand) ([]Slot, error) {
	n := len(participants)
	if n < 2 || (maxParticipants > 0 && n > maxParticipants) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidParticipantCount, n)
	}

	ordered := make([]*models.Participant, n)
	for i, p := range participants {
		cp := *p
		ordered[i] = &cp
	}

	switch mode {
	case models.SeedingRandom:
		if rng == nil {
			return nil, ErrRandomSourceRequired
		}
		rng.Shuffle(n, func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	case models.SeedingManual:
		if err := validateManualSeeds(ordered); err != nil {
			return nil, err
		}
		sort.Slice(ordered, func(i, j int) bool {
			return *ordered[i].Seed < *ordered[j].Seed
		})
	case models.SeedingAuto:
		// Registration order (or the ranking the registration subsystem
		// encoded into it) is already the seed order.
	default:
		return nil, fmt.Errorf("unsupported seeding mode %q", mode)
	}

	for i := range ordered {
		seed := i + 1
		ordered[i].Seed = &seed
	}

	size := NextPowerOfTwo(n)
	slots := make([]Slot, size)
	for i := 0; i < n; i++ {
		slots[i] = Slot{Participant: ordered[i]}
	}
	for i := n; i < size; i++ {
		slots[i] = Slot{Bye: true}
	}
	return slots, nil
}

func validateManualSeeds(participants []*models.Participant) error {
	n := len(participants)
	seen := make(map[int]bool, n)
	for _, p := range participants {
		if p.Seed == nil {
			return fmt.Errorf("%w: participant %d", ErrMissingSeed, p.ID)
		}
		s := *p.Seed
		if s < 1 || s > n {
			return fmt.Errorf("%w: seed %d with %d participants", ErrSeedOutOfRange, s, n)
		}
		if seen[s] {
			return fmt.Errorf("%w: seed %d", ErrDuplicateSeed, s)
		}
		seen[s] = true
	}
	return nil
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// DrawPositions returns the seed numbers (1-indexed) in bracket slot order
// for a bracket of the given power-of-two size. Adjacent pairs form the
// round-1 matches of the classic draw: for size 8 the result is
// [1 8 4 5 2 7 3 6], i.e. (1v8),(4v5),(2v7),(3v6), so the top two seeds can
// only meet in the final.
func DrawPositions(size int) []int {
	positions := []int{1, 2}
	for len(positions) < size {
		doubled := len(positions) * 2
		next := make([]int, 0, doubled)
		for _, s := range positions {
			next = append(next, s, doubled+1-s)
		}
		positions = next
	}
	return positions
}
