package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
)

type SeedingMode string

const (
	SeedingAuto   SeedingMode = "auto"
	SeedingManual SeedingMode = "manual"
	SeedingRandom SeedingMode = "random"
)

var ErrUnknownBracketType = errors.New("unknown bracket type")

// SingleEliminationSettings is the format-specific payload for single
// elimination tournaments. Settings are stored as JSONB and parsed at the
// boundary, so nothing loosely typed reaches the bracket engine.
type SingleEliminationSettings struct {
	BronzeMatch    bool `json:"bronze_match"`
	NumberOfGroups int  `json:"number_of_groups"`
}

// ParseSingleEliminationSettings decodes a raw settings document for the
// given bracket type. A nil/empty document yields the defaults: no bronze
// match, one group.
func ParseSingleEliminationSettings(bracketType BracketType, raw *string) (*SingleEliminationSettings, error) {
	if bracketType != BracketSingleElimination {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBracketType, bracketType)
	}
	settings := &SingleEliminationSettings{NumberOfGroups: 1}
	if raw == nil || *raw == "" {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(*raw), settings); err != nil {
		return nil, fmt.Errorf("failed to parse single elimination settings: %w", err)
	}
	if settings.NumberOfGroups < 1 {
		settings.NumberOfGroups = 1
	}
	return settings, nil
}
