package services

import "errors"

// Shared sentinel errors, grouped by how handlers should treat them:
// validation errors reject the request with no state change, conflict errors
// invite a "force"/"cascade" retry, integrity errors are internal invariant
// violations surfaced as generic failures.
var (
	// Not found
	ErrNotFound            = errors.New("requested resource not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Validation / business rules
	ErrValidationFailed           = errors.New("validation failed")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidRegDate   = errors.New("tournament registration end date must be before start date")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity  = errors.New("tournament capacity must admit at least 2 participants")
	ErrRegistrationNotOpen        = errors.New("tournament registration is not open")
	ErrTournamentFull             = errors.New("tournament registration is full")
	ErrMatchNotFinalized          = errors.New("match is not finalized, nothing to reopen")
	ErrMatchNotReopenable         = errors.New("bye matches cannot be reopened")
	ErrScheduleTimeRequired       = errors.New("scheduled time is required")
	ErrScheduleTimeInPast         = errors.New("scheduled time must not be in the past")
	ErrResultPayloadInvalid       = errors.New("exactly one of scores, walkover or disqualification must be provided")

	// Conflicts
	ErrBracketAlreadyExists       = errors.New("bracket already exists for this tournament")
	ErrConcurrentModification     = errors.New("match was modified by a concurrent request")
	ErrDownstreamAlreadyFinalized = errors.New("a downstream match is already finalized, retraction requires cascade")
	ErrFeederMatchUndecided       = errors.New("the open slot still awaits the outcome of a feeder match")
	ErrUserEmailConflict          = errors.New("email address is already in use")
	ErrUserNicknameConflict       = errors.New("nickname is already in use")
	ErrParticipantNameConflict    = errors.New("participant name already registered in this tournament")
	ErrTournamentNameConflict     = errors.New("tournament name already exists")

	// Authentication / authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Integrity: the bracket graph violated one of its own invariants.
	// Never patched silently, always surfaced as an internal failure.
	ErrBracketIntegrity = errors.New("bracket integrity violation")
)
