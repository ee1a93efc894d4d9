package domain

import "errors"

var (
	ErrInvalidStrategy   = errors.New("invalid_strategy")
	ErrInvalidThreshold  = errors.New("invalid_threshold")
	ErrInvalidScope      = errors.New("invalid_scope")
	ErrInvalidCommitment = errors.New("invalid_commitment")
	ErrUnknownRule       = errors.New("unknown_rule")
	ErrMissingRuleSet    = errors.New("missing_rule_set")
	ErrEmptyRoster       = errors.New("empty_roster")
	ErrRosterTooLarge    = errors.New("roster_too_large")
)
