package matching

import "errors"

var (
	ErrInvalidTimeWindow  = errors.New("INVALID_TIME_WINDOW")
	ErrInvalidServiceType = errors.New("INVALID_SERVICE_TYPE")
	ErrInvalidConfig      = errors.New("INVALID_MATCHING_CONFIG")
)

// CodeMalformedCandidate tags diagnostics for candidates dropped before scoring.
const CodeMalformedCandidate = "MALFORMED_CANDIDATE_SKIPPED"
