package review

import "errors"

var (
	ErrNoFiles           = errors.New("at least one file is required")
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrInvalidDecision   = errors.New("decision must be accept or reject")
	ErrInvalidTransition = errors.New("action not allowed in the item's current status")
	ErrInvalidReason     = errors.New("unknown feedback reason")
)
