package simulator

import "errors"

var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassifierTimeout     = errors.New("classifier timeout")
	ErrSchedulerStopped      = errors.New("scheduler stopped")
)
