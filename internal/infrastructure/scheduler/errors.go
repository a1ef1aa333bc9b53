package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned by RunOnce while another sweep is still running
	ErrSweepInProgress = errors.New("overdue sweep already in progress")
)
