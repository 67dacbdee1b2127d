package domain

import "errors"

// Storage sentinels, wrapped at the repository boundary.
var (
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
	ErrConfigNotFound       = errors.New("config-not-found")
	ErrSessionNotFound      = errors.New("session-not-found")
	ErrRecordNotFound       = errors.New("record-not-found")
)

// Command sentinels, carried as the Reason on failed command results so
// callers can match on the failure class instead of the message text.
var (
	ErrAlreadyActive       = errors.New("game-already-active")
	ErrNotActive           = errors.New("game-not-active")
	ErrInvalidReportTarget = errors.New("invalid-report-target")
	ErrNoPendingReport     = errors.New("no-pending-report")
	ErrInvalidConfigOption = errors.New("invalid-config-option")
)
