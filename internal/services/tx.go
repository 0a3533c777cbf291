package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "stepcity/internal/errors"
	"stepcity/internal/logger"
)

// errWriteConflict signals that an optimistic read-check-write lost a race
// with a concurrent transaction and the whole transaction should be rerun.
var errWriteConflict = errors.New("concurrent write conflict")

const txMaxAttempts = 3

// inTx runs fn inside a database transaction, transparently retrying the
// whole transaction on write conflicts: our own optimistic checks,
// serialization failures, unique-constraint races on lazy row creation,
// and SQLite busy errors. When retries are exhausted the caller receives
// ErrTransactionConflict and must treat the outcome as unknown (re-read
// state before resubmitting).
func inTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		logger.Get().Debugw("retrying conflicting transaction",
			"attempt", attempt,
			"error", err.Error(),
		)
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	return apperrors.Wrap(apperrors.ErrTransactionConflict, err)
}

func isRetryable(err error) bool {
	if errors.Is(err, errWriteConflict) {
		return true
	}
	if isUniqueViolation(err) {
		return true
	}
	msg := chainMessage(err)
	return strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlstate 40001")
}

// isUniqueViolation reports whether err is a unique-constraint failure,
// used to detect lost races on lazy row creation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := chainMessage(err)
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// chainMessage concatenates the messages of the whole unwrap chain, since
// AppError wrapping replaces the outward-facing message while keeping the
// driver error inside.
func chainMessage(err error) string {
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		b.WriteString(e.Error())
		b.WriteString(" ")
	}
	return strings.ToLower(b.String())
}
