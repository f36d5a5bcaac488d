package database

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation   pq.ErrorCode = "23505"
	lockNotAvailable  pq.ErrorCode = "55P03"
	foreignKeyMissing pq.ErrorCode = "23503"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == code
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// IsLockNotAvailable reports whether err was caused by lock_timeout expiring
func IsLockNotAvailable(err error) bool {
	return hasCode(err, lockNotAvailable)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyMissing)
}

// ConstraintName returns the violated constraint, if any
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ""
	}
	return pqErr.Constraint
}
