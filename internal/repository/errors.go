package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Expected conflict states. The postgres uniqueness constraints are the
// source of truth for these; in-process pre-checks only shortcut the common
// case, so a constraint violation surfacing from an insert is mapped to the
// same sentinel the pre-check would have produced.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateReferral = errors.New("referee already has a referral")
	ErrAlreadyOwned      = errors.New("student already owns this course")
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
