package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrTaskNotFound  = errors.New("task not found")
	ErrEntryNotFound = errors.New("time entry not found")
	ErrNoteNotFound  = errors.New("note not found")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
