package service

import "errors"

var (
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTaskNotFound       = errors.New("task not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrInvalidTransition  = errors.New("invalid task transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidImport      = errors.New("invalid notes format")
)
