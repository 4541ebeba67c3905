package domain

import "errors"

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrEmptyMessage       = errors.New("message has neither content nor attachment")
	ErrMessageTooLarge    = errors.New("message too large")
	ErrUserExists         = errors.New("username or email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailConflict      = errors.New("email already exists")
	ErrInvalidOTP         = errors.New("invalid otp")
)
