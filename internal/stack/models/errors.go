package models

import "errors"

var (
	ErrStackNotFound    = errors.New("stack not found")
	ErrAlreadyCompleted = errors.New("stack already completed for user")
)
