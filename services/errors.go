package services

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUserNotFound        = errors.New("user not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrChallengeInactive   = errors.New("challenge not found or not active")
	ErrAlreadyJoined       = errors.New("you have already joined this challenge")
	ErrInvalidChallengeID  = errors.New("challenge_id is required and must be a number")
	ErrMissingTrigger      = errors.New("missing trigger field")
	ErrAchievementConflict = errors.New("achievement already earned")
)
