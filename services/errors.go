package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrSessionNotFound    = errors.New("session not found")

	// Ошибки регистрации
	ErrRegistrationNotOpen  = errors.New("tournament registration is not open")
	ErrTournamentFull       = errors.New("tournament registration is full")
	ErrRegistrationConflict = errors.New("participant is already registered for this tournament")

	// Ошибки турниров
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must not be negative")
	ErrTournamentInvalidWinnerCount      = errors.New("tournament winner count must be positive")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrInvalidParticipantID              = errors.New("participant id must be positive")
)
