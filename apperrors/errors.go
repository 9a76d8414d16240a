// Package apperrors holds the error taxonomy shared by the engine packages.
// Every error names the tournament (and session, when known) and the invariant it violates.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Виды ошибок. Проверяются через errors.Is.
var (
	ErrValidation               = errors.New("validation failed")
	ErrDataIntegrity            = errors.New("data integrity violation")
	ErrConcurrencyConflict      = errors.New("concurrent progression conflict")
	ErrRewardAlreadyDistributed = errors.New("rewards already distributed")
)

// Invariant names used across the engine.
const (
	InvariantProbabilitySum     = "probabilities_sum_to_one"
	InvariantPointsScheme       = "points_scheme_ordered"
	InvariantSkillWeights       = "enabled_skill_weight_positive"
	InvariantConfigVersion      = "config_version_supported"
	InvariantKnockoutNoDraw     = "knockout_has_no_draws"
	InvariantFormatKnown        = "format_known"
	InvariantStatusForward      = "status_moves_forward"
	InvariantResultImmutable    = "result_immutable"
	InvariantResultShape        = "result_matches_session"
	InvariantWinnerPresent      = "completed_session_has_winner"
	InvariantRoundComplete      = "round_complete"
	InvariantRankingFrozen      = "ranking_frozen_after_rewards"
	InvariantRewardOnce         = "reward_distributed_once"
	InvariantNextRoundOnce      = "next_round_created_once"
	InvariantParticipantsUnique = "participants_unique"
	InvariantGroupSettings      = "group_settings_satisfiable"
	InvariantRewardTiers        = "reward_tiers_valid"
	InvariantRankingTotal       = "ranking_is_total_order"
)

// Error is a classified engine error.
type Error struct {
	Kind         error
	TournamentID int
	SessionID    int
	Invariant    string
	Detail       string
	Cause        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.TournamentID != 0 {
		fmt.Fprintf(&b, ": tournament %d", e.TournamentID)
	}
	if e.SessionID != 0 {
		fmt.Fprintf(&b, " session %d", e.SessionID)
	}
	if e.Invariant != "" {
		fmt.Fprintf(&b, ": invariant %s", e.Invariant)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func Validation(tournamentID, sessionID int, invariant, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, TournamentID: tournamentID, SessionID: sessionID, Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

func DataIntegrity(tournamentID, sessionID int, invariant, format string, args ...any) *Error {
	return &Error{Kind: ErrDataIntegrity, TournamentID: tournamentID, SessionID: sessionID, Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

func Conflict(tournamentID int, invariant string, cause error) *Error {
	return &Error{Kind: ErrConcurrencyConflict, TournamentID: tournamentID, Invariant: invariant, Cause: cause}
}

func AlreadyDistributed(tournamentID int) *Error {
	return &Error{Kind: ErrRewardAlreadyDistributed, TournamentID: tournamentID, Invariant: InvariantRewardOnce}
}

// Wrap classifies cause under kind unless it already wraps an *Error, in which case
// only the missing ids and the outer wrapping text are added to it.
func Wrap(kind error, tournamentID, sessionID int, invariant string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		cp := *e
		if cp.TournamentID == 0 {
			cp.TournamentID = tournamentID
		}
		if cp.SessionID == 0 {
			cp.SessionID = sessionID
		}
		// Контекст внешних обёрток (fmt.Errorf("%s: %w")) переносим в Detail.
		if prefix := strings.TrimSuffix(strings.TrimSuffix(cause.Error(), e.Error()), ": "); prefix != cause.Error() && prefix != "" {
			if cp.Detail == "" {
				cp.Detail = prefix
			} else {
				cp.Detail = prefix + ": " + cp.Detail
			}
		}
		return &cp
	}
	return &Error{Kind: kind, TournamentID: tournamentID, SessionID: sessionID, Invariant: invariant, Cause: cause}
}

// InvariantOf returns the invariant name carried by err, if any.
func InvariantOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Invariant
	}
	return ""
}
