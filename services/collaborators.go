package services

import (
	"context"
	"time"
)

// Events published to tournament rooms.
const (
	EventResultRecorded      = "RESULT_RECORDED"
	EventRoundCreated        = "ROUND_CREATED"
	EventTournamentFinalized = "TOURNAMENT_FINALIZED"
	EventRewardsDistributed  = "REWARDS_DISTRIBUTED"
)

// Currencies credited through the ledger.
const (
	CurrencyXP      = "XP"
	CurrencyCredits = "CREDITS"
)

// CreditLedger is the external XP/credit bookkeeping. Calls with the same
// idempotency key must be applied at most once on the ledger side.
type CreditLedger interface {
	Credit(ctx context.Context, participantID, amount int, currency, reason, idempotencyKey string) error
}

// Notifier pushes live updates to whoever follows a tournament.
type Notifier interface {
	Publish(tournamentID int, event string, payload interface{})
}

// ArchiveStore keeps the audit snapshot of a finished tournament.
type ArchiveStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

type Metrics interface {
	ProgressionOutcome(state string)
	ObserveSubmit(d time.Duration)
	RewardsWritten(n int)
	RewardsSkipped(n int)
	SideEffectFailed(kind string)
}

type nopNotifier struct{}

func (nopNotifier) Publish(int, string, interface{}) {}

type nopMetrics struct{}

func (nopMetrics) ProgressionOutcome(string) {}
func (nopMetrics) ObserveSubmit(time.Duration) {}
func (nopMetrics) RewardsWritten(int) {}
func (nopMetrics) RewardsSkipped(int) {}
func (nopMetrics) SideEffectFailed(string) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
