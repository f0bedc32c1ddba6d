// Package repository persists risk snapshots, plans, audit entries and the
// other records produced by an analysis cycle.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/metrics"
)

// TeamFilter selects the latest snapshot of every user in a scope. An empty
// Scope selects every user; a zero Since keeps members regardless of age.
type TeamFilter struct {
	Scope string
	Since time.Time
}

// Store provides read/write access to pipeline records. Writes are scoped to
// one user's rows; reads of other users only touch their latest snapshot.
type Store interface {
	// AppendRiskSnapshot stores an immutable snapshot. An empty ID is assigned.
	AppendRiskSnapshot(ctx context.Context, s model.RiskSnapshot) error
	// LatestRiskSnapshot returns ErrNotFound when the user has no snapshot.
	LatestRiskSnapshot(ctx context.Context, userID string) (model.RiskSnapshot, error)
	// RiskHistory returns up to limit snapshots, newest first. Zero means all.
	RiskHistory(ctx context.Context, userID string, limit int) ([]model.RiskSnapshot, error)
	// TeamRiskSnapshots returns one snapshot per user ordered by user ID.
	TeamRiskSnapshots(ctx context.Context, f TeamFilter) ([]model.RiskSnapshot, error)

	AppendSkillSnapshots(ctx context.Context, snaps []model.SkillSnapshot) error

	// UpsertWeeklyPlan is last-write-wins on (user_id, week_id); CreatedAt of
	// an existing row is kept.
	UpsertWeeklyPlan(ctx context.Context, p model.WeeklyPlan) error
	WeeklyPlan(ctx context.Context, userID, weekID string) (model.WeeklyPlan, error)

	AppendGovernanceLog(ctx context.Context, e model.GovernanceLogEntry) error
	GovernanceLogs(ctx context.Context, f governance.LogFilter) ([]model.GovernanceLogEntry, error)
	DeleteGovernanceLogsBefore(ctx context.Context, cutoff time.Time) (int, error)

	AppendMLRiskLog(ctx context.Context, l model.MLRiskLog) error
	RecentMLRiskLogs(ctx context.Context, since time.Time, limit int) ([]model.MLRiskLog, error)

	AppendMentorMemory(ctx context.Context, m model.MentorMemory) error
	MentorMemories(ctx context.Context, userID string, limit int) ([]model.MentorMemory, error)

	UpsertProfile(ctx context.Context, p model.Profile) error
	Profile(ctx context.Context, userID string) (model.Profile, error)

	Close() error
}

var (
	_ Store                     = (*SQLiteStore)(nil)
	_ Store                     = (*MemoryStore)(nil)
	_ governance.SnapshotReader = (Store)(nil)
	_ governance.LogStore       = (Store)(nil)
	_ governance.MemoryWriter   = (Store)(nil)
	_ governance.MLLogReader    = (Store)(nil)
)

// observe is deferred with a pointer to the named error result.
func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreOp(op, float64(time.Since(start).Microseconds())/1000, *err)
}

func checkLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%d: %w", limit, ErrInvalidLimit)
	}
	return nil
}

func checkUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("empty user id: %w", ErrInvalidRecord)
	}
	return nil
}
